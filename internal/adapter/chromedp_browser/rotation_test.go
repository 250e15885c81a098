package chromedp_browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotationProxiesRoundRobin(t *testing.T) {
	r := NewRotation(nil, []string{"http://p1:8000", "http://p2:8000"})
	assert.Equal(t, "http://p1:8000", r.Proxy())
	assert.Equal(t, "http://p2:8000", r.Proxy())
	assert.Equal(t, "http://p1:8000", r.Proxy())
}

func TestRotationWithoutProxies(t *testing.T) {
	r := NewRotation(nil, nil)
	assert.Empty(t, r.Proxy())
	assert.Contains(t, defaultUserAgents, r.UserAgent())
}

func TestRotationCustomUserAgents(t *testing.T) {
	r := NewRotation([]string{"ua-1"}, nil)
	for i := 0; i < 5; i++ {
		assert.Equal(t, "ua-1", r.UserAgent())
	}
}
