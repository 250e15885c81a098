package chromedp_browser

import (
	"math/rand"
	"sync"
	"time"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// Rotation hands out proxies round-robin and user agents at random.
type Rotation struct {
	proxies    []string
	userAgents []string

	mu         sync.Mutex
	proxyIndex int
	rng        *rand.Rand
}

// NewRotation falls back to built-in desktop Chrome user agents when none
// are given. No proxies means direct connections.
func NewRotation(userAgents, proxies []string) *Rotation {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return &Rotation{
		proxies:    proxies,
		userAgents: userAgents,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Proxy returns the next proxy URL, or "" when none are configured.
func (r *Rotation) Proxy() string {
	if len(r.proxies) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.proxies[r.proxyIndex]
	r.proxyIndex = (r.proxyIndex + 1) % len(r.proxies)
	return p
}

func (r *Rotation) UserAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userAgents[r.rng.Intn(len(r.userAgents))]
}
