package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlineFromHTMLKeepsDocumentOrder(t *testing.T) {
	html := `<html><body>
		<h1>Title</h1>
		<p>Intro text</p>
		<a href="/pricing">Pricing</a>
		<img src="hero.png" alt="Hero">
	</body></html>`

	items := OutlineFromHTML("https://example.com/home/", html, MaxOutlineItems)
	require.Len(t, items, 4)

	var tags []string
	for _, it := range items {
		tags = append(tags, it.Tag)
	}
	assert.Equal(t, []string{"h1", "p", "a", "img"}, tags)
	assert.Equal(t, "https://example.com/pricing", items[2].Href)
	assert.Equal(t, "https://example.com/home/hero.png", items[3].Src)
	assert.Equal(t, "Hero", items[3].Alt)
}

func TestOutlineFromHTMLSkipsEmptyAndCaps(t *testing.T) {
	html := `<body><p></p><p>one</p><p>two</p><p>three</p></body>`

	items := OutlineFromHTML("https://example.com", html, 2)
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Text)
	assert.Equal(t, "two", items[1].Text)
}
