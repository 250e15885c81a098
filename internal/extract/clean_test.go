package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func TestCleanerStripsNoiseKeepsSVG(t *testing.T) {
	longPath := strings.Repeat("M0 0L1 1", 100)
	html := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
<body>
<!-- comment -->
<noscript><img src="pixel.gif"></noscript>
<div class="hero" data-track="x" aria-label="hero" onclick="go()">

<h1 id="t">Hello</h1>
<svg viewBox="0 0 24 24" aria-hidden="true"><path d="` + longPath + `"/></svg>
</div>
</body></html>`

	out := NewCleaner().Clean(html)

	assert.NotContains(t, out, "alert(1)")
	assert.NotContains(t, out, "color:red")
	assert.NotContains(t, out, "comment")
	assert.NotContains(t, out, "pixel.gif")
	assert.NotContains(t, out, "data-track")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, `aria-label`)
	assert.Contains(t, out, `<div class="hero">`)
	assert.Contains(t, out, `<h1 id="t">Hello</h1>`)

	assert.Contains(t, out, `<svg viewBox="0 0 24 24" aria-hidden="true">`, "svg markup is kept verbatim")
	assert.Contains(t, out, `..."`)
	assert.NotContains(t, out, longPath)
	assert.NotContains(t, out, "\n\n")
}

func TestMarkdownConvert(t *testing.T) {
	md, err := NewMarkdown().Convert(`<h1>Title</h1><p>Read <a href="/docs">docs</a></p>`, "https://example.com")
	require.NoError(t, err)
	assert.Contains(t, md, "# Title")
	assert.Contains(t, md, "https://example.com/docs")

	empty, err := NewMarkdown().Convert("  ", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDedupImages(t *testing.T) {
	raw := []entity.ImageInfo{
		{URL: "/logo.png", Alt: "Logo"},
		{URL: "https://example.com/logo.png"},
		{URL: "data:image/png;base64,AAA"},
		{URL: "hero.jpg", Context: "background-image"},
	}
	got := DedupImages("https://example.com/", raw, MaxImages)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/logo.png", got[0].URL)
	assert.Equal(t, "Logo", got[0].Alt)
	assert.Equal(t, "https://example.com/hero.jpg", got[1].URL)
}

func TestCallEncodesArguments(t *testing.T) {
	assert.Equal(t, `(() => 1)(300, "a\"b")`, Call(" () => 1 ", 300, `a"b`))
}
