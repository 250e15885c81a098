package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func testSnapshot() *entity.PageSnapshot {
	return &entity.PageSnapshot{
		URL:         "https://example.com",
		CleanedHTML: "<body><header>Acme</header><main>" + strings.Repeat("x", 5000) + "</main><footer>Bye</footer></body>",
		Style: entity.ComputedStyle{
			Fonts:        []string{"Inter"},
			BodyBg:       "rgb(0, 0, 0)",
			BodyColor:    "rgb(255, 255, 255)",
			CSSVariables: map[string]string{"--b": "2", "--a": "1", "--c": "3"},
		},
		Outline: []entity.OutlineItem{
			{Tag: "h1", Text: "Welcome"},
			{Tag: "a", Text: "Docs", Href: "https://example.com/docs"},
			{Tag: "img", Src: "https://example.com/logo.png", Alt: "Acme"},
		},
		Nav: []entity.NavGroup{
			{Menu: 0, Label: "Products", Dropdown: &entity.DropdownLayout{
				Kind: entity.DropdownMega,
				Groups: []entity.DropdownGroup{{Title: "Build", Items: []entity.DropdownItem{
					{Title: "API", Description: "Programmatic access", SVGMarkup: "<svg>api</svg>"},
				}}},
			}, Panel: &entity.PanelStyle{BackgroundColor: "white", Width: 640}},
			{Menu: 0, Label: "Pricing"},
		},
		Interactive: []entity.Carousel{{
			Kind: entity.KindCarousel, IsInfinite: true, TotalDOMSlides: 6, VisibleCards: 3,
			Geometry: entity.ContainerGeometry{Width: 1200, Height: 400, Gap: 24, CardWidth: 384, CardHeight: 400},
			Slides:   []entity.Slide{{Title: "One"}, {Title: "Two"}},
		}},
		Images: []entity.ImageInfo{{URL: "https://example.com/hero.png", Alt: "Hero", Width: 800, Height: 600}},
		Screenshots: []entity.Screenshot{
			{Image: []byte{1}, Offset: 0},
			{Image: []byte{2}, Offset: 900},
			{Image: []byte{3}, Offset: 1800},
		},
		PageHeight:     2400,
		ViewportHeight: 900,
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(0)
	snap := testSnapshot()

	first := b.Build(snap, nil)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, b.Build(snap, nil))
	}
	assert.Less(t, strings.Index(first, "--a: 1"), strings.Index(first, "--b: 2"))
}

func TestBuildIncludesSectionsInOrder(t *testing.T) {
	p := NewBuilder(0).Build(testSnapshot(), nil)

	headings := []string{
		"## GOLDEN RULE",
		"## Output format",
		"## Component rules",
		"## Stack",
		"## Visual accuracy",
		"## EXACT COMPUTED STYLES",
		"## STRUCTURED CONTENT",
		"## NAVIGATION STRUCTURE",
		"## DROPDOWN SVG ICONS",
		"## DROPDOWN RULES",
		"## INTERACTIVE ELEMENTS",
		"## CAROUSEL PATTERNS",
		"## IMAGE URLS with context",
		"## FULL PAGE COVERAGE",
		"## HTML SKELETON",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(p, h)
		require.Greater(t, idx, last, "heading %q out of order", h)
		last = idx
	}

	assert.Contains(t, p, `  [a] "Docs" href=https://example.com/docs`)
	assert.Contains(t, p, `    [Products] ▼ dropdown (mega):`)
	assert.Contains(t, p, `      GROUP: "Build"`)
	assert.Contains(t, p, `        - "API", desc="Programmatic access", has-svg`)
	assert.Contains(t, p, "    [Pricing]\n")
	assert.Contains(t, p, "  [Products] panel style: bg: white, width: 640px")
	assert.Contains(t, p, "  [Products > API]: <svg>api</svg>")
	assert.Contains(t, p, "  CAROUSEL #1 (2 unique items, 6 DOM nodes) [INFINITE LOOP]:")
	assert.Contains(t, p, "    Card size: 384x400px, visibleCards: 3")
	assert.Contains(t, p, `  - https://example.com/hero.png (alt="Hero", 800x600)`)
	assert.NotContains(t, p, "## FONT SOURCES")
	assert.NotContains(t, p, "## READABLE TEXT")
}

func TestBuildOmitsEmptySections(t *testing.T) {
	snap := &entity.PageSnapshot{CleanedHTML: "<p>hi</p>", TextDigest: "hi"}

	p := NewBuilder(0).Build(snap, nil)

	assert.NotContains(t, p, "## NAVIGATION STRUCTURE")
	assert.NotContains(t, p, "## DROPDOWN SVG ICONS")
	assert.NotContains(t, p, "## INTERACTIVE ELEMENTS")
	assert.NotContains(t, p, "## IMAGE URLS")
	assert.NotContains(t, p, "## EXACT COMPUTED STYLES")
	assert.NotContains(t, p, "(none")
	assert.Contains(t, p, "## READABLE TEXT")
	assert.Contains(t, p, "## HTML SKELETON")
}

func TestBuildTruncatesHTML(t *testing.T) {
	snap := testSnapshot()

	p := NewBuilder(100).Build(snap, nil)

	idx := strings.Index(p, "## HTML SKELETON")
	require.GreaterOrEqual(t, idx, 0)
	body := strings.SplitN(p[idx:], "\n\n", 2)[1]
	assert.Len(t, []rune(body), 100)
}

func TestBuildSectionOwnership(t *testing.T) {
	snap := testSnapshot()
	b := NewBuilder(1000)

	tests := []struct {
		role    entity.AgentRole
		index   int
		want    string
		notWant string
	}{
		{entity.RoleTop, 0, "You own the site header/navigation", "You own the footer"},
		{entity.RoleMiddle, 1, "You own NEITHER", "You own the footer"},
		{entity.RoleBottom, 2, "You own the footer", "You own the site header"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			a := &entity.AgentAssignment{
				Index: tt.index, Count: 3, Role: tt.role,
				Screenshots: snap.Screenshots[tt.index : tt.index+1], FirstShot: tt.index,
			}
			p := b.Build(snap, a)
			assert.Contains(t, p, tt.want)
			assert.NotContains(t, p, tt.notWant)
			assert.Contains(t, p, "ONLY output files under src/components/")
			assert.NotContains(t, p, "// FILE: src/app/page.tsx - imports")

			idx := strings.Index(p, "## HTML SKELETON")
			body := strings.SplitN(p[idx:], "\n\n", 2)[1]
			assert.Len(t, []rune(body), 1000/3)
		})
	}
}

func TestContentLabels(t *testing.T) {
	snap := testSnapshot()

	blocks := Content(snap, snap.Screenshots[1:], "PROMPT")

	require.Len(t, blocks, 5)
	assert.Equal(t, "Screenshot 2 of 3 (scrolled to 37% - pixels 900-1800 of 2400px)", blocks[0].Text)
	assert.Equal(t, entity.BlockImage, blocks[1].Kind)
	assert.Equal(t, []byte{2}, blocks[1].Image)
	assert.Equal(t, "Screenshot 3 of 3 (scrolled to 75% - pixels 1800-2700 of 2400px)", blocks[2].Text)
	assert.Equal(t, "PROMPT", blocks[4].Text)
}

func TestRepresentative(t *testing.T) {
	shots := make([]entity.Screenshot, 7)
	for i := range shots {
		shots[i].Offset = i * 900
	}

	got := Representative(shots)

	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2700, 5400}, []int{got[0].Offset, got[1].Offset, got[2].Offset})
	assert.Len(t, Representative(shots[:2]), 2)
}

func TestFallbackPageRendersManifestInOrder(t *testing.T) {
	manifest := []entity.ComponentRef{
		{Name: "Navbar", Path: "src/components/Navbar.tsx", Agent: 0},
		{Name: "Hero", Path: "src/components/Hero.tsx", Agent: 0},
		{Name: "Footer", Path: "src/components/Footer.tsx", Agent: 2},
	}

	f := FallbackPage(manifest)

	assert.Equal(t, "src/app/page.tsx", f.Path)
	assert.True(t, strings.HasPrefix(f.Content, "\"use client\";"))
	assert.Contains(t, f.Content, "import Navbar from \"@/components/Navbar\";")
	nav := strings.Index(f.Content, "<Navbar />")
	hero := strings.Index(f.Content, "<Hero />")
	footer := strings.Index(f.Content, "<Footer />")
	assert.True(t, nav < hero && hero < footer)
}

func TestFixPrompts(t *testing.T) {
	whole := FixPrompt("Type error: x")
	assert.Contains(t, whole, "```\nType error: x\n```")
	assert.Contains(t, whole, "Output ALL files")

	single := FixFilePrompt("src/components/Hero.tsx", "Type error: y")
	assert.Contains(t, single, "// FILE: src/components/Hero.tsx")
	assert.Contains(t, single, "Do not output any other file")
}
