// Package prompt renders page snapshots into generation prompts.
//
// Every function here is pure: the same snapshot and assignment always
// produce byte-identical output.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

const (
	DefaultMaxHTMLChars = 200_000
	DefaultViewport     = 900

	maxCSSVariables = 30
	maxNavSVGs      = 30
	maxSlideSVGLen  = 600
)

// Builder assembles generation prompts.
type Builder struct {
	maxHTMLChars int
}

// NewBuilder returns a builder that truncates the HTML skeleton to
// maxHTMLChars (DefaultMaxHTMLChars when <= 0).
func NewBuilder(maxHTMLChars int) *Builder {
	if maxHTMLChars <= 0 {
		maxHTMLChars = DefaultMaxHTMLChars
	}
	return &Builder{maxHTMLChars: maxHTMLChars}
}

// Build renders the prompt for one generation call. A nil assignment, or one
// with Count <= 1, yields the whole-page prompt; otherwise the prompt is
// scoped to the assignment's screenshots and ownership rules.
func (b *Builder) Build(snap *entity.PageSnapshot, a *entity.AgentAssignment) string {
	section := a != nil && a.Count > 1
	shots := snap.Screenshots
	if section {
		shots = a.Screenshots
	}
	n := len(shots)

	var w strings.Builder
	writeIntro(&w, snap, a, n, section)
	w.WriteString(goldenRule)
	if section {
		writeSectionOutput(&w, a)
	} else {
		w.WriteString(outputFormat)
	}
	w.WriteString(componentRules)
	w.WriteString(stackSection)
	w.WriteString(visualAccuracy)

	writeSection(&w, "EXACT COMPUTED STYLES (use these values, do NOT guess from screenshots)", formatStyles(snap.Style))
	if fonts := formatFonts(snap.Fonts); fonts != "" {
		w.WriteString("## FONT SOURCES\n" + fonts + "\nInclude these exact links to load correct fonts.\n\n")
	}
	writeSection(&w, "STRUCTURED CONTENT (DOM order - use for exact text and ordering)", formatOutline(snap.Outline))
	writeSection(&w, "NAVIGATION STRUCTURE (implement ALL dropdowns as functional components)", formatNav(snap.Nav))
	writeSection(&w, "DROPDOWN SVG ICONS (use exact SVGs - do NOT substitute with lucide-react)", formatNavSVGs(snap.Nav))
	w.WriteString(dropdownRules)
	writeSection(&w, "INTERACTIVE ELEMENTS (carousels, sliders, tabs - ALL items including hidden)", formatInteractive(snap.Interactive))
	w.WriteString(carouselPatterns)
	writeSection(&w, "IMAGE URLS with context", formatImages(snap.Images))
	writeCoverage(&w, snap, a, n, section)

	if n == 0 && snap.TextDigest != "" {
		w.WriteString("## READABLE TEXT (no screenshots were captured; use this for content)\n\n")
		w.WriteString(snap.TextDigest)
		w.WriteString("\n\n")
	}

	w.WriteString("## HTML SKELETON (use screenshots as PRIMARY visual reference, this for text/structure)\n\n")
	w.WriteString(b.skeleton(snap, a, section))
	return w.String()
}

// skeleton returns the truncated HTML. Section agents get an equal share of
// the budget, taken from the part of the document matching their position.
func (b *Builder) skeleton(snap *entity.PageSnapshot, a *entity.AgentAssignment, section bool) string {
	html := snap.CleanedHTML
	if html == "" {
		html = snap.RawHTML
	}
	if !section {
		return truncate(html, b.maxHTMLChars)
	}
	share := b.maxHTMLChars / a.Count
	r := []rune(html)
	if len(r) <= share {
		return html
	}
	start := len(r) * a.Index / a.Count
	if start+share > len(r) {
		start = len(r) - share
	}
	return string(r[start : start+share])
}

func writeIntro(w *strings.Builder, snap *entity.PageSnapshot, a *entity.AgentAssignment, n int, section bool) {
	w.WriteString(intro)
	if section {
		first, last := shotRange(snap, a)
		fmt.Fprintf(w, "You are agent %d of %d working in parallel on one page. You have %d screenshots (screenshots %d-%d of %d, pixels %d-%d of %dpx). "+
			"Other agents handle the rest of the page. Clone ONLY the sections visible in YOUR screenshots.\n",
			a.Index+1, a.Count, n, a.FirstShot+1, a.FirstShot+n, len(snap.Screenshots), first, last, snap.PageHeight)
	} else {
		fmt.Fprintf(w, "You have %d screenshots taken top-to-bottom covering the full page. They are labeled with scroll positions.\n", n)
	}
	w.WriteString("Sticky/repeated elements (headers, sidebars) that appear in multiple screenshots should only be rendered ONCE.\n\n")
}

func writeSectionOutput(w *strings.Builder, a *entity.AgentAssignment) {
	w.WriteString("## Output format\n")
	w.WriteString("Output ONLY raw TSX code - no markdown fences, no explanation.\n")
	w.WriteString("Split into multiple files using: // FILE: <path>\n\n")
	w.WriteString("Files to generate:\n")
	w.WriteString("  // FILE: src/components/<Name>.tsx - one per visual section in YOUR screenshots\n\n")
	w.WriteString("ONLY output files under src/components/. Do NOT output src/app/page.tsx; the page is assembled from every agent's components afterwards.\n")
	w.WriteString("NEVER output package.json, layout.tsx, globals.css, tsconfig, or any config file.\n")
	w.WriteString("If you need an extra npm package, declare before the first file: // DEPS: package-name, other-pkg\n\n")
	w.WriteString("## Section ownership\n")
	w.WriteString(ownership(a.Role))
	w.WriteString("\n\n")
}

func ownership(role entity.AgentRole) string {
	switch {
	case role.OwnsHeader() && role.OwnsFooter():
		return "You own BOTH the site header/navigation and the footer. Render each exactly once."
	case role.OwnsHeader():
		return "You own the site header/navigation (including every dropdown). Do NOT render the footer; another agent owns it."
	case role.OwnsFooter():
		return "You own the footer. Do NOT render the header/navigation even if a sticky header is visible; another agent owns it."
	default:
		return "You own NEITHER the header/navigation NOR the footer. Do NOT render them even if they are visible; other agents own them."
	}
}

func writeCoverage(w *strings.Builder, snap *entity.PageSnapshot, a *entity.AgentAssignment, n int, section bool) {
	w.WriteString("## FULL PAGE COVERAGE\n")
	if section {
		fmt.Fprintf(w, "There are %d screenshots in YOUR range. Go through EACH one and make sure every visible section in them is in your output.\n", n)
		w.WriteString("Do not skip sections at the edges of your range; a section cut by the first or last screenshot still belongs to you if its heading is visible.\n\n")
		return
	}
	fmt.Fprintf(w, "There are %d screenshots. Go through EACH one and make sure every visible section is in your output.\n", n)
	w.WriteString("Your output should be LONG (500-1500+ lines). Under 300 lines means you are skipping sections.\n\n")
}

// writeSection omits the section entirely when body is empty.
func writeSection(w *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	w.WriteString("## " + title + "\n" + body + "\n\n")
}

// shotRange returns the first and last pixel covered by the assignment.
func shotRange(snap *entity.PageSnapshot, a *entity.AgentAssignment) (int, int) {
	if len(a.Screenshots) == 0 {
		return 0, 0
	}
	vh := viewport(snap)
	return a.Screenshots[0].Offset, a.Screenshots[len(a.Screenshots)-1].Offset + vh
}

func viewport(snap *entity.PageSnapshot) int {
	if snap != nil && snap.ViewportHeight > 0 {
		return snap.ViewportHeight
	}
	return DefaultViewport
}

func formatStyles(s entity.ComputedStyle) string {
	if s.IsZero() {
		return ""
	}
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	if len(s.Fonts) > 0 {
		lines = append(lines, "Font families: "+strings.Join(s.Fonts, ", "))
	}
	add("Body background", s.BodyBg)
	add("Body text color", s.BodyColor)
	add("Header background", s.HeaderBg)
	add("Header text color", s.HeaderColor)
	add("Footer background", s.FooterBg)
	add("Footer text color", s.FooterColor)
	add("Primary button background", s.PrimaryBtnBg)
	add("Primary button text", s.PrimaryBtnColor)

	if len(s.CSSVariables) > 0 {
		keys := make([]string, 0, len(s.CSSVariables))
		for k := range s.CSSVariables {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > maxCSSVariables {
			keys = keys[:maxCSSVariables]
		}
		vars := make([]string, len(keys))
		for i, k := range keys {
			vars[i] = "  " + k + ": " + s.CSSVariables[k]
		}
		lines = append(lines, "CSS custom properties:\n"+strings.Join(vars, "\n"))
	}
	return strings.Join(lines, "\n")
}

func formatFonts(f entity.FontSources) string {
	var lines []string
	for _, link := range f.GoogleFontLinks {
		lines = append(lines, "  <link> "+link)
	}
	for _, r := range f.FontFaceRules {
		lines = append(lines, fmt.Sprintf("  @font-face { family: %s, weight: %s, style: %s, src: %s }",
			r.Family, r.Weight, r.Style, truncate(r.Src, 200)))
	}
	return strings.Join(lines, "\n")
}

func formatOutline(items []entity.OutlineItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		switch it.Tag {
		case "img":
			lines = append(lines, fmt.Sprintf("  [img] src=%s alt=%q", it.Src, it.Alt))
		case "a":
			lines = append(lines, fmt.Sprintf("  [a] %q href=%s", it.Text, it.Href))
		default:
			lines = append(lines, fmt.Sprintf("  [%s] %q", it.Tag, it.Text))
		}
	}
	return strings.Join(lines, "\n")
}

func formatNav(nav []entity.NavGroup) string {
	var lines []string
	menu := -1
	for _, g := range nav {
		if g.Menu != menu {
			menu = g.Menu
			lines = append(lines, fmt.Sprintf("  Navigation %d:", menu+1))
		}
		if g.Dropdown.Len() == 0 {
			lines = append(lines, fmt.Sprintf("    [%s]", g.Label))
			continue
		}
		lines = append(lines, fmt.Sprintf("    [%s] ▼ dropdown (%s):", g.Label, g.Dropdown.Kind))
		if g.Dropdown.Kind == entity.DropdownMega {
			for _, grp := range g.Dropdown.Groups {
				if grp.Title != "" {
					lines = append(lines, fmt.Sprintf("      GROUP: %q", grp.Title))
				}
				for _, it := range grp.Items {
					lines = append(lines, "        - "+formatNavItem(it))
				}
			}
			continue
		}
		for _, it := range g.Dropdown.Items {
			lines = append(lines, "      - "+formatNavItem(it))
		}
	}
	return strings.Join(lines, "\n")
}

func formatNavItem(it entity.DropdownItem) string {
	parts := []string{fmt.Sprintf("%q", it.Title)}
	if it.Description != "" {
		parts = append(parts, fmt.Sprintf("desc=%q", truncate(it.Description, 80)))
	}
	if it.SVGMarkup != "" {
		parts = append(parts, "has-svg")
	}
	if it.IconSrc != "" {
		parts = append(parts, "icon="+it.IconSrc)
	}
	return strings.Join(parts, ", ")
}

func formatNavSVGs(nav []entity.NavGroup) string {
	var lines []string
	count := 0
	for _, g := range nav {
		if g.Panel != nil {
			if ps := formatPanel(g.Panel); ps != "" {
				lines = append(lines, fmt.Sprintf("  [%s] panel style: %s", g.Label, ps))
			}
		}
		for _, it := range g.Dropdown.AllItems() {
			if it.SVGMarkup == "" {
				continue
			}
			count++
			lines = append(lines, fmt.Sprintf("  [%s > %s]: %s", g.Label, it.Title, it.SVGMarkup))
			if count >= maxNavSVGs {
				return strings.Join(lines, "\n")
			}
		}
	}
	return strings.Join(lines, "\n")
}

func formatPanel(p *entity.PanelStyle) string {
	var parts []string
	if p.BackgroundColor != "" {
		parts = append(parts, "bg: "+p.BackgroundColor)
	}
	if p.BorderRadius != "" {
		parts = append(parts, "radius: "+p.BorderRadius)
	}
	if p.BoxShadow != "" {
		parts = append(parts, "shadow: "+truncate(p.BoxShadow, 80))
	}
	if p.Padding != "" {
		parts = append(parts, "padding: "+p.Padding)
	}
	if p.Width > 0 {
		parts = append(parts, fmt.Sprintf("width: %dpx", p.Width))
	}
	return strings.Join(parts, ", ")
}

func formatInteractive(items []entity.Carousel) string {
	var lines []string
	for i, c := range items {
		loop := ""
		if c.IsInfinite {
			loop = " [INFINITE LOOP]"
		}
		lines = append(lines, fmt.Sprintf("  %s #%d (%d unique items, %d DOM nodes)%s:",
			strings.ToUpper(string(c.Kind)), i+1, len(c.Slides), c.TotalDOMSlides, loop))
		g := c.Geometry
		if g.Width > 0 {
			lines = append(lines, fmt.Sprintf("    Container: %dx%dpx, display: %s, overflow: %s, gap: %gpx",
				g.Width, g.Height, orUnknown(g.Display), orUnknown(g.Overflow), g.Gap))
		}
		if g.CardWidth > 0 {
			lines = append(lines, fmt.Sprintf("    Card size: %dx%dpx, visibleCards: %d", g.CardWidth, g.CardHeight, c.VisibleCards))
		}
		if sb := formatScroll(c.Scroll); sb != "" {
			lines = append(lines, "    Scroll behavior: "+sb)
		}
		for j, s := range c.Slides {
			lines = append(lines, fmt.Sprintf("    Slide %d: %s", j+1, formatSlide(s)))
			for _, svg := range s.SVGMarkups {
				lines = append(lines, "      SVG: "+truncate(svg, maxSlideSVGLen))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func formatScroll(sb entity.ScrollBehavior) string {
	var parts []string
	if sb.Transform != "" {
		parts = append(parts, "transform: "+sb.Transform)
	}
	if sb.Animation != "" {
		parts = append(parts, "animation: "+sb.Animation)
	}
	if sb.Transition != "" {
		parts = append(parts, "transition: "+sb.Transition)
	}
	if sb.OverflowX != "" {
		parts = append(parts, "overflowX: "+sb.OverflowX)
	}
	return strings.Join(parts, ", ")
}

func formatSlide(s entity.Slide) string {
	var parts []string
	quoted := func(k, v string, n int) {
		if v != "" {
			if n > 0 {
				v = truncate(v, n)
			}
			parts = append(parts, fmt.Sprintf("%s=%q", k, v))
		}
	}
	quoted("title", s.Title, 0)
	quoted("desc", s.Description, 150)
	quoted("text", s.Text, 150)
	if s.Image != "" {
		parts = append(parts, "img="+s.Image)
	}
	quoted("alt", s.Alt, 0)
	quoted("link", s.LinkText, 0)
	quoted("panelTitle", s.PanelTitle, 0)
	quoted("panelDesc", s.PanelDescription, 150)
	if s.SVGCount > 0 {
		parts = append(parts, fmt.Sprintf("svgCount=%d", s.SVGCount))
		quoted("svgViewBox", s.SVGViewBox, 0)
	}
	if len(s.Icons) > 0 {
		icons := s.Icons
		if len(icons) > 2 {
			icons = icons[:2]
		}
		parts = append(parts, "icons=["+strings.Join(icons, ", ")+"]")
	}
	var cs []string
	if c := s.Card; c.BackgroundColor != "" && c.BackgroundColor != "rgba(0, 0, 0, 0)" {
		cs = append(cs, "bg="+c.BackgroundColor)
	}
	if c := s.Card; c.BorderRadius != "" && c.BorderRadius != "0px" {
		cs = append(cs, "radius="+c.BorderRadius)
	}
	if s.Card.BoxShadow != "" {
		cs = append(cs, "shadow=yes")
	}
	if s.Card.Padding != "" {
		cs = append(cs, "padding="+s.Card.Padding)
	}
	if len(cs) > 0 {
		parts = append(parts, "style=["+strings.Join(cs, ", ")+"]")
	}
	return strings.Join(parts, ", ")
}

func formatImages(images []entity.ImageInfo) string {
	lines := make([]string, 0, len(images))
	for _, img := range images {
		var parts []string
		if img.Alt != "" {
			parts = append(parts, fmt.Sprintf("alt=%q", img.Alt))
		}
		if img.Width > 0 && img.Height > 0 {
			parts = append(parts, fmt.Sprintf("%dx%d", img.Width, img.Height))
		}
		if img.Container != "" {
			parts = append(parts, "in ."+img.Container)
		}
		if img.Context != "" && img.Context != img.Alt {
			parts = append(parts, fmt.Sprintf("near %q", truncate(img.Context, 40)))
		}
		line := "  - " + img.URL
		if len(parts) > 0 {
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
