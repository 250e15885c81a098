package entity

import "time"

// PageSnapshot is everything extracted from one page for one clone request.
// It is not modified after the extractor returns it.
type PageSnapshot struct {
	URL         string
	RawHTML     string
	CleanedHTML string
	// TextDigest is a markdown rendering of CleanedHTML.
	TextDigest string

	Style       ComputedStyle
	Outline     []OutlineItem
	Nav         []NavGroup
	Interactive []Carousel
	Images      []ImageInfo
	Fonts       FontSources
	Screenshots []Screenshot

	PageHeight     int
	ViewportHeight int
	ExtractedAt    time.Time
}

// ComputedStyle is sampled from one representative element per region.
type ComputedStyle struct {
	Fonts           []string          `json:"fonts,omitempty"`
	BodyBg          string            `json:"bodyBg,omitempty"`
	BodyColor       string            `json:"bodyColor,omitempty"`
	HeaderBg        string            `json:"headerBg,omitempty"`
	HeaderColor     string            `json:"headerColor,omitempty"`
	FooterBg        string            `json:"footerBg,omitempty"`
	FooterColor     string            `json:"footerColor,omitempty"`
	PrimaryBtnBg    string            `json:"primaryBtnBg,omitempty"`
	PrimaryBtnColor string            `json:"primaryBtnColor,omitempty"`
	CSSVariables    map[string]string `json:"cssVariables,omitempty"`
}

// IsZero reports whether nothing was captured.
func (s ComputedStyle) IsZero() bool {
	return len(s.Fonts) == 0 && s.BodyBg == "" && s.BodyColor == "" &&
		s.HeaderBg == "" && s.HeaderColor == "" && s.FooterBg == "" &&
		s.FooterColor == "" && s.PrimaryBtnBg == "" && s.PrimaryBtnColor == "" &&
		len(s.CSSVariables) == 0
}

// OutlineItem is one text-bearing or image element, in DOM order.
type OutlineItem struct {
	Tag  string `json:"tag"`
	Text string `json:"text,omitempty"`
	Src  string `json:"src,omitempty"`
	Alt  string `json:"alt,omitempty"`
	Href string `json:"href,omitempty"`
}

// ImageInfo represents an image referenced by the page.
type ImageInfo struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Container string `json:"container,omitempty"`
	Context   string `json:"context,omitempty"`
}

// FontSources lists where the page loads its web fonts from.
type FontSources struct {
	GoogleFontLinks []string       `json:"googleFontLinks,omitempty"`
	FontFaceRules   []FontFaceRule `json:"fontFaceRules,omitempty"`
}

type FontFaceRule struct {
	Family string `json:"family"`
	Src    string `json:"src"`
	Weight string `json:"weight"`
	Style  string `json:"style"`
}

// Screenshot is one viewport capture taken at a vertical scroll offset.
type Screenshot struct {
	Image  []byte
	Offset int
}
