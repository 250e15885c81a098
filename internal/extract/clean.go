package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	svgBlockRe    = regexp.MustCompile(`(?is)<svg[\s>].*?</svg>`)
	longPathRe    = regexp.MustCompile(`(\sd="[^"]{500})[^"]*"`)
	rawTextTagsRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b.*?</(script|style|noscript)\s*>`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
	spacesRe      = regexp.MustCompile(`  +`)
)

var keptElements = []string{
	"html", "head", "title", "body", "header", "footer", "nav", "main", "section", "article", "aside",
	"div", "span", "p", "a", "img", "picture", "source", "video", "figure", "figcaption",
	"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "dl", "dt", "dd",
	"button", "form", "input", "label", "select", "option", "textarea",
	"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption",
	"strong", "em", "b", "i", "u", "small", "sup", "sub", "br", "hr", "blockquote", "pre", "code",
	"details", "summary", "dialog", "time", "address", "mark",
}

var keptAttrs = []string{
	"class", "id", "style", "role", "title", "alt", "src", "srcset", "sizes", "width", "height",
	"type", "name", "placeholder", "value", "for", "target", "rel", "lang", "dir",
	"colspan", "rowspan", "loading", "action", "method",
}

// Cleaner strips scripts, styles, comments, event handlers, data-* and aria-*
// attributes from page HTML. Inline SVG markup is preserved verbatim except
// that path data longer than 500 characters is truncated.
type Cleaner struct {
	policy *bluemonday.Policy
}

func NewCleaner() *Cleaner {
	p := bluemonday.NewPolicy()
	p.AllowElements(keptElements...)
	p.AllowAttrs(keptAttrs...).Globally()
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.AllowRelativeURLs(true)
	p.AllowImages()
	return &Cleaner{policy: p}
}

// Clean returns the reduced HTML.
func (c *Cleaner) Clean(html string) string {
	var svgs []string
	stashed := svgBlockRe.ReplaceAllStringFunc(html, func(svg string) string {
		svg = longPathRe.ReplaceAllString(svg, `$1..."`)
		svgs = append(svgs, svg)
		return svgPlaceholder(len(svgs) - 1)
	})

	stashed = rawTextTagsRe.ReplaceAllString(stashed, "")
	out := c.policy.Sanitize(stashed)

	out = blankLinesRe.ReplaceAllString(out, "\n")
	out = spacesRe.ReplaceAllString(out, " ")

	for i, svg := range svgs {
		out = strings.Replace(out, svgPlaceholder(i), svg, 1)
	}
	return strings.TrimSpace(out)
}

func svgPlaceholder(i int) string {
	return fmt.Sprintf("[[clone-svg-%d]]", i)
}

// Markdown renders page HTML as readable markdown. Relative links are
// resolved against pageURL.
type Markdown struct {
	conv *converter.Converter
}

func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (m *Markdown) Convert(html, pageURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	md, err := m.conv.ConvertString(html, converter.WithDomain(pageURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}
