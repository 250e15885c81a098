package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/pkg/utils"
)

const outlineSelector = `h1, h2, h3, h4, h5, h6, p, a, button, label, img, li, span.hero, [role="heading"]`

// OutlineFromHTML walks the document and lists text-bearing and image
// elements in document order. It is used when the in-page outline script
// fails.
func OutlineFromHTML(pageURL, html string, max int) []entity.OutlineItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var items []entity.OutlineItem
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(items) >= max {
			return false
		}
		if !s.Is(outlineSelector) {
			return true
		}
		tag := goquery.NodeName(s)
		text := clip(strings.Join(strings.Fields(s.Text()), " "), 200)
		if text == "" && tag != "img" {
			return true
		}
		item := entity.OutlineItem{Tag: tag}
		switch tag {
		case "img":
			item.Src = resolve(base, s.AttrOr("src", ""))
			item.Alt = s.AttrOr("alt", "")
		case "a":
			item.Text = text
			item.Href = resolve(base, s.AttrOr("href", ""))
		default:
			item.Text = text
		}
		items = append(items, item)
		return true
	})
	return items
}

func resolve(base *url.URL, ref string) string {
	if base == nil || ref == "" {
		return ref
	}
	abs, err := utils.ToAbsoluteURL(base, ref)
	if err != nil {
		return ref
	}
	return abs
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
