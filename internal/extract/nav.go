package extract

import (
	"strings"

	"github.com/user/clone-service/internal/entity"
)

const (
	MaxMegaGroups     = 30
	MaxGroupItems     = 10
	MaxListItems      = 20
	MaxNavSVGChars    = 1500
	MaxSlideSVGChars  = 2000
	MaxUniqueSlides   = 20
	MaxRawSlides      = 60
	MaxFontFaceRules  = 20
	MaxImages         = 100
	MaxOutlineItems   = 300
	InfiniteThreshold = 0.7
)

// RawMenu is one nav/header container as returned by NavJS.
type RawMenu struct {
	Items []RawNavEntry `json:"items"`
}

type RawNavEntry struct {
	Label  string         `json:"label"`
	Layout string         `json:"layout"`
	Groups []RawNavGroup  `json:"groups"`
	Items  []RawNavItem   `json:"items"`
	Panel  *RawPanelStyle `json:"panel"`
}

type RawNavGroup struct {
	Title string       `json:"title"`
	Items []RawNavItem `json:"items"`
}

type RawNavItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SVGMarkup   string `json:"svgMarkup"`
	SVGViewBox  string `json:"svgViewBox"`
	IconSrc     string `json:"iconSrc"`
}

type RawPanelStyle struct {
	BackgroundColor string `json:"backgroundColor"`
	Border          string `json:"border"`
	BorderRadius    string `json:"borderRadius"`
	BoxShadow       string `json:"boxShadow"`
	Padding         string `json:"padding"`
	Width           int    `json:"width"`
}

// DecodeNav converts raw menus into typed nav groups. Dropdown items are
// deduplicated by title, items repeating the top-level label are skipped, and
// size caps are enforced. Unknown layouts are treated as lists.
func DecodeNav(menus []RawMenu) []entity.NavGroup {
	var out []entity.NavGroup
	for mi, menu := range menus {
		for _, e := range menu.Items {
			label := strings.TrimSpace(e.Label)
			if label == "" {
				continue
			}
			g := entity.NavGroup{Menu: mi, Label: label}
			if e.Layout == string(entity.DropdownMega) {
				g.Dropdown = decodeMega(label, e.Groups)
			} else if len(e.Items) > 0 {
				g.Dropdown = decodeList(label, e.Items)
			}
			if g.Dropdown != nil && e.Panel != nil {
				g.Panel = &entity.PanelStyle{
					BackgroundColor: e.Panel.BackgroundColor,
					Border:          e.Panel.Border,
					BorderRadius:    e.Panel.BorderRadius,
					BoxShadow:       e.Panel.BoxShadow,
					Padding:         e.Panel.Padding,
					Width:           e.Panel.Width,
				}
			}
			out = append(out, g)
		}
	}
	return out
}

func decodeMega(label string, groups []RawNavGroup) *entity.DropdownLayout {
	d := &entity.DropdownLayout{Kind: entity.DropdownMega}
	seenTitles := make(map[string]struct{})
	for _, rg := range groups {
		if len(d.Groups) >= MaxMegaGroups {
			break
		}
		title := strings.TrimSpace(rg.Title)
		if title != "" {
			if _, dup := seenTitles[title]; dup {
				continue
			}
			seenTitles[title] = struct{}{}
		}
		items := decodeItems(label, rg.Items, MaxGroupItems)
		if len(items) == 0 {
			continue
		}
		d.Groups = append(d.Groups, entity.DropdownGroup{Title: title, Items: items})
	}
	if len(d.Groups) == 0 {
		return nil
	}
	return d
}

func decodeList(label string, raw []RawNavItem) *entity.DropdownLayout {
	items := decodeItems(label, raw, MaxListItems)
	if len(items) == 0 {
		return nil
	}
	return &entity.DropdownLayout{Kind: entity.DropdownList, Items: items}
}

func decodeItems(label string, raw []RawNavItem, limit int) []entity.DropdownItem {
	var items []entity.DropdownItem
	seen := make(map[string]struct{})
	for _, ri := range raw {
		if len(items) >= limit {
			break
		}
		title := strings.TrimSpace(ri.Title)
		if title == "" || title == label {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		items = append(items, entity.DropdownItem{
			Title:       title,
			Description: strings.TrimSpace(ri.Description),
			SVGMarkup:   truncate(ri.SVGMarkup, MaxNavSVGChars),
			SVGViewBox:  ri.SVGViewBox,
			IconSrc:     ri.IconSrc,
		})
	}
	return items
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
