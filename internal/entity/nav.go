package entity

// DropdownKind discriminates DropdownLayout.
type DropdownKind string

const (
	DropdownMega DropdownKind = "mega"
	DropdownList DropdownKind = "list"
)

// NavGroup is one top-level navigation entry. Menu is the index of the
// nav/header container it was found in.
type NavGroup struct {
	Menu     int
	Label    string
	Dropdown *DropdownLayout
	Panel    *PanelStyle
}

// DropdownLayout is either a mega menu (Groups set) or a flat list (Items set).
type DropdownLayout struct {
	Kind   DropdownKind
	Groups []DropdownGroup
	Items  []DropdownItem
}

// Len returns the number of leaf items in the dropdown.
func (d *DropdownLayout) Len() int {
	if d == nil {
		return 0
	}
	if d.Kind == DropdownMega {
		n := 0
		for _, g := range d.Groups {
			n += len(g.Items)
		}
		return n
	}
	return len(d.Items)
}

// AllItems flattens both variants in display order.
func (d *DropdownLayout) AllItems() []DropdownItem {
	if d == nil {
		return nil
	}
	if d.Kind != DropdownMega {
		return d.Items
	}
	var items []DropdownItem
	for _, g := range d.Groups {
		items = append(items, g.Items...)
	}
	return items
}

type DropdownGroup struct {
	Title string
	Items []DropdownItem
}

type DropdownItem struct {
	Title       string
	Description string
	SVGMarkup   string
	SVGViewBox  string
	IconSrc     string
}

// PanelStyle is the computed style of an open dropdown panel.
type PanelStyle struct {
	BackgroundColor string
	Border          string
	BorderRadius    string
	BoxShadow       string
	Padding         string
	Width           int
}

// NavTrigger is a candidate element that may open a dropdown on hover or click.
type NavTrigger struct {
	Index    int
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Visible  bool
	HasPopup bool
}

// Center returns the point used for pointer events.
func (t NavTrigger) Center() (float64, float64) {
	return t.X + t.Width/2, t.Y + t.Height/2
}
