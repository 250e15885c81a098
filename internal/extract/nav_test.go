package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func TestDecodeNavVariants(t *testing.T) {
	menus := []RawMenu{{Items: []RawNavEntry{
		{Label: "Home"},
		{
			Label:  "Products",
			Layout: "mega",
			Groups: []RawNavGroup{
				{Title: "Build", Items: []RawNavItem{{Title: "Products"}, {Title: "Compute", Description: "VMs"}, {Title: "Compute"}}},
				{Title: "Build", Items: []RawNavItem{{Title: "Ignored"}}},
				{Title: "Empty"},
			},
			Panel: &RawPanelStyle{BackgroundColor: "white", Width: 800},
		},
		{
			Label:  "Docs",
			Layout: "list",
			Items:  []RawNavItem{{Title: "Guides", SVGMarkup: strings.Repeat("x", 3000)}},
		},
	}}}

	got := DecodeNav(menus)
	require.Len(t, got, 3)

	assert.Nil(t, got[0].Dropdown)
	assert.Nil(t, got[0].Panel)

	mega := got[1].Dropdown
	require.NotNil(t, mega)
	assert.Equal(t, entity.DropdownMega, mega.Kind)
	require.Len(t, mega.Groups, 1)
	assert.Equal(t, "Build", mega.Groups[0].Title)
	require.Len(t, mega.Groups[0].Items, 1, "label echo and duplicate title dropped")
	assert.Equal(t, "Compute", mega.Groups[0].Items[0].Title)
	require.NotNil(t, got[1].Panel)
	assert.Equal(t, 800, got[1].Panel.Width)

	list := got[2].Dropdown
	require.NotNil(t, list)
	assert.Equal(t, entity.DropdownList, list.Kind)
	assert.Len(t, list.Items[0].SVGMarkup, MaxNavSVGChars)
}

func TestDecodeNavCapsListItems(t *testing.T) {
	var items []RawNavItem
	for i := 0; i < 50; i++ {
		items = append(items, RawNavItem{Title: strings.Repeat("i", i+1)})
	}
	got := DecodeNav([]RawMenu{{Items: []RawNavEntry{{Label: "More", Layout: "list", Items: items}}}})
	require.Len(t, got, 1)
	assert.Equal(t, MaxListItems, got[0].Dropdown.Len())
}
