package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func slide(title, desc string) RawSlide {
	return RawSlide{Key: title + " " + desc, Title: title, Description: desc}
}

func TestBuildInteractiveDedupsClonedSlides(t *testing.T) {
	raw := []RawCarousel{{
		Kind:           "carousel",
		TotalDOMSlides: 6,
		Slides: []RawSlide{
			slide("One", "first"), slide("Two", "second"), slide("Three", "third"),
			slide("One", "first"), slide("Two", "second"), slide("Three", "third"),
		},
	}}

	got := BuildInteractive(raw)
	require.Len(t, got, 1)
	c := got[0]
	assert.Len(t, c.Slides, 3)
	assert.Less(t, len(c.Slides), c.TotalDOMSlides)
	assert.True(t, c.IsInfinite, "half the texts are duplicates")
	assert.Equal(t, []string{"One", "Two", "Three"}, []string{c.Slides[0].Title, c.Slides[1].Title, c.Slides[2].Title})
}

func TestBuildInteractiveInfiniteSignals(t *testing.T) {
	unique := []RawSlide{slide("A", ""), slide("B", ""), slide("C", "")}

	tests := []struct {
		name string
		rc   RawCarousel
		want bool
	}{
		{"static", RawCarousel{Slides: unique}, false},
		{"animated", RawCarousel{Slides: unique, HasAnimation: true}, true},
		{"transform without hidden overflow", RawCarousel{Slides: unique, HasTransform: true}, false},
		{"transform with hidden overflow", RawCarousel{Slides: unique, HasTransform: true, OverflowHidden: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildInteractive([]RawCarousel{tt.rc})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].IsInfinite)
		})
	}
}

func TestBuildInteractiveDropsSingleSlideAndCaps(t *testing.T) {
	var many []RawSlide
	for i := 0; i < 40; i++ {
		many = append(many, slide(string(rune('a'+i%26))+string(rune('A'+i/26)), ""))
	}
	raw := []RawCarousel{
		{Slides: []RawSlide{slide("Same", "x"), slide("Same", "x")}},
		{Kind: "tabs", Slides: many},
	}

	got := BuildInteractive(raw)
	require.Len(t, got, 1)
	assert.Equal(t, entity.KindTabs, got[0].Kind)
	assert.Len(t, got[0].Slides, MaxUniqueSlides)
	assert.Equal(t, 40, got[0].TotalDOMSlides)
}

func TestVisibleCards(t *testing.T) {
	got := BuildInteractive([]RawCarousel{{
		Width: 1200, CardWidth: 380, Gap: 30,
		Slides: []RawSlide{slide("A", ""), slide("B", "")},
	}})
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].VisibleCards)
}
