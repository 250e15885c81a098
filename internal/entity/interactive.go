package entity

// InteractiveKind discriminates Carousel.
type InteractiveKind string

const (
	KindCarousel InteractiveKind = "carousel"
	KindTabs     InteractiveKind = "tabs"
)

// Carousel is a slider, marquee or tab group with its unique slides.
type Carousel struct {
	Kind           InteractiveKind
	Slides         []Slide
	IsInfinite     bool
	VisibleCards   int
	TotalDOMSlides int
	Geometry       ContainerGeometry
	Scroll         ScrollBehavior
}

type ContainerGeometry struct {
	Width      int
	Height     int
	Gap        float64
	CardWidth  int
	CardHeight int
	Display    string
	Overflow   string
}

type ScrollBehavior struct {
	Transform  string
	Animation  string
	Transition string
	OverflowX  string
}

type Slide struct {
	Title            string
	Description      string
	Text             string
	Image            string
	Alt              string
	LinkText         string
	PanelTitle       string
	PanelDescription string
	SVGCount         int
	SVGMarkups       []string
	SVGViewBox       string
	Icons            []string
	Card             CardStyle
}

// ContentKey identifies a slide for deduplication of cloned DOM nodes.
func (s Slide) ContentKey() string {
	return s.Title + "|" + s.Description + "|" + s.Text + "|" + s.Image
}

type CardStyle struct {
	BackgroundColor string
	BorderRadius    string
	BoxShadow       string
	Padding         string
}
