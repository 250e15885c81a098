package extract

import (
	"math"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

// RawCarousel is one container as returned by InteractiveJS.
type RawCarousel struct {
	Kind           string     `json:"kind"`
	TotalDOMSlides int        `json:"totalDomSlides"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	Gap            float64    `json:"gap"`
	CardWidth      int        `json:"cardWidth"`
	CardHeight     int        `json:"cardHeight"`
	Display        string     `json:"display"`
	Overflow       string     `json:"overflow"`
	HasAnimation   bool       `json:"hasAnimation"`
	HasTransform   bool       `json:"hasTransform"`
	OverflowHidden bool       `json:"overflowHidden"`
	Transform      string     `json:"transform"`
	Animation      string     `json:"animation"`
	Transition     string     `json:"transition"`
	OverflowX      string     `json:"overflowX"`
	Slides         []RawSlide `json:"slides"`
}

type RawSlide struct {
	// Key is the slide's leading text, used for duplicate detection.
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Text             string   `json:"text"`
	Image            string   `json:"image"`
	Alt              string   `json:"alt"`
	LinkText         string   `json:"linkText"`
	PanelTitle       string   `json:"panelTitle"`
	PanelDescription string   `json:"panelDescription"`
	SVGCount         int      `json:"svgCount"`
	SVGMarkups       []string `json:"svgMarkups"`
	SVGViewBox       string   `json:"svgViewBox"`
	Icons            []string `json:"icons"`
	Card             struct {
		BackgroundColor string `json:"backgroundColor"`
		BorderRadius    string `json:"borderRadius"`
		BoxShadow       string `json:"boxShadow"`
		Padding         string `json:"padding"`
	} `json:"card"`
}

// BuildInteractive deduplicates slides cloned by infinite-scroll
// implementations and classifies each container. Containers left with fewer
// than two unique slides are dropped.
func BuildInteractive(raw []RawCarousel) []entity.Carousel {
	var out []entity.Carousel
	for _, rc := range raw {
		c := entity.Carousel{
			Kind:           entity.KindCarousel,
			TotalDOMSlides: rc.TotalDOMSlides,
			Geometry: entity.ContainerGeometry{
				Width:      rc.Width,
				Height:     rc.Height,
				Gap:        rc.Gap,
				CardWidth:  rc.CardWidth,
				CardHeight: rc.CardHeight,
				Display:    rc.Display,
				Overflow:   rc.Overflow,
			},
			Scroll: entity.ScrollBehavior{
				Transform:  rc.Transform,
				Animation:  rc.Animation,
				Transition: rc.Transition,
				OverflowX:  rc.OverflowX,
			},
		}
		if rc.Kind == string(entity.KindTabs) {
			c.Kind = entity.KindTabs
		}
		if c.TotalDOMSlides < len(rc.Slides) {
			c.TotalDOMSlides = len(rc.Slides)
		}

		c.Slides = UniqueSlides(rc.Slides)
		if len(c.Slides) < 2 {
			continue
		}
		c.IsInfinite = HasDuplicateText(rc.Slides) || rc.HasAnimation || (rc.HasTransform && rc.OverflowHidden)
		c.VisibleCards = visibleCards(rc)
		out = append(out, c)
	}
	return out
}

// UniqueSlides keeps the first slide for each content key, up to MaxUniqueSlides.
func UniqueSlides(raw []RawSlide) []entity.Slide {
	var slides []entity.Slide
	seen := make(map[string]struct{})
	for _, rs := range raw {
		if len(slides) >= MaxUniqueSlides {
			break
		}
		s := toSlide(rs)
		key := s.ContentKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		slides = append(slides, s)
	}
	return slides
}

// HasDuplicateText reports whether fewer than 70% of the non-empty slide
// texts are unique.
func HasDuplicateText(raw []RawSlide) bool {
	nonEmpty := 0
	unique := make(map[string]struct{})
	for _, rs := range raw {
		k := strings.TrimSpace(rs.Key)
		if k == "" {
			continue
		}
		nonEmpty++
		unique[k] = struct{}{}
	}
	return len(unique) > 0 && float64(len(unique)) < float64(nonEmpty)*InfiniteThreshold
}

func visibleCards(rc RawCarousel) int {
	if rc.CardWidth <= 0 {
		return 1
	}
	n := int(math.Round((float64(rc.Width) + rc.Gap) / (float64(rc.CardWidth) + rc.Gap)))
	if n < 1 {
		return 1
	}
	return n
}

func toSlide(rs RawSlide) entity.Slide {
	s := entity.Slide{
		Title:            strings.TrimSpace(rs.Title),
		Description:      strings.TrimSpace(rs.Description),
		Text:             strings.TrimSpace(rs.Text),
		Image:            rs.Image,
		Alt:              rs.Alt,
		LinkText:         strings.TrimSpace(rs.LinkText),
		PanelTitle:       rs.PanelTitle,
		PanelDescription: rs.PanelDescription,
		SVGCount:         rs.SVGCount,
		SVGViewBox:       rs.SVGViewBox,
		Icons:            rs.Icons,
		Card: entity.CardStyle{
			BackgroundColor: rs.Card.BackgroundColor,
			BorderRadius:    rs.Card.BorderRadius,
			BoxShadow:       rs.Card.BoxShadow,
			Padding:         rs.Card.Padding,
		},
	}
	for i, m := range rs.SVGMarkups {
		if i == 3 {
			break
		}
		s.SVGMarkups = append(s.SVGMarkups, truncate(m, MaxSlideSVGChars))
	}
	return s
}
