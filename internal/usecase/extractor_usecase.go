package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/extract"
	"github.com/user/clone-service/internal/repository"
	"github.com/user/clone-service/pkg/metrics"
)

// ExtractorConfig holds the timings and caps of the extraction stages.
type ExtractorConfig struct {
	PageLoadTimeout time.Duration
	ReadyTimeout    time.Duration
	StepTimeout     time.Duration
	SettleDelay     time.Duration
	ScrollWait      time.Duration
	MaxScrolls      int
	ScreenshotWait  time.Duration
	MaxScreenshots  int
	ViewportHeight  int
	MaxNavTriggers  int
	HoverTimeout    time.Duration
	HoverWait       time.Duration
	ResetWait       time.Duration
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		PageLoadTimeout: 30 * time.Second,
		ReadyTimeout:    15 * time.Second,
		StepTimeout:     20 * time.Second,
		SettleDelay:     2 * time.Second,
		ScrollWait:      800 * time.Millisecond,
		MaxScrolls:      30,
		ScreenshotWait:  600 * time.Millisecond,
		MaxScreenshots:  15,
		ViewportHeight:  900,
		MaxNavTriggers:  20,
		HoverTimeout:    time.Second,
		HoverWait:       200 * time.Millisecond,
		ResetWait:       300 * time.Millisecond,
	}
}

type extractorUseCase struct {
	browser  repository.BrowserRepository
	cleaner  *extract.Cleaner
	markdown *extract.Markdown
	cfg      ExtractorConfig
}

// NewExtractor creates the page extractor. Every stage after HTML capture
// degrades to an empty value on failure.
func NewExtractor(browser repository.BrowserRepository, cfg ExtractorConfig) repository.SnapshotExtractor {
	return &extractorUseCase{
		browser:  browser,
		cleaner:  extract.NewCleaner(),
		markdown: extract.NewMarkdown(),
		cfg:      cfg,
	}
}

func (uc *extractorUseCase) Extract(ctx context.Context, url string, logf entity.LogFunc) (*entity.PageSnapshot, error) {
	if logf == nil {
		logf = func(string) {}
	}
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds()) }()

	page, err := uc.browser.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open browser: %v", repository.ErrScrapeFailed, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Warn("Failed to close browser page", "url", url, "error", err)
		}
	}()
	logf("Browser launched for " + url)

	snap := &entity.PageSnapshot{URL: url, ViewportHeight: uc.cfg.ViewportHeight}

	uc.load(ctx, page, url, logf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	uc.step(ctx, "overlays", logf, func(ctx context.Context) error {
		var hidden int
		if err := page.Evaluate(ctx, extract.Call(extract.DismissOverlaysJS), &hidden); err != nil {
			return err
		}
		if hidden > 0 {
			logf(fmt.Sprintf("Dismissed %d overlays", hidden))
		}
		return nil
	})

	uc.lazyScroll(ctx, page, logf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := uc.captureHTML(ctx, page, snap, logf); err != nil {
		return nil, err
	}

	logf("Extracting computed styles...")
	uc.step(ctx, "styles", logf, func(ctx context.Context) error {
		return page.Evaluate(ctx, extract.Call(extract.StylesJS), &snap.Style)
	})
	logf(fmt.Sprintf("Styles: %d fonts, %d CSS vars", len(snap.Style.Fonts), len(snap.Style.CSSVariables)))

	logf("Extracting page content structure...")
	uc.step(ctx, "outline", logf, func(ctx context.Context) error {
		var items []entity.OutlineItem
		if err := page.Evaluate(ctx, extract.Call(extract.OutlineJS, extract.MaxOutlineItems), &items); err != nil {
			return err
		}
		if len(items) > extract.MaxOutlineItems {
			items = items[:extract.MaxOutlineItems]
		}
		snap.Outline = items
		return nil
	})
	if len(snap.Outline) == 0 {
		snap.Outline = extract.OutlineFromHTML(url, snap.RawHTML, extract.MaxOutlineItems)
	}
	logf(fmt.Sprintf("Found %d content elements", len(snap.Outline)))

	uc.expandNav(ctx, page, snap, logf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logf("Extracting interactive elements...")
	uc.step(ctx, "interactive", logf, func(ctx context.Context) error {
		var raw []extract.RawCarousel
		if err := page.Evaluate(ctx, extract.Call(extract.InteractiveJS, extract.MaxRawSlides), &raw); err != nil {
			return err
		}
		snap.Interactive = extract.BuildInteractive(raw)
		return nil
	})
	logf(fmt.Sprintf("Interactive: %d groups, %d slides", len(snap.Interactive), countSlides(snap.Interactive)))

	uc.step(ctx, "fonts", logf, func(ctx context.Context) error {
		var fonts entity.FontSources
		if err := page.Evaluate(ctx, extract.Call(extract.FontsJS), &fonts); err != nil {
			return err
		}
		snap.Fonts = extract.CapFonts(fonts)
		return nil
	})
	logf(fmt.Sprintf("Fonts: %d hosted font links, %d @font-face rules", len(snap.Fonts.GoogleFontLinks), len(snap.Fonts.FontFaceRules)))

	uc.step(ctx, "images", logf, func(ctx context.Context) error {
		var raw []entity.ImageInfo
		if err := page.Evaluate(ctx, extract.Call(extract.ImagesJS), &raw); err != nil {
			return err
		}
		snap.Images = extract.DedupImages(url, raw, extract.MaxImages)
		return nil
	})
	logf(fmt.Sprintf("Found %d image URLs", len(snap.Images)))

	uc.screenshots(ctx, page, snap, logf)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if md, err := uc.markdown.Convert(snap.CleanedHTML, url); err != nil {
		metrics.ExtractionStepFailures.WithLabelValues("digest").Inc()
		slog.Warn("Text digest failed", "url", url, "error", err)
	} else {
		snap.TextDigest = md
	}

	snap.ExtractedAt = time.Now().UTC()
	return snap, nil
}

// load navigates and waits for content. Failures here are not fatal: a
// partially loaded page is still worth capturing.
func (uc *extractorUseCase) load(ctx context.Context, page repository.BrowserPage, url string, logf entity.LogFunc) {
	began := time.Now()
	logf("Navigating to page...")

	navCtx, cancel := context.WithTimeout(ctx, uc.cfg.PageLoadTimeout)
	if err := page.Navigate(navCtx, url); err != nil {
		slog.Warn("Navigation did not complete", "url", url, "error", err)
		metrics.ExtractionStepFailures.WithLabelValues("navigate").Inc()
	}
	cancel()

	readyCtx, cancel := context.WithTimeout(ctx, uc.cfg.ReadyTimeout)
	if err := page.WaitReady(readyCtx); err != nil {
		logf("DOM still loading, continuing with what rendered")
		metrics.ExtractionStepFailures.WithLabelValues("ready").Inc()
	}
	cancel()

	_ = sleep(ctx, uc.cfg.SettleDelay)
	logf(fmt.Sprintf("Page loaded in %.1fs", time.Since(began).Seconds()))
}

func (uc *extractorUseCase) lazyScroll(ctx context.Context, page repository.BrowserPage, logf entity.LogFunc) {
	logf("Scrolling to trigger lazy-loaded content...")
	scrolls, height := 0, 0
	uc.step(ctx, "scroll", logf, func(ctx context.Context) error {
		prev := 0
		for i := 0; i < uc.cfg.MaxScrolls; i++ {
			var h int
			if err := page.Evaluate(ctx, extract.ScrollHeightJS, &h); err != nil {
				return err
			}
			if h == prev {
				break
			}
			prev, height = h, h
			if err := page.Evaluate(ctx, extract.ScrollBottomJS, nil); err != nil {
				return err
			}
			scrolls++
			if err := sleep(ctx, uc.cfg.ScrollWait); err != nil {
				return err
			}
		}
		return nil
	})
	uc.reset(ctx, page)
	logf(fmt.Sprintf("Scrolled %dx, page height: %dpx", scrolls, height))
}

func (uc *extractorUseCase) captureHTML(ctx context.Context, page repository.BrowserPage, snap *entity.PageSnapshot, logf entity.LogFunc) error {
	logf("Extracting HTML...")
	stepCtx, cancel := context.WithTimeout(ctx, uc.cfg.StepTimeout)
	defer cancel()

	html, err := page.Content(stepCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", repository.ErrScrapeFailed, err)
	}
	if html == "" {
		return fmt.Errorf("%w: empty document", repository.ErrScrapeFailed)
	}
	snap.RawHTML = html
	snap.CleanedHTML = uc.cleaner.Clean(html)
	reduction := 100 - len(snap.CleanedHTML)*100/max(len(html), 1)
	logf(fmt.Sprintf("HTML cleaned: %d → %d chars (%d%% reduction)", len(html), len(snap.CleanedHTML), reduction))
	return nil
}

// expandNav opens dropdowns by hovering (and clicking popup triggers) so the
// nav structure script can see their panels, then resets the page.
func (uc *extractorUseCase) expandNav(ctx context.Context, page repository.BrowserPage, snap *entity.PageSnapshot, logf entity.LogFunc) {
	logf("Opening navigation dropdowns...")
	triggered := 0
	uc.step(ctx, "nav_hover", logf, func(ctx context.Context) error {
		if err := page.ScrollTo(ctx, 0); err != nil {
			return err
		}
		triggers, err := page.NavTriggers(ctx, uc.cfg.MaxNavTriggers)
		if err != nil {
			return err
		}
		for _, t := range triggers {
			if !t.Visible || t.Y > float64(uc.cfg.ViewportHeight) {
				continue
			}
			if err := uc.withTimeout(ctx, uc.cfg.HoverTimeout, func(ctx context.Context) error { return page.Hover(ctx, t) }); err != nil {
				continue
			}
			_ = sleep(ctx, uc.cfg.HoverWait)
			if t.HasPopup {
				if err := uc.withTimeout(ctx, uc.cfg.HoverTimeout, func(ctx context.Context) error { return page.Click(ctx, &t) }); err == nil {
					_ = sleep(ctx, uc.cfg.HoverWait)
				}
			}
			triggered++
		}
		return ctx.Err()
	})
	logf(fmt.Sprintf("Triggered %d nav items for dropdown extraction", triggered))

	uc.step(ctx, "nav", logf, func(ctx context.Context) error {
		var menus []extract.RawMenu
		if err := page.Evaluate(ctx, extract.Call(extract.NavJS), &menus); err != nil {
			return err
		}
		snap.Nav = extract.DecodeNav(menus)
		return nil
	})
	items := 0
	for _, g := range snap.Nav {
		items += g.Dropdown.Len()
	}
	logf(fmt.Sprintf("Navigation: %d entries, %d dropdown items", len(snap.Nav), items))

	uc.step(ctx, "nav_reset", logf, func(ctx context.Context) error {
		if err := page.Click(ctx, nil); err != nil {
			return err
		}
		if err := page.PressEscape(ctx); err != nil {
			return err
		}
		_ = sleep(ctx, uc.cfg.ResetWait)
		return page.ScrollTo(ctx, 0)
	})
}

// screenshots captures viewport images at offsets 0, vh, 2vh, ... while the
// offset is above the page height, up to MaxScreenshots. Sections below the
// cap are not captured.
func (uc *extractorUseCase) screenshots(ctx context.Context, page repository.BrowserPage, snap *entity.PageSnapshot, logf entity.LogFunc) {
	logf("Capturing screenshots...")
	uc.step(ctx, "page_height", logf, func(ctx context.Context) error {
		return page.Evaluate(ctx, extract.ScrollHeightJS, &snap.PageHeight)
	})
	if snap.PageHeight <= 0 {
		snap.PageHeight = uc.cfg.ViewportHeight
	}

	size := 0
	for offset := 0; offset < snap.PageHeight && len(snap.Screenshots) < uc.cfg.MaxScreenshots; offset += uc.cfg.ViewportHeight {
		var shot []byte
		ok := uc.step(ctx, "screenshot", logf, func(ctx context.Context) error {
			if err := page.ScrollTo(ctx, offset); err != nil {
				return err
			}
			if err := sleep(ctx, uc.cfg.ScreenshotWait); err != nil {
				return err
			}
			var err error
			shot, err = page.CaptureViewport(ctx)
			return err
		})
		if ctx.Err() != nil {
			return
		}
		if !ok || len(shot) == 0 {
			continue
		}
		snap.Screenshots = append(snap.Screenshots, entity.Screenshot{Image: shot, Offset: offset})
		size += len(shot)
	}
	if snap.PageHeight > uc.cfg.ViewportHeight*uc.cfg.MaxScreenshots {
		logf(fmt.Sprintf("Page is taller than %d screenshots; lower sections are not captured", uc.cfg.MaxScreenshots))
	}
	logf(fmt.Sprintf("Captured %d screenshots (%.1fMB), page height=%dpx", len(snap.Screenshots), float64(size)/1_048_576, snap.PageHeight))
}

func (uc *extractorUseCase) reset(ctx context.Context, page repository.BrowserPage) {
	_ = uc.withTimeout(ctx, uc.cfg.StepTimeout, func(ctx context.Context) error { return page.ScrollTo(ctx, 0) })
	_ = sleep(ctx, uc.cfg.ResetWait)
}

// step runs fn under the per-step timeout. Errors and panics are logged,
// counted, and reported as false; the caller keeps the default value.
func (uc *extractorUseCase) step(ctx context.Context, name string, logf entity.LogFunc, fn func(ctx context.Context) error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			uc.stepFailed(name, logf, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := uc.withTimeout(ctx, uc.cfg.StepTimeout, fn); err != nil {
		if ctx.Err() == nil {
			uc.stepFailed(name, logf, err)
		}
		return false
	}
	return true
}

func (uc *extractorUseCase) stepFailed(name string, logf entity.LogFunc, err error) {
	metrics.ExtractionStepFailures.WithLabelValues(name).Inc()
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("Extraction step timed out", "step", name)
	} else {
		slog.Warn("Extraction step failed", "step", name, "error", err)
	}
	logf(fmt.Sprintf("  %s step failed (non-fatal), continuing", name))
}

func (uc *extractorUseCase) withTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func countSlides(cs []entity.Carousel) int {
	n := 0
	for _, c := range cs {
		n += len(c.Slides)
	}
	return n
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
