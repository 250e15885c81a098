package repository

import (
	"context"

	"github.com/user/clone-service/internal/entity"
)

// BrowserRepository opens headless browser pages.
type BrowserRepository interface {
	// Open starts a fresh page. The caller must Close it.
	Open(ctx context.Context) (BrowserPage, error)
}

// BrowserPage is a single live page. All methods honour ctx deadlines.
type BrowserPage interface {
	// Navigate loads url and returns once the navigation has committed.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until the DOM is parsed and the body has visible children.
	WaitReady(ctx context.Context) error
	// Evaluate runs a JavaScript expression and decodes its JSON result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	// ScrollTo scrolls the window to vertical offset y.
	ScrollTo(ctx context.Context, y int) error
	// CaptureViewport returns a PNG of the current viewport.
	CaptureViewport(ctx context.Context) ([]byte, error)
	// NavTriggers lists candidate dropdown triggers in document order.
	NavTriggers(ctx context.Context, limit int) ([]entity.NavTrigger, error)
	// Hover moves the pointer over the trigger.
	Hover(ctx context.Context, t entity.NavTrigger) error
	// Click clicks the trigger, or the document body when t is nil.
	Click(ctx context.Context, t *entity.NavTrigger) error
	PressEscape(ctx context.Context) error
	// Content returns the serialized DOM.
	Content(ctx context.Context) (string, error)
	Close() error
}

// SnapshotExtractor turns a URL into a PageSnapshot.
type SnapshotExtractor interface {
	Extract(ctx context.Context, url string, logf entity.LogFunc) (*entity.PageSnapshot, error)
}
