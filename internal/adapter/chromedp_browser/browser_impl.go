package chromedp_browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/go-rod/stealth"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/extract"
	"github.com/user/clone-service/internal/repository"
)

const readyJS = `document.readyState !== 'loading' && !!document.body &&
    [...document.body.children].some(e => e.offsetWidth > 0 || e.offsetHeight > 0)`

// Config controls the headless browser pool.
type Config struct {
	PoolSize       int
	StartTimeout   time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgents     []string
	Proxies        []string
}

func DefaultConfig() Config {
	return Config{
		PoolSize:       2,
		StartTimeout:   30 * time.Second,
		ViewportWidth:  1280,
		ViewportHeight: 900,
	}
}

// ChromedpBrowser launches one headless Chrome per page. At most PoolSize
// pages are open at a time; Open blocks for a free slot.
type ChromedpBrowser struct {
	cfg      Config
	slots    chan struct{}
	rotation *Rotation
}

// NewChromedpBrowser creates a browser pool. Chrome itself is started lazily.
func NewChromedpBrowser(cfg Config) *ChromedpBrowser {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = 1280, 900
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 30 * time.Second
	}
	return &ChromedpBrowser{
		cfg:      cfg,
		slots:    make(chan struct{}, cfg.PoolSize),
		rotation: NewRotation(cfg.UserAgents, cfg.Proxies),
	}
}

var _ repository.BrowserRepository = (*ChromedpBrowser)(nil)

func (b *ChromedpBrowser) Open(ctx context.Context) (repository.BrowserPage, error) {
	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	ua := b.rotation.UserAgent()
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(b.cfg.ViewportWidth, b.cfg.ViewportHeight),
	)
	proxy := b.rotation.Proxy()
	if proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))
	p := &chromedpPage{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		release: func() { <-b.slots },
	}

	// The first Run starts Chrome and binds it to tabCtx, so it must not
	// run under a derived context.
	stop := context.AfterFunc(ctx, p.cancel)
	timer := time.AfterFunc(b.cfg.StartTimeout, p.cancel)
	err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(b.cfg.ViewportWidth), int64(b.cfg.ViewportHeight)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}),
	)
	timer.Stop()
	stop()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	slog.Debug("Browser page opened", "user_agent", ua, "proxy", proxy != "")
	return p, nil
}

type chromedpPage struct {
	ctx     context.Context
	cancel  func()
	release func()
	closed  bool
}

// run executes actions on the tab under ctx's deadline and cancellation.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDL context.CancelFunc
		runCtx, cancelDL = context.WithDeadline(runCtx, dl)
		defer cancelDL()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

func (p *chromedpPage) WaitReady(ctx context.Context) error {
	var ok bool
	return p.run(ctx, chromedp.Poll(readyJS, &ok, chromedp.WithPollingInterval(100*time.Millisecond)))
}

func (p *chromedpPage) Evaluate(ctx context.Context, expr string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expr, out, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *chromedpPage) ScrollTo(ctx context.Context, y int) error {
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", y), nil))
}

func (p *chromedpPage) CaptureViewport(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *chromedpPage) NavTriggers(ctx context.Context, limit int) ([]entity.NavTrigger, error) {
	var triggers []entity.NavTrigger
	if err := p.Evaluate(ctx, extract.Call(extract.NavTriggersJS, limit), &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

func (p *chromedpPage) Hover(ctx context.Context, t entity.NavTrigger) error {
	x, y := t.Center()
	return p.run(ctx, chromedp.MouseEvent(input.MouseMoved, x, y))
}

func (p *chromedpPage) Click(ctx context.Context, t *entity.NavTrigger) error {
	if t == nil {
		// Top-left corner, outside any menu.
		return p.run(ctx, chromedp.MouseClickXY(2, 2))
	}
	x, y := t.Center()
	return p.run(ctx, chromedp.MouseClickXY(x, y))
}

func (p *chromedpPage) PressEscape(ctx context.Context) error {
	return p.run(ctx, chromedp.KeyEvent(kb.Escape))
}

func (p *chromedpPage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *chromedpPage) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	p.release()
	return nil
}
