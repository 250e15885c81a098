package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []*entity.GenerateRequest
	handle   func(req *entity.GenerateRequest) (*entity.GenerateResponse, error)
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	return g.handle(req)
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// promptOf returns the text of the first user message.
func promptOf(req *entity.GenerateRequest) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[0].Text()
}

type fakeTools struct {
	mu    sync.Mutex
	calls []string
	tools []entity.ToolDefinition
	err   error
}

func (t *fakeTools) ListTools(context.Context) ([]entity.ToolDefinition, error) {
	return t.tools, t.err
}

func (t *fakeTools) CallTool(_ context.Context, name string, args map[string]any) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, name)
	if name == "broken" {
		return "", errors.New("tool exploded")
	}
	b, _ := json.Marshal(args)
	return "result of " + name + " " + string(b), nil
}

type fakeSandbox struct {
	mu       sync.Mutex
	id       string
	uploads  map[string]string
	commands []string
	exec     func(cmd string) (*entity.ExecResult, error)
	deleted  bool
}

func newFakeSandbox(exec func(cmd string) (*entity.ExecResult, error)) *fakeSandbox {
	return &fakeSandbox{id: "sb-1", uploads: map[string]string{}, exec: exec}
}

func (s *fakeSandbox) ID() string { return s.id }

func (s *fakeSandbox) UploadFile(_ context.Context, path string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[path] = string(content)
	return nil
}

func (s *fakeSandbox) Exec(_ context.Context, cmd string, _ time.Duration) (*entity.ExecResult, error) {
	s.mu.Lock()
	s.commands = append(s.commands, cmd)
	s.mu.Unlock()
	if s.exec == nil {
		return &entity.ExecResult{}, nil
	}
	return s.exec(cmd)
}

func (s *fakeSandbox) PreviewURL(context.Context, int) (string, error) {
	return "https://8080-sb-1.preview.test", nil
}

func (s *fakeSandbox) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = true
	return nil
}

func (s *fakeSandbox) ran(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.commands {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

func (s *fakeSandbox) isDeleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted
}

type fakeFixer struct {
	mu        sync.Mutex
	fixCalls  int
	fileCalls []string
	fix       func(files []entity.GeneratedFile) (*entity.GenerationResult, error)
}

func (f *fakeFixer) Generate(context.Context, *entity.PageSnapshot, entity.LogFunc) (*entity.GenerationResult, error) {
	return nil, errors.New("not used")
}

func (f *fakeFixer) Fix(_ context.Context, _ *entity.FixContext, files []entity.GeneratedFile, _ string) (*entity.GenerationResult, error) {
	f.mu.Lock()
	f.fixCalls++
	f.mu.Unlock()
	return f.fix(files)
}

func (f *fakeFixer) FixFile(_ context.Context, _ *entity.FixContext, files []entity.GeneratedFile, path, _ string) (*entity.GenerationResult, error) {
	f.mu.Lock()
	f.fileCalls = append(f.fileCalls, path)
	f.mu.Unlock()
	return f.fix(files)
}

type fakePage struct {
	mu        sync.Mutex
	html      string
	height    int
	failEval  map[string]bool
	scrolls   []int
	closed    bool
	captureFn func(call int) ([]byte, error)
	captures  int

	triggers    []entity.NavTrigger
	triggersErr error
	hovered     []int
	clicked     []int
}

// Evaluate answers the known scripts; names in failEval fail.
func (p *fakePage) Evaluate(_ context.Context, expr string, out any) error {
	name := scriptName(expr)
	if p.failEval[name] {
		return errors.New(name + " failed")
	}
	var result string
	switch name {
	case "height":
		b, _ := json.Marshal(p.height)
		result = string(b)
	case "styles":
		result = `{"fonts":["Inter"],"bodyBg":"rgb(255, 255, 255)"}`
	case "overlays":
		result = `0`
	default:
		result = `null`
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(result), out)
}

func scriptName(expr string) string {
	switch {
	case strings.Contains(expr, "scrollHeight : 0"):
		return "height"
	case strings.Contains(expr, "window.scrollTo(0, document.body.scrollHeight)"):
		return "scroll"
	case strings.Contains(expr, "acceptWords"):
		return "overlays"
	case strings.Contains(expr, "startsWith('--')"):
		return "styles"
	case strings.Contains(expr, "(max)"):
		return "outline"
	case strings.Contains(expr, "(maxRawSlides)"):
		return "interactive"
	case strings.Contains(expr, "const panelSel"):
		return "nav"
	}
	return "other"
}

func (p *fakePage) Navigate(context.Context, string) error { return nil }
func (p *fakePage) WaitReady(context.Context) error        { return nil }

func (p *fakePage) ScrollTo(_ context.Context, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls = append(p.scrolls, y)
	return nil
}

func (p *fakePage) CaptureViewport(context.Context) ([]byte, error) {
	p.mu.Lock()
	p.captures++
	n := p.captures
	p.mu.Unlock()
	if p.captureFn != nil {
		return p.captureFn(n)
	}
	return []byte{0x89, 'P', 'N', 'G', byte(n)}, nil
}

func (p *fakePage) NavTriggers(context.Context, int) ([]entity.NavTrigger, error) {
	return p.triggers, p.triggersErr
}

func (p *fakePage) Hover(_ context.Context, t entity.NavTrigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hovered = append(p.hovered, t.Index)
	return nil
}

// Click records trigger clicks; the nil reset click is not recorded.
func (p *fakePage) Click(_ context.Context, t *entity.NavTrigger) error {
	if t == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicked = append(p.clicked, t.Index)
	return nil
}

func (p *fakePage) PressEscape(context.Context) error { return nil }

func (p *fakePage) Content(context.Context) (string, error) { return p.html, nil }

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeBrowser struct {
	page *fakePage
	err  error
}

func (b *fakeBrowser) Open(context.Context) (repository.BrowserPage, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.page, nil
}

func shots(n int) []entity.Screenshot {
	out := make([]entity.Screenshot, n)
	for i := range out {
		out[i] = entity.Screenshot{Image: []byte{byte(i)}, Offset: i * 900}
	}
	return out
}
