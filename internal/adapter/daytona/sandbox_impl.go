// Package daytona provisions build sandboxes through the Daytona REST API.
package daytona

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

type Config struct {
	APIKey       string
	APIURL       string
	Target       string
	Image        string
	AutoDelete   time.Duration
	PreviewTTL   time.Duration
	StartTimeout time.Duration
	PollInterval time.Duration
	HTTPClient   *http.Client
}

func DefaultConfig() Config {
	return Config{
		APIURL:       "https://app.daytona.io/api",
		Target:       "us",
		Image:        "node:20",
		AutoDelete:   20 * time.Minute,
		PreviewTTL:   20 * time.Minute,
		StartTimeout: 2 * time.Minute,
		PollInterval: time.Second,
	}
}

// Provider creates Daytona sandboxes. Without an API key it reports that
// no backend is configured.
type Provider struct {
	cfg  Config
	http *http.Client
}

func NewProvider(cfg Config) *Provider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &Provider{cfg: cfg, http: client}
}

var _ repository.SandboxProvider = (*Provider)(nil)

type sandboxInfo struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	ErrorReason string `json:"errorReason"`
}

func (p *Provider) Create(ctx context.Context) (repository.Sandbox, error) {
	if p.cfg.APIKey == "" {
		return nil, nil
	}

	body := map[string]any{
		"target":             p.cfg.Target,
		"public":             true,
		"autoDeleteInterval": int(p.cfg.AutoDelete.Minutes()),
		"buildInfo": map[string]any{
			"dockerfileContent": "FROM " + p.cfg.Image + "\n",
		},
	}
	var info sandboxInfo
	if err := p.do(ctx, http.MethodPost, "/sandbox", body, &info); err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}
	slog.Info("Sandbox created", "sandbox_id", info.ID, "state", info.State)

	sb := &sandbox{id: info.ID, p: p}
	if err := p.waitStarted(ctx, info); err != nil {
		_ = sb.Delete(context.WithoutCancel(ctx))
		return nil, err
	}
	return sb, nil
}

func (p *Provider) waitStarted(ctx context.Context, info sandboxInfo) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.StartTimeout)
	defer cancel()
	for {
		switch info.State {
		case "started":
			return nil
		case "error", "build_failed", "destroyed":
			return fmt.Errorf("sandbox %s entered state %s: %s", info.ID, info.State, info.ErrorReason)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for sandbox %s: %w", info.ID, ctx.Err())
		case <-time.After(p.cfg.PollInterval):
		}
		if err := p.do(ctx, http.MethodGet, "/sandbox/"+info.ID, nil, &info); err != nil {
			return fmt.Errorf("polling sandbox: %w", err)
		}
	}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (p *Provider) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.APIURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return p.send(req, out)
}

func (p *Provider) send(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	if p.cfg.Target != "" {
		req.Header.Set("X-Daytona-Target", p.cfg.Target)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daytona: status %d: %s", e.status, e.body)
}

type sandbox struct {
	id string
	p  *Provider
}

func (s *sandbox) ID() string { return s.id }

func (s *sandbox) toolbox(path string) string {
	return "/toolbox/" + s.id + "/toolbox" + path
}

func (s *sandbox) UploadFile(ctx context.Context, path string, content []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", path)
	if err != nil {
		return err
	}
	if _, err := fw.Write(content); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	endpoint := s.p.cfg.APIURL + s.toolbox("/files/upload") + "?path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := s.p.send(req, nil); err != nil {
		return fmt.Errorf("uploading %s: %w", path, err)
	}
	return nil
}

type execResponse struct {
	ExitCode int    `json:"exitCode"`
	Result   string `json:"result"`
}

// Exec runs cmd through sh. The command is base64-encoded so quoting in cmd
// survives the API's own command parsing.
func (s *sandbox) Exec(ctx context.Context, cmd string, timeout time.Duration) (*entity.ExecResult, error) {
	wrapped := "echo " + base64.StdEncoding.EncodeToString([]byte(cmd)) + " | base64 -d | sh"
	body := map[string]any{"command": wrapped}

	execCtx := ctx
	if timeout > 0 {
		body["timeout"] = int(timeout.Seconds())
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var out execResponse
	err := s.p.do(execCtx, http.MethodPost, s.toolbox("/process/execute"), body, &out)
	if err != nil {
		if ctx.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, repository.ErrExecTimeout
		}
		return nil, fmt.Errorf("exec in sandbox %s: %w", s.id, err)
	}
	return &entity.ExecResult{ExitCode: out.ExitCode, Output: out.Result}, nil
}

// PreviewURL prefers a signed URL and falls back to the plain preview link.
func (s *sandbox) PreviewURL(ctx context.Context, port int) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	signed := fmt.Sprintf("/sandbox/%s/ports/%d/signed-preview-url?expiresInSeconds=%d", s.id, port, int(s.p.cfg.PreviewTTL.Seconds()))
	err := s.p.do(ctx, http.MethodGet, signed, nil, &out)
	if err == nil && out.URL != "" {
		return out.URL, nil
	}
	slog.Warn("Signed preview URL unavailable, using plain preview link", "sandbox_id", s.id, "error", err)

	if err := s.p.do(ctx, http.MethodGet, fmt.Sprintf("/sandbox/%s/ports/%d/preview-url", s.id, port), nil, &out); err != nil {
		return "", fmt.Errorf("preview url: %w", err)
	}
	return out.URL, nil
}

func (s *sandbox) Delete(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.p.do(ctx, http.MethodDelete, "/sandbox/"+s.id, nil, nil); err != nil {
		return fmt.Errorf("deleting sandbox %s: %w", s.id, err)
	}
	slog.Info("Sandbox deleted", "sandbox_id", s.id)
	return nil
}
