// Package localexec runs the build loop on the host in a scratch directory.
// It is meant for development machines that have node and npm installed.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

// Provider creates one directory per sandbox under Root. Paths and
// commands that mention ProjectDir are rewritten to point into it.
type Provider struct {
	Root       string
	ProjectDir string
}

func NewProvider(root, projectDir string) *Provider {
	if root == "" {
		root = filepath.Join(os.TempDir(), "clone-sandboxes")
	}
	return &Provider{Root: root, ProjectDir: projectDir}
}

var _ repository.SandboxProvider = (*Provider)(nil)

func (p *Provider) Create(ctx context.Context) (repository.Sandbox, error) {
	id := "local-" + uuid.NewString()[:8]
	dir := filepath.Join(p.Root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating sandbox dir: %w", err)
	}
	slog.Info("Local sandbox created", "sandbox_id", id, "dir", dir)
	return &sandbox{id: id, dir: dir, projectDir: p.ProjectDir}, nil
}

type sandbox struct {
	id         string
	dir        string
	projectDir string
}

func (s *sandbox) ID() string { return s.id }

func (s *sandbox) rewrite(text string) string {
	if s.projectDir == "" {
		return text
	}
	return strings.ReplaceAll(text, s.projectDir, s.dir)
}

func (s *sandbox) resolve(path string) (string, error) {
	local := s.rewrite(path)
	if !filepath.IsAbs(local) {
		local = filepath.Join(s.dir, local)
	}
	local = filepath.Clean(local)
	if local != s.dir && !strings.HasPrefix(local, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the sandbox", path)
	}
	return local, nil
}

func (s *sandbox) UploadFile(_ context.Context, path string, content []byte) error {
	local, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	return os.WriteFile(local, content, 0o644)
}

func (s *sandbox) Exec(ctx context.Context, cmd string, timeout time.Duration) (*entity.ExecResult, error) {
	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c := exec.CommandContext(execCtx, "sh", "-c", s.rewrite(cmd))
	c.Dir = s.dir
	c.WaitDelay = 2 * time.Second
	setProcessGroup(c)

	var out bytes.Buffer
	c.Stdout = &out
	c.Stderr = &out
	err := c.Run()

	if ctx.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return nil, repository.ErrExecTimeout
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &entity.ExecResult{Output: out.String()}, nil
	case errors.As(err, &exitErr):
		return &entity.ExecResult{ExitCode: exitCode(exitErr), Output: out.String()}, nil
	default:
		return nil, fmt.Errorf("exec in %s: %w", s.id, err)
	}
}

func (s *sandbox) PreviewURL(_ context.Context, port int) (string, error) {
	return fmt.Sprintf("http://localhost:%d", port), nil
}

func (s *sandbox) Delete(context.Context) error {
	slog.Info("Local sandbox removed", "sandbox_id", s.id)
	return os.RemoveAll(s.dir)
}
