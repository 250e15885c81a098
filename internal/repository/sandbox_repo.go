package repository

import (
	"context"
	"time"

	"github.com/user/clone-service/internal/entity"
)

// SandboxProvider creates isolated build environments.
type SandboxProvider interface {
	// Create provisions a sandbox. It returns (nil, nil) when no sandbox
	// backend is configured.
	Create(ctx context.Context) (Sandbox, error)
}

// Sandbox is a throwaway machine the generated project is built in.
type Sandbox interface {
	ID() string
	UploadFile(ctx context.Context, path string, content []byte) error
	// Exec runs a shell command. A command exceeding timeout returns
	// ErrExecTimeout; a non-zero exit is reported in the result, not as an error.
	Exec(ctx context.Context, cmd string, timeout time.Duration) (*entity.ExecResult, error)
	// PreviewURL returns a publicly reachable URL for port.
	PreviewURL(ctx context.Context, port int) (string, error)
	Delete(ctx context.Context) error
}
