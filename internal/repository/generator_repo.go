package repository

import (
	"context"

	"github.com/user/clone-service/internal/entity"
)

// Generator is a multimodal language model.
type Generator interface {
	// Generate performs one completion. Errors that are worth retrying are
	// returned as *ProviderError with Retryable set.
	Generate(ctx context.Context, req *entity.GenerateRequest) (*entity.GenerateResponse, error)
	Name() string
}

// ToolProvider exposes external tools the model may call during generation.
type ToolProvider interface {
	ListTools(ctx context.Context) ([]entity.ToolDefinition, error)
	// CallTool runs a tool and returns its textual result.
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}
