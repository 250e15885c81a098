// Package mcp_tools exposes tools from a Model Context Protocol server to the
// generation loop.
package mcp_tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

var clientImpl = &mcp.Implementation{Name: "clone-service", Version: "1.0.0"}

// ToolProviderImpl keeps one client session open and reconnects after a
// failed call.
type ToolProviderImpl struct {
	newTransport func() mcp.Transport

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewToolProvider connects to a streamable HTTP MCP endpoint on first use.
func NewToolProvider(endpoint string) *ToolProviderImpl {
	return NewToolProviderWithTransport(func() mcp.Transport {
		return &mcp.StreamableClientTransport{Endpoint: endpoint, MaxRetries: -1}
	})
}

func NewToolProviderWithTransport(newTransport func() mcp.Transport) *ToolProviderImpl {
	return &ToolProviderImpl{newTransport: newTransport}
}

var _ repository.ToolProvider = (*ToolProviderImpl)(nil)

func (p *ToolProviderImpl) connect(ctx context.Context) (*mcp.ClientSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		return p.session, nil
	}
	session, err := mcp.NewClient(clientImpl, nil).Connect(ctx, p.newTransport(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}
	p.session = session
	return session, nil
}

// drop discards a session after a transport failure.
func (p *ToolProviderImpl) drop(session *mcp.ClientSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == session {
		_ = session.Close()
		p.session = nil
	}
}

func (p *ToolProviderImpl) ListTools(ctx context.Context) ([]entity.ToolDefinition, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	var defs []entity.ToolDefinition
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			p.drop(session)
			return nil, fmt.Errorf("listing MCP tools: %w", err)
		}
		for _, t := range res.Tools {
			defs = append(defs, entity.ToolDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  schemaMap(t.InputSchema),
			})
		}
		if res.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
	slog.Debug("Listed MCP tools", "count", len(defs))
	return defs, nil
}

// CallTool returns the concatenated text content. A result flagged as an
// error is returned as an error carrying that text.
func (p *ToolProviderImpl) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	session, err := p.connect(ctx)
	if err != nil {
		return "", err
	}
	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.drop(session)
		}
		return "", fmt.Errorf("calling MCP tool %s: %w", name, err)
	}

	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		return "", fmt.Errorf("MCP tool %s failed: %s", name, text)
	}
	return text, nil
}

func (p *ToolProviderImpl) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}

func schemaMap(schema any) map[string]any {
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	return nil
}
