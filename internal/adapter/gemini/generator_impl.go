// Package gemini is a Generator backed by Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	genai "google.golang.org/genai"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

const providerName = "gemini"

type Config struct {
	APIKey string
	Model  string
}

type GeneratorImpl struct {
	cfg Config

	once   sync.Once
	client *genai.Client
	err    error
}

// NewGenerator defers client creation to the first call so a missing key
// fails the clone, not the service.
func NewGenerator(cfg Config) *GeneratorImpl {
	return &GeneratorImpl{cfg: cfg}
}

var _ repository.Generator = (*GeneratorImpl)(nil)

func (g *GeneratorImpl) Name() string { return providerName }

func (g *GeneratorImpl) init(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		if g.cfg.APIKey == "" {
			g.err = fmt.Errorf("%s: %w: GEMINI_API_KEY is not set", providerName, repository.ErrMissingCredentials)
			return
		}
		g.client, g.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.err
}

func (g *GeneratorImpl) Generate(ctx context.Context, req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
	client, err := g.init(ctx)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(req.Tools)}}
	}

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, convertMessages(req.Messages), config)
	if err != nil {
		return nil, wrapError(ctx, err)
	}
	return convertResponse(resp), nil
}

// convertMessages maps the conversation onto Gemini contents. Tool results
// need the function name, which is recovered from the preceding calls.
func convertMessages(msgs []entity.Message) []*genai.Content {
	names := map[string]string{}
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case entity.RoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if text := m.Text(); text != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: text})
			}
			for _, tc := range m.ToolCalls {
				names[tc.ID] = tc.Name
				args := map[string]any{}
				_ = json.Unmarshal(tc.Arguments, &args)
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
			}
			out = append(out, c)
		case entity.RoleTool:
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     names[m.ToolCallID],
					Response: map[string]any{"output": m.Text()},
				},
			}}})
		default:
			c := &genai.Content{Role: genai.RoleUser}
			for _, b := range m.Blocks {
				if b.Kind == entity.BlockImage {
					c.Parts = append(c.Parts, &genai.Part{InlineData: &genai.Blob{Data: b.Image, MIMEType: b.MediaType}})
					continue
				}
				c.Parts = append(c.Parts, &genai.Part{Text: b.Text})
			}
			out = append(out, c)
		}
	}
	return out
}

func convertTools(tools []entity.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Description}
		if t.Parameters != nil {
			decl.ParametersJsonSchema = t.Parameters
		}
		out = append(out, decl)
	}
	return out
}

func convertResponse(resp *genai.GenerateContentResponse) *entity.GenerateResponse {
	out := &entity.GenerateResponse{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.Usage = entity.Usage{
			TokensIn:  int64(resp.UsageMetadata.PromptTokenCount),
			TokensOut: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	for i, fc := range resp.FunctionCalls() {
		args, _ := json.Marshal(fc.Args)
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, entity.ToolCall{ID: id, Name: fc.Name, Arguments: args})
	}
	return out
}

func wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code == 0 {
		return &repository.ProviderError{Provider: providerName, Retryable: true, Err: err}
	}
	return &repository.ProviderError{
		Provider:   providerName,
		StatusCode: code,
		Retryable:  repository.RetryableStatus(code),
		Err:        err,
	}
}
