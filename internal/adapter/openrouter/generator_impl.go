// Package openrouter talks to OpenRouter, or any OpenAI-compatible chat
// completions endpoint, through the openai-go client.
package openrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

const providerName = "openrouter"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type GeneratorImpl struct {
	client openai.Client
	cfg    Config
}

// NewGenerator builds a client. A missing API key is reported per call as
// ErrMissingCredentials so the service can still start.
func NewGenerator(cfg Config) *GeneratorImpl {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// Retries are handled by the generation use case.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &GeneratorImpl{client: openai.NewClient(opts...), cfg: cfg}
}

var _ repository.Generator = (*GeneratorImpl)(nil)

func (g *GeneratorImpl) Name() string { return providerName }

func (g *GeneratorImpl) Generate(ctx context.Context, req *entity.GenerateRequest) (*entity.GenerateResponse, error) {
	if g.cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w: OPENROUTER_API_KEY is not set", providerName, repository.ErrMissingCredentials)
	}

	params := openai.ChatCompletionNewParams{
		Model:    g.cfg.Model,
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(ctx, err)
	}
	return convertResponse(resp), nil
}

func convertMessages(msgs []entity.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case entity.RoleTool:
			out = append(out, openai.ToolMessage(m.Text(), m.ToolCallID))
		case entity.RoleAssistant:
			out = append(out, convertAssistant(m))
		default:
			out = append(out, convertUser(m))
		}
	}
	return out
}

func convertUser(m entity.Message) openai.ChatCompletionMessageParamUnion {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Blocks))
	for _, b := range m.Blocks {
		switch b.Kind {
		case entity.BlockImage:
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL(b),
			}))
		default:
			parts = append(parts, openai.TextContentPart(b.Text))
		}
	}
	return openai.UserMessage(parts)
}

func convertAssistant(m entity.Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Text())
	}
	calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		args := string(tc.Arguments)
		if args == "" {
			args = "{}"
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}
	asst := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if text := m.Text(); text != "" {
		asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(text)}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func convertTools(tools []entity.ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(params),
			},
		})
	}
	return out
}

func convertResponse(resp *openai.ChatCompletion) *entity.GenerateResponse {
	out := &entity.GenerateResponse{
		Usage: entity.Usage{
			TokensIn:  resp.Usage.PromptTokens,
			TokensOut: resp.Usage.CompletionTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}
	msg := resp.Choices[0].Message
	out.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, entity.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out
}

func dataURL(b entity.ContentBlock) string {
	mt := b.MediaType
	if mt == "" {
		mt = "image/png"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b.Image)
}

// wrapError classifies failures. HTTP errors retry on 408/429/5xx; transport
// errors retry unless the caller gave up.
func wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &repository.ProviderError{
			Provider:   providerName,
			StatusCode: apiErr.StatusCode,
			Retryable:  repository.RetryableStatus(apiErr.StatusCode),
			Err:        err,
		}
	}
	return &repository.ProviderError{Provider: providerName, Retryable: true, Err: err}
}
