package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

func newTestServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const completionBody = `{
  "id": "gen-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "// FILE: src/app/page.tsx\nexport default function Home() {}",
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "search", "arguments": "{\"q\":\"hero\"}"}}]
    }
  }],
  "usage": {"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160}
}`

func TestGenerateSendsMultimodalRequest(t *testing.T) {
	var seen map[string]any
	srv := newTestServer(t, http.StatusOK, completionBody, &seen)
	g := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "test-model"})

	resp, err := g.Generate(context.Background(), &entity.GenerateRequest{
		Messages: []entity.Message{{
			Role:   entity.RoleUser,
			Blocks: []entity.ContentBlock{entity.TextBlock("clone this"), entity.ImageBlock([]byte{0x89, 'P', 'N', 'G'})},
		}},
		MaxTokens: 1000,
		Tools:     []entity.ToolDefinition{{Name: "search", Description: "find things"}},
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Text, "// FILE: src/app/page.tsx")
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "search", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"q":"hero"}`, string(resp.ToolCalls[0].Arguments))
	assert.Equal(t, int64(120), resp.Usage.TokensIn)
	assert.Equal(t, int64(40), resp.Usage.TokensOut)

	assert.Equal(t, "test-model", seen["model"])
	assert.EqualValues(t, 1000, seen["max_completion_tokens"])
	msgs := seen["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Contains(t, img["url"], "data:image/png;base64,")
	tools := seen["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestGenerateReplaysToolConversation(t *testing.T) {
	var seen map[string]any
	srv := newTestServer(t, http.StatusOK, completionBody, &seen)
	g := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})

	_, err := g.Generate(context.Background(), &entity.GenerateRequest{Messages: []entity.Message{
		{Role: entity.RoleUser, Blocks: []entity.ContentBlock{entity.TextBlock("hi")}},
		{Role: entity.RoleAssistant, ToolCalls: []entity.ToolCall{{ID: "call_1", Name: "search"}}},
		{Role: entity.RoleTool, ToolCallID: "call_1", Blocks: []entity.ContentBlock{entity.TextBlock("result")}},
	}})
	require.NoError(t, err)

	msgs := seen["messages"].([]any)
	require.Len(t, msgs, 3)
	asst := msgs[1].(map[string]any)
	assert.Equal(t, "assistant", asst["role"])
	call := asst["tool_calls"].([]any)[0].(map[string]any)
	assert.Equal(t, "{}", call["function"].(map[string]any)["arguments"])
	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "call_1", tool["tool_call_id"])
}

func TestGenerateClassifiesErrors(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
	}
	for _, tc := range cases {
		srv := newTestServer(t, tc.status, `{"error":{"message":"nope","type":"x"}}`, nil)
		g := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "m"})

		_, err := g.Generate(context.Background(), &entity.GenerateRequest{})
		var pe *repository.ProviderError
		require.True(t, errors.As(err, &pe), "status %d", tc.status)
		assert.Equal(t, tc.status, pe.StatusCode)
		assert.Equal(t, tc.retryable, pe.Retryable, "status %d", tc.status)
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	_, err := NewGenerator(Config{Model: "m"}).Generate(context.Background(), &entity.GenerateRequest{})
	assert.ErrorIs(t, err, repository.ErrMissingCredentials)
}
