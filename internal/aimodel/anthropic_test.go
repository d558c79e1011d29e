package aimodel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/aimodel"
)

func TestAnthropic_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("anthropic-version"))

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 1024, body.MaxTokens, "zero max tokens uses the adapter default")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": body.Model,
			"content": []map[string]any{
				{"type": "text", "text": "first "},
				{"type": "tool_use", "text": "ignored"},
				{"type": "text", "text": "second"},
			},
			"usage": map[string]any{"input_tokens": 3, "output_tokens": 4},
		})
	}))
	defer server.Close()

	adapter := aimodel.NewAnthropicAdapter(aimodel.AnthropicConfig{
		BaseURL:      server.URL,
		APIKey:       "test-key",
		DefaultModel: "claude-sonnet",
		HTTPClient:   http.DefaultClient,
	})

	resp, err := adapter.Execute(context.Background(), aimodel.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)

	chat := resp.(*aimodel.ChatResponse)
	assert.Equal(t, aimodel.ProviderAnthropic, chat.Provider)
	assert.Equal(t, "first second", chat.Text, "only text blocks are concatenated")
	assert.Equal(t, 3, chat.Usage.PromptTokens)
	assert.Equal(t, 4, chat.Usage.CompletionTokens)
}

func TestAnthropic_FallsBackOnUnknownModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Model == "claude-future" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"type": "not_found_error", "message": "model not found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   body.Model,
			"content": []map[string]any{{"type": "text", "text": "ok"}},
			"usage":   map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer server.Close()

	adapter := aimodel.NewAnthropicAdapter(aimodel.AnthropicConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		DefaultModel:  "claude-future",
		FallbackModel: "claude-sonnet",
		HTTPClient:    http.DefaultClient,
	})

	resp, err := adapter.Execute(context.Background(), aimodel.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", resp.(*aimodel.ChatResponse).Model)
}
