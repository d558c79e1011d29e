package aimodel_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/aimodel"
)

func openAICompletion(model, text string) map[string]any {
	return map[string]any{
		"model": model,
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": text}},
		},
		"usage": map[string]any{"prompt_tokens": 7, "completion_tokens": 11},
	}
}

func TestOpenAI_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4o-mini", body.Model)
		require.Equal(t, "say hello", body.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(openAICompletion(body.Model, "hello"))
	}))
	defer server.Close()

	adapter := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:      server.URL,
		APIKey:       "test-key",
		DefaultModel: "gpt-4o-mini",
		HTTPClient:   http.DefaultClient,
	})

	resp, err := adapter.Execute(context.Background(), aimodel.ChatRequest{Prompt: "say hello"})
	require.NoError(t, err)

	chat, ok := resp.(*aimodel.ChatResponse)
	require.True(t, ok)
	assert.Equal(t, aimodel.ProviderOpenAI, chat.Provider)
	assert.Equal(t, "hello", chat.Text)
	assert.Equal(t, 7, chat.Usage.PromptTokens)
	assert.Equal(t, 11, chat.Usage.CompletionTokens)
}

func TestOpenAI_FallsBackOnUnknownModel(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body.Model == "gpt-future" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "model not found", "code": "model_not_found"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(openAICompletion(body.Model, "fallback answer"))
	}))
	defer server.Close()

	adapter := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		DefaultModel:  "gpt-future",
		FallbackModel: "gpt-4o-mini",
		HTTPClient:    http.DefaultClient,
	})

	resp, err := adapter.Execute(context.Background(), aimodel.ChatRequest{Prompt: "hi"})
	require.NoError(t, err)

	chat := resp.(*aimodel.ChatResponse)
	assert.Equal(t, "gpt-4o-mini", chat.Model)
	assert.Equal(t, "fallback answer", chat.Text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAI_NoFallbackOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "upstream unavailable"},
		})
	}))
	defer server.Close()

	adapter := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:       server.URL,
		APIKey:        "test-key",
		DefaultModel:  "gpt-4o-mini",
		FallbackModel: "gpt-3.5-turbo",
		HTTPClient:    http.DefaultClient,
	})

	_, err := adapter.Execute(context.Background(), aimodel.ChatRequest{Prompt: "hi"})
	require.Error(t, err)

	var modelErr *aimodel.ModelError
	assert.False(t, errors.As(err, &modelErr), "server errors are not model rejections")
	assert.EqualValues(t, 1, calls.Load(), "only model rejections trigger the fallback model")
}

func TestOpenAI_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	good := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: http.DefaultClient,
	})
	assert.NoError(t, good.Ping(context.Background()))

	bad := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:    server.URL,
		APIKey:     "wrong-key",
		HTTPClient: http.DefaultClient,
	})
	assert.Error(t, bad.Ping(context.Background()))
}

func TestOpenAI_InvalidPayload(t *testing.T) {
	adapter := aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
		BaseURL:    "http://localhost:0",
		HTTPClient: http.DefaultClient,
	})

	_, err := adapter.Execute(context.Background(), 42)
	assert.ErrorIs(t, err, aimodel.ErrInvalidRequest)

	_, err = adapter.Execute(context.Background(), aimodel.ChatRequest{})
	assert.ErrorIs(t, err, aimodel.ErrInvalidRequest)
}
