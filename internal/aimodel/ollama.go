package aimodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stackpilot/stackpilot/internal/provider"
	"github.com/stackpilot/stackpilot/internal/provider/resilience"
)

// OllamaConfig holds configuration for the local adapter.
type OllamaConfig struct {
	// BaseURL is the local server URL, e.g. http://localhost:11434.
	BaseURL string

	// Model is the local model identifier.
	Model string

	// HTTPClient overrides the default resilient client (tests).
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 60s — local inference
	// is slow on cold models).
	Timeout time.Duration
}

// OllamaAdapter is the local ai-model adapter.
type OllamaAdapter struct {
	baseURL    string
	model      string
	httpClient HTTPDoer
}

var _ provider.Adapter = (*OllamaAdapter)(nil)

// NewOllamaAdapter creates the local adapter.
func NewOllamaAdapter(cfg OllamaConfig) *OllamaAdapter {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderOllama,
			Timeout:         timeout,
			MaxRetries:      1,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		})
	}

	return &OllamaAdapter{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: httpClient,
	}
}

// Name returns the provider id.
func (a *OllamaAdapter) Name() string { return ProviderOllama }

// Connect is a no-op; the adapter is stateless over HTTP.
func (a *OllamaAdapter) Connect(_ context.Context) error { return nil }

// Close is a no-op.
func (a *OllamaAdapter) Close() error { return nil }

// Ping lists local tags as a liveness check.
func (a *OllamaAdapter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

// Execute performs one non-streamed generation against the local server.
func (a *OllamaAdapter) Execute(ctx context.Context, payload any) (any, error) {
	chatReq, err := decodeChatRequest(payload)
	if err != nil {
		return nil, err
	}

	model := chatReq.Model
	if model == "" {
		model = a.model
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  model,
		Prompt: chatReq.Prompt,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, &ModelError{Model: model, StatusCode: resp.StatusCode, Message: parsed.Error}
		}
		return nil, fmt.Errorf("ollama generate: status %d: %s", resp.StatusCode, parsed.Error)
	}

	return &ChatResponse{
		Provider: ProviderOllama,
		Model:    parsed.Model,
		Text:     parsed.Response,
		Usage: Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
		},
	}, nil
}
