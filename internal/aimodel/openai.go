package aimodel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stackpilot/stackpilot/internal/provider"
	"github.com/stackpilot/stackpilot/internal/provider/resilience"
)

// OpenAIConfig holds configuration for the hosted primary adapter.
type OpenAIConfig struct {
	// BaseURL is the API base URL, e.g. https://api.openai.com/v1.
	BaseURL string

	// APIKey is the bearer token for the hosted API.
	APIKey string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// FallbackModel is tried once when the requested model is rejected.
	FallbackModel string

	// HTTPClient overrides the default resilient client (tests).
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 30s).
	Timeout time.Duration
}

// OpenAIAdapter is the hosted primary ai-model adapter, speaking the
// chat-completions API shape.
type OpenAIAdapter struct {
	baseURL       string
	apiKey        string
	defaultModel  string
	fallbackModel string
	httpClient    HTTPDoer
}

var _ provider.Adapter = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates the hosted primary adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) *OpenAIAdapter {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderOpenAI,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &OpenAIAdapter{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		defaultModel:  cfg.DefaultModel,
		fallbackModel: cfg.FallbackModel,
		httpClient:    httpClient,
	}
}

// Name returns the provider id.
func (a *OpenAIAdapter) Name() string { return ProviderOpenAI }

// Connect is a no-op; the adapter is stateless over HTTP.
func (a *OpenAIAdapter) Connect(_ context.Context) error { return nil }

// Close is a no-op.
func (a *OpenAIAdapter) Close() error { return nil }

// Ping lists models as a minimal authenticated liveness check.
func (a *OpenAIAdapter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// API request/response shapes.

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Execute performs one chat completion. A model-not-found rejection is
// retried once with the configured fallback model.
func (a *OpenAIAdapter) Execute(ctx context.Context, payload any) (any, error) {
	chatReq, err := decodeChatRequest(payload)
	if err != nil {
		return nil, err
	}

	model := chatReq.Model
	if model == "" {
		model = a.defaultModel
	}

	resp, err := a.complete(ctx, model, chatReq)
	var modelErr *ModelError
	if err != nil && a.fallbackModel != "" && model != a.fallbackModel && errors.As(err, &modelErr) {
		resp, err = a.complete(ctx, a.fallbackModel, chatReq)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (a *OpenAIAdapter) complete(ctx context.Context, model string, chatReq ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(openAIChatRequest{
		Model:     model,
		Messages:  []openAIMessage{{Role: "user", Content: chatReq.Prompt}},
		MaxTokens: chatReq.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := ""
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound || (parsed.Error != nil && parsed.Error.Code == "model_not_found") {
			return nil, &ModelError{Model: model, StatusCode: resp.StatusCode, Message: message}
		}
		return nil, fmt.Errorf("openai chat: status %d: %s", resp.StatusCode, message)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: empty choices")
	}

	return &ChatResponse{
		Provider: ProviderOpenAI,
		Model:    parsed.Model,
		Text:     parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}
