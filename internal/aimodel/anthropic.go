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

const anthropicAPIVersion = "2023-06-01"

// AnthropicConfig holds configuration for the hosted secondary adapter.
type AnthropicConfig struct {
	// BaseURL is the API base URL, e.g. https://api.anthropic.com/v1.
	BaseURL string

	// APIKey is the x-api-key credential.
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

// AnthropicAdapter is the hosted secondary ai-model adapter, speaking the
// messages API shape.
type AnthropicAdapter struct {
	baseURL       string
	apiKey        string
	defaultModel  string
	fallbackModel string
	httpClient    HTTPDoer
}

var _ provider.Adapter = (*AnthropicAdapter)(nil)

// NewAnthropicAdapter creates the hosted secondary adapter.
func NewAnthropicAdapter(cfg AnthropicConfig) *AnthropicAdapter {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            ProviderAnthropic,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &AnthropicAdapter{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		defaultModel:  cfg.DefaultModel,
		fallbackModel: cfg.FallbackModel,
		httpClient:    httpClient,
	}
}

// Name returns the provider id.
func (a *AnthropicAdapter) Name() string { return ProviderAnthropic }

// Connect is a no-op; the adapter is stateless over HTTP.
func (a *AnthropicAdapter) Connect(_ context.Context) error { return nil }

// Close is a no-op.
func (a *AnthropicAdapter) Close() error { return nil }

// Ping lists models as a minimal authenticated liveness check.
func (a *AnthropicAdapter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (a *AnthropicAdapter) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("Content-Type", "application/json")
}

// API request/response shapes.

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute performs one completion via the messages API. A model rejection
// is retried once with the configured fallback model.
func (a *AnthropicAdapter) Execute(ctx context.Context, payload any) (any, error) {
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

func (a *AnthropicAdapter) complete(ctx context.Context, model string, chatReq ChatRequest) (*ChatResponse, error) {
	maxTokens := chatReq.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: chatReq.Prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.setHeaders(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := ""
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, &ModelError{Model: model, StatusCode: resp.StatusCode, Message: message}
		}
		return nil, fmt.Errorf("anthropic messages: status %d: %s", resp.StatusCode, message)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &ChatResponse{
		Provider: ProviderAnthropic,
		Model:    parsed.Model,
		Text:     text.String(),
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
		},
	}, nil
}
