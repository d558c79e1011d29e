// Package aimodel provides the ai-model capability adapters: two hosted
// chat providers and a local one, all behind the provider.Adapter
// interface. Prompt and response semantics are opaque to the router.
package aimodel

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider ids for the ai-model capability class.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ErrInvalidRequest is returned when an adapter receives a payload it
// cannot interpret.
var ErrInvalidRequest = errors.New("invalid ai-model request")

// ChatRequest is the uniform payload dispatched to ai-model adapters.
type ChatRequest struct {
	// Model optionally overrides the adapter's configured default model.
	Model string

	// Prompt is the user prompt.
	Prompt string

	// MaxTokens bounds the completion length; 0 uses the adapter default.
	MaxTokens int
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// ChatResponse is the response payload from an ai-model adapter.
type ChatResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Text     string `json:"text"`
	Usage    Usage  `json:"usage"`
}

// HTTPDoer abstracts HTTP request execution so adapters can share the
// resilient client or take a test double.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func decodeChatRequest(payload any) (ChatRequest, error) {
	req, ok := payload.(ChatRequest)
	if !ok {
		return ChatRequest{}, fmt.Errorf("%w: unexpected payload type %T", ErrInvalidRequest, payload)
	}
	if req.Prompt == "" {
		return ChatRequest{}, fmt.Errorf("%w: prompt must not be empty", ErrInvalidRequest)
	}
	return req, nil
}

// ModelError reports a request the upstream rejected because of the model
// identifier. Hosted adapters retry these once with the configured
// fallback model.
type ModelError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %q rejected (status %d): %s", e.Model, e.StatusCode, e.Message)
}
