package models

// CompletionRequest is the payload for POST /v1/assist:complete.
type CompletionRequest struct {
	// Model optionally overrides the configured default model.
	Model string `json:"model,omitempty"`

	Prompt string `json:"prompt"`

	// MaxTokens bounds the completion length; 0 uses the provider default.
	MaxTokens int `json:"maxTokens,omitempty"`
}

// CompletionUsage reports token accounting for a completion.
type CompletionUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	// Provider names the ai-model provider that answered.
	Provider string `json:"provider"`

	Model string          `json:"model"`
	Text  string          `json:"text"`
	Usage CompletionUsage `json:"usage"`
}
