// Package assist provides AI completions for the dashboard, routed to
// whichever model provider currently answers.
package assist

import (
	"context"
	"fmt"

	"github.com/stackpilot/stackpilot/internal/aimodel"
	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// Validation constants.
const (
	MaxPromptLength = 8000
	MaxTokensLimit  = 4096
)

// Dispatcher routes a payload within a capability class. Satisfied by
// *provider.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, class provider.Class, payload any) (*provider.Result, error)
}

// Service provides completion operations.
type Service struct {
	dispatcher Dispatcher
}

// NewService creates a new assist service.
func NewService(dispatcher Dispatcher) *Service {
	return &Service{dispatcher: dispatcher}
}

// Complete dispatches a completion request to the ai-model class.
func (s *Service) Complete(ctx context.Context, input *models.CompletionRequest) (*models.CompletionResponse, error) {
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	result, err := s.dispatcher.Dispatch(ctx, provider.ClassAIModel, aimodel.ChatRequest{
		Model:     input.Model,
		Prompt:    input.Prompt,
		MaxTokens: input.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	resp, ok := result.Response.(*aimodel.ChatResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected ai-model response type %T from provider %s", result.Response, result.ProviderID)
	}

	return &models.CompletionResponse{
		Provider: resp.Provider,
		Model:    resp.Model,
		Text:     resp.Text,
		Usage: models.CompletionUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func validateInput(input *models.CompletionRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Prompt == "" {
		errs = append(errs, models.FieldError{Field: "prompt", Message: "is required"})
	} else if len(input.Prompt) > MaxPromptLength {
		errs = append(errs, models.FieldError{Field: "prompt", Message: "must be at most 8000 characters"})
	}

	if input.MaxTokens < 0 || input.MaxTokens > MaxTokensLimit {
		errs = append(errs, models.FieldError{Field: "maxTokens", Message: "must be between 0 and 4096"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
