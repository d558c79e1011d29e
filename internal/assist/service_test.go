package assist_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stackpilot/stackpilot/internal/aimodel"
	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/assist"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// fakeDispatcher records the dispatched class and payload and answers with
// a scripted response.
type fakeDispatcher struct {
	class    provider.Class
	payload  any
	response *aimodel.ChatResponse
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, class provider.Class, payload any) (*provider.Result, error) {
	f.class = class
	f.payload = payload
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Result{
		ProviderID: f.response.Provider,
		Attempted:  []string{f.response.Provider},
		Response:   f.response,
	}, nil
}

func TestService_Complete(t *testing.T) {
	dispatcher := &fakeDispatcher{
		response: &aimodel.ChatResponse{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Text:     "Hello there.",
			Usage:    aimodel.Usage{PromptTokens: 4, CompletionTokens: 9},
		},
	}
	service := assist.NewService(dispatcher)

	result, err := service.Complete(context.Background(), &models.CompletionRequest{
		Model:     "gpt-4o",
		Prompt:    "Say hello",
		MaxTokens: 128,
	})
	if err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	if dispatcher.class != provider.ClassAIModel {
		t.Errorf("expected ai-model class, got %q", dispatcher.class)
	}

	chatReq, ok := dispatcher.payload.(aimodel.ChatRequest)
	if !ok {
		t.Fatalf("expected ChatRequest payload, got %T", dispatcher.payload)
	}
	if chatReq.Model != "gpt-4o" {
		t.Errorf("expected model override to be forwarded, got %q", chatReq.Model)
	}
	if chatReq.Prompt != "Say hello" {
		t.Errorf("expected prompt to be forwarded, got %q", chatReq.Prompt)
	}
	if chatReq.MaxTokens != 128 {
		t.Errorf("expected maxTokens to be forwarded, got %d", chatReq.MaxTokens)
	}

	if result.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", result.Provider)
	}
	if result.Model != "gpt-4o-mini" {
		t.Errorf("expected the answering model to be reported, got %q", result.Model)
	}
	if result.Text != "Hello there." {
		t.Errorf("unexpected completion text %q", result.Text)
	}
	if result.Usage.PromptTokens != 4 || result.Usage.CompletionTokens != 9 {
		t.Errorf("unexpected usage %+v", result.Usage)
	}
}

func TestService_Complete_ValidationErrors(t *testing.T) {
	service := assist.NewService(&fakeDispatcher{})
	ctx := context.Background()

	tests := []struct {
		name      string
		input     *models.CompletionRequest
		wantField string
	}{
		{
			name:      "empty prompt",
			input:     &models.CompletionRequest{},
			wantField: "prompt",
		},
		{
			name:      "prompt too long",
			input:     &models.CompletionRequest{Prompt: strings.Repeat("p", assist.MaxPromptLength+1)},
			wantField: "prompt",
		},
		{
			name:      "negative maxTokens",
			input:     &models.CompletionRequest{Prompt: "hi", MaxTokens: -1},
			wantField: "maxTokens",
		},
		{
			name:      "maxTokens over limit",
			input:     &models.CompletionRequest{Prompt: "hi", MaxTokens: assist.MaxTokensLimit + 1},
			wantField: "maxTokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Complete(ctx, tt.input)

			var validationErr *assist.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}

			found := false
			for _, fe := range validationErr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field error for %q, got %+v", tt.wantField, validationErr.Errors)
			}
		})
	}
}

func TestService_Complete_PropagatesDispatchErrors(t *testing.T) {
	dispatcher := &fakeDispatcher{err: &provider.NoProviderError{Class: provider.ClassAIModel}}
	service := assist.NewService(dispatcher)

	_, err := service.Complete(context.Background(), &models.CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, provider.ErrNoProviderConfigured) {
		t.Fatalf("expected no-provider error to pass through, got %v", err)
	}
}

func TestService_Complete_UnexpectedResponseType(t *testing.T) {
	dispatcher := &badTypeDispatcher{}
	service := assist.NewService(dispatcher)

	_, err := service.Complete(context.Background(), &models.CompletionRequest{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected an error for an unexpected response type")
	}
}

type badTypeDispatcher struct{}

func (badTypeDispatcher) Dispatch(context.Context, provider.Class, any) (*provider.Result, error) {
	return &provider.Result{ProviderID: "openai", Response: "not a chat response"}, nil
}
