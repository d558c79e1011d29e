package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/api/response"
	"github.com/stackpilot/stackpilot/internal/assist"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// AssistHandler handles AI completion endpoints.
type AssistHandler struct {
	assist *assist.Service
	logger zerolog.Logger
}

// NewAssistHandler creates a new AssistHandler.
func NewAssistHandler(svc *assist.Service, logger zerolog.Logger) *AssistHandler {
	return &AssistHandler{
		assist: svc,
		logger: logger,
	}
}

// Complete handles POST /v1/assist:complete - run a prompt against the
// first available ai-model provider.
func (h *AssistHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var input models.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	completion, err := h.assist.Complete(r.Context(), &input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, completion)
}

func (h *AssistHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *assist.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
	case errors.Is(err, provider.ErrNoProviderConfigured):
		response.ServiceUnavailable(w, r, "no ai-model provider is configured")
	case errors.Is(err, provider.ErrAllProvidersExhausted):
		response.ServiceUnavailable(w, r, "all ai-model providers failed")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("completion request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
