package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/api/response"
	"github.com/stackpilot/stackpilot/internal/org"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// OrgHandler handles organization endpoints.
type OrgHandler struct {
	orgs   *org.Service
	logger zerolog.Logger
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(orgs *org.Service, logger zerolog.Logger) *OrgHandler {
	return &OrgHandler{
		orgs:   orgs,
		logger: logger,
	}
}

// ListOrgs handles GET /v1/orgs - list organizations.
func (h *OrgHandler) ListOrgs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			response.BadRequest(w, r, "limit must be an integer between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	page, err := h.orgs.List(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, page)
}

// GetOrg handles GET /v1/orgs/{orgId} - fetch one organization.
func (h *OrgHandler) GetOrg(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgId")
	if orgID == "" {
		response.BadRequest(w, r, "orgId is required", nil)
		return
	}

	record, err := h.orgs.Get(r.Context(), orgID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, record)
}

// CreateOrg handles POST /v1/orgs - create an organization.
func (h *OrgHandler) CreateOrg(w http.ResponseWriter, r *http.Request) {
	var input models.OrganizationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	record, err := h.orgs.Create(r.Context(), &input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/orgs/%s", record.ID)
	response.Created(w, r, location, record)
}

// UpdateOrg handles PATCH /v1/orgs/{orgId} - partial update.
func (h *OrgHandler) UpdateOrg(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgId")
	if orgID == "" {
		response.BadRequest(w, r, "orgId is required", nil)
		return
	}

	var input models.OrganizationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	record, err := h.orgs.Update(r.Context(), orgID, &input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, record)
}

// DeleteOrg handles DELETE /v1/orgs/{orgId} - delete an organization.
func (h *OrgHandler) DeleteOrg(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgId")
	if orgID == "" {
		response.BadRequest(w, r, "orgId is required", nil)
		return
	}

	if err := h.orgs.Delete(r.Context(), orgID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// writeServiceError maps service errors onto problem responses. Routing
// failures surface as 503 so clients can retry once a backend recovers.
func (h *OrgHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *org.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
	case errors.Is(err, org.ErrOrgNotFound):
		response.NotFound(w, r, "organization not found")
	case errors.Is(err, provider.ErrNoProviderConfigured):
		response.ServiceUnavailable(w, r, "no data-store provider is configured")
	case errors.Is(err, provider.ErrAllProvidersExhausted):
		response.ServiceUnavailable(w, r, "all data-store providers failed")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("organization request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
