// Package handler provides HTTP handlers for the StackPilot API.
package handler

import (
	"net/http"
	"time"

	"github.com/stackpilot/stackpilot/internal/api/models"
	"github.com/stackpilot/stackpilot/internal/api/response"
	"github.com/stackpilot/stackpilot/internal/health"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	aggregator *health.Aggregator
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, aggregator *health.Aggregator) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		aggregator: aggregator,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthResp := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, healthResp)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Ready means baseline operation is possible: the last reduction was not ERROR.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	snapshot := h.aggregator.Snapshot()

	healthResp := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	statusCode := http.StatusOK

	switch snapshot.Overall {
	case health.StatusPartial:
		healthResp.Status = models.HealthStatusDegraded
	case health.StatusError:
		healthResp.Status = models.HealthStatusFail
		statusCode = http.StatusServiceUnavailable
	}

	response.JSON(w, r, statusCode, healthResp)
}

// SystemStatus handles GET /v1/ops/status - cached tri-state system status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.aggregator.Snapshot()
	response.JSON(w, r, http.StatusOK, statusResponse(snapshot))
}

// RefreshStatus handles POST /v1/ops/status:refresh - forced re-probe of
// every component followed by a fresh reduction.
func (h *OpsHandler) RefreshStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.aggregator.Refresh(r.Context())
	response.JSON(w, r, http.StatusOK, statusResponse(snapshot))
}

// Providers handles GET /v1/ops/providers - per-provider health detail.
func (h *OpsHandler) Providers(w http.ResponseWriter, r *http.Request) {
	entries := h.aggregator.ProviderHealth()

	resp := models.ProvidersResponse{
		Providers: make([]models.ProviderStatus, 0, len(entries)),
	}
	for _, entry := range entries {
		status := models.ProviderStatus{
			Provider:  entry.ProviderID,
			Healthy:   entry.Healthy,
			LatencyMs: entry.LatencyMs,
			LastError: entry.LastError,
		}
		if !entry.CheckedAt.IsZero() {
			checkedAt := models.Timestamp(entry.CheckedAt)
			status.CheckedAt = &checkedAt
		}
		resp.Providers = append(resp.Providers, status)
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func statusResponse(snapshot health.SystemStatus) models.SystemStatusResponse {
	return models.SystemStatusResponse{
		Overall:    string(snapshot.Overall),
		Components: snapshot.Components,
		CheckedAt:  models.Timestamp(snapshot.CheckedAt),
	}
}
