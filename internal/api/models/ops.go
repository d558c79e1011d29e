package models

// HealthStatus represents the health status of a service.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the liveness/readiness response.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatusResponse is the status-widget payload: the tri-state overall
// classification plus per-component booleans.
type SystemStatusResponse struct {
	Overall    string          `json:"overall"`
	Components map[string]bool `json:"components"`
	CheckedAt  Timestamp       `json:"checkedAt"`
}

// ProviderStatus is the detailed per-provider health entry.
type ProviderStatus struct {
	Provider  string     `json:"provider"`
	Healthy   bool       `json:"healthy"`
	CheckedAt *Timestamp `json:"checkedAt,omitempty"`
	LatencyMs int64      `json:"latencyMs,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// ProvidersResponse lists the health of every enabled provider.
type ProvidersResponse struct {
	Providers []ProviderStatus `json:"providers"`
}
