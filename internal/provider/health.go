package provider

import (
	"sync"
	"time"
)

// Health is the recorded outcome of the most recent probe or dispatch
// attempt against one provider.
type Health struct {
	// ProviderID names the provider this entry belongs to.
	ProviderID string

	// Healthy reports whether the last check succeeded.
	Healthy bool

	// CheckedAt is when the entry was last written.
	CheckedAt time.Time

	// LatencyMs is the observed probe latency, when measured.
	LatencyMs int64

	// LastError is the most recent error message, if any.
	LastError string
}

// Fresh reports whether the entry was written within the given window.
func (h Health) Fresh(window time.Duration, now time.Time) bool {
	return now.Sub(h.CheckedAt) <= window
}

// HealthMap is the shared health state read by the router and written by
// probes and failed dispatch attempts. Updates are last-writer-wins per
// provider id; iteration returns a point-in-time copy.
type HealthMap struct {
	mu      sync.RWMutex
	entries map[string]Health
}

// NewHealthMap creates an empty health map.
func NewHealthMap() *HealthMap {
	return &HealthMap{entries: make(map[string]Health)}
}

// Set records the health entry for a provider.
func (m *HealthMap) Set(h Health) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[h.ProviderID] = h
}

// MarkUnhealthy records a failure for a provider without latency detail.
func (m *HealthMap) MarkUnhealthy(providerID string, err error) {
	entry := Health{
		ProviderID: providerID,
		Healthy:    false,
		CheckedAt:  time.Now(),
	}
	if err != nil {
		entry.LastError = err.Error()
	}
	m.Set(entry)
}

// Get returns the entry for a provider and whether one exists. Entries are
// never deleted; an absent entry means the provider was never checked.
func (m *HealthMap) Get(providerID string) (Health, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.entries[providerID]
	return h, ok
}

// All returns a snapshot copy of every entry.
func (m *HealthMap) All() map[string]Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Health, len(m.entries))
	for id, h := range m.entries {
		out[id] = h
	}
	return out
}
