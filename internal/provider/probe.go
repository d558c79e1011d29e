package provider

import (
	"context"
	"time"
)

// DefaultProbeTimeout bounds a probe when no timeout is configured.
const DefaultProbeTimeout = 3 * time.Second

// Prober performs liveness checks against provider adapters. It is
// stateless; results are data, never control flow.
type Prober struct {
	timeout time.Duration
}

// NewProber creates a Prober with the given per-probe timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{timeout: timeout}
}

// Probe pings the adapter once under the configured timeout and returns
// the resulting health entry. Transport and credential errors are folded
// into the entry; Probe itself never fails.
func (p *Prober) Probe(ctx context.Context, adapter Adapter) Health {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := adapter.Ping(probeCtx)
	latency := time.Since(start)

	entry := Health{
		ProviderID: adapter.Name(),
		Healthy:    err == nil,
		CheckedAt:  time.Now(),
		LatencyMs:  latency.Milliseconds(),
	}
	if err != nil {
		entry.LastError = err.Error()
	}
	return entry
}
