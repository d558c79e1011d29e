// Package health aggregates per-provider probe results into a single
// tri-state system status for the status surface.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/provider"
)

// Status is the tri-state overall classification.
type Status string

const (
	// StatusHealthy means every required and monitored component is up.
	StatusHealthy Status = "HEALTHY"

	// StatusPartial means baseline operation is possible but at least one
	// optional component is down.
	StatusPartial Status = "PARTIAL"

	// StatusError means a baseline-required component is down.
	StatusError Status = "ERROR"
)

// SystemStatus is a point-in-time reduction of component health. It is
// recomputed on every refresh and never persisted.
type SystemStatus struct {
	Overall    Status          `json:"overall"`
	Components map[string]bool `json:"components"`
	CheckedAt  time.Time       `json:"checkedAt"`
}

// Check is an extra component check folded into the reduction alongside
// capability classes, e.g. public API reachability.
type Check struct {
	Name     string
	Required bool
	Fn       func(ctx context.Context) error
}

// AggregatorConfig holds configuration for the Aggregator.
type AggregatorConfig struct {
	Registry *provider.Registry
	Health   *provider.HealthMap
	Prober   *provider.Prober
	Logger   zerolog.Logger

	// AdapterFor resolves the adapter for a provider id; typically
	// Router.Adapter.
	AdapterFor func(providerID string) (provider.Adapter, bool)

	// Required classes must have at least one healthy provider for
	// baseline operation. Defaults to {DataStore}.
	Required []provider.Class

	// Optional classes are monitored for full status but do not fail
	// baseline operation. Defaults to {AIModel}.
	Optional []provider.Class

	// Checks are extra component checks (e.g. API reachability).
	Checks []Check
}

// Aggregator runs probes across all registered providers and reduces the
// results. Snapshot is a pure read of the last reduction; Refresh forces
// fresh probes.
type Aggregator struct {
	registry   *provider.Registry
	health     *provider.HealthMap
	prober     *provider.Prober
	logger     zerolog.Logger
	adapterFor func(string) (provider.Adapter, bool)
	required   []provider.Class
	optional   []provider.Class
	checks     []Check

	mu      sync.RWMutex
	last    SystemStatus
	hasLast bool
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	required := cfg.Required
	if required == nil {
		required = []provider.Class{provider.ClassDataStore}
	}
	optional := cfg.Optional
	if optional == nil {
		optional = []provider.Class{provider.ClassAIModel}
	}
	return &Aggregator{
		registry:   cfg.Registry,
		health:     cfg.Health,
		prober:     cfg.Prober,
		logger:     cfg.Logger,
		adapterFor: cfg.AdapterFor,
		required:   required,
		optional:   optional,
		checks:     cfg.Checks,
	}
}

// Snapshot returns the status computed by the most recent Refresh. Between
// refreshes consecutive snapshots are identical. Before the first refresh
// it reduces whatever the health map currently holds and caches that.
func (a *Aggregator) Snapshot() SystemStatus {
	a.mu.RLock()
	if a.hasLast {
		defer a.mu.RUnlock()
		return a.last
	}
	a.mu.RUnlock()

	status := a.reduce(a.checkResultsFromCache())
	a.store(status)
	return status
}

// Refresh probes every enabled provider across all capability classes
// concurrently, runs the extra checks, recomputes the reduction and caches
// it. An individual probe failure never aborts the aggregation.
func (a *Aggregator) Refresh(ctx context.Context) SystemStatus {
	descriptors := a.registry.AllEnabled()

	var wg sync.WaitGroup
	for _, d := range descriptors {
		adapter, ok := a.adapterFor(d.ID)
		if !ok {
			a.health.MarkUnhealthy(d.ID, provider.ErrAdapterNotRegistered)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := a.prober.Probe(ctx, adapter)
			a.health.Set(entry)
			if !entry.Healthy {
				a.logger.Warn().
					Str("provider", entry.ProviderID).
					Str("error", entry.LastError).
					Msg("provider probe failed")
			}
		}()
	}
	wg.Wait()

	checkResults := make(map[string]bool, len(a.checks))
	for _, c := range a.checks {
		err := c.Fn(ctx)
		checkResults[c.Name] = err == nil
		if err != nil {
			a.logger.Warn().Err(err).Str("check", c.Name).Msg("component check failed")
		}
	}

	status := a.reduce(checkResults)
	a.store(status)

	a.logger.Info().
		Str("overall", string(status.Overall)).
		Interface("components", status.Components).
		Msg("health refresh completed")

	return status
}

// checkResultsFromCache runs no probes; extra checks default to healthy
// until the first refresh executes them.
func (a *Aggregator) checkResultsFromCache() map[string]bool {
	results := make(map[string]bool, len(a.checks))
	for _, c := range a.checks {
		results[c.Name] = true
	}
	return results
}

// reduce folds per-class and per-check booleans into the tri-state.
func (a *Aggregator) reduce(checkResults map[string]bool) SystemStatus {
	components := make(map[string]bool)

	requiredDown := false
	optionalDown := false

	for _, class := range a.required {
		up := a.classHealthy(class)
		components[string(class)] = up
		if !up {
			requiredDown = true
		}
	}
	for _, class := range a.optional {
		up := a.classHealthy(class)
		components[string(class)] = up
		if !up {
			optionalDown = true
		}
	}
	for _, c := range a.checks {
		up := checkResults[c.Name]
		components[c.Name] = up
		if !up {
			if c.Required {
				requiredDown = true
			} else {
				optionalDown = true
			}
		}
	}

	overall := StatusHealthy
	switch {
	case requiredDown:
		overall = StatusError
	case optionalDown:
		overall = StatusPartial
	}

	return SystemStatus{
		Overall:    overall,
		Components: components,
		CheckedAt:  time.Now(),
	}
}

// classHealthy reports whether at least one enabled provider in the class
// has a healthy entry. A class with zero enabled providers is unhealthy.
func (a *Aggregator) classHealthy(class provider.Class) bool {
	for _, d := range a.registry.EnabledProviders(class) {
		if entry, ok := a.health.Get(d.ID); ok && entry.Healthy {
			return true
		}
	}
	return false
}

func (a *Aggregator) store(status SystemStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = status
	a.hasLast = true
}

// ProviderHealth returns a snapshot of every enabled provider's latest
// health entry, for the detailed status surface.
func (a *Aggregator) ProviderHealth() []provider.Health {
	var out []provider.Health
	for _, d := range a.registry.AllEnabled() {
		if entry, ok := a.health.Get(d.ID); ok {
			out = append(out, entry)
		} else {
			out = append(out, provider.Health{ProviderID: d.ID})
		}
	}
	return out
}
