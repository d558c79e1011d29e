package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RouterConfig holds configuration for the fallback router.
type RouterConfig struct {
	Registry *Registry
	Health   *HealthMap
	Logger   zerolog.Logger

	// Freshness is how long a cached health entry is trusted. A stale or
	// missing entry is treated as unknown-healthy and the provider is
	// attempted rather than synchronously probed.
	Freshness time.Duration

	// Metrics is optional; when nil no instruments are recorded.
	Metrics *Metrics
}

// DefaultFreshness is used when RouterConfig.Freshness is zero.
const DefaultFreshness = time.Minute

// Router dispatches requests to the first enabled, healthy provider in
// registry priority order, advancing on failure.
type Router struct {
	registry  *Registry
	health    *HealthMap
	logger    zerolog.Logger
	freshness time.Duration
	metrics   *Metrics

	adapters map[string]Adapter
}

// NewRouter creates a Router. Adapters are registered separately with
// RegisterAdapter before the first dispatch.
func NewRouter(cfg RouterConfig) *Router {
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthMap()
	}
	return &Router{
		registry:  cfg.Registry,
		health:    health,
		logger:    cfg.Logger,
		freshness: freshness,
		metrics:   cfg.Metrics,
		adapters:  make(map[string]Adapter),
	}
}

// RegisterAdapter wires the adapter for a provider id. Must be called
// during startup, before dispatches begin.
func (r *Router) RegisterAdapter(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Adapter returns the adapter registered for a provider id.
func (r *Router) Adapter(providerID string) (Adapter, bool) {
	a, ok := r.adapters[providerID]
	return a, ok
}

// Health returns the shared health map.
func (r *Router) Health() *HealthMap {
	return r.health
}

// Dispatch routes a payload to the first candidate in the class that
// answers. Success is terminal: once a provider responds, no further
// candidates are tried, so a write is never double-applied by the router
// itself. On candidate failure the provider is marked unhealthy and the
// next candidate is tried.
//
// A class with zero enabled providers fails with *NoProviderError without
// invoking any adapter. Exhausting every candidate fails with
// *ExhaustedError carrying the ordered attempts.
func (r *Router) Dispatch(ctx context.Context, class Class, payload any) (*Result, error) {
	candidates := r.registry.EnabledProviders(class)
	if len(candidates) == 0 {
		return nil, &NoProviderError{Class: class}
	}

	now := time.Now()
	attempts := make([]Attempt, 0, len(candidates))

	for _, d := range candidates {
		// Caller cancellation takes effect between candidates at minimum.
		if err := ctx.Err(); err != nil {
			return nil, r.fail(class, attempts, fmt.Errorf("dispatch cancelled: %w", err))
		}

		if entry, ok := r.health.Get(d.ID); ok && entry.Fresh(r.freshness, now) && !entry.Healthy {
			r.logger.Debug().
				Str("provider", d.ID).
				Str("class", string(class)).
				Msg("skipping provider with fresh unhealthy status")
			continue
		}

		adapter, ok := r.adapters[d.ID]
		if !ok {
			// Descriptor without an adapter is a wiring bug; treat like a
			// failed candidate so the class can still fall back.
			err := fmt.Errorf("%w: %s", ErrAdapterNotRegistered, d.ID)
			attempts = append(attempts, Attempt{ProviderID: d.ID, Err: err})
			r.health.MarkUnhealthy(d.ID, err)
			continue
		}

		start := time.Now()
		resp, err := adapter.Execute(ctx, payload)
		if err != nil {
			attempts = append(attempts, Attempt{ProviderID: d.ID, Err: err})
			r.health.MarkUnhealthy(d.ID, err)
			if r.metrics != nil {
				r.metrics.recordAttempt(ctx, class, d.ID, false, time.Since(start))
			}
			r.logger.Warn().
				Err(err).
				Str("provider", d.ID).
				Str("class", string(class)).
				Int("attempt", len(attempts)).
				Msg("provider failed, advancing to next candidate")
			continue
		}

		if r.metrics != nil {
			r.metrics.recordAttempt(ctx, class, d.ID, true, time.Since(start))
			if len(attempts) > 0 {
				r.metrics.recordFallback(ctx, class, d.ID)
			}
		}

		attempted := make([]string, 0, len(attempts)+1)
		for _, a := range attempts {
			attempted = append(attempted, a.ProviderID)
		}
		attempted = append(attempted, d.ID)

		if len(attempts) > 0 {
			r.logger.Info().
				Str("provider", d.ID).
				Str("class", string(class)).
				Strs("attempted", attempted).
				Msg("fallback succeeded")
		}

		return &Result{
			ProviderID: d.ID,
			Attempted:  attempted,
			Response:   resp,
		}, nil
	}

	return nil, r.fail(class, attempts, nil)
}

// fail builds the terminal dispatch error. With zero attempts every
// candidate was skipped on cached health, which is still exhaustion from
// the caller's point of view unless a cancellation cause is given.
func (r *Router) fail(class Class, attempts []Attempt, cause error) error {
	if cause != nil {
		return cause
	}
	err := &ExhaustedError{Class: class, Attempts: attempts}
	r.logger.Error().
		Str("class", string(class)).
		Strs("attempted", err.AttemptedIDs()).
		Msg("all providers exhausted")
	return err
}
