// Package worker provides background status refresh processing for StackPilot.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/health"
)

// RefreshConfig holds configuration for the status refresh job.
type RefreshConfig struct {
	// Interval is how often the periodic loop re-probes providers.
	// Default: 30 seconds.
	Interval time.Duration

	// Timeout bounds a single refresh pass.
	// Default: 30 seconds.
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval: 30 * time.Second,
		Timeout:  30 * time.Second,
	}
}

// RefreshJob re-probes every provider and recomputes the system status.
type RefreshJob struct {
	config     RefreshConfig
	aggregator *health.Aggregator
	logger     zerolog.Logger

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRefreshes  int64
	HealthyResults  int64
	PartialResults  int64
	ErrorResults    int64
	LastRefreshAt   time.Time
	LastRefreshTook time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config     RefreshConfig
	Aggregator *health.Aggregator
	Logger     zerolog.Logger
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRefreshConfig().Timeout
	}

	return &RefreshJob{
		config:     config,
		aggregator: cfg.Aggregator,
		logger:     cfg.Logger,
		metrics:    &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a single refresh pass.
type RefreshResult struct {
	StartTime  time.Time
	Duration   time.Duration
	Overall    health.Status
	Components map[string]bool
	Unhealthy  []string
}

// Run executes one refresh pass and returns its result.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	status := j.aggregator.Refresh(ctx)

	result := &RefreshResult{
		StartTime:  startTime,
		Duration:   time.Since(startTime),
		Overall:    status.Overall,
		Components: status.Components,
	}
	for name, up := range status.Components {
		if !up {
			result.Unhealthy = append(result.Unhealthy, name)
		}
	}

	j.updateMetrics(result)

	j.logger.Info().
		Str("overall", string(result.Overall)).
		Strs("unhealthy", result.Unhealthy).
		Dur("duration", result.Duration).
		Msg("status refresh completed")

	return result
}

// Start runs the periodic refresh loop until the context is cancelled.
// The first pass runs immediately so the status surface is populated
// before the first tick.
func (j *RefreshJob) Start(ctx context.Context) error {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Msg("starting periodic status refresh")

	j.Run(ctx)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("stopping periodic status refresh")
			return ctx.Err()
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

// Metrics returns a copy of the current refresh statistics.
func (j *RefreshJob) Metrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:  j.metrics.TotalRefreshes,
		HealthyResults:  j.metrics.HealthyResults,
		PartialResults:  j.metrics.PartialResults,
		ErrorResults:    j.metrics.ErrorResults,
		LastRefreshAt:   j.metrics.LastRefreshAt,
		LastRefreshTook: j.metrics.LastRefreshTook,
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	switch result.Overall {
	case health.StatusHealthy:
		j.metrics.HealthyResults++
	case health.StatusPartial:
		j.metrics.PartialResults++
	case health.StatusError:
		j.metrics.ErrorResults++
	}
	j.metrics.LastRefreshAt = result.StartTime
	j.metrics.LastRefreshTook = result.Duration
}
