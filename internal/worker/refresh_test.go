package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/health"
	"github.com/stackpilot/stackpilot/internal/provider"
	"github.com/stackpilot/stackpilot/internal/worker"
)

type probeAdapter struct {
	name    string
	pingErr error
}

func (p *probeAdapter) Name() string                              { return p.name }
func (p *probeAdapter) Connect(context.Context) error             { return nil }
func (p *probeAdapter) Close() error                              { return nil }
func (p *probeAdapter) Ping(context.Context) error                { return p.pingErr }
func (p *probeAdapter) Execute(context.Context, any) (any, error) { return nil, nil }

func newTestAggregator(t *testing.T, dbErr, aiErr error) *health.Aggregator {
	t.Helper()

	reg, err := provider.Load([]provider.Descriptor{
		{ID: "db", Class: provider.ClassDataStore, Priority: 1, Enabled: true},
		{ID: "ai", Class: provider.ClassAIModel, Priority: 1, Enabled: true},
	})
	require.NoError(t, err)

	adapters := map[string]provider.Adapter{
		"db": &probeAdapter{name: "db", pingErr: dbErr},
		"ai": &probeAdapter{name: "ai", pingErr: aiErr},
	}

	return health.NewAggregator(health.AggregatorConfig{
		Registry: reg,
		Health:   provider.NewHealthMap(),
		Prober:   provider.NewProber(time.Second),
		Logger:   zerolog.Nop(),
		AdapterFor: func(id string) (provider.Adapter, bool) {
			a, ok := adapters[id]
			return a, ok
		},
	})
}

func newTestJob(t *testing.T, dbErr, aiErr error) *worker.RefreshJob {
	t.Helper()

	return worker.NewRefreshJob(worker.RefreshJobConfig{
		Aggregator: newTestAggregator(t, dbErr, aiErr),
		Logger:     zerolog.Nop(),
	})
}

func TestRefreshJob_Run(t *testing.T) {
	job := newTestJob(t, nil, nil)

	result := job.Run(context.Background())

	assert.Equal(t, health.StatusHealthy, result.Overall)
	assert.True(t, result.Components["data-store"])
	assert.True(t, result.Components["ai-model"])
	assert.Empty(t, result.Unhealthy)
	assert.False(t, result.StartTime.IsZero())
}

func TestRefreshJob_RunReportsUnhealthyComponents(t *testing.T) {
	job := newTestJob(t, nil, errors.New("model host unreachable"))

	result := job.Run(context.Background())

	assert.Equal(t, health.StatusPartial, result.Overall)
	assert.Equal(t, []string{"ai-model"}, result.Unhealthy)
}

func TestRefreshJob_Metrics(t *testing.T) {
	job := newTestJob(t, nil, nil)

	job.Run(context.Background())
	job.Run(context.Background())

	metrics := job.Metrics()
	assert.Equal(t, int64(2), metrics.TotalRefreshes)
	assert.Equal(t, int64(2), metrics.HealthyResults)
	assert.Equal(t, int64(0), metrics.ErrorResults)
	assert.False(t, metrics.LastRefreshAt.IsZero())
}

func TestRefreshJob_MetricsCountErrorResults(t *testing.T) {
	job := newTestJob(t, errors.New("database down"), nil)

	job.Run(context.Background())

	metrics := job.Metrics()
	assert.Equal(t, int64(1), metrics.TotalRefreshes)
	assert.Equal(t, int64(1), metrics.ErrorResults)
}

func TestRefreshJob_StartStopsOnContextCancel(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:     worker.RefreshConfig{Interval: 10 * time.Millisecond},
		Aggregator: newTestAggregator(t, nil, nil),
		Logger:     zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- job.Start(ctx)
	}()

	// Let the initial pass and at least one tick run.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("refresh loop did not stop after cancellation")
	}

	metrics := job.Metrics()
	assert.GreaterOrEqual(t, metrics.TotalRefreshes, int64(2))
}

func TestRefreshJob_Defaults(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
