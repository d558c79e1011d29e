package provider_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot/internal/provider"
)

func TestHealth_Fresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		checkedAt time.Time
		window    time.Duration
		want      bool
	}{
		{"just written", now, time.Minute, true},
		{"inside window", now.Add(-30 * time.Second), time.Minute, true},
		{"outside window", now.Add(-2 * time.Minute), time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := provider.Health{CheckedAt: tt.checkedAt}
			assert.Equal(t, tt.want, h.Fresh(tt.window, now))
		})
	}
}

func TestHealthMap_SetAndGet(t *testing.T) {
	m := provider.NewHealthMap()

	_, ok := m.Get("postgres")
	assert.False(t, ok, "unchecked provider has no entry")

	m.Set(provider.Health{ProviderID: "postgres", Healthy: true, LatencyMs: 12})

	entry, ok := m.Get("postgres")
	require.True(t, ok)
	assert.True(t, entry.Healthy)
	assert.EqualValues(t, 12, entry.LatencyMs)
}

func TestHealthMap_LastWriterWins(t *testing.T) {
	m := provider.NewHealthMap()

	m.Set(provider.Health{ProviderID: "redis", Healthy: true})
	m.MarkUnhealthy("redis", errors.New("connection reset"))

	entry, ok := m.Get("redis")
	require.True(t, ok)
	assert.False(t, entry.Healthy)
	assert.Equal(t, "connection reset", entry.LastError)
	assert.WithinDuration(t, time.Now(), entry.CheckedAt, time.Second)
}

func TestHealthMap_AllReturnsSnapshot(t *testing.T) {
	m := provider.NewHealthMap()
	m.Set(provider.Health{ProviderID: "a", Healthy: true})
	m.Set(provider.Health{ProviderID: "b", Healthy: false})

	snapshot := m.All()
	require.Len(t, snapshot, 2)

	// Mutating the snapshot leaves the map untouched.
	delete(snapshot, "a")
	_, ok := m.Get("a")
	assert.True(t, ok)
}
