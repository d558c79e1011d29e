package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/stackpilot/stackpilot/internal/provider"

// Metrics holds the OpenTelemetry instruments for router dispatches.
type Metrics struct {
	attemptDuration metric.Float64Histogram
	attemptTotal    metric.Int64Counter
	fallbackTotal   metric.Int64Counter
}

// NewMetrics creates router metrics instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	attemptDuration, err := meter.Float64Histogram(
		"router.attempt.duration",
		metric.WithDescription("Duration of single provider attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	attemptTotal, err := meter.Int64Counter(
		"router.attempt.total",
		metric.WithDescription("Total provider attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	fallbackTotal, err := meter.Int64Counter(
		"router.fallback.total",
		metric.WithDescription("Dispatches that succeeded on a non-first candidate"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		attemptDuration: attemptDuration,
		attemptTotal:    attemptTotal,
		fallbackTotal:   fallbackTotal,
	}, nil
}

func (m *Metrics) recordAttempt(ctx context.Context, class Class, providerID string, success bool, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("capability.class", string(class)),
		attribute.String("provider.id", providerID),
		attribute.Bool("success", success),
	)
	m.attemptTotal.Add(ctx, 1, attrs)
	m.attemptDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) recordFallback(ctx context.Context, class Class, providerID string) {
	m.fallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability.class", string(class)),
		attribute.String("provider.id", providerID),
	))
}
