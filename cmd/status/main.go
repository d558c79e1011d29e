// Package main provides a one-shot status CLI: it probes every enabled
// provider once, prints the reduction as JSON, and exits non-zero when
// the overall status is ERROR.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/app"
	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/health"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe timeout")
	verbose := flag.Bool("verbose", false, "include per-provider detail")
	flag.Parse()

	cfg := config.FromEnv()

	logLevel := zerolog.ErrorLevel
	if *verbose {
		logLevel = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", cfg.ServiceName+"-status").
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	providers, err := app.BuildProviders(ctx, app.ProvidersConfig{
		Config: cfg,
		Logger: log,
	})
	if err != nil {
		log.Error().Err(err).Msg("invalid provider configuration")
		os.Exit(2)
	}
	defer providers.Close()

	status := providers.Aggregator.Refresh(ctx)

	out := struct {
		Overall    health.Status    `json:"overall"`
		Components map[string]bool  `json:"components"`
		CheckedAt  time.Time        `json:"checkedAt"`
		Providers  []providerDetail `json:"providers,omitempty"`
	}{
		Overall:    status.Overall,
		Components: status.Components,
		CheckedAt:  status.CheckedAt,
	}

	if *verbose {
		for _, entry := range providers.Aggregator.ProviderHealth() {
			out.Providers = append(out.Providers, providerDetail{
				Provider:  entry.ProviderID,
				Healthy:   entry.Healthy,
				LatencyMs: entry.LatencyMs,
				LastError: entry.LastError,
			})
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)

	if status.Overall == health.StatusError {
		os.Exit(1)
	}
}

type providerDetail struct {
	Provider  string `json:"provider"`
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latencyMs"`
	LastError string `json:"lastError,omitempty"`
}
