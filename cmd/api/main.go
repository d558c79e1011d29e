// Package main provides the entrypoint for the StackPilot API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/api"
	"github.com/stackpilot/stackpilot/internal/api/middleware"
	"github.com/stackpilot/stackpilot/internal/app"
	"github.com/stackpilot/stackpilot/internal/assist"
	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/health"
	"github.com/stackpilot/stackpilot/internal/org"
	"github.com/stackpilot/stackpilot/internal/provider"
	"github.com/stackpilot/stackpilot/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg := config.FromEnv()
	serviceName := cfg.ServiceName + "-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting StackPilot API")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize HTTP metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := provider.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Build the provider registry, router, and health aggregator. The
	// local API check always passes in-process; it exists so the status
	// reduction carries an explicit "api" component.
	providers, err := app.BuildProviders(ctx, app.ProvidersConfig{
		Config:  cfg,
		Logger:  log,
		Metrics: providerMetrics,
		Checks: []health.Check{
			{
				Name:     "api",
				Required: true,
				Fn:       func(context.Context) error { return nil },
			},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid provider configuration")
	}
	defer providers.Close()

	for _, desc := range providers.Registry.AllEnabled() {
		log.Info().
			Str("provider_id", desc.ID).
			Str("class", string(desc.Class)).
			Int("priority", desc.Priority).
			Msg("provider enabled")
	}

	// Populate the status surface before serving traffic.
	initialStatus := providers.Aggregator.Refresh(ctx)
	log.Info().
		Str("overall", string(initialStatus.Overall)).
		Msg("initial status computed")

	// Initialize token service
	tokenService := auth.NewService(auth.Config{
		SigningKey: cfg.JWTSigningKey,
		Issuer:     "https://api.stackpilot.dev",
		Audience:   "stackpilot-api",
	})
	if cfg.JWTSigningKey == "local-dev-signing-key-change-in-production" {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	// Initialize domain services
	orgService := org.NewService(providers.Router)
	assistService := assist.NewService(providers.Router)
	log.Info().Msg("domain services initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:       Version,
		BuildTime:     BuildTime,
		Logger:        log,
		ServiceName:   serviceName,
		Metrics:       httpMetrics,
		TokenService:  tokenService,
		OrgService:    orgService,
		AssistService: assistService,
		Aggregator:    providers.Aggregator,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
