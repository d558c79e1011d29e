// Package api provides the HTTP API for StackPilot.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/api/handler"
	"github.com/stackpilot/stackpilot/internal/api/middleware"
	"github.com/stackpilot/stackpilot/internal/assist"
	"github.com/stackpilot/stackpilot/internal/auth"
	"github.com/stackpilot/stackpilot/internal/health"
	"github.com/stackpilot/stackpilot/internal/org"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version       string
	BuildTime     string
	Logger        zerolog.Logger
	ServiceName   string
	Metrics       *middleware.Metrics
	TokenService  *auth.Service
	OrgService    *org.Service
	AssistService *assist.Service
	Aggregator    *health.Aggregator
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "stackpilot-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Aggregator)
	orgHandler := handler.NewOrgHandler(cfg.OrgService, cfg.Logger)
	assistHandler := handler.NewAssistHandler(cfg.AssistService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.TokenService)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
			// Forced refresh probes every backend, keep it authenticated
			// and rate limited
			r.With(authMiddleware, expensiveRateLimit).Post("/status:refresh", opsHandler.RefreshStatus)
			// Provider detail requires authentication
			r.With(authMiddleware).Get("/providers", opsHandler.Providers)
		})

		// Organization endpoints (authenticated) - user-based rate limiting
		r.Route("/orgs", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user
			r.Get("/", orgHandler.ListOrgs)
			r.Post("/", orgHandler.CreateOrg)
			r.Route("/{orgId}", func(r chi.Router) {
				r.Get("/", orgHandler.GetOrg)
				r.Patch("/", orgHandler.UpdateOrg)
				r.Delete("/", orgHandler.DeleteOrg)
			})
		})

		// Completion endpoint - expensive upstream calls, strict rate limiting
		r.With(authMiddleware, expensiveRateLimit).Post("/assist:complete", assistHandler.Complete)
	})

	return r
}
