// Package app wires configuration into the provider stack shared by the
// API server, the worker, and the status CLI.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stackpilot/stackpilot/internal/aimodel"
	"github.com/stackpilot/stackpilot/internal/config"
	"github.com/stackpilot/stackpilot/internal/datastore"
	"github.com/stackpilot/stackpilot/internal/health"
	"github.com/stackpilot/stackpilot/internal/provider"
)

// classFor maps provider ids to their capability class.
var classFor = map[string]provider.Class{
	config.ProviderPostgres:  provider.ClassDataStore,
	config.ProviderRedis:     provider.ClassDataStore,
	config.ProviderFilestore: provider.ClassDataStore,
	config.ProviderOpenAI:    provider.ClassAIModel,
	config.ProviderAnthropic: provider.ClassAIModel,
	config.ProviderOllama:    provider.ClassAIModel,
}

// Providers bundles the loaded registry, router, and health aggregator.
type Providers struct {
	Registry   *provider.Registry
	Router     *provider.Router
	Health     *provider.HealthMap
	Prober     *provider.Prober
	Aggregator *health.Aggregator

	adapters []provider.Adapter
}

// ProvidersConfig holds the inputs for BuildProviders.
type ProvidersConfig struct {
	Config  config.Config
	Logger  zerolog.Logger
	Metrics *provider.Metrics

	// Checks are folded into the status reduction alongside capability
	// classes, e.g. public API reachability.
	Checks []health.Check
}

// BuildProviders loads the registry from configuration, constructs and
// connects an adapter for every enabled provider, and assembles the router
// and the health aggregator around them.
func BuildProviders(ctx context.Context, cfg ProvidersConfig) (*Providers, error) {
	descriptors := make([]provider.Descriptor, 0, len(cfg.Config.Providers))
	for id, pc := range cfg.Config.Providers {
		class, ok := classFor[id]
		if !ok {
			continue
		}
		descriptors = append(descriptors, provider.Descriptor{
			ID:       id,
			Class:    class,
			Priority: pc.Priority,
			Enabled:  pc.Enabled,
		})
	}

	registry, err := provider.Load(descriptors)
	if err != nil {
		return nil, err
	}

	healthMap := provider.NewHealthMap()
	router := provider.NewRouter(provider.RouterConfig{
		Registry:  registry,
		Health:    healthMap,
		Logger:    cfg.Logger,
		Freshness: cfg.Config.HealthFreshness,
		Metrics:   cfg.Metrics,
	})

	p := &Providers{
		Registry: registry,
		Router:   router,
		Health:   healthMap,
		Prober:   provider.NewProber(cfg.Config.ProbeTimeout),
	}

	for _, desc := range registry.AllEnabled() {
		adapter := newAdapter(desc.ID, cfg.Config)
		if adapter == nil {
			continue
		}
		// A failed connect is not fatal: the provider starts unhealthy
		// and fallback covers it until it recovers.
		if err := adapter.Connect(ctx); err != nil {
			cfg.Logger.Warn().
				Err(err).
				Str("provider_id", desc.ID).
				Msg("provider connect failed")
			healthMap.MarkUnhealthy(desc.ID, err)
		}
		router.RegisterAdapter(adapter)
		p.adapters = append(p.adapters, adapter)
	}

	p.Aggregator = health.NewAggregator(health.AggregatorConfig{
		Registry:   registry,
		Health:     healthMap,
		Prober:     p.Prober,
		Logger:     cfg.Logger,
		AdapterFor: router.Adapter,
		Checks:     cfg.Checks,
	})

	return p, nil
}

// Close releases every adapter connection.
func (p *Providers) Close() {
	for _, adapter := range p.adapters {
		_ = adapter.Close()
	}
}

func newAdapter(id string, cfg config.Config) provider.Adapter {
	switch id {
	case config.ProviderPostgres:
		return datastore.NewPostgresAdapter(cfg.Database)
	case config.ProviderRedis:
		return datastore.NewRedisAdapter(cfg.Redis)
	case config.ProviderFilestore:
		return datastore.NewFilestoreAdapter(cfg.Filestore)
	case config.ProviderOpenAI:
		return aimodel.NewOpenAIAdapter(aimodel.OpenAIConfig{
			BaseURL:       cfg.AI.OpenAIBaseURL,
			APIKey:        cfg.AI.OpenAIAPIKey,
			DefaultModel:  cfg.AI.DefaultModel,
			FallbackModel: cfg.AI.FallbackModel,
		})
	case config.ProviderAnthropic:
		return aimodel.NewAnthropicAdapter(aimodel.AnthropicConfig{
			BaseURL:       cfg.AI.AnthropicBaseURL,
			APIKey:        cfg.AI.AnthropicAPIKey,
			DefaultModel:  cfg.AI.DefaultModel,
			FallbackModel: cfg.AI.FallbackModel,
		})
	case config.ProviderOllama:
		return aimodel.NewOllamaAdapter(aimodel.OllamaConfig{
			BaseURL: cfg.AI.OllamaBaseURL,
			Model:   cfg.AI.OllamaModel,
		})
	default:
		return nil
	}
}
