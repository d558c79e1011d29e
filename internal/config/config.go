// Package config assembles the immutable process configuration.
//
// The Config struct is built once from the environment at startup and passed
// by reference into every component. No component reads environment variables
// directly after this point.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Capability class names used in provider configuration keys.
const (
	ProviderPostgres  = "postgres"
	ProviderRedis     = "redis"
	ProviderFilestore = "filestore"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ProviderConfig holds the enablement and ordering for one provider.
type ProviderConfig struct {
	Enabled  bool
	Priority int
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConnectionString returns the PostgreSQL connection string.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AIConfig holds AI model provider configuration.
type AIConfig struct {
	// DefaultModel is the model identifier requested when the caller does
	// not name one.
	DefaultModel string

	// FallbackModel is tried by hosted adapters when the requested model
	// is rejected as unknown.
	FallbackModel string

	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
	OllamaBaseURL    string
	OllamaModel      string
}

// Config is the complete immutable process configuration.
type Config struct {
	ServiceName string
	Environment string
	Port        string

	// Providers maps provider id to its enablement flag and priority.
	Providers map[string]ProviderConfig

	Database  DatabaseConfig
	Redis     RedisConfig
	Filestore FilestoreConfig
	AI        AIConfig

	// ProbeTimeout bounds a single liveness probe.
	ProbeTimeout time.Duration

	// HealthInterval is the period between background health refreshes.
	HealthInterval time.Duration

	// HealthFreshness is how long a cached health entry is trusted by the
	// router before it is treated as unknown.
	HealthFreshness time.Duration

	JWTSigningKey string

	OTLPEndpoint     string
	TelemetryEnabled bool
}

// FilestoreConfig holds configuration for the file-based fallback store.
type FilestoreConfig struct {
	// Path is the JSON file backing the store.
	Path string
}

// FromEnv builds a Config from environment variables with local-dev defaults.
func FromEnv() Config {
	dbPort, _ := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DB_MAX_IDLE_CONNS", "5"))
	lifetime, _ := time.ParseDuration(getEnvOrDefault("DB_CONN_MAX_LIFETIME", "5m"))
	redisDB, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))

	probeTimeout, _ := time.ParseDuration(getEnvOrDefault("PROBE_TIMEOUT", "3s"))
	healthInterval, _ := time.ParseDuration(getEnvOrDefault("HEALTH_INTERVAL", "30s"))
	healthFreshness, _ := time.ParseDuration(getEnvOrDefault("HEALTH_FRESHNESS", "1m"))

	return Config{
		ServiceName: getEnvOrDefault("SERVICE_NAME", "stackpilot"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
		Port:        getEnvOrDefault("APP_PORT", "8080"),

		Providers: map[string]ProviderConfig{
			ProviderPostgres: {
				Enabled:  getEnvBool("PROVIDER_POSTGRES_ENABLED", true),
				Priority: getEnvInt("PROVIDER_POSTGRES_PRIORITY", 1),
			},
			ProviderRedis: {
				Enabled:  getEnvBool("PROVIDER_REDIS_ENABLED", false),
				Priority: getEnvInt("PROVIDER_REDIS_PRIORITY", 2),
			},
			ProviderFilestore: {
				Enabled:  getEnvBool("PROVIDER_FILESTORE_ENABLED", true),
				Priority: getEnvInt("PROVIDER_FILESTORE_PRIORITY", 3),
			},
			ProviderOpenAI: {
				Enabled:  getEnvBool("PROVIDER_OPENAI_ENABLED", false),
				Priority: getEnvInt("PROVIDER_OPENAI_PRIORITY", 1),
			},
			ProviderAnthropic: {
				Enabled:  getEnvBool("PROVIDER_ANTHROPIC_ENABLED", false),
				Priority: getEnvInt("PROVIDER_ANTHROPIC_PRIORITY", 2),
			},
			ProviderOllama: {
				Enabled:  getEnvBool("PROVIDER_OLLAMA_ENABLED", false),
				Priority: getEnvInt("PROVIDER_OLLAMA_PRIORITY", 3),
			},
		},

		Database: DatabaseConfig{
			Host:            getEnvOrDefault("DB_HOST", "localhost"),
			Port:            dbPort,
			User:            getEnvOrDefault("DB_USER", "stackpilot"),
			Password:        getEnvOrDefault("DB_PASSWORD", "localdev"),
			Database:        getEnvOrDefault("DB_NAME", "stackpilot"),
			SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxOpenConns:    maxOpen,
			MaxIdleConns:    maxIdle,
			ConnMaxLifetime: lifetime,
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Filestore: FilestoreConfig{
			Path: getEnvOrDefault("FILESTORE_PATH", "data/orgs.json"),
		},
		AI: AIConfig{
			DefaultModel:     getEnvOrDefault("AI_DEFAULT_MODEL", "gpt-4o-mini"),
			FallbackModel:    getEnvOrDefault("AI_FALLBACK_MODEL", "gpt-3.5-turbo"),
			OpenAIBaseURL:    getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
			AnthropicBaseURL: getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
			OllamaBaseURL:    getEnvOrDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:      getEnvOrDefault("OLLAMA_MODEL", "llama3.1"),
		},

		ProbeTimeout:    probeTimeout,
		HealthInterval:  healthInterval,
		HealthFreshness: healthFreshness,

		JWTSigningKey: getEnvOrDefault("JWT_SIGNING_KEY", "local-dev-signing-key-change-in-production"),

		OTLPEndpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: getEnvBool("OTEL_ENABLED", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
