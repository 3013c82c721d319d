package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/tribeapp/ai-engine/internal/model"
)

type Config struct {
	// Server
	Port string // default: 8080
	Env  string // "development" or "production"

	// Database
	PostgresDSN string

	// Redis (auth cache, rate limiting, optional result cache)
	RedisAddr string

	// Model provider
	Provider         string // "openrouter" or "mock"
	OpenRouterAPIKey string
	OpenRouterAPIURL string
	DefaultModel     string
	ModelTimeout     time.Duration
	MaxRetries       int
	RetryDelay       time.Duration

	// Result cache
	CacheEnabled bool
	CacheTTL     time.Duration
	CacheBackend string // "memory" or "redis"

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"

	// Rate limiting
	DefaultRateLimitTPM int64 // estimated tokens per minute per API key
}

// Models is the per-model parameter and context-window table. Models
// absent from this table fall back to conservative defaults.
var Models = map[string]model.ModelConfig{
	"openai/gpt-4": {
		Temperature:   0.7,
		MaxTokens:     1000,
		TopP:          1.0,
		ContextWindow: 8192,
		Capabilities:  []string{"matching", "personality", "engagement", "recommendation"},
	},
	"openai/gpt-3.5-turbo": {
		Temperature:   0.7,
		MaxTokens:     1000,
		TopP:          1.0,
		ContextWindow: 4096,
		Capabilities:  []string{"matching", "personality", "engagement", "recommendation"},
	},
	"anthropic/claude-2": {
		Temperature:   0.7,
		MaxTokens:     1000,
		TopP:          1.0,
		ContextWindow: 100000,
		Capabilities:  []string{"matching", "personality", "engagement", "recommendation"},
	},
	"anthropic/claude-instant-1": {
		Temperature:   0.7,
		MaxTokens:     1000,
		TopP:          1.0,
		ContextWindow: 100000,
		Capabilities:  []string{"engagement", "recommendation"},
	},
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("AI_ENGINE_ENV", "development"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		Provider:             getEnv("AI_PROVIDER", "openrouter"),
		OpenRouterAPIKey:     os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterAPIURL:     getEnv("OPENROUTER_API_URL", "https://openrouter.ai"),
		DefaultModel:         getEnv("DEFAULT_AI_MODEL", "openai/gpt-4"),
		CacheBackend:         getEnv("AI_CACHE_BACKEND", "memory"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	timeoutSecs, err := getEnvInt("AI_MODEL_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	cfg.ModelTimeout = time.Duration(timeoutSecs) * time.Second

	cfg.MaxRetries, err = getEnvInt("AI_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	retryDelaySecs, err := getEnvInt("AI_RETRY_DELAY", 1)
	if err != nil {
		return nil, err
	}
	cfg.RetryDelay = time.Duration(retryDelaySecs) * time.Second

	cacheTTLSecs, err := getEnvInt("AI_CACHE_TTL", 3600)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(cacheTTLSecs) * time.Second
	cfg.CacheEnabled = getEnv("AI_CACHE_ENABLED", "true") == "true"

	tpm, err := getEnvInt("DEFAULT_RATE_LIMIT_TPM", 100000)
	if err != nil {
		return nil, err
	}
	cfg.DefaultRateLimitTPM = int64(tpm)

	// Validation
	if cfg.Provider == "openrouter" && cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	if cfg.ModelTimeout <= 0 {
		return nil, fmt.Errorf("AI_MODEL_TIMEOUT must be greater than 0")
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("AI_CACHE_TTL must be greater than 0")
	}
	if _, ok := Models[cfg.DefaultModel]; !ok {
		return nil, fmt.Errorf("DEFAULT_AI_MODEL %q is not a configured model", cfg.DefaultModel)
	}
	if cfg.CacheBackend != "memory" && cfg.CacheBackend != "redis" {
		return nil, fmt.Errorf("invalid AI_CACHE_BACKEND: %q (use memory or redis)", cfg.CacheBackend)
	}

	return cfg, nil
}

// ModelSettings packages the provider-facing slice of the configuration.
func (c *Config) ModelSettings() model.Settings {
	return model.Settings{
		Provider:     c.Provider,
		APIKey:       c.OpenRouterAPIKey,
		BaseURL:      c.OpenRouterAPIURL,
		DefaultModel: c.DefaultModel,
		Timeout:      c.ModelTimeout,
		MaxRetries:   c.MaxRetries,
		RetryDelay:   c.RetryDelay,
		Models:       Models,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
