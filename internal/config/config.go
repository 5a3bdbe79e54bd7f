// Package config loads service configuration from the environment, with an
// optional YAML file overlay for deployments that prefer files to env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort  string `yaml:"server_port"`
	FrontendURL string `yaml:"frontend_url"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Task store (TickTick-backed task service)
	TaskStoreURL        string        `yaml:"task_store_url"`
	TickTickClientID    string        `yaml:"ticktick_client_id"`
	TickTickSecret      string        `yaml:"ticktick_client_secret"`
	TickTickAccessToken string        `yaml:"ticktick_access_token"`
	TickTickRefresh     string        `yaml:"ticktick_refresh_token"`
	PollInterval        time.Duration `yaml:"-"`
	// PollIntervalRaw carries the YAML value ("30s", "2m"); yaml.v3 has no
	// native duration decoding.
	PollIntervalRaw string `yaml:"poll_interval"`

	// Auth
	JWTIssuer string `yaml:"jwt_issuer"`
	JWKSURL   string `yaml:"jwks_url"`

	// AI classification
	OpenAIKey  string `yaml:"openai_api_key"`
	AIModel    string `yaml:"ai_model"`
	AIBaseURL  string `yaml:"ai_base_url"`
	AIProvider string `yaml:"ai_provider"`

	RateLimit        string `yaml:"rate_limit"`
	RabbitMQPrefetch int    `yaml:"rabbitmq_prefetch"`
	EnableHSTS       bool   `yaml:"enable_hsts"`
	WorkerDebugMode  bool   `yaml:"worker_debug_mode"`
	ServerDebugMode  bool   `yaml:"server_debug_mode"`
	OTELEnabled      bool   `yaml:"otel_enabled"`
	OTELEndpoint     string `yaml:"otel_endpoint"`
}

// Load loads configuration from environment variables. When QUADTASK_CONFIG
// points at a YAML file, its values are read first and the environment
// overrides them.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("QUADTASK_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", fallback(cfg.ServerPort, "8080"))
	cfg.FrontendURL = getEnv("FRONTEND_URL", fallback(cfg.FrontendURL, "http://localhost:3000"))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", fallback(cfg.RedisURL, "redis://localhost:6379/0"))
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)

	cfg.TaskStoreURL = getEnv("TASK_STORE_URL", cfg.TaskStoreURL)
	cfg.TickTickClientID = getEnv("TICKTICK_CLIENT_ID", cfg.TickTickClientID)
	cfg.TickTickSecret = getEnv("TICKTICK_CLIENT_SECRET", cfg.TickTickSecret)
	cfg.TickTickAccessToken = getEnv("TICKTICK_ACCESS_TOKEN", cfg.TickTickAccessToken)
	cfg.TickTickRefresh = getEnv("TICKTICK_REFRESH_TOKEN", cfg.TickTickRefresh)

	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWKSURL = getEnv("JWKS_URL", cfg.JWKSURL)

	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AIProvider = getEnv("AI_PROVIDER", fallback(cfg.AIProvider, "openai"))
	cfg.AIModel = getEnv("AI_MODEL", cfg.AIModel)
	cfg.AIBaseURL = getEnv("AI_BASE_URL", cfg.AIBaseURL)

	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", fallbackInt(cfg.RabbitMQPrefetch, 1))
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.PollIntervalRaw != "" {
		d, err := time.ParseDuration(cfg.PollIntervalRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval %q: %w", cfg.PollIntervalRaw, err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}

	if cfg.TaskStoreURL == "" {
		return nil, fmt.Errorf("TASK_STORE_URL is required")
	}
	if cfg.JWTIssuer == "" || cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWT_ISSUER and JWKS_URL are required")
	}

	return cfg, nil
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func fallbackInt(value, def int) int {
	if value != 0 {
		return value
	}
	return def
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
