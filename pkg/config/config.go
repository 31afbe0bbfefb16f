package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heraldhq/herald/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Webhook delivery configuration
	Webhooks WebhookConfig `yaml:"webhooks"`

	// Delivery log store configuration
	LogStore LogStoreConfig `yaml:"log_store"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// WebhookConfig holds delivery engine configuration
type WebhookConfig struct {
	// AllowInsecureURLs permits plain http:// destinations. Development only.
	AllowInsecureURLs bool `yaml:"allow_insecure_urls"`

	// AttemptTimeout bounds a single outbound POST
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxAttempts is the total number of physical attempts per delivery
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff is the delay before the second attempt
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// BackoffMultiplier scales the delay between consecutive attempts
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// MaxEndpointsPerGuild caps registered endpoints per tenant
	MaxEndpointsPerGuild int `yaml:"max_endpoints_per_guild"`

	// HistoryLimit is the per-tenant delivery log retention ceiling
	HistoryLimit int `yaml:"history_limit"`

	// RateLimitPerMinute caps outbound requests per endpoint
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// LogStoreConfig holds delivery log persistence configuration
type LogStoreConfig struct {
	// Type selects the backend: memory, redis, or postgres
	Type string `yaml:"type"`

	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPoolSize int    `yaml:"redis_pool_size"`

	PostgresURL      string        `yaml:"postgres_url"`
	PostgresMaxConns int           `yaml:"postgres_max_conns"`
	PostgresMinConns int           `yaml:"postgres_min_conns"`
	PostgresTimeout  time.Duration `yaml:"postgres_timeout"`

	// SweepSchedule is a cron expression for the retention sweep (postgres only)
	SweepSchedule string `yaml:"sweep_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel `yaml:"-"`
	LogLevelName   string                 `yaml:"log_level"`
	MetricsEnabled bool                   `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// LoadConfig loads configuration from the optional YAML file named by
// HERALD_CONFIG_FILE, then from environment variables, then validates.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("HERALD_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg.loadEnv()

	if cfg.Observability.LogLevelName != "" {
		cfg.Observability.LogLevel = parseLogLevel(cfg.Observability.LogLevelName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Webhooks: WebhookConfig{
			AllowInsecureURLs:    false,
			AttemptTimeout:       10 * time.Second,
			MaxAttempts:          4,
			InitialBackoff:       1 * time.Second,
			BackoffMultiplier:    3.0,
			MaxEndpointsPerGuild: 20,
			HistoryLimit:         100,
			RateLimitPerMinute:   100,
		},
		LogStore: LogStoreConfig{
			Type:             "memory",
			RedisDB:          0,
			RedisPoolSize:    10,
			PostgresMaxConns: 25,
			PostgresMinConns: 5,
			PostgresTimeout:  5 * time.Second,
			SweepSchedule:    "*/10 * * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "herald",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadEnv() {
	// Server
	c.Server.Host = getEnv("HERALD_HOST", c.Server.Host)
	c.Server.Port = getEnv("HERALD_PORT", c.Server.Port)
	c.Server.HealthPort = getEnv("HERALD_HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration("HERALD_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("HERALD_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("HERALD_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("HERALD_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	// Webhooks
	c.Webhooks.AllowInsecureURLs = getEnvBool("HERALD_ALLOW_INSECURE_URLS", c.Webhooks.AllowInsecureURLs)
	c.Webhooks.AttemptTimeout = getEnvDuration("HERALD_ATTEMPT_TIMEOUT", c.Webhooks.AttemptTimeout)
	c.Webhooks.MaxAttempts = getEnvInt("HERALD_MAX_ATTEMPTS", c.Webhooks.MaxAttempts)
	c.Webhooks.InitialBackoff = getEnvDuration("HERALD_INITIAL_BACKOFF", c.Webhooks.InitialBackoff)
	c.Webhooks.MaxEndpointsPerGuild = getEnvInt("HERALD_MAX_ENDPOINTS_PER_GUILD", c.Webhooks.MaxEndpointsPerGuild)
	c.Webhooks.HistoryLimit = getEnvInt("HERALD_HISTORY_LIMIT", c.Webhooks.HistoryLimit)
	c.Webhooks.RateLimitPerMinute = getEnvInt("HERALD_RATE_LIMIT_PER_MINUTE", c.Webhooks.RateLimitPerMinute)

	// Log store
	c.LogStore.Type = getEnv("HERALD_LOGSTORE_TYPE", c.LogStore.Type)
	c.LogStore.RedisURL = getEnv("HERALD_REDIS_URL", c.LogStore.RedisURL)
	c.LogStore.RedisPassword = getEnv("HERALD_REDIS_PASSWORD", c.LogStore.RedisPassword)
	c.LogStore.RedisDB = getEnvInt("HERALD_REDIS_DB", c.LogStore.RedisDB)
	c.LogStore.RedisPoolSize = getEnvInt("HERALD_REDIS_POOL_SIZE", c.LogStore.RedisPoolSize)
	c.LogStore.PostgresURL = getEnv("HERALD_POSTGRES_URL", c.LogStore.PostgresURL)
	c.LogStore.PostgresMaxConns = getEnvInt("HERALD_POSTGRES_MAX_CONNS", c.LogStore.PostgresMaxConns)
	c.LogStore.PostgresMinConns = getEnvInt("HERALD_POSTGRES_MIN_CONNS", c.LogStore.PostgresMinConns)
	c.LogStore.PostgresTimeout = getEnvDuration("HERALD_POSTGRES_TIMEOUT", c.LogStore.PostgresTimeout)
	c.LogStore.SweepSchedule = getEnv("HERALD_SWEEP_SCHEDULE", c.LogStore.SweepSchedule)

	// Observability
	c.Observability.LogLevelName = getEnv("HERALD_LOG_LEVEL", c.Observability.LogLevelName)
	c.Observability.MetricsEnabled = getEnvBool("HERALD_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("HERALD_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("HERALD_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("HERALD_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("HERALD_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("HERALD_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Webhooks.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.Webhooks.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff multiplier must be at least 1.0")
	}
	if c.Webhooks.HistoryLimit < 1 {
		return fmt.Errorf("history limit must be at least 1")
	}
	if c.Webhooks.MaxEndpointsPerGuild < 1 {
		return fmt.Errorf("max endpoints per guild must be at least 1")
	}

	switch c.LogStore.Type {
	case "memory":
	case "redis":
		if c.LogStore.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis log store")
		}
	case "postgres":
		if c.LogStore.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres log store")
		}
	default:
		return fmt.Errorf("invalid log store type: %s (must be memory, redis, or postgres)", c.LogStore.Type)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
