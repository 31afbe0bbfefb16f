package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 4, cfg.Webhooks.MaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.Webhooks.InitialBackoff)
	assert.Equal(t, 3.0, cfg.Webhooks.BackoffMultiplier)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.AttemptTimeout)
	assert.Equal(t, 100, cfg.Webhooks.HistoryLimit)
	assert.Equal(t, 20, cfg.Webhooks.MaxEndpointsPerGuild)
	assert.False(t, cfg.Webhooks.AllowInsecureURLs)
	assert.Equal(t, "memory", cfg.LogStore.Type)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HERALD_PORT", "3000")
	t.Setenv("HERALD_MAX_ATTEMPTS", "6")
	t.Setenv("HERALD_ATTEMPT_TIMEOUT", "30s")
	t.Setenv("HERALD_ALLOW_INSECURE_URLS", "true")
	t.Setenv("HERALD_LOGSTORE_TYPE", "redis")
	t.Setenv("HERALD_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HERALD_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 6, cfg.Webhooks.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Webhooks.AttemptTimeout)
	assert.True(t, cfg.Webhooks.AllowInsecureURLs)
	assert.Equal(t, "redis", cfg.LogStore.Type)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "herald.yaml")
	content := `
server:
  port: "8888"
webhooks:
  max_attempts: 5
  history_limit: 50
log_store:
  type: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("HERALD_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Webhooks.MaxAttempts)
	assert.Equal(t, 50, cfg.Webhooks.HistoryLimit)

	// Env still wins over the file
	t.Setenv("HERALD_PORT", "9999")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("HERALD_CONFIG_FILE", "/nonexistent/herald.yaml")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"port collision", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"zero attempts", func(c *Config) { c.Webhooks.MaxAttempts = 0 }, "max attempts"},
		{"bad multiplier", func(c *Config) { c.Webhooks.BackoffMultiplier = 0.5 }, "backoff multiplier"},
		{"zero history", func(c *Config) { c.Webhooks.HistoryLimit = 0 }, "history limit"},
		{"redis without URL", func(c *Config) { c.LogStore.Type = "redis" }, "redis URL is required"},
		{"postgres without URL", func(c *Config) { c.LogStore.Type = "postgres" }, "postgres URL is required"},
		{"unknown store", func(c *Config) { c.LogStore.Type = "etcd" }, "invalid log store type"},
		{"otel without endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "OpenTelemetry endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARN"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("gibberish"))
}
