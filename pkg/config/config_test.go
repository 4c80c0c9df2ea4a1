package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jlo00/colonyNetwork/pkg/config"
)

// TestLoad_Defaults verifies that Load() returns local defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"COLONY_LOG_LEVEL", "COLONY_DB_DRIVER", "COLONY_DATABASE_URL", "COLONY_REDIS_ADDR", "COLONY_REDIS_DB", "COLONY_OTLP_ENDPOINT", "COLONY_NETWORK_PROFILE"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "file:data/colony.db", cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Zero(t, cfg.RedisDB)
	assert.False(t, cfg.TelemetryEnabled())
}

// TestLoad_Overrides verifies that environment variables override defaults.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COLONY_LOG_LEVEL", "DEBUG")
	t.Setenv("COLONY_DB_DRIVER", "postgres")
	t.Setenv("COLONY_DATABASE_URL", "postgres://colony@db:5432/colony?sslmode=disable")
	t.Setenv("COLONY_REDIS_ADDR", "redis:6379")
	t.Setenv("COLONY_REDIS_DB", "2")
	t.Setenv("COLONY_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("COLONY_NETWORK_PROFILE", "/etc/colony/network.yaml")

	cfg := config.Load()

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://colony@db:5432/colony?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.TelemetryEnabled())
	assert.Equal(t, "/etc/colony/network.yaml", cfg.ProfilePath)
}
