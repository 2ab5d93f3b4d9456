package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Creates a temporary YAML config file in a temporary directory.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test_config.yaml")

	err := os.WriteFile(configPath, []byte(content), 0o600)
	require.NoError(t, err, "Failed to write temporary config file")

	return configPath
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPServer.Addr)
	assert.Equal(t, "basketbuddy.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 20.0, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
	assert.False(t, cfg.Redis.Enabled())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("BB_DB_PATH", "/var/lib/bb/items.db")
	t.Setenv("BB_REDIS_ADDR", "localhost:6379")
	t.Setenv("BB_LOG_LEVEL", "debug")
	t.Setenv("BB_CACHE_TTL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bb/items.db", cfg.Database.Path)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2*time.Minute, cfg.Cache.DefaultTTL)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadFromFile(t *testing.T) {
	path := createTempConfigFile(t, `
env: "test"
http_server:
  address: ":9090"
database:
  path: "test.db"
redis:
  address: "cache:6379"
  db: 2
rate_limit:
  rps: 5
  burst: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, ":9090", cfg.HTTPServer.Addr)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("BB_LOG_LEVEL", "chatty")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRateLimit(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	t.Setenv("BB_RATE_RPS", "0")
	t.Setenv("BB_RATE_BURST", "0")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.RateLimit.RPS)

	t.Setenv("BB_RATE_RPS", "-1")
	_, err = Load("")
	assert.ErrorContains(t, err, "rps must not be negative")

	t.Setenv("BB_RATE_RPS", "5")
	_, err = Load("")
	assert.ErrorContains(t, err, "burst must be positive")
}
