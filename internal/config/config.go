// Package config loads service settings from an optional YAML file overlaid by
// BB_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr string `yaml:"address" env:"BB_ADDR" env-default:":8080"`
}

type Database struct {
	Path string `yaml:"path" env:"BB_DB_PATH" env-default:"basketbuddy.db"`
}

type Log struct {
	// Path, when set, receives a copy of every log line.
	Path  string `yaml:"path" env:"BB_LOG_PATH"`
	Level string `yaml:"level" env:"BB_LOG_LEVEL" env-default:"info"`
}

type Redis struct {
	Addr     string `yaml:"address" env:"BB_REDIS_ADDR"`
	Password string `yaml:"password" env:"BB_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"BB_REDIS_DB" env-default:"0"`
}

// Enabled reports whether a Redis address was configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

type Cache struct {
	DefaultTTL time.Duration `yaml:"ttl" env:"BB_CACHE_TTL" env-default:"30s"`
}

// RateLimit throttles unauthenticated routes. An RPS of 0 turns limiting
// off; it has to come from BB_RATE_RPS since a zero in the file reads as
// unset.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"BB_RATE_RPS" env-default:"20"`
	Burst int     `yaml:"burst" env:"BB_RATE_BURST" env-default:"40"`
}

type Config struct {
	Env        string     `yaml:"env" env:"BB_ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	Database   Database   `yaml:"database"`
	Log        Log        `yaml:"log"`
	Redis      Redis      `yaml:"redis"`
	Cache      Cache      `yaml:"cache"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
}

// Load reads the config file at path (or $CONFIG_PATH when path is empty) and
// then the environment. With neither file nor variables, defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("reading config from environment: %w", err)
	}

	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RPS < 0 {
		return nil, fmt.Errorf("rate limit rps must not be negative, got %v", cfg.RateLimit.RPS)
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst <= 0 {
		return nil, fmt.Errorf("rate limit burst must be positive, got %d", cfg.RateLimit.Burst)
	}
	return &cfg, nil
}

// SlogLevel parses Log.Level ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
