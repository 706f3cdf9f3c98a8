// Package config loads service settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/atmx/hedge-engine/internal/hedge"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and tunes the quote store.
type StoreConfig struct {
	RedisURL  string        `yaml:"redis_url"` // empty → in-memory
	QuoteTTL  time.Duration `yaml:"quote_ttl"`
	MaxRecent int           `yaml:"max_recent"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Hedge   hedge.Config  `yaml:"hedge"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			QuoteTTL:  15 * time.Minute,
			MaxRecent: 100,
		},
		Logging: LoggingConfig{Level: "info"},
		Hedge:   hedge.DefaultConfig(),
	}
}

// Load reads the YAML file at path (if non-empty and present) over the
// defaults, then applies environment overrides:
// PORT, REDIS_URL, QUOTE_TTL, LOG_LEVEL.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// Missing file: defaults plus env.
		default:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Hedge.Validate(); err != nil {
		return cfg, fmt.Errorf("hedge config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Store.RedisURL = url
	}
	if ttl := os.Getenv("QUOTE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid QUOTE_TTL %q: %w", ttl, err)
		}
		cfg.Store.QuoteTTL = d
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
