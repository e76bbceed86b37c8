// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// StoreKind selects the durable key-value backend.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
)

// Defaults shared with clients built without a Config.
const (
	DefaultBaseURL        = "http://localhost:8082"
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds all application configuration.
type Config struct {
	BaseURL        string        `env:"CAMPUS_BASE_URL" envDefault:"http://localhost:8082"`
	RequestTimeout time.Duration `env:"CAMPUS_REQUEST_TIMEOUT" envDefault:"30s"`
	UserID         string        `env:"CAMPUS_USER_ID"`

	Store StoreConfig
	Retry RetryConfig

	GatewayAddr string `env:"CAMPUS_GATEWAY_ADDR" envDefault:":8090"`
	MockAddr    string `env:"CAMPUS_MOCK_ADDR" envDefault:":8082"`

	LogLevel  string `env:"CAMPUS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CAMPUS_LOG_FORMAT" envDefault:"text"`
}

// StoreConfig controls where session identifiers are persisted.
type StoreConfig struct {
	Kind        StoreKind `env:"CAMPUS_STORE" envDefault:"sqlite"`
	DBPath      string    `env:"CAMPUS_DB_PATH" envDefault:"./data/campus.db"`
	RedisAddr   string    `env:"CAMPUS_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string    `env:"CAMPUS_REDIS_PREFIX" envDefault:"campus:"`
}

// RetryConfig controls the backoff policy used by retrying calls.
type RetryConfig struct {
	MaxAttempts int           `env:"CAMPUS_RETRY_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"CAMPUS_RETRY_BASE_DELAY" envDefault:"1s"`
	MaxDelay    time.Duration `env:"CAMPUS_RETRY_MAX_DELAY" envDefault:"0s"`
	Jitter      bool          `env:"CAMPUS_RETRY_JITTER" envDefault:"false"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse reads configuration from environment variables without
// validating it, for callers that apply overrides first.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("CAMPUS_BASE_URL cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CAMPUS_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("CAMPUS_REQUEST_TIMEOUT must be >= 0")
	}
	switch c.Store.Kind {
	case StoreMemory:
	case StoreSQLite:
		if c.Store.DBPath == "" {
			return fmt.Errorf("CAMPUS_DB_PATH cannot be empty")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("CAMPUS_REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("CAMPUS_STORE must be one of memory, sqlite, redis, got %q", c.Store.Kind)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("CAMPUS_RETRY_ATTEMPTS must be > 0")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must be >= 0")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("CAMPUS_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
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

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// IsLocalBackend returns true if the backend runs on this machine.
func (c *Config) IsLocalBackend() bool {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
