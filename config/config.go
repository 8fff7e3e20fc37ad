// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-tunable knob of the client core.
type Config struct {
	// Origin is the application's own origin; requests elsewhere bypass
	// the offline cache.
	Origin string `env:"PLUSOPINION_ORIGIN" envDefault:"https://plusopinion.com"`

	// Host is the hostname the client believes it runs on. localhost
	// and 127.0.0.1 disable URL masking.
	Host string `env:"PLUSOPINION_HOST" envDefault:"plusopinion.com"`

	// StatePath is the SQLite file backing state persistence. Empty
	// keeps persistence in memory for the session.
	StatePath string `env:"PLUSOPINION_STATE_PATH"`

	// StateNamespace scopes this client's rows within the state file.
	StateNamespace string `env:"PLUSOPINION_STATE_NAMESPACE" envDefault:"plusopinion_cache"`

	// SweepInterval is how often expired state entries are evicted in
	// the background. Zero disables the sweep.
	SweepInterval time.Duration `env:"PLUSOPINION_SWEEP_INTERVAL" envDefault:"1m"`

	// NavigateTimeout bounds each route handler.
	NavigateTimeout time.Duration `env:"PLUSOPINION_NAVIGATE_TIMEOUT" envDefault:"30s"`

	// QueryCacheCapacity and QueryCacheTTL size the read-through query
	// cache in front of the backend.
	QueryCacheCapacity int           `env:"PLUSOPINION_QUERY_CACHE_CAPACITY" envDefault:"10000"`
	QueryCacheTTL      time.Duration `env:"PLUSOPINION_QUERY_CACHE_TTL" envDefault:"5m"`

	// LogLevel is the minimum level emitted by the core's loggers.
	LogLevel slog.Level `env:"PLUSOPINION_LOG_LEVEL" envDefault:"info"`
}

// Parse reads the environment into a Config and validates it.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the runtime cannot operate under.
func (c Config) Validate() error {
	if c.Origin == "" {
		return fmt.Errorf("config: origin must not be empty")
	}
	if c.StateNamespace == "" {
		return fmt.Errorf("config: state namespace must not be empty")
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("config: sweep interval must not be negative")
	}
	if c.QueryCacheCapacity <= 0 {
		return fmt.Errorf("config: query cache capacity must be positive")
	}
	if c.QueryCacheTTL <= 0 {
		return fmt.Errorf("config: query cache TTL must be positive")
	}
	return nil
}
