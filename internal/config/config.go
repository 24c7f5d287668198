// Package config loads tracker configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process configuration.
type Config struct {
	DataDir       string        `env:"TRACKER_DATA_DIR" envDefault:"./data"`
	HTTPAddr      string        `env:"TRACKER_HTTP_ADDR" envDefault:"localhost:8090"`
	RemoteBaseURL string        `env:"TRACKER_REMOTE_URL"`
	RemoteAPIKey  string        `env:"TRACKER_REMOTE_API_KEY"`
	SyncInterval  time.Duration `env:"TRACKER_SYNC_INTERVAL" envDefault:"15m"`
	LogLevel      string        `env:"TRACKER_LOG_LEVEL" envDefault:"INFO"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RemoteConfigured reports whether a remote store has been configured.
// The engine runs local-only when it has not.
func (c *Config) RemoteConfigured() bool {
	return c.RemoteBaseURL != ""
}
