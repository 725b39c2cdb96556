// Vigil - Behavioral Device Risk Monitoring and Real-Time Alerting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package config loads and validates Vigil's runtime configuration from
// layered sources: built-in defaults, an optional YAML file, then
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Scoring ScoringConfig `koanf:"scoring"`
	Monitor MonitorConfig `koanf:"monitor"`
	Webhook WebhookConfig `koanf:"webhook"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// StorageConfig controls the embedded database.
type StorageConfig struct {
	// Path is the badger data directory. Ignored when InMemory is set.
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// ScoringConfig tunes the risk engine and the ingest path around it.
type ScoringConfig struct {
	WindowSize     int     `koanf:"window_size"`
	AlertThreshold float64 `koanf:"alert_threshold"`

	// Statistical outlier strategy. When disabled only the rule-based
	// strategy runs.
	OutlierEnabled    bool  `koanf:"outlier_enabled"`
	OutlierTrees      int   `koanf:"outlier_trees"`
	OutlierSampleSize int   `koanf:"outlier_sample_size"`
	OutlierSeed       int64 `koanf:"outlier_seed"`
}

// MonitorConfig tunes the background activity monitor.
type MonitorConfig struct {
	Enabled              bool          `koanf:"enabled"`
	Interval             time.Duration `koanf:"interval"`
	IngestRatePerSecond  int           `koanf:"ingest_rate_per_second"`
	BaselineRefreshEvery int           `koanf:"baseline_refresh_every"`
	Seed                 int64         `koanf:"seed"`
}

// WebhookConfig controls best-effort alert forwarding to an external endpoint.
type WebhookConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	AuthHeader    string        `koanf:"auth_header"`
	AuthToken     string        `koanf:"auth_token"`
}

// LoggingConfig controls the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks cross-field constraints. It is called by Load; callers
// constructing a Config by hand should call it themselves.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Scoring.WindowSize < 1 {
		return fmt.Errorf("scoring.window_size must be at least 1, got %d", c.Scoring.WindowSize)
	}
	if c.Scoring.AlertThreshold <= 0 || c.Scoring.AlertThreshold > 100 {
		return fmt.Errorf("scoring.alert_threshold %v out of range (0, 100]", c.Scoring.AlertThreshold)
	}
	if c.Scoring.OutlierEnabled {
		if c.Scoring.OutlierTrees < 1 {
			return fmt.Errorf("scoring.outlier_trees must be at least 1, got %d", c.Scoring.OutlierTrees)
		}
		if c.Scoring.OutlierSampleSize < 2 {
			return fmt.Errorf("scoring.outlier_sample_size must be at least 2, got %d", c.Scoring.OutlierSampleSize)
		}
	}
	if c.Monitor.Enabled && c.Monitor.Interval < time.Second {
		return fmt.Errorf("monitor.interval must be at least 1s, got %s", c.Monitor.Interval)
	}
	if c.Webhook.Enabled {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webhook.url %q is not a valid absolute URL", c.Webhook.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("webhook.url scheme %q must be http or https", u.Scheme)
		}
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
