// Package config loads step-runner settings from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds step-runner configuration
type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Region overrides the default AWS region for every client. Construction
	// args in a step still win.
	Region string `envconfig:"AWS_REGION"`

	// MetricNamespace enables CloudWatch wait metrics when set
	MetricNamespace string `envconfig:"METRIC_NAMESPACE"`
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that envconfig cannot
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// Level returns LogLevel as a slog level. Unknown values are info.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// MetricsEnabled reports whether wait metrics should be published
func (c *Config) MetricsEnabled() bool {
	return c.MetricNamespace != ""
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
