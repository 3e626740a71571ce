// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for sesnotify.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shineum/sesnotify/internal/provider/ses"
)

// Transport names accepted in Config.Transport.
const (
	TransportSES    = "ses"
	TransportStdout = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	Transport string        `yaml:"transport"`
	SES       ses.Options   `yaml:"amazonses"`
	Logging   LoggingConfig `yaml:"logging"`
	Tracing   TracingConfig `yaml:"tracing"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls the stdout span exporter.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSES, TransportStdout:
	default:
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportSES, TransportStdout)
	}
	if c.SES.Timeout < 0 {
		return fmt.Errorf("amazonses.timeout must not be negative, got %s", c.SES.Timeout)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Transport = TransportSES
	c.Logging.Level = "info"
	c.Logging.Format = "json"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	if v := os.Getenv("NOTIFY_TRANSPORT"); v != "" {
		c.Transport = strings.ToLower(v)
	}

	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKey = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretKey = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_DEFAULT_FROM_ADDRESS"); v != "" {
		c.SES.DefaultFromAddress = v
	}
	if v := os.Getenv("SES_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SES_TIMEOUT %q: %w", v, err)
		}
		c.SES.Timeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRACING_ENABLED %q: %w", v, err)
		}
		c.Tracing.Enabled = enabled
	}

	return nil
}
