package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/mash-subs/pkg/metrics"
	"github.com/mash-protocol/mash-subs/pkg/subscription"
)

// Config is the complete tool configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	EventLog   EventLogConfig   `yaml:"event_log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Connection ConnectionConfig `yaml:"connection"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`

	// Output is stdout, stderr or a file path (appended to).
	Output string `yaml:"output"`
}

// EventLogConfig configures the lifecycle event log.
type EventLogConfig struct {
	// Path of the CBOR event log file. Empty disables file logging.
	Path string `yaml:"path"`

	// Console mirrors lifecycle events to the operational logger.
	Console bool `yaml:"console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`

	// Address is the listen address of the /metrics endpoint.
	Address string `yaml:"address"`
}

// ConnectionConfig configures connection owners.
type ConnectionConfig struct {
	// StreamBuffer is the notification buffer per stream.
	StreamBuffer int `yaml:"stream_buffer"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
			Address:   ":9090",
		},
		Connection: ConnectionConfig{
			StreamBuffer: subscription.DefaultStreamBuffer,
		},
	}
}

// Load reads the configuration file at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("connection config: %w", err)
	}
	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	if _, err := parseLevel(l.Level); err != nil {
		return err
	}

	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be 'text' or 'json', got '%s'", l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}
	return nil
}

// Validate validates metrics configuration.
func (m *MetricsConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty when metrics are enabled")
	}
	if m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}
	return nil
}

// Validate validates connection configuration.
func (c *ConnectionConfig) Validate() error {
	if c.StreamBuffer < 0 {
		return fmt.Errorf("stream_buffer cannot be negative, got %d", c.StreamBuffer)
	}
	return nil
}
