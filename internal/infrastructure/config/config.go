// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default config file name.
const DefaultConfigFile = "megamarket.yaml"

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Server ServerConfig `yaml:"server,omitempty"`
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
	Stream StreamConfig `yaml:"stream,omitempty"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SQLiteConfig holds configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path,omitempty"`
}

// StreamConfig bounds the read-path streaming.
type StreamConfig struct {
	// TimeoutSeconds is the wall-clock budget of one aggregation stream,
	// measured from its first emitted fragment. Zero disables the budget.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// Timeout returns the streaming budget as a duration.
func (c StreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		SQLite: SQLiteConfig{
			Path: "megamarket.db",
		},
		Stream: StreamConfig{
			TimeoutSeconds: 10,
		},
	}
}

// Load loads configuration from the given file path. A missing file is not
// an error: defaults apply, adjusted by environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("MEGAMARKET_DB_PATH"); path != "" {
		c.SQLite.Path = path
	}
	if host := os.Getenv("MEGAMARKET_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("MEGAMARKET_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}
