// Package config provides configuration loading and structs for the trisearch server and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// StorageConfig holds the database location and how it is opened.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	DatabasePath string `yaml:"database_path"`
	ReadOnly     bool   `yaml:"read_only"`
}

// Lookup strategies for resolving a query's trigrams.
const (
	StrategySequential = "sequential"
	StrategyConcurrent = "concurrent"
	StrategyBatch      = "batch"
)

// SearchConfig holds ranking and lookup settings.
type SearchConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	Strategy     string `yaml:"strategy"`
	Concurrency  int    `yaml:"concurrency"`
	// CacheSize is the number of trigram lookups kept in memory; negative disables the cache.
	CacheSize int `yaml:"cache_size"`
}

// WatchConfig controls invalidation of cached lookups when the database file changes.
type WatchConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// EnabledOrDefault returns whether to watch the database; defaults to true when unset.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if a value is invalid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid storage.backend %q: use %s or %s", c.Storage.Backend, BackendSQLite, BackendMemory)
	}
	switch c.Search.Strategy {
	case StrategySequential, StrategyConcurrent, StrategyBatch:
	default:
		return fmt.Errorf("invalid search.strategy %q: use %s, %s or %s",
			c.Search.Strategy, StrategySequential, StrategyConcurrent, StrategyBatch)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
