package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "/var/lib/trisearch/products.db"
search:
  strategy: batch
  cache_size: -1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath != "/var/lib/trisearch/products.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.Search.Strategy != StrategyBatch {
		t.Errorf("strategy = %s, want batch", cfg.Search.Strategy)
	}
	if cfg.Search.CacheSize != -1 {
		t.Errorf("cache_size = %d, want -1 (disabled)", cfg.Search.CacheSize)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/products.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "products.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "server: [", "failed to parse config"},
		{"unknown strategy", "search:\n  strategy: parallel\n", "invalid search.strategy"},
		{"unknown backend", "storage:\n  backend: postgres\n", "invalid storage.backend"},
		{"limit above max", "search:\n  default_limit: 50\n  max_limit: 20\n", "exceeds search.max_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("default backend: got %s", cfg.Storage.Backend)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default limits: got %d/%d", cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	}
	if cfg.Search.Strategy != StrategySequential {
		t.Errorf("default strategy: got %s", cfg.Search.Strategy)
	}
	if cfg.Search.Concurrency != 8 {
		t.Errorf("default concurrency: got %d", cfg.Search.Concurrency)
	}
	if cfg.Search.CacheSize != 4096 {
		t.Errorf("default cache size: got %d", cfg.Search.CacheSize)
	}
	if !cfg.Watch.EnabledOrDefault() {
		t.Error("watch should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestWatchConfig_EnabledOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.EnabledOrDefault(); !got {
			t.Errorf("EnabledOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Enabled: &f}
		if got := w.EnabledOrDefault(); got {
			t.Errorf("EnabledOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Storage.DatabasePath = "/tmp/products.db"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Storage.DatabasePath != "/tmp/products.db" {
		t.Errorf("loaded database_path: got %s", loaded.Storage.DatabasePath)
	}
}
