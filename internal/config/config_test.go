package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Media.MaxFileSize != 10*1024*1024 {
		t.Errorf("Expected 10MB max file size, got %d", cfg.Media.MaxFileSize)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected loopback host, got %s", cfg.Server.Host)
	}
	if len(cfg.Media.AllowedMimeTypes()) != 10 {
		t.Errorf("Expected 10 allowed MIME types, got %d", len(cfg.Media.AllowedMimeTypes()))
	}
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cms.yaml")
	content := `
storage:
  backend: redis
  redis:
    addr: redis:6379
    key_prefix: "test:"
media:
  max_file_size: 2048
scheduler:
  interval: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REDIS_ADDR", "other:6380")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Storage.Backend != BackendRedis {
		t.Errorf("Expected redis backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Redis.Addr != "other:6380" {
		t.Errorf("Expected env to override file, got %s", cfg.Storage.Redis.Addr)
	}
	if cfg.Storage.Redis.KeyPrefix != "test:" {
		t.Errorf("Expected key prefix from file, got %s", cfg.Storage.Redis.KeyPrefix)
	}
	if cfg.Media.MaxFileSize != 2048 {
		t.Errorf("Expected max file size 2048, got %d", cfg.Media.MaxFileSize)
	}
	if cfg.Scheduler.Interval != 5*time.Second {
		t.Errorf("Expected 5s interval, got %s", cfg.Scheduler.Interval)
	}
	// untouched sections keep their defaults
	if cfg.Settings.SaveDelay != 500*time.Millisecond {
		t.Errorf("Expected default save delay, got %s", cfg.Settings.SaveDelay)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"memory backend", func(c *Config) { c.Storage.Backend = BackendMemory }, false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }, true},
		{"postgres without host", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Database.Host = ""
		}, true},
		{"zero max file size", func(c *Config) { c.Media.MaxFileSize = 0 }, true},
		{"zero scheduler interval", func(c *Config) { c.Scheduler.Interval = 0 }, true},
		{"disabled scheduler ignores interval", func(c *Config) {
			c.Scheduler.Enabled = false
			c.Scheduler.Interval = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDSN(t *testing.T) {
	cfg := Default()
	dsn := cfg.Database.GetDSN()
	want := "host=localhost port=5432 user=postgres password=postgres dbname=headless_cms sslmode=disable"
	if dsn != want {
		t.Errorf("GetDSN() = %q, want %q", dsn, want)
	}
}
