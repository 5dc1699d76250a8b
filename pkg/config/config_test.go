package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"NORNICRT_ARENA_CHUNK_SIZE",
	"NORNICRT_ARENA_MAX_BYTES",
	"NORNICRT_ARENA_RESET_EVERY",
	"NORNICRT_ARENA_DEBUG",
	"NORNICRT_PARALLEL_ENABLED",
	"NORNICRT_PARALLEL_MAX_WORKERS",
	"NORNICRT_PARALLEL_MIN_BATCH_SIZE",
	"NORNICRT_CACHE_IR_SIZE",
	"NORNICRT_CACHE_RECORD_SIZE",
	"NORNICRT_GRAPH_FIXTURE",
	"NORNICRT_GRAPH_BADGER_DIR",
	"NORNICRT_GRAPH_BADGER_IN_MEMORY",
	"NORNICRT_MEMORY_LIMIT",
	"NORNICRT_GC_PERCENT",
	"NORNICRT_LOG_LEVEL",
	"NORNICRT_LOG_FORMAT",
	"NORNICRT_LOG_OUTPUT",
	"NORNICRT_SLOW_QUERY_THRESHOLD",
}

// clearEnvVars unsets every NORNICRT_* variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// TestLoadDefaults tests default values are loaded correctly.
func TestLoadDefaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Arena.ChunkSize != 64*1024 {
		t.Errorf("expected chunk size 64KiB, got %d", cfg.Arena.ChunkSize)
	}
	if cfg.Arena.MaxBytes != 0 {
		t.Errorf("expected unlimited arena, got %d", cfg.Arena.MaxBytes)
	}
	if cfg.Arena.ResetEvery != 4096 {
		t.Errorf("expected reset every 4096, got %d", cfg.Arena.ResetEvery)
	}
	if !cfg.Parallel.Enabled {
		t.Error("expected parallel filtering to be enabled by default")
	}
	if cfg.Parallel.MaxWorkers != runtime.NumCPU() {
		t.Errorf("expected %d workers, got %d", runtime.NumCPU(), cfg.Parallel.MaxWorkers)
	}
	if cfg.Parallel.MinBatchSize != 200 {
		t.Errorf("expected min batch 200, got %d", cfg.Parallel.MinBatchSize)
	}
	if cfg.Cache.IRSize != 1024 {
		t.Errorf("expected IR cache 1024, got %d", cfg.Cache.IRSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("expected info/text logging, got %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestLoadFromFile tests YAML overrides, including human-readable sizes.
func TestLoadFromFile(t *testing.T) {
	clearEnvVars(t)

	path := filepath.Join(t.TempDir(), "nornicrt.yaml")
	yamlDoc := `
arena:
  chunk_size: 128KiB
  max_bytes: 1MB
  reset_every: 100
  debug: true
parallel:
  enabled: false
  max_workers: 3
cache:
  record_size: 0
graph:
  fixture: social.yaml
  badger_in_memory: true
runtime:
  memory_limit: 2GiB
logging:
  level: debug
  format: json
  slow_query_threshold: 250ms
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Arena.ChunkSize != 128*1024 {
		t.Errorf("expected chunk size 131072, got %d", cfg.Arena.ChunkSize)
	}
	if cfg.Arena.MaxBytes != 1000*1000 {
		t.Errorf("expected max bytes 1000000, got %d", cfg.Arena.MaxBytes)
	}
	if cfg.Arena.ResetEvery != 100 || !cfg.Arena.Debug {
		t.Errorf("unexpected arena config %+v", cfg.Arena)
	}
	if cfg.Parallel.Enabled || cfg.Parallel.MaxWorkers != 3 {
		t.Errorf("unexpected parallel config %+v", cfg.Parallel)
	}
	if cfg.Parallel.MinBatchSize != 200 {
		t.Errorf("expected unset min batch to keep its default, got %d", cfg.Parallel.MinBatchSize)
	}
	if cfg.Cache.RecordSize != 0 {
		t.Errorf("expected record cache disabled, got %d", cfg.Cache.RecordSize)
	}
	if cfg.Graph.Fixture != "social.yaml" || !cfg.Graph.BadgerInMemory {
		t.Errorf("unexpected graph config %+v", cfg.Graph)
	}
	if cfg.Runtime.MemoryLimit != 2<<30 {
		t.Errorf("expected 2GiB memory limit, got %d", cfg.Runtime.MemoryLimit)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.SlowQueryThreshold != 250*time.Millisecond {
		t.Errorf("expected 250ms threshold, got %v", cfg.Logging.SlowQueryThreshold)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()

	cfg, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	if err != nil || cfg == nil {
		t.Fatalf("missing file should fall back to defaults, got %v", err)
	}

	tests := map[string]string{
		"bad yaml":     "arena: [",
		"bad size":     "arena:\n  chunk_size: lots\n",
		"bad duration": "logging:\n  slow_query_threshold: soon\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// TestEnvOverridesFile tests that environment variables win over the file.
func TestEnvOverridesFile(t *testing.T) {
	clearEnvVars(t)

	path := filepath.Join(t.TempDir(), "nornicrt.yaml")
	if err := os.WriteFile(path, []byte("parallel:\n  max_workers: 3\nlogging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NORNICRT_PARALLEL_MAX_WORKERS", "7")
	t.Setenv("NORNICRT_ARENA_MAX_BYTES", "16KiB")
	t.Setenv("NORNICRT_SLOW_QUERY_THRESHOLD", "3")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Parallel.MaxWorkers != 7 {
		t.Errorf("expected env to win with 7 workers, got %d", cfg.Parallel.MaxWorkers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected file value to stay, got %q", cfg.Logging.Level)
	}
	if cfg.Arena.MaxBytes != 16*1024 {
		t.Errorf("expected 16384, got %d", cfg.Arena.MaxBytes)
	}
	if cfg.Logging.SlowQueryThreshold != 3*time.Second {
		t.Errorf("expected numeric threshold as seconds, got %v", cfg.Logging.SlowQueryThreshold)
	}
}

// TestEnvBoolParsing tests boolean env var parsing.
func TestEnvBoolParsing(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"off", false},
	}

	for _, tt := range tests {
		t.Run("value="+tt.envValue, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv("NORNICRT_ARENA_DEBUG", tt.envValue)

			cfg := LoadDefaults()
			ApplyEnvVars(cfg)

			if cfg.Arena.Debug != tt.want {
				t.Errorf("for value %q, expected Debug=%v, got %v", tt.envValue, tt.want, cfg.Arena.Debug)
			}
		})
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero chunk", func(c *Config) { c.Arena.ChunkSize = 0 }, true},
		{"negative max bytes", func(c *Config) { c.Arena.MaxBytes = -1 }, true},
		{"zero reset interval", func(c *Config) { c.Arena.ResetEvery = 0 }, true},
		{"zero workers", func(c *Config) { c.Parallel.MaxWorkers = 0 }, true},
		{"zero min batch", func(c *Config) { c.Parallel.MinBatchSize = 0 }, true},
		{"zero IR cache", func(c *Config) { c.Cache.IRSize = 0 }, true},
		{"negative record cache", func(c *Config) { c.Cache.RecordSize = -1 }, true},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"upper-case log format", func(c *Config) { c.Logging.Format = "JSON" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadDefaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_String tests the summary rendering.
func TestConfig_String(t *testing.T) {
	cfg := LoadDefaults()
	cfg.Parallel.MaxWorkers = 4
	s := cfg.String()

	for _, want := range []string{"64 KiB chunks", "max unlimited", "Workers: 4", "info/text"} {
		if !strings.Contains(s, want) {
			t.Errorf("expected %q in %s", want, s)
		}
	}

	cfg.Arena.MaxBytes = 512 << 20
	if s := cfg.String(); !strings.Contains(s, "max 512 MiB") {
		t.Errorf("expected max 512 MiB in %s", s)
	}
}

func TestParseMemorySize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"unlimited", 0, false},
		{"1024", 1024, false},
		{"64KiB", 64 * 1024, false},
		{"64KB", 64 * 1000, false},
		{"1 GiB", 1 << 30, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMemorySize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMemorySize(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseMemorySize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}

	if got := FormatMemorySize(1536); got != "1.5 KiB" {
		t.Errorf("FormatMemorySize(1536) = %q", got)
	}
}
