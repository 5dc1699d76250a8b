// Package config handles nornicrt configuration via YAML files and environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--workers, --log-level, etc.)
//  2. Environment variables (NORNICRT_*)
//  3. Config file (nornicrt.yaml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables (all use NORNICRT_ prefix):
//
// Arena:
//   - NORNICRT_ARENA_CHUNK_SIZE="64KiB"
//   - NORNICRT_ARENA_MAX_BYTES="512MiB" or "unlimited"
//   - NORNICRT_ARENA_RESET_EVERY=4096
//   - NORNICRT_ARENA_DEBUG=true
//
// Parallel evaluation:
//   - NORNICRT_PARALLEL_ENABLED=true
//   - NORNICRT_PARALLEL_MAX_WORKERS=8
//   - NORNICRT_PARALLEL_MIN_BATCH_SIZE=200
//
// Cache:
//   - NORNICRT_CACHE_IR_SIZE=1024
//   - NORNICRT_CACHE_RECORD_SIZE=4096
//
// Graph:
//   - NORNICRT_GRAPH_FIXTURE="./graph.yaml"
//   - NORNICRT_GRAPH_BADGER_DIR="./data"
//
// Runtime:
//   - NORNICRT_MEMORY_LIMIT="2GiB"
//   - NORNICRT_GC_PERCENT=100
//
// Logging:
//   - NORNICRT_LOG_LEVEL="info"
//   - NORNICRT_LOG_FORMAT="json"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config holds all nornicrt configuration.
//
// Configuration is organized into logical sections:
//   - Arena: per-worker evaluation arenas
//   - Parallel: how filter batches are split across goroutines
//   - Cache: compiled IR and storage record caches
//   - Graph: where the graph is loaded from
//   - Runtime: Go runtime memory tuning
//   - Logging: logging configuration
type Config struct {
	Arena    ArenaConfig
	Parallel ParallelConfig
	Cache    CacheConfig
	Graph    GraphConfig
	Runtime  RuntimeConfig
	Logging  LoggingConfig
}

// ArenaConfig sizes the arenas workers evaluate into.
type ArenaConfig struct {
	// ChunkSize is the size of each bump chunk in bytes.
	ChunkSize int
	// MaxBytes caps allocation between resets; 0 means unlimited.
	// Exceeding it fails the query with AllocationExhausted.
	MaxBytes int64
	// ResetEvery is how many candidates a worker evaluates between arena
	// resets.
	ResetEvery int
	// Debug enables use-after-reset detection.
	Debug bool
}

// ParallelConfig controls parallel filtering.
type ParallelConfig struct {
	// Enabled enables/disables parallel execution globally
	Enabled bool

	// MaxWorkers is the maximum number of goroutines to use
	// Default: runtime.NumCPU()
	MaxWorkers int

	// MinBatchSize is the minimum number of candidates before parallelizing
	// Below this threshold, one goroutine filters the batch.
	MinBatchSize int
}

// CacheConfig sizes the LRU caches.
type CacheConfig struct {
	// IRSize is the number of decoded expression trees kept by wire hash.
	IRSize int
	// RecordSize is the number of decoded vertex records a badger snapshot
	// keeps. 0 disables it.
	RecordSize int
}

// GraphConfig selects the graph source.
type GraphConfig struct {
	// Fixture is a YAML graph fixture.
	Fixture string
	// BadgerDir, when set, loads the fixture into badger and reads from a
	// snapshot of it.
	BadgerDir string
	// BadgerInMemory runs badger without a directory.
	BadgerInMemory bool
}

// RuntimeConfig tunes the Go runtime.
type RuntimeConfig struct {
	// MemoryLimit is the soft limit for the Go heap; 0 leaves it unset.
	MemoryLimit int64
	// GCPercent is the GOGC value.
	GCPercent int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (debug, info, warn, error)
	Level string
	// Format (json, text)
	Format string
	// Output path (stdout, stderr, or file path)
	Output string
	// SlowQueryThreshold logs queries slower than this at warn level
	SlowQueryThreshold time.Duration
}

// YAMLConfig represents the YAML configuration file structure.
// Sizes are strings such as "64KiB" or "512MB".
type YAMLConfig struct {
	Arena struct {
		ChunkSize  string `yaml:"chunk_size"`
		MaxBytes   string `yaml:"max_bytes"`
		ResetEvery int    `yaml:"reset_every"`
		Debug      *bool  `yaml:"debug"`
	} `yaml:"arena"`

	Parallel struct {
		Enabled      *bool `yaml:"enabled"`
		MaxWorkers   int   `yaml:"max_workers"`
		MinBatchSize int   `yaml:"min_batch_size"`
	} `yaml:"parallel"`

	Cache struct {
		IRSize     int  `yaml:"ir_size"`
		RecordSize *int `yaml:"record_size"`
	} `yaml:"cache"`

	Graph struct {
		Fixture        string `yaml:"fixture"`
		BadgerDir      string `yaml:"badger_dir"`
		BadgerInMemory bool   `yaml:"badger_in_memory"`
	} `yaml:"graph"`

	Runtime struct {
		MemoryLimit string `yaml:"memory_limit"`
		GCPercent   int    `yaml:"gc_percent"`
	} `yaml:"runtime"`

	Logging struct {
		Level              string `yaml:"level"`
		Format             string `yaml:"format"`
		Output             string `yaml:"output"`
		SlowQueryThreshold string `yaml:"slow_query_threshold"`
	} `yaml:"logging"`
}

// LoadDefaults returns the built-in configuration.
func LoadDefaults() *Config {
	return &Config{
		Arena: ArenaConfig{
			ChunkSize:  64 * 1024,
			MaxBytes:   0,
			ResetEvery: 4096,
		},
		Parallel: ParallelConfig{
			Enabled:      true,
			MaxWorkers:   runtime.NumCPU(),
			MinBatchSize: 200,
		},
		Cache: CacheConfig{
			IRSize:     1024,
			RecordSize: 4096,
		},
		Runtime: RuntimeConfig{
			GCPercent: 100,
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "text",
			Output:             "stderr",
			SlowQueryThreshold: time.Second,
		},
	}
}

// LoadFromFile loads defaults, overlays the YAML file at configPath and then
// the NORNICRT_* environment. A missing file is not an error; an empty path
// skips the file.
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := applyYAML(config, data); err != nil {
				return nil, err
			}
		}
	}

	applyEnvVars(config)
	return config, nil
}

func applyYAML(config *Config, data []byte) error {
	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// === Arena ===
	if yamlCfg.Arena.ChunkSize != "" {
		n, err := parseMemorySize(yamlCfg.Arena.ChunkSize)
		if err != nil {
			return fmt.Errorf("arena.chunk_size: %w", err)
		}
		config.Arena.ChunkSize = int(n)
	}
	if yamlCfg.Arena.MaxBytes != "" {
		n, err := parseMemorySize(yamlCfg.Arena.MaxBytes)
		if err != nil {
			return fmt.Errorf("arena.max_bytes: %w", err)
		}
		config.Arena.MaxBytes = n
	}
	if yamlCfg.Arena.ResetEvery > 0 {
		config.Arena.ResetEvery = yamlCfg.Arena.ResetEvery
	}
	if yamlCfg.Arena.Debug != nil {
		config.Arena.Debug = *yamlCfg.Arena.Debug
	}

	// === Parallel ===
	if yamlCfg.Parallel.Enabled != nil {
		config.Parallel.Enabled = *yamlCfg.Parallel.Enabled
	}
	if yamlCfg.Parallel.MaxWorkers > 0 {
		config.Parallel.MaxWorkers = yamlCfg.Parallel.MaxWorkers
	}
	if yamlCfg.Parallel.MinBatchSize > 0 {
		config.Parallel.MinBatchSize = yamlCfg.Parallel.MinBatchSize
	}

	// === Cache ===
	if yamlCfg.Cache.IRSize > 0 {
		config.Cache.IRSize = yamlCfg.Cache.IRSize
	}
	if yamlCfg.Cache.RecordSize != nil {
		config.Cache.RecordSize = *yamlCfg.Cache.RecordSize
	}

	// === Graph ===
	if yamlCfg.Graph.Fixture != "" {
		config.Graph.Fixture = yamlCfg.Graph.Fixture
	}
	if yamlCfg.Graph.BadgerDir != "" {
		config.Graph.BadgerDir = yamlCfg.Graph.BadgerDir
	}
	if yamlCfg.Graph.BadgerInMemory {
		config.Graph.BadgerInMemory = true
	}

	// === Runtime ===
	if yamlCfg.Runtime.MemoryLimit != "" {
		n, err := parseMemorySize(yamlCfg.Runtime.MemoryLimit)
		if err != nil {
			return fmt.Errorf("runtime.memory_limit: %w", err)
		}
		config.Runtime.MemoryLimit = n
	}
	if yamlCfg.Runtime.GCPercent != 0 {
		config.Runtime.GCPercent = yamlCfg.Runtime.GCPercent
	}

	// === Logging ===
	if yamlCfg.Logging.Level != "" {
		config.Logging.Level = yamlCfg.Logging.Level
	}
	if yamlCfg.Logging.Format != "" {
		config.Logging.Format = yamlCfg.Logging.Format
	}
	if yamlCfg.Logging.Output != "" {
		config.Logging.Output = yamlCfg.Logging.Output
	}
	if yamlCfg.Logging.SlowQueryThreshold != "" {
		d, err := time.ParseDuration(yamlCfg.Logging.SlowQueryThreshold)
		if err != nil {
			return fmt.Errorf("logging.slow_query_threshold: %w", err)
		}
		config.Logging.SlowQueryThreshold = d
	}
	return nil
}

// ApplyEnvVars overlays NORNICRT_* environment variables onto config.
func ApplyEnvVars(config *Config) {
	applyEnvVars(config)
}

func applyEnvVars(config *Config) {
	// Arena
	config.Arena.ChunkSize = int(getEnvSize("NORNICRT_ARENA_CHUNK_SIZE", int64(config.Arena.ChunkSize)))
	config.Arena.MaxBytes = getEnvSize("NORNICRT_ARENA_MAX_BYTES", config.Arena.MaxBytes)
	config.Arena.ResetEvery = getEnvInt("NORNICRT_ARENA_RESET_EVERY", config.Arena.ResetEvery)
	config.Arena.Debug = getEnvBool("NORNICRT_ARENA_DEBUG", config.Arena.Debug)

	// Parallel
	config.Parallel.Enabled = getEnvBool("NORNICRT_PARALLEL_ENABLED", config.Parallel.Enabled)
	config.Parallel.MaxWorkers = getEnvInt("NORNICRT_PARALLEL_MAX_WORKERS", config.Parallel.MaxWorkers)
	config.Parallel.MinBatchSize = getEnvInt("NORNICRT_PARALLEL_MIN_BATCH_SIZE", config.Parallel.MinBatchSize)

	// Cache
	config.Cache.IRSize = getEnvInt("NORNICRT_CACHE_IR_SIZE", config.Cache.IRSize)
	config.Cache.RecordSize = getEnvInt("NORNICRT_CACHE_RECORD_SIZE", config.Cache.RecordSize)

	// Graph
	config.Graph.Fixture = getEnv("NORNICRT_GRAPH_FIXTURE", config.Graph.Fixture)
	config.Graph.BadgerDir = getEnv("NORNICRT_GRAPH_BADGER_DIR", config.Graph.BadgerDir)
	config.Graph.BadgerInMemory = getEnvBool("NORNICRT_GRAPH_BADGER_IN_MEMORY", config.Graph.BadgerInMemory)

	// Runtime
	config.Runtime.MemoryLimit = getEnvSize("NORNICRT_MEMORY_LIMIT", config.Runtime.MemoryLimit)
	config.Runtime.GCPercent = getEnvInt("NORNICRT_GC_PERCENT", config.Runtime.GCPercent)

	// Logging
	config.Logging.Level = getEnv("NORNICRT_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("NORNICRT_LOG_FORMAT", config.Logging.Format)
	config.Logging.Output = getEnv("NORNICRT_LOG_OUTPUT", config.Logging.Output)
	config.Logging.SlowQueryThreshold = getEnvDuration("NORNICRT_SLOW_QUERY_THRESHOLD", config.Logging.SlowQueryThreshold)
}

// Validate checks the configuration for invalid values.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	if c.Arena.ChunkSize <= 0 {
		return fmt.Errorf("invalid arena chunk size: %d", c.Arena.ChunkSize)
	}
	if c.Arena.MaxBytes < 0 {
		return fmt.Errorf("invalid arena max bytes: %d", c.Arena.MaxBytes)
	}
	if c.Arena.ResetEvery <= 0 {
		return fmt.Errorf("invalid arena reset interval: %d", c.Arena.ResetEvery)
	}
	if c.Parallel.MaxWorkers <= 0 {
		return fmt.Errorf("invalid max workers: %d", c.Parallel.MaxWorkers)
	}
	if c.Parallel.MinBatchSize <= 0 {
		return fmt.Errorf("invalid min batch size: %d", c.Parallel.MinBatchSize)
	}
	if c.Cache.IRSize <= 0 {
		return fmt.Errorf("invalid IR cache size: %d", c.Cache.IRSize)
	}
	if c.Cache.RecordSize < 0 {
		return fmt.Errorf("invalid record cache size: %d", c.Cache.RecordSize)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	maxBytes := "unlimited"
	if c.Arena.MaxBytes > 0 {
		maxBytes = FormatMemorySize(c.Arena.MaxBytes)
	}
	return fmt.Sprintf(
		"Config{Arena: %s chunks, max %s, reset every %d; Workers: %d (parallel %v, min batch %d); IR cache: %d; Log: %s/%s}",
		FormatMemorySize(int64(c.Arena.ChunkSize)), maxBytes, c.Arena.ResetEvery,
		c.Parallel.MaxWorkers, c.Parallel.Enabled, c.Parallel.MinBatchSize,
		c.Cache.IRSize, c.Logging.Level, c.Logging.Format,
	)
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.nornicrt/config.yaml
//  2. Same directory as the binary (nornicrt.yaml)
//  3. Current working directory (nornicrt.yaml)
//  4. ~/.config/nornicrt/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".nornicrt", "config.yaml"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "nornicrt.yaml"))
	}
	candidates = append(candidates, "nornicrt.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "nornicrt", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Try parsing as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func getEnvSize(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := parseMemorySize(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// parseMemorySize parses a human-readable size such as "512MiB", "64KB" or
// "1024". "0" and "unlimited" mean 0.
func parseMemorySize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" || strings.EqualFold(s, "unlimited") {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}

// FormatMemorySize formats bytes as a human-readable IEC string.
func FormatMemorySize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// ApplyRuntimeMemory applies the runtime memory settings to the Go runtime.
// Should be called early in main() before heavy allocations.
func (c *RuntimeConfig) ApplyRuntimeMemory() {
	if c.MemoryLimit > 0 {
		debug.SetMemoryLimit(c.MemoryLimit)
	}
	if c.GCPercent != 100 && c.GCPercent != 0 {
		debug.SetGCPercent(c.GCPercent)
	}
}
