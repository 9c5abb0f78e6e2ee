// Package loader - Configuration Types
//
// LOCATION: internal/loader/types.go
//
// Defines the YAML configuration structure for friskstat.
//
// ARCHITECTURE:
//
//   ┌──────────────────────────────────────────────────────────┐
//   │                     friskstat.yaml                       │
//   ├──────────────────────────────────────────────────────────┤
//   │  input:    files to load, format (auto/csv/parquet)      │
//   │  ingest:   bad-row policy, reader workers, line limit    │
//   │  query:    DuckDB mirror limits                          │
//   │  parquet:  convert output compression                    │
//   │  output:   text / json / pb                              │
//   │  log:      level, format                                 │
//   └──────────────────────────────────────────────────────────┘

package loader

import (
	"github.com/xtxerr/friskstat/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for friskstat.
type Config struct {
	// Input lists the files to load.
	Input InputConfig `yaml:"input"`

	// Ingest configures row parsing.
	Ingest IngestConfig `yaml:"ingest"`

	// Query configures the DuckDB mirror used by `sql` and `breakdown`.
	Query QueryConfig `yaml:"query"`

	// Parquet configures files written by `convert`.
	Parquet ParquetConfig `yaml:"parquet"`

	// Output configures how results are rendered.
	Output OutputConfig `yaml:"output"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// InputConfig lists input files.
type InputConfig struct {
	// Paths are CSV or Parquet files. Glob patterns are expanded relative to
	// the config file's directory.
	Paths []string `yaml:"paths"`

	// Format is auto, csv or parquet. Auto picks by extension.
	Format string `yaml:"format"`
}

// IngestConfig configures row parsing.
type IngestConfig struct {
	// OnError is abort or skip.
	OnError string `yaml:"on_error"`

	// Workers bounds concurrent file reads.
	Workers int `yaml:"workers"`

	// MaxLineBytes is the longest CSV line accepted.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// QueryConfig configures the DuckDB mirror.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit, e.g. "1GB".
	MemoryLimit string `yaml:"memory_limit"`

	// MaxRows truncates ad-hoc SQL results. Zero means unlimited.
	MaxRows int `yaml:"max_rows"`

	// TimeoutSec bounds a single statement.
	TimeoutSec int `yaml:"timeout_sec"`
}

// ParquetConfig configures Parquet output.
type ParquetConfig struct {
	// Compression is snappy, zstd, lz4, gzip or none.
	Compression string `yaml:"compression"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	// Format is text, json or pb.
	Format string `yaml:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration populated from package config.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Format: config.DefaultInputFormat,
		},
		Ingest: IngestConfig{
			OnError:      config.DefaultOnError,
			Workers:      config.DefaultIngestWorkers,
			MaxLineBytes: config.DefaultMaxLineBytes,
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
			MaxRows:     config.DefaultQueryMaxRows,
			TimeoutSec:  config.DefaultQueryTimeoutSec,
		},
		Parquet: ParquetConfig{
			Compression: config.DefaultParquetCompression,
		},
		Output: OutputConfig{
			Format: config.DefaultOutputFormat,
		},
		Log: LogConfig{
			Level:  config.DefaultLogLevel,
			Format: config.DefaultLogFormat,
		},
	}
}
