// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Resolving input globs relative to the config file
//   - Validating every section before the run starts

package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/logging"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/source"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/parquet"
	"github.com/xtxerr/friskstat/internal/storage/query"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	paths, err := ExpandPaths(cfg.Input.Paths, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Input.Paths = paths

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig when the file does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// ExpandPaths resolves each pattern relative to baseDir and expands globs.
// A pattern without glob metacharacters is kept even if the file is missing,
// so that reading it reports the missing file.
func ExpandPaths(patterns []string, baseDir string) ([]string, error) {
	var out []string

	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) && baseDir != "" {
			pattern = filepath.Join(baseDir, pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			out = append(out, pattern)
			continue
		}
		out = append(out, matches...)
	}

	return out, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Input
	if _, err := source.ParseFormat(cfg.Input.Format); err != nil {
		errs.AddField("input.format", "must be auto, csv or parquet")
	}

	// Ingest
	if _, err := sqf.ParseErrorPolicy(cfg.Ingest.OnError); err != nil {
		errs.AddField("ingest.on_error", "must be abort or skip")
	}
	if cfg.Ingest.Workers <= 0 {
		errs.AddField("ingest.workers", "must be positive")
	}
	if cfg.Ingest.MaxLineBytes <= 0 {
		errs.AddField("ingest.max_line_bytes", "must be positive")
	}

	// Query
	if cfg.Query.MaxRows < 0 {
		errs.AddField("query.max_rows", "cannot be negative")
	}
	if cfg.Query.TimeoutSec < 0 {
		errs.AddField("query.timeout_sec", "cannot be negative")
	}

	// Parquet
	if !parquet.ValidCompression(cfg.Parquet.Compression) {
		errs.AddField("parquet.compression", "must be snappy, zstd, lz4, gzip or none")
	}

	// Output
	if _, err := report.ParseFormat(cfg.Output.Format); err != nil {
		errs.AddField("output.format", "must be text, json or pb")
	}

	// Log
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs.AddField("log.level", "must be debug, info, warn or error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	case "":
		errs.AddMissing("log.format")
	default:
		errs.AddField("log.format", "must be text or json")
	}

	return errs.Err()
}

// =============================================================================
// Conversion: Config → component options
// =============================================================================

// SourceOptions converts the input and ingest sections to source.Options.
// The config must have been validated.
func (c *Config) SourceOptions() source.Options {
	format, _ := source.ParseFormat(c.Input.Format)
	policy, _ := sqf.ParseErrorPolicy(c.Ingest.OnError)

	return source.Options{
		Format:       format,
		OnError:      policy,
		Workers:      c.Ingest.Workers,
		MaxLineBytes: c.Ingest.MaxLineBytes,
	}
}

// ParquetOptions converts the parquet section to writer options.
func (c *Config) ParquetOptions() parquet.Options {
	opts := parquet.DefaultOptions()
	opts.Compression = parquet.ParseCompressionType(c.Parquet.Compression)
	return opts
}

// QueryOptions converts the query section to DuckDB mirror options.
func (c *Config) QueryOptions() query.Options {
	return query.Options{
		MemoryLimit: c.Query.MemoryLimit,
		MaxRows:     c.Query.MaxRows,
		Timeout:     c.QueryTimeout(),
	}
}

// QueryTimeout returns the per-statement timeout, zero meaning none.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Query.TimeoutSec) * time.Second
}

// InitLogging initializes the global logger from the log section.
func (c *Config) InitLogging() error {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	logging.Init(level, c.Log.Format == "json")
	return nil
}
