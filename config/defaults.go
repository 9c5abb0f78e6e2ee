// Package config provides configuration defaults for friskstat.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via friskstat.yaml or command-line flags.
package config

// =============================================================================
// Input Defaults
// =============================================================================

const (
	// DefaultConfigPath is the configuration file read when --config is not set.
	// A missing file at this path is not an error; defaults are used instead.
	DefaultConfigPath = "friskstat.yaml"

	// DefaultInputFormat picks the reader from the file extension.
	// Override via config: input.format
	DefaultInputFormat = "auto"
)

// =============================================================================
// Ingest Defaults
// =============================================================================

const (
	// DefaultOnError stops ingestion at the first row that cannot be parsed.
	// The alternative, "skip", logs and drops such rows.
	// Override via config: ingest.on_error
	DefaultOnError = "abort"

	// DefaultIngestWorkers bounds how many input files are read at once.
	// Rows are still ingested in argument order.
	// Override via config: ingest.workers
	DefaultIngestWorkers = 4

	// DefaultMaxLineBytes is the longest CSV line accepted.
	// The NYPD exports are ~110 columns wide; 1 MiB leaves ample headroom.
	// Override via config: ingest.max_line_bytes
	DefaultMaxLineBytes = 1024 * 1024
)

// =============================================================================
// Query Engine Defaults (DuckDB)
// =============================================================================

const (
	// DefaultQueryMemoryLimit caps DuckDB memory for the SQL mirror.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultQueryMaxRows truncates ad-hoc SQL results.
	// Override via config: query.max_rows
	DefaultQueryMaxRows = 10000

	// DefaultQueryTimeoutSec bounds a single SQL statement.
	// Override via config: query.timeout_sec
	DefaultQueryTimeoutSec = 30
)

// =============================================================================
// Output Defaults
// =============================================================================

const (
	// DefaultOutputFormat renders results as aligned text.
	// Other values: json, pb (length-delimited protobuf stream).
	// Override via config: output.format
	DefaultOutputFormat = "text"

	// DefaultParquetCompression is used by `friskstat convert`.
	// Override via config: parquet.compression
	DefaultParquetCompression = "zstd"

	// DefaultParquetBatchSize is the number of records written per batch.
	DefaultParquetBatchSize = 10000
)

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the minimum level written to stderr.
	// Override via config: log.level
	DefaultLogLevel = "info"

	// DefaultLogFormat is human-readable text; "json" is the alternative.
	// Override via config: log.format
	DefaultLogFormat = "text"
)

// =============================================================================
// Protocol Limits
// =============================================================================

const (
	// DefaultMaxMessageSize limits a single framed result in a pb stream.
	DefaultMaxMessageSize = 16 * 1024 * 1024
)
