// Package parquet implements Parquet file reading and writing for stop records.
//
// The package provides:
//   - RecordWriter/RecordReader for stop records
//   - Support for multiple compression algorithms (snappy, zstd, lz4, gzip)
//   - Type conversion between sqf.Record and Parquet rows
//
// Files written here are a columnar copy of a CSV input, produced by
// `friskstat convert` and accepted again as an input. They hold records, not
// raw rows, so reading one skips row parsing entirely.
package parquet
