package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"github.com/xtxerr/friskstat/internal/sqf"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the target number of rows per row group
	RowGroupSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:  CompressionZstd,
		RowGroupSize: 100000,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// ValidCompression reports whether s names a supported algorithm.
func ValidCompression(s string) bool {
	switch s {
	case "snappy", "zstd", "lz4", "gzip", "none", "":
		return true
	}
	return false
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// RecordRow represents a stop record in Parquet format.
type RecordRow struct {
	Year        int64  `parquet:"year"`
	Description string `parquet:"description,dict,zstd"`
	Arrested    bool   `parquet:"arrested"`
	Frisked     bool   `parquet:"frisked"`
	Gender      string `parquet:"gender,dict"`
	Race        string `parquet:"race,dict"`
	Location    string `parquet:"location,dict,zstd"`
}

// RecordToRow converts a Record to a RecordRow.
func RecordToRow(r sqf.Record) RecordRow {
	return RecordRow{
		Year:        int64(r.Year()),
		Description: r.Description(),
		Arrested:    r.Arrested(),
		Frisked:     r.Frisked(),
		Gender:      r.Gender(),
		Race:        r.Race(),
		Location:    r.Location(),
	}
}

// RowToRecord converts a RecordRow to a Record.
func RowToRecord(row *RecordRow) sqf.Record {
	return sqf.NewRecord(
		int(row.Year),
		row.Description,
		row.Arrested,
		row.Frisked,
		row.Gender,
		row.Race,
		row.Location,
	)
}

// RecordWriter writes stop records to a Parquet file.
type RecordWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[RecordRow]
	rowCount int64
	closed   bool
}

// NewRecordWriter creates a new record Parquet writer.
func NewRecordWriter(path string, opts Options) (*RecordWriter, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}
	if opts.RowGroupSize > 0 {
		writerOpts = append(writerOpts, parquet.MaxRowsPerRowGroup(int64(opts.RowGroupSize)))
	}

	writer := parquet.NewGenericWriter[RecordRow](f, writerOpts...)

	return &RecordWriter{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// Write writes records to the Parquet file.
func (w *RecordWriter) Write(records []sqf.Record) error {
	if len(records) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	rows := make([]RecordRow, len(records))
	for i, r := range records {
		rows[i] = RecordToRow(r)
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// WriteDatabase writes every record of db, years ascending, in batches.
func (w *RecordWriter) WriteDatabase(db *sqf.Database, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 10000
	}

	batch := make([]sqf.Record, 0, batchSize)
	var err error

	db.Each(func(r sqf.Record) bool {
		batch = append(batch, r)
		if len(batch) == batchSize {
			err = w.Write(batch)
			batch = batch[:0]
		}
		return err == nil
	})
	if err != nil {
		return err
	}

	return w.Write(batch)
}

// Close closes the writer.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *RecordWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *RecordWriter) Path() string {
	return w.path
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer is closed")
