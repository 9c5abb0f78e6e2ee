package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/xtxerr/friskstat/internal/sqf"
)

// readChunk is the number of rows decoded per Read call in ReadAll.
const readChunk = 4096

// readBufferSize is the buffer used when reading pages from disk.
const readBufferSize = 1024 * 1024

// RecordReader reads stop records from a Parquet file.
type RecordReader struct {
	file   *os.File
	reader *parquet.GenericReader[RecordRow]
	path   string
}

// NewRecordReader creates a new record Parquet reader.
func NewRecordReader(path string) (*RecordReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	pf, err := openFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &RecordReader{
		file:   f,
		reader: parquet.NewGenericReader[RecordRow](pf),
		path:   path,
	}, nil
}

// openFile parses the footer of f. NewGenericReader panics on a file it
// cannot parse, so the footer is read here first.
func openFile(f *os.File) (*parquet.File, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return parquet.OpenFile(f, stat.Size(), parquet.ReadBufferSize(readBufferSize))
}

// Read reads up to n records. It returns io.EOF once the file is exhausted
// and no records were read.
func (r *RecordReader) Read(n int) ([]sqf.Record, error) {
	rows := make([]RecordRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && !(errors.Is(err, io.EOF) && count > 0) {
		return nil, err
	}
	if count == 0 {
		return nil, io.EOF
	}

	records := make([]sqf.Record, count)
	for i := 0; i < count; i++ {
		records[i] = RowToRecord(&rows[i])
	}

	return records, nil
}

// ReadAll reads all records from the file in chunks, checking ctx between
// chunks.
func (r *RecordReader) ReadAll(ctx context.Context) ([]sqf.Record, error) {
	records := make([]sqf.Record, 0, r.reader.NumRows())

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk, err := r.Read(readChunk)
		records = append(records, chunk...)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read rows from %s: %w", r.path, err)
		}
	}
}

// NumRows returns the total number of rows in the file.
func (r *RecordReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *RecordReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// FileInfo holds information about a Parquet file.
type FileInfo struct {
	Path    string
	Size    int64
	NumRows int64
}

// GetFileInfo returns information about a Parquet file.
func GetFileInfo(path string) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := openFile(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &FileInfo{
		Path:    path,
		Size:    pf.Size(),
		NumRows: pf.NumRows(),
	}, nil
}
