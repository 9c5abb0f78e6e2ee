// Package source turns input files into rows and records for a Database.
//
// CSV files are read line by line: the first line is a header and is
// discarded, empty lines are skipped, and every other line is split on
// commas with no quoting or escaping. Parquet files written by
// `friskstat convert` yield records directly.
package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/xtxerr/friskstat/config"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/sqf"
)

// Delimiter separates fields within a CSV line.
const Delimiter = ","

// CSVReader reads raw rows from a comma-delimited stream.
// It implements sqf.RowSource.
type CSVReader struct {
	scanner    *bufio.Scanner
	line       int
	headerSeen bool
}

// NewCSVReader returns a reader over r. maxLineBytes bounds a single line;
// zero means config.DefaultMaxLineBytes.
func NewCSVReader(r io.Reader, maxLineBytes int) *CSVReader {
	if maxLineBytes <= 0 {
		maxLineBytes = config.DefaultMaxLineBytes
	}

	// The scanner's limit is the larger of cap(buf) and max.
	initial := 64 * 1024
	if maxLineBytes < initial {
		initial = maxLineBytes
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initial), maxLineBytes)

	return &CSVReader{scanner: sc}
}

// Next returns the next data row. Row.Line is the 1-based line number
// counted after the header, so file line N is data line N-1.
func (c *CSVReader) Next() (sqf.Row, error) {
	if !c.headerSeen {
		c.headerSeen = true
		if !c.scanner.Scan() {
			return sqf.Row{}, c.eof()
		}
	}

	for c.scanner.Scan() {
		c.line++
		text := c.scanner.Text()
		if text == "" {
			continue
		}
		return sqf.Row{Line: c.line, Fields: SplitLine(text)}, nil
	}

	return sqf.Row{}, c.eof()
}

func (c *CSVReader) eof() error {
	if err := c.scanner.Err(); err != nil {
		return errors.Wrapf(err, "read line %d", c.line+1)
	}
	return io.EOF
}

// SplitLine splits one line on commas. Quotes get no special treatment.
func SplitLine(line string) []string {
	return strings.Split(line, Delimiter)
}

// ReadAll drains src into a slice.
func ReadAll(src sqf.RowSource) ([]sqf.Row, error) {
	var rows []sqf.Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
