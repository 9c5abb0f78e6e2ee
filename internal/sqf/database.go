package sqf

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/logging"
)

// =============================================================================
// Row Sources
// =============================================================================

// Row is one raw data line split into fields. Line is 1-based and counts
// data lines only (the header is not line 1).
type Row struct {
	Line   int
	Fields []string
}

// RowSource yields rows in input order. Next returns io.EOF when exhausted.
type RowSource interface {
	Next() (Row, error)
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource returns a RowSource over rows.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

// =============================================================================
// Ingest Options
// =============================================================================

// ErrorPolicy decides what Ingest does with a row that cannot be parsed.
type ErrorPolicy string

const (
	// PolicyAbort stops at the first bad row and returns its ParseError.
	// Records ingested before that row are kept.
	PolicyAbort ErrorPolicy = "abort"

	// PolicySkip logs the bad row, counts it and carries on.
	PolicySkip ErrorPolicy = "skip"
)

// ParseErrorPolicy parses a policy name. The empty string means PolicyAbort.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(s)) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return PolicyAbort, errors.NewInvalidArgument("on_error", s, "must be abort or skip")
	}
}

// IngestOptions configures Ingest.
type IngestOptions struct {
	OnError ErrorPolicy

	// Logger receives skipped-row warnings. Defaults to the "ingest" component.
	Logger *slog.Logger
}

// IngestStats summarises one Ingest call.
type IngestStats struct {
	Rows    int // rows read from the source
	Records int // records added
	Skipped int // rows dropped under PolicySkip
}

// =============================================================================
// Database
// =============================================================================

// Database maps each year to its YearBucket.
//
// Database is safe for concurrent use, but the intended lifecycle is a
// single ingestion phase followed by read-only queries.
type Database struct {
	mu      sync.RWMutex
	buckets map[int]*YearBucket
	total   int
}

// New creates an empty Database.
func New() *Database {
	return &Database{
		buckets: make(map[int]*YearBucket),
	}
}

// Add routes r into the bucket for its year, creating the bucket if needed.
func (d *Database) Add(r Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(r)
}

func (d *Database) addLocked(r Record) {
	b, ok := d.buckets[r.year]
	if !ok {
		b = newYearBucket(r.year)
		d.buckets[r.year] = b
	}
	// The bucket was chosen by r.year, so add cannot fail here.
	_ = b.add(r)
	d.total++
}

// IngestRow parses one raw row and adds the resulting record.
// line is attached to any ParseError; pass 0 if unknown.
func (d *Database) IngestRow(line int, fields []string) error {
	r, err := ParseRow(fields)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Line = line
		}
		return err
	}
	d.Add(r)
	return nil
}

// Ingest reads src until io.EOF, adding one record per row.
//
// Under PolicyAbort the first bad row ends ingestion and its error is
// returned; under PolicySkip bad rows are logged and counted. Errors from the
// source itself always end ingestion.
func (d *Database) Ingest(src RowSource, opts IngestOptions) (IngestStats, error) {
	var stats IngestStats

	log := opts.Logger
	if log == nil {
		log = logging.Component("ingest")
	}

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		if err := d.IngestRow(row.Line, row.Fields); err != nil {
			if opts.OnError == PolicySkip && errors.IsParse(err) {
				stats.Skipped++
				log.Warn("row skipped", "line", row.Line, "error", err)
				continue
			}
			return stats, err
		}
		stats.Records++
	}

	log.Debug("ingest complete",
		"rows", stats.Rows,
		"records", stats.Records,
		"skipped", stats.Skipped)

	return stats, nil
}

// bucket returns the bucket for year or nil. Callers hold d.mu.
func (d *Database) bucket(year int) *YearBucket {
	return d.buckets[year]
}

// Bucket returns the bucket for year.
func (d *Database) Bucket(year int) (*YearBucket, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buckets[year]
	return b, ok
}

// Years returns every year that has a bucket, ascending.
func (d *Database) Years() []int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	years := make([]int, 0, len(d.buckets))
	for y := range d.buckets {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// Len returns the total number of records across all years.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.total
}

// Each calls fn for every record, years ascending and ingestion order within
// a year, until fn returns false.
func (d *Database) Each(fn func(Record) bool) {
	for _, year := range d.Years() {
		d.mu.RLock()
		b := d.buckets[year]
		records := b.records
		d.mu.RUnlock()

		for _, r := range records {
			if !fn(r) {
				return
			}
		}
	}
}
