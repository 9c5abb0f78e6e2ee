// Package query mirrors a sqf.Database into an in-memory DuckDB table so
// that records can be explored with ad-hoc SQL and column breakdowns.
//
// The table is named "stops":
//
//	seq          BIGINT   ingestion order across all years
//	year         BIGINT
//	description  VARCHAR
//	arrested     BOOLEAN
//	frisked      BOOLEAN
//	gender       VARCHAR
//	race         VARCHAR
//	location     VARCHAR
//
// The Database stays authoritative; the fixed queries never go through SQL.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/xtxerr/friskstat/config"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/logging"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/validation"
)

// TableName is the mirrored table.
const TableName = "stops"

const createTable = `
	CREATE OR REPLACE TABLE stops (
		seq         BIGINT,
		year        BIGINT,
		description VARCHAR,
		arrested    BOOLEAN,
		frisked     BOOLEAN,
		gender      VARCHAR,
		race        VARCHAR,
		location    VARCHAR
	)`

const insertRow = `INSERT INTO stops VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// breakdownColumns may be grouped by Breakdown.
var breakdownColumns = []string{
	"description", "arrested", "frisked", "gender", "race", "location",
}

// BreakdownColumns returns the columns Breakdown accepts.
func BreakdownColumns() []string {
	return slices.Clone(breakdownColumns)
}

// Options configures the service.
type Options struct {
	// MemoryLimit is passed to DuckDB's memory_limit setting, e.g. "1GB".
	MemoryLimit string

	// MaxRows truncates ExecuteSQL results. Zero means unlimited.
	MaxRows int

	// Timeout bounds a single statement. Zero means none.
	Timeout time.Duration
}

// DefaultOptions returns options populated from package config.
func DefaultOptions() Options {
	return Options{
		MemoryLimit: config.DefaultQueryMemoryLimit,
		MaxRows:     config.DefaultQueryMaxRows,
		Timeout:     config.DefaultQueryTimeoutSec * time.Second,
	}
}

// Service owns the DuckDB connection.
type Service struct {
	mu sync.RWMutex

	opts   Options
	db     *sql.DB
	loaded int

	// Statistics
	statsMu sync.Mutex
	stats   ServiceStats
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	RowsLoaded      int64
	QueriesExecuted int64
	RowsReturned    int64
	Truncated       int64
	Errors          int64
}

// New opens an in-memory DuckDB database and creates the empty table.
func New(opts Options) (*Service, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, fmt.Sprintf("open duckdb: %v", err))
	}

	if opts.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", opts.MemoryLimit))
		if err != nil {
			db.Close()
			return nil, errors.Wrap(errors.ErrDatabase, fmt.Sprintf("set memory limit: %v", err))
		}
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrDatabase, fmt.Sprintf("create table: %v", err))
	}

	return &Service{opts: opts, db: db}, nil
}

// Close closes the DuckDB connection once running queries have finished.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withTimeout applies the configured statement timeout.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout > 0 {
		return context.WithTimeout(ctx, s.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Load replaces the table contents with every record in db, inside one
// transaction. It returns the number of rows inserted.
func (s *Service) Load(ctx context.Context, db *sqf.Database) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.Component("query")
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stops"); err != nil {
		return 0, fmt.Errorf("clear table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int
	var insertErr error
	db.Each(func(r sqf.Record) bool {
		if insertErr = ctx.Err(); insertErr != nil {
			return false
		}
		_, insertErr = stmt.ExecContext(ctx,
			int64(n), r.Year(), r.Description(), r.Arrested(), r.Frisked(),
			r.Gender(), r.Race(), r.Location())
		if insertErr != nil {
			return false
		}
		n++
		return true
	})
	if insertErr != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return 0, fmt.Errorf("insert row %d: %w", n, insertErr)
	}

	if err := tx.Commit(); err != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.loaded = n
	s.count(func(st *ServiceStats) { st.RowsLoaded += int64(n) })

	log.Debug("mirror loaded", "rows", n, "duration", time.Since(start))
	return n, nil
}

// Loaded returns the number of rows in the table after the last Load.
func (s *Service) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ExecuteSQL executes a raw SQL query and returns its rows as a Result.
// Results longer than Options.MaxRows are truncated with a warning.
func (s *Service) ExecuteSQL(ctx context.Context, query string) (*report.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, truncated, err := s.collect(ctx, query)
	if err != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "sql: %v", err)
	}
	result.Query = query

	if truncated {
		s.count(func(st *ServiceStats) { st.Truncated++ })
		logging.Component("query").Warn("result truncated", "max_rows", s.opts.MaxRows)
	}

	s.count(func(st *ServiceStats) {
		st.QueriesExecuted++
		st.RowsReturned += int64(len(result.Rows))
	})
	return result, nil
}

// Breakdown counts one year's stops grouped by column, most frequent first.
// column must be one of BreakdownColumns.
func (s *Service) Breakdown(ctx context.Context, year int, column string) (*report.Result, error) {
	if err := validation.ValidateColumn(column, breakdownColumns); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// column is whitelisted above, so it is safe to splice into the statement.
	query := fmt.Sprintf(`
		SELECT %[1]s AS value, COUNT(*) AS stops
		FROM stops
		WHERE year = ?
		GROUP BY %[1]s
		ORDER BY stops DESC, value`, column)

	result, _, err := s.collect(ctx, query, year)
	if err != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if len(result.Rows) == 0 {
		return nil, &errors.NoDataError{Year: year}
	}

	result.Query = fmt.Sprintf("breakdown year=%d column=%s", year, column)
	result.Columns = []string{column, "stops"}

	s.count(func(st *ServiceStats) {
		st.QueriesExecuted++
		st.RowsReturned += int64(len(result.Rows))
	})
	return result, nil
}

// CountRace counts one year's stops of race.
func (s *Service) CountRace(ctx context.Context, year int, race string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stops WHERE year = ? AND race = ?", year, race).Scan(&n)
	if err != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return 0, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	s.count(func(st *ServiceStats) { st.QueriesExecuted++ })
	return n, nil
}

// CountDescription counts one year's stops whose description contains
// substr, matching strings.Contains semantics.
func (s *Service) CountDescription(ctx context.Context, year int, substr string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stops WHERE year = ? AND description LIKE ? ESCAPE '\'`,
		year, validation.SafeLikeContains(substr)).Scan(&n)
	if err != nil {
		s.count(func(st *ServiceStats) { st.Errors++ })
		return 0, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	s.count(func(st *ServiceStats) { st.QueriesExecuted++ })
	return n, nil
}

// collect runs query and scans every column generically.
func (s *Service) collect(ctx context.Context, query string, args ...any) (*report.Result, bool, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	result := &report.Result{Columns: columns}
	truncated := false

	for rows.Next() {
		if s.opts.MaxRows > 0 && len(result.Rows) >= s.opts.MaxRows {
			truncated = true
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, false, err
		}
		result.Rows = append(result.Rows, values)
	}

	return result, truncated, rows.Err()
}

// Stats returns service statistics.
func (s *Service) Stats() ServiceStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// count updates statistics. Queries hold only the read lock, so stats have
// their own mutex.
func (s *Service) count(fn func(st *ServiceStats)) {
	s.statsMu.Lock()
	fn(&s.stats)
	s.statsMu.Unlock()
}
