package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/logging"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/parquet"
	"golang.org/x/sync/errgroup"
)

// Format names an input file format.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat parses a format name. The empty string means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatAuto, "":
		return FormatAuto, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return FormatAuto, errors.NewInvalidArgument("input format", s, "must be auto, csv or parquet")
	}
}

// Detect resolves FormatAuto from the file extension.
func Detect(path string, f Format) Format {
	if f != FormatAuto && f != "" {
		return f
	}
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// Options configures Load.
type Options struct {
	Format       Format
	OnError      sqf.ErrorPolicy
	Workers      int
	MaxLineBytes int
}

// file holds what was read from one input before ingestion.
type file struct {
	path    string
	rows    []sqf.Row
	records []sqf.Record
}

// Load reads every path and ingests it into db.
//
// Files are read in parallel, bounded by opts.Workers, then ingested one
// after another in argument order so that record order is deterministic.
// The first read error cancels the remaining reads.
func Load(ctx context.Context, db *sqf.Database, paths []string, opts Options) (sqf.IngestStats, error) {
	var total sqf.IngestStats

	if len(paths) == 0 {
		return total, errors.NewMissingField("input.paths")
	}

	files := make([]file, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			f, err := readFile(gctx, path, opts)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return total, err
	}

	for _, f := range files {
		log := logging.WithContext(logging.ContextWithInput(ctx, f.path))

		if f.records != nil {
			for _, r := range f.records {
				db.Add(r)
			}
			total.Rows += len(f.records)
			total.Records += len(f.records)
			log.Debug("records loaded", "records", len(f.records))
			continue
		}

		stats, err := db.Ingest(sqf.NewSliceSource(f.rows), sqf.IngestOptions{
			OnError: opts.OnError,
			Logger:  log,
		})
		total.Rows += stats.Rows
		total.Records += stats.Records
		total.Skipped += stats.Skipped
		if err != nil {
			return total, errors.Wrapf(err, "ingest %s", f.path)
		}
		log.Debug("rows ingested", "rows", stats.Rows, "skipped", stats.Skipped)
	}

	return total, nil
}

func readFile(ctx context.Context, path string, opts Options) (file, error) {
	if err := ctx.Err(); err != nil {
		return file{}, err
	}

	switch Detect(path, opts.Format) {
	case FormatParquet:
		r, err := parquet.NewRecordReader(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return file{}, errors.NewNotFound("input", path)
			}
			return file{}, err
		}
		defer r.Close()

		logging.WithContext(logging.ContextWithInput(ctx, path)).Debug("reading parquet", "rows", r.NumRows())
		records, err := r.ReadAll(ctx)
		if err != nil {
			return file{}, err
		}
		if records == nil {
			records = []sqf.Record{}
		}
		return file{path: path, records: records}, nil

	default:
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				return file{}, errors.NewNotFound("input", path)
			}
			return file{}, err
		}
		defer f.Close()

		rows, err := ReadAll(&ctxSource{ctx: ctx, src: NewCSVReader(f, opts.MaxLineBytes)})
		if err != nil {
			return file{}, err
		}
		return file{path: path, rows: rows}, nil
	}
}

// ctxSource stops a RowSource once ctx is done.
type ctxSource struct {
	ctx context.Context
	src sqf.RowSource
}

func (c *ctxSource) Next() (sqf.Row, error) {
	if err := c.ctx.Err(); err != nil {
		return sqf.Row{}, err
	}
	return c.src.Next()
}
