// Package shell runs friskstat commands against a loaded Database.
//
// The same command table serves the interactive shell, piped scripts and the
// one-shot CLI subcommands: each command parses its arguments, runs one
// query and returns a report.Result for the caller to encode.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/logging"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/source"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/query"
	fsync "github.com/xtxerr/friskstat/internal/sync"
)

// =============================================================================
// Handler
// =============================================================================

// Options configures a Handler.
type Options struct {
	// Source is used by the load command.
	Source source.Options

	// Query configures the DuckDB mirror behind sql and breakdown.
	Query query.Options
}

// Handler executes commands. It owns the DuckDB mirror, which is built on
// the first sql or breakdown command and rebuilt after load.
type Handler struct {
	db     *sqf.Database
	opts   Options
	mirror *fsync.Lazy[*query.Service]
	svc    *query.Service // guarded by the mirror's build lock
	log    *slog.Logger
}

// NewHandler creates a handler over db.
func NewHandler(db *sqf.Database, opts Options) *Handler {
	h := &Handler{
		db:   db,
		opts: opts,
		log:  logging.Component("shell"),
	}
	h.mirror = fsync.NewLazy(h.buildMirror)
	return h
}

// Database returns the handler's database.
func (h *Handler) Database() *sqf.Database {
	return h.db
}

// buildMirror opens DuckDB once and (re)loads every record into it.
func (h *Handler) buildMirror(ctx context.Context) (*query.Service, error) {
	if h.svc == nil {
		svc, err := query.New(h.opts.Query)
		if err != nil {
			return nil, err
		}
		h.svc = svc
	}
	n, err := h.svc.Load(ctx, h.db)
	if err != nil {
		return nil, err
	}
	h.log.Debug("sql mirror ready", "rows", n)
	return h.svc, nil
}

// Mirror returns the DuckDB mirror, loading it if needed.
func (h *Handler) Mirror(ctx context.Context) (*query.Service, error) {
	return h.mirror.Get(ctx)
}

// Close releases the DuckDB mirror if it was opened. A later sql or
// breakdown command opens a new one.
func (h *Handler) Close() error {
	var err error
	h.mirror.Reset(func() {
		if h.svc != nil {
			err = h.svc.Close()
			h.svc = nil
		}
	})
	return err
}

// Run executes the named command with already split arguments.
func (h *Handler) Run(ctx context.Context, name string, args []string) (*report.Result, error) {
	cmd, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q (try help): %w", name, errors.ErrUnknownCommand)
	}
	if len(args) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(args) > cmd.MaxArgs) {
		return nil, fmt.Errorf("usage: %s: %w", cmd.Usage(), errors.ErrInvalidArgument)
	}

	ctx = logging.ContextWithCommand(ctx, name)
	logging.WithContext(ctx).Debug("run", "args", args)

	return cmd.run(ctx, h, args)
}

// Execute parses one input line, runs it and encodes the result.
// Blank lines and lines starting with '#' are ignored.
func (h *Handler) Execute(ctx context.Context, line string, enc report.Encoder) error {
	name, args, err := ParseLine(line)
	if err != nil {
		return err
	}
	if name == "" {
		return nil
	}

	result, err := h.Run(ctx, name, args)
	if err != nil {
		return err
	}
	return enc.Encode(result)
}

// =============================================================================
// Line Parsing
// =============================================================================

// ParseLine splits a command line into a command name and arguments.
//
// Arguments are separated by whitespace; double quotes group words, so
// `increase "CRIMINAL POSSESSION" 2012 2013` has three arguments. The sql
// command takes the rest of the line verbatim as its single argument.
func ParseLine(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", nil, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)

	if name == "sql" {
		if rest == "" {
			return name, nil, nil
		}
		return name, []string{rest}, nil
	}

	args, err := splitArgs(rest)
	if err != nil {
		return "", nil, err
	}
	return name, args, nil
}

func splitArgs(s string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		started bool
	)

	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			started = true
		case !inQuote && (r == ' ' || r == '\t'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}

	if inQuote {
		return nil, errors.NewInvalidArgument("line", s, "unterminated quote")
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
