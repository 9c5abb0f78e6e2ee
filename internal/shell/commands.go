package shell

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/source"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/query"
	"github.com/xtxerr/friskstat/internal/validation"
)

// Command is one entry of the command table.
type Command struct {
	Name    string
	Args    string // argument synopsis
	Help    string
	MinArgs int
	MaxArgs int // -1 means unlimited

	run func(ctx context.Context, h *Handler, args []string) (*report.Result, error)
}

// Usage returns "name args".
func (c *Command) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

var commands []*Command

func init() {
	commands = []*Command{
		{
			Name: "stopped", Args: "<year> <race>", MinArgs: 2, MaxArgs: 2,
			Help: "list the year's stops of one race code (e.g. B, W)",
			run:  runStopped,
		},
		{
			Name: "rates", Args: "<year>", MinArgs: 1, MaxArgs: 1,
			Help: "percentage of the year's stops frisked and arrested",
			run:  runRates,
		},
		{
			Name: "bias", Args: "<year>", MinArgs: 1, MaxArgs: 1,
			Help: "gender split of Black and White stops (each cell 0-50)",
			run:  runBias,
		},
		{
			Name: "increase", Args: "<description> <year1> <year2>", MinArgs: 3, MaxArgs: 3,
			Help: "change in the share of stops whose description contains a substring",
			run:  runIncrease,
		},
		{
			Name: "borough", Args: "<year>", MinArgs: 1, MaxArgs: 1,
			Help: "stops per borough and the most common one",
			run:  runBorough,
		},
		{
			Name: "summary", Args: "[year...]", MinArgs: 0, MaxArgs: -1,
			Help: "stops, frisks and arrests per year (all years if none given)",
			run:  runSummary,
		},
		{
			Name: "years", MinArgs: 0, MaxArgs: 0,
			Help: "years present and their record counts",
			run:  runYears,
		},
		{
			Name: "breakdown", Args: "<year> <column>", MinArgs: 2, MaxArgs: 2,
			Help: "count the year's stops by " + strings.Join(query.BreakdownColumns(), "|"),
			run:  runBreakdown,
		},
		{
			Name: "count", Args: "<year> race|description <value>", MinArgs: 3, MaxArgs: 3,
			Help: "count the year's stops of a race code or whose description contains a substring",
			run:  runCount,
		},
		{
			Name: "sql", Args: "<statement>", MinArgs: 1, MaxArgs: 1,
			Help: "run SQL against the stops table",
			run:  runSQL,
		},
		{
			Name: "load", Args: "<path...>", MinArgs: 1, MaxArgs: -1,
			Help: "ingest more CSV or Parquet files",
			run:  runLoad,
		},
		{
			Name: "status", MinArgs: 0, MaxArgs: 0,
			Help: "record count and SQL mirror state",
			run:  runStatus,
		},
		{
			Name: "help", Args: "[command]", MinArgs: 0, MaxArgs: 1,
			Help: "list commands",
			run:  runHelp,
		},
	}
}

// Commands returns the command table in display order.
func Commands() []*Command {
	return slices.Clone(commands)
}

// Lookup finds a command by name.
func Lookup(name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// =============================================================================
// Fixed Queries
// =============================================================================

func runStopped(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRaceCode(args[1]); err != nil {
		return nil, err
	}
	return report.Stopped(year, args[1], h.db.PopulationStopped(year, args[1])), nil
}

func runRates(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	rates, err := h.db.FriskedVsArrested(year)
	if err != nil {
		return nil, err
	}
	return report.Rates(year, rates), nil
}

func runBias(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	m, err := h.db.GenderBias(year)
	if err != nil {
		return nil, err
	}
	return report.Bias(year, m), nil
}

func runIncrease(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	desc := args[0]
	if err := validation.ValidateDescription(desc); err != nil {
		return nil, err
	}
	year1, err := validation.ParseYear(args[1])
	if err != nil {
		return nil, err
	}
	year2, err := validation.ParseYear(args[2])
	if err != nil {
		return nil, err
	}
	change, err := h.db.CrimeIncrease(desc, year1, year2)
	if err != nil {
		return nil, err
	}
	return report.Increase(desc, year1, year2, change), nil
}

func runBorough(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	return report.Borough(year, h.db.BoroughCounts(year)), nil
}

func runSummary(_ context.Context, h *Handler, args []string) (*report.Result, error) {
	var years []int
	if len(args) == 0 {
		years = h.db.Years()
	}
	for _, a := range args {
		year, err := validation.ParseYear(a)
		if err != nil {
			return nil, err
		}
		years = append(years, year)
	}

	summaries := make([]sqf.YearSummary, 0, len(years))
	for _, year := range years {
		s, err := h.db.Summary(year)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return report.Summary(summaries), nil
}

func runYears(_ context.Context, h *Handler, _ []string) (*report.Result, error) {
	r := &report.Result{Query: "years", Columns: []string{"year", "records"}}
	for _, year := range h.db.Years() {
		if b, ok := h.db.Bucket(year); ok {
			r.Append(year, b.Len())
		}
	}
	return r, nil
}

// =============================================================================
// SQL Mirror
// =============================================================================

func runBreakdown(ctx context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	column := strings.ToLower(args[1])
	if err := validation.ValidateColumn(column, query.BreakdownColumns()); err != nil {
		return nil, err
	}

	svc, err := h.Mirror(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Breakdown(ctx, year, column)
}

func runCount(ctx context.Context, h *Handler, args []string) (*report.Result, error) {
	year, err := validation.ParseYear(args[0])
	if err != nil {
		return nil, err
	}
	column, value := strings.ToLower(args[1]), args[2]

	switch column {
	case "race":
		err = validation.ValidateRaceCode(value)
	case "description":
		err = validation.ValidateDescription(value)
	default:
		err = validation.ValidateColumn(column, []string{"race", "description"})
	}
	if err != nil {
		return nil, err
	}

	svc, err := h.Mirror(ctx)
	if err != nil {
		return nil, err
	}

	var n int
	if column == "race" {
		n, err = svc.CountRace(ctx, year, value)
	} else {
		n, err = svc.CountDescription(ctx, year, value)
	}
	if err != nil {
		return nil, err
	}

	r := &report.Result{
		Query:   fmt.Sprintf("count year=%d %s=%q", year, column, value),
		Columns: []string{"year", column, "stops"},
	}
	r.Append(year, value, n)
	return r, nil
}

func runSQL(ctx context.Context, h *Handler, args []string) (*report.Result, error) {
	svc, err := h.Mirror(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ExecuteSQL(ctx, args[0])
}

// =============================================================================
// Session
// =============================================================================

func runLoad(ctx context.Context, h *Handler, args []string) (*report.Result, error) {
	stats, err := source.Load(ctx, h.db, args, h.opts.Source)

	// Records ingested before a failure are kept, so the mirror is stale
	// either way.
	if stats.Records > 0 {
		h.mirror.Invalidate()
	}
	if err != nil {
		return nil, err
	}

	h.log.Info("files loaded", "files", len(args), "records", stats.Records, "skipped", stats.Skipped)

	r := &report.Result{
		Query:   "load " + strings.Join(args, " "),
		Columns: []string{"files", "rows", "records", "skipped", "total"},
	}
	r.Append(len(args), stats.Rows, stats.Records, stats.Skipped, h.db.Len())
	return r, nil
}

func runStatus(_ context.Context, h *Handler, _ []string) (*report.Result, error) {
	r := &report.Result{
		Query: "status",
		Columns: []string{
			"records", "years", "sql_mirror_loaded", "sql_mirror_builds",
			"sql_rows", "sql_queries", "sql_errors",
		},
	}

	var stats query.ServiceStats
	rows := 0
	svc, loaded := h.mirror.Peek()
	if loaded {
		rows = svc.Loaded()
		stats = svc.Stats()
	}

	r.Append(h.db.Len(), len(h.db.Years()), loaded, h.mirror.Builds(),
		rows, stats.QueriesExecuted, stats.Errors)
	return r, nil
}

func runHelp(_ context.Context, _ *Handler, args []string) (*report.Result, error) {
	r := &report.Result{Query: "help", Columns: []string{"command", "description"}}

	if len(args) == 1 {
		c, ok := Lookup(strings.ToLower(args[0]))
		if !ok {
			return nil, fmt.Errorf("%q: %w", args[0], errors.ErrUnknownCommand)
		}
		r.Append(c.Usage(), c.Help)
		return r, nil
	}

	for _, c := range commands {
		r.Append(c.Usage(), c.Help)
	}
	r.Append("exit", "leave the shell")
	return r, nil
}

// yearArg reports whether argument position pos of command name is a year.
// Used by completion.
func yearArg(name string, pos int) bool {
	switch name {
	case "stopped", "rates", "bias", "borough", "breakdown", "count":
		return pos == 1
	case "increase":
		return pos == 2 || pos == 3
	case "summary":
		return pos >= 1
	}
	return false
}

// yearSuggestions renders the loaded years for completion.
func yearSuggestions(db *sqf.Database) []string {
	years := db.Years()
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
