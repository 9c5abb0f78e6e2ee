package shell

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	prompt "github.com/c-bata/go-prompt"
	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/report"
	"github.com/xtxerr/friskstat/internal/source"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/query"
	tu "github.com/xtxerr/friskstat/internal/testing"
)

func newHandler(t *testing.T, stops ...tu.Stop) *Handler {
	t.Helper()
	h := NewHandler(tu.LoadDatabase(t, stops...), Options{
		Source: source.Options{OnError: sqf.PolicyAbort, Workers: 2, MaxLineBytes: 1 << 20},
		Query:  query.Options{MaxRows: 100},
	})
	t.Cleanup(func() { h.Close() })
	return h
}

// =============================================================================
// ParseLine
// =============================================================================

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{"# comment", "", nil},
		{"rates 2012", "rates", []string{"2012"}},
		{"RATES   2012 ", "rates", []string{"2012"}},
		{`increase "CRIMINAL POSSESSION" 2012 2013`, "increase", []string{"CRIMINAL POSSESSION", "2012", "2013"}},
		{`stopped 2012 ""`, "stopped", []string{"2012", ""}},
		{`sql SELECT "race", COUNT(*) FROM stops GROUP BY 1`, "sql", []string{`SELECT "race", COUNT(*) FROM stops GROUP BY 1`}},
		{"years", "years", nil},
	}

	for _, tt := range tests {
		name, args, err := ParseLine(tt.line)
		if err != nil {
			t.Errorf("ParseLine(%q): unexpected error %v", tt.line, err)
			continue
		}
		if name != tt.wantName {
			t.Errorf("ParseLine(%q): expected name %q, got %q", tt.line, tt.wantName, name)
		}
		if strings.Join(args, "|") != strings.Join(tt.wantArgs, "|") || len(args) != len(tt.wantArgs) {
			t.Errorf("ParseLine(%q): expected args %q, got %q", tt.line, tt.wantArgs, args)
		}
	}
}

func TestParseLine_UnterminatedQuote(t *testing.T) {
	if _, _, err := ParseLine(`increase "CPW 2012 2013`); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// =============================================================================
// Dispatch
// =============================================================================

func TestRun_Dispatch(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      []string
		wantQuery string
		wantRows  int
	}{
		{"stopped", []string{"2012", "B"}, "stopped year=2012 race=B", 1},
		{"rates", []string{"2012"}, "rates year=2012", 1},
		{"bias", []string{"2012"}, "bias year=2012 black_total=1 white_total=1", 2},
		{"increase", []string{"CPW", "2012", "2013"}, `increase description="CPW"`, 1},
		{"borough", []string{"2012"}, "borough year=2012 most_common=Brooklyn", 5},
		{"summary", nil, "summary", 2},
		{"summary", []string{"2013"}, "summary", 1},
		{"years", nil, "years", 2},
		{"status", nil, "status", 1},
		{"help", []string{"bias"}, "help", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := h.Run(ctx, tt.name, tt.args)
			if err != nil {
				t.Fatalf("Run(%s %v): %v", tt.name, tt.args, err)
			}
			if r.Query != tt.wantQuery {
				t.Errorf("expected query %q, got %q", tt.wantQuery, r.Query)
			}
			if len(r.Rows) != tt.wantRows {
				t.Errorf("expected %d rows, got %d", tt.wantRows, len(r.Rows))
			}
		})
	}
}

func TestRun_Values(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	r, err := h.Run(ctx, "rates", []string{"2012"})
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if r.Rows[0][1] != 50.0 || r.Rows[0][2] != 50.0 {
		t.Errorf("expected 50/50, got %v", r.Rows[0])
	}

	r, err = h.Run(ctx, "increase", []string{"CPW", "2012", "2013"})
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if r.Rows[0][3] != 0.0 {
		t.Errorf("expected 0 change, got %v", r.Rows[0][3])
	}
}

func TestRun_Errors(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	tests := []struct {
		name  string
		args  []string
		check func(error) bool
	}{
		{"nope", nil, func(err error) bool { return errors.Is(err, errors.ErrUnknownCommand) }},
		{"rates", nil, func(err error) bool { return errors.Is(err, errors.ErrInvalidArgument) }},
		{"rates", []string{"2012", "2013"}, func(err error) bool { return errors.Is(err, errors.ErrInvalidArgument) }},
		{"rates", []string{"abc"}, func(err error) bool { return errors.Is(err, errors.ErrInvalidArgument) }},
		{"rates", []string{"1999"}, errors.IsNoData},
		{"bias", []string{"1999"}, errors.IsNoData},
		{"increase", []string{"CPW", "2013", "2012"}, func(err error) bool { return errors.Is(err, errors.ErrInvalidRange) }},
		{"increase", []string{"CPW", "2012", "2014"}, errors.IsNoData},
		{"stopped", []string{"2012", "B,W"}, errors.IsValidation},
		{"summary", []string{"2012", "1999"}, errors.IsNoData},
		{"breakdown", []string{"2012", "year"}, errors.IsValidation},
		{"count", []string{"2012", "gender", "M"}, errors.IsValidation},
		{"count", []string{"2012", "race", " B"}, errors.IsValidation},
		{"count", []string{"20x2", "race", "B"}, errors.IsValidation},
		{"help", []string{"nope"}, func(err error) bool { return errors.Is(err, errors.ErrUnknownCommand) }},
	}

	for _, tt := range tests {
		_, err := h.Run(ctx, tt.name, tt.args)
		if err == nil || !tt.check(err) {
			t.Errorf("Run(%s %v): unexpected error %v", tt.name, tt.args, err)
		}
	}
}

func TestRun_StoppedUnknownYearIsEmpty(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)

	r, err := h.Run(context.Background(), "stopped", []string{"1999", "B"})
	if err != nil {
		t.Fatalf("stopped: %v", err)
	}
	if len(r.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(r.Rows))
	}
}

// =============================================================================
// SQL Mirror
// =============================================================================

func TestRun_SQLAndBreakdown(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	r, err := h.Run(ctx, "sql", []string{"SELECT COUNT(*) AS n FROM stops"})
	if err != nil {
		t.Fatalf("sql: %v", err)
	}
	if len(r.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(r.Rows))
	}

	r, err = h.Run(ctx, "breakdown", []string{"2012", "RACE"})
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(r.Rows) != 2 {
		t.Errorf("expected 2 race groups, got %d", len(r.Rows))
	}

	if b := h.mirror.Builds(); b != 1 {
		t.Errorf("expected mirror built once, got %d", b)
	}
}

func TestRun_Count(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"2012", "race", "W"}, 1},
		{[]string{"2012", "RACE", "B"}, 1},
		{[]string{"2013", "race", "W"}, 0},
		{[]string{"2012", "description", "PW"}, 2},
		{[]string{"2012", "description", "%"}, 0},
		{[]string{"1999", "description", "CPW"}, 0},
	}

	for _, tt := range tests {
		r, err := h.Run(ctx, "count", tt.args)
		if err != nil {
			t.Fatalf("count %v: %v", tt.args, err)
		}
		if got := r.Rows[0][2]; got != tt.want {
			t.Errorf("count %v: expected %d, got %v", tt.args, tt.want, got)
		}
	}

	// Counts through the mirror agree with the in-memory queries.
	if n := len(h.Database().PopulationStopped(2012, sqf.RaceWhite)); n != 1 {
		t.Errorf("expected 1 White stop in memory, got %d", n)
	}
}

func TestRun_StatusReportsMirror(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	r, err := h.Run(ctx, "status", nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if r.Rows[0][2] != false || r.Rows[0][4] != 0 {
		t.Errorf("expected no mirror before sql, got %v", r.Rows[0])
	}

	if _, err := h.Run(ctx, "count", []string{"2012", "race", "B"}); err != nil {
		t.Fatalf("count: %v", err)
	}
	h.Run(ctx, "sql", []string{"SELECT * FROM nowhere"})

	r, err = h.Run(ctx, "status", nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	row := r.Rows[0]
	if row[2] != true || row[4] != 3 {
		t.Errorf("expected loaded mirror with 3 rows, got %v", row)
	}
	if row[5] != int64(1) || row[6] != int64(1) {
		t.Errorf("expected 1 query and 1 error, got %v", row)
	}
}

func TestRun_LoadInvalidatesMirror(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	if _, err := h.Mirror(ctx); err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	path := tu.WriteCSV(t, "more.csv",
		tu.Stop{Year: 2014, Description: "CPW", Gender: "F", Race: "W", Location: "Queens"})

	r, err := h.Run(ctx, "load", []string{path})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r.Rows[0][2] != 1 || r.Rows[0][4] != 4 {
		t.Errorf("expected 1 new record and 4 total, got %v", r.Rows[0])
	}
	if h.mirror.Built() {
		t.Error("expected mirror invalidated after load")
	}

	svc, err := h.Mirror(ctx)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}
	n, err := svc.CountRace(ctx, 2014, sqf.RaceWhite)
	if err != nil {
		t.Fatalf("CountRace: %v", err)
	}
	if n != 1 {
		t.Errorf("expected reloaded mirror to hold the new record, got %d", n)
	}
}

func TestHandler_CloseAfterInvalidate(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	svc, err := h.Mirror(ctx)
	if err != nil {
		t.Fatalf("Mirror: %v", err)
	}

	path := tu.WriteCSV(t, "more.csv",
		tu.Stop{Year: 2014, Description: "CPW", Gender: "F", Race: "W", Location: "Queens"})
	if _, err := h.Run(ctx, "load", []string{path}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := svc.ExecuteSQL(ctx, "SELECT 1"); err == nil {
		t.Error("expected the invalidated mirror to be closed")
	}

	// A later query opens a fresh mirror.
	r, err := h.Run(ctx, "count", []string{"2014", "race", "W"})
	if err != nil {
		t.Fatalf("count after Close: %v", err)
	}
	if r.Rows[0][2] != 1 {
		t.Errorf("expected 1 stop, got %v", r.Rows[0][2])
	}
}

func TestHandler_CloseConcurrentWithQueries(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			// Close may win the race, so errors are expected here.
			h.Run(ctx, "count", []string{"2012", "race", "B"})
		}()
		go func() {
			defer wg.Done()
			h.Close()
		}()
	}
	wg.Wait()
}

func TestRun_LoadMissingFile(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)

	_, err := h.Run(context.Background(), "load", []string{"/does/not/exist.csv"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if h.Database().Len() != 3 {
		t.Errorf("expected database unchanged, got %d records", h.Database().Len())
	}
}

// =============================================================================
// Script Mode
// =============================================================================

func TestREPL_Script(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)

	script := strings.Join([]string{
		"# yearly rates",
		"rates 2012",
		"",
		"borough 2013",
		"exit",
		"rates 1999",
	}, "\n")

	var out, errOut bytes.Buffer
	enc, _ := report.NewEncoder(&out, report.FormatText)

	if err := NewREPL(h, enc, strings.NewReader(script), &errOut).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "# rates year=2012") {
		t.Errorf("expected rates output, got:\n%s", got)
	}
	if !strings.Contains(got, "most_common=Queens") {
		t.Errorf("expected borough output, got:\n%s", got)
	}
}

func TestREPL_ScriptStopsOnError(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)

	var out bytes.Buffer
	enc, _ := report.NewEncoder(&out, report.FormatJSON)

	err := NewREPL(h, enc, strings.NewReader("rates 2012\nrates 1999\nrates 2013\n"), &bytes.Buffer{}).Script(context.Background())
	if !errors.IsNoData(err) {
		t.Fatalf("expected NoData, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line number in %q", err.Error())
	}
	if n := strings.Count(out.String(), "\n"); n != 1 {
		t.Errorf("expected 1 JSON line before the error, got %d", n)
	}
}

// =============================================================================
// Completion
// =============================================================================

func complete(h *Handler, text string) []string {
	buf := prompt.NewBuffer()
	buf.InsertText(text, false, true)

	var out []string
	for _, s := range h.Complete(*buf.Document()) {
		out = append(out, s.Text)
	}
	return out
}

func TestComplete(t *testing.T) {
	h := newHandler(t, tu.Scenario()...)

	tests := []struct {
		text string
		want string
	}{
		{"bi", "bias"},
		{"ex", "exit"},
		{"rates ", "2012,2013"},
		{"rates 201", "2012,2013"},
		{"stopped 2012 ", "B,W"},
		{"breakdown 2012 ra", "race"},
		{"count ", "2012,2013"},
		{"count 2012 ", "race,description"},
		{"increase CPW 2012 ", "2012,2013"},
		{"help st", "stopped,status"},
		{"years ", ""},
	}

	for _, tt := range tests {
		got := strings.Join(complete(h, tt.text), ",")
		if got != tt.want {
			t.Errorf("Complete(%q): expected %q, got %q", tt.text, tt.want, got)
		}
	}
}
