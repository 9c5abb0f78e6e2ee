// Package report turns query answers into tabular Results and renders them.
//
// Every query, fixed or ad-hoc SQL, produces the same shape: a query name,
// ordered column names and rows of scalar values. That shape renders as an
// aligned text table, as JSON, or as a protobuf Struct (see internal/wire).
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xtxerr/friskstat/internal/sqf"
	"google.golang.org/protobuf/types/known/structpb"
)

// Result is one rendered query answer.
type Result struct {
	Query   string
	Columns []string
	Rows    [][]any
}

// Append adds a row. Values must line up with Columns.
func (r *Result) Append(values ...any) {
	r.Rows = append(r.Rows, values)
}

// =============================================================================
// Constructors for the fixed queries
// =============================================================================

// Stopped builds the result of PopulationStopped.
func Stopped(year int, race string, records []sqf.Record) *Result {
	r := &Result{
		Query:   fmt.Sprintf("stopped year=%d race=%s", year, race),
		Columns: []string{"year", "description", "arrested", "frisked", "gender", "race", "location"},
	}
	for _, rec := range records {
		r.Append(rec.Year(), rec.Description(), rec.Arrested(), rec.Frisked(), rec.Gender(), rec.Race(), rec.Location())
	}
	return r
}

// Rates builds the result of FriskedVsArrested.
func Rates(year int, rates sqf.Rates) *Result {
	r := &Result{
		Query:   fmt.Sprintf("rates year=%d", year),
		Columns: []string{"year", "frisked_pct", "arrested_pct"},
	}
	r.Append(year, rates.Frisked, rates.Arrested)
	return r
}

// Bias builds the result of GenderBias.
func Bias(year int, m sqf.GenderMatrix) *Result {
	r := &Result{
		Query:   fmt.Sprintf("bias year=%d black_total=%d white_total=%d", year, m.BlackTotal, m.WhiteTotal),
		Columns: []string{"gender", "black", "white", "combined"},
	}
	female := m.Cells[sqf.RowFemale]
	male := m.Cells[sqf.RowMale]
	r.Append("F", female[sqf.ColBlack], female[sqf.ColWhite], female[sqf.ColCombined])
	r.Append("M", male[sqf.ColBlack], male[sqf.ColWhite], male[sqf.ColCombined])
	return r
}

// Increase builds the result of CrimeIncrease.
func Increase(description string, year1, year2 int, change float64) *Result {
	r := &Result{
		Query:   fmt.Sprintf("increase description=%q", description),
		Columns: []string{"description", "year1", "year2", "change_pct_points"},
	}
	r.Append(description, year1, year2, change)
	return r
}

// Borough builds the result of MostCommonBorough with the per-borough counts.
func Borough(year int, counts sqf.BoroughCounts) *Result {
	r := &Result{
		Query:   fmt.Sprintf("borough year=%d most_common=%s", year, counts.Max()),
		Columns: []string{"borough", "stops", "most_common"},
	}
	best := counts.Max()
	for _, b := range sqf.Boroughs() {
		r.Append(b.String(), counts[b], b == best)
	}
	return r
}

// Summary builds the result of Database.Summary for several years.
func Summary(summaries []sqf.YearSummary) *Result {
	r := &Result{
		Query:   "summary",
		Columns: []string{"year", "stops", "frisked", "arrested"},
	}
	for _, s := range summaries {
		r.Append(s.Year, s.Total, s.Frisked, s.Arrested)
	}
	return r
}

// =============================================================================
// Struct conversion
// =============================================================================

// ToStruct converts r to a protobuf Struct:
//
//	{"query": "...", "columns": [...], "rows": [{"col": value, ...}, ...]}
func (r *Result) ToStruct() (*structpb.Struct, error) {
	columns := make([]any, len(r.Columns))
	for i, c := range r.Columns {
		columns[i] = c
	}

	rows := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		obj := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			if j < len(row) {
				obj[col] = normalize(row[j])
			} else {
				obj[col] = nil
			}
		}
		rows[i] = obj
	}

	return structpb.NewStruct(map[string]any{
		"query":   r.Query,
		"columns": columns,
		"rows":    rows,
	})
}

// FromStruct is the inverse of ToStruct. Numbers come back as float64.
func FromStruct(s *structpb.Struct) (*Result, error) {
	fields := s.GetFields()

	r := &Result{Query: fields["query"].GetStringValue()}

	for _, v := range fields["columns"].GetListValue().GetValues() {
		r.Columns = append(r.Columns, v.GetStringValue())
	}

	for i, v := range fields["rows"].GetListValue().GetValues() {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, fmt.Errorf("row %d is not an object", i)
		}
		row := make([]any, len(r.Columns))
		for j, col := range r.Columns {
			row[j] = obj.GetFields()[col].AsInterface()
		}
		r.Rows = append(r.Rows, row)
	}

	return r, nil
}

// normalize maps values structpb cannot hold onto ones it can.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
