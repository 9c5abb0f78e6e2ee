package source

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/sqf"
	"github.com/xtxerr/friskstat/internal/storage/parquet"
	tu "github.com/xtxerr/friskstat/internal/testing"
)

func TestCSVReader_SkipsHeader(t *testing.T) {
	stops := tu.Scenario()
	r := NewCSVReader(strings.NewReader(tu.CSV(stops...)), 0)

	rows, err := ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	for i, row := range rows {
		if row.Line != i+1 {
			t.Errorf("row %d: expected line %d, got %d", i, i+1, row.Line)
		}
		if len(row.Fields) != sqf.MinFields {
			t.Errorf("row %d: expected %d fields, got %d", i, sqf.MinFields, len(row.Fields))
		}
	}
	if rows[0].Fields[sqf.FieldLocation] != "Brooklyn" {
		t.Errorf("unexpected location %q", rows[0].Fields[sqf.FieldLocation])
	}
}

func TestCSVReader_EmptyAndHeaderOnly(t *testing.T) {
	for _, input := range []string{"", "year,pct,ser_num\n"} {
		r := NewCSVReader(strings.NewReader(input), 0)
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("input %q: expected io.EOF, got %v", input, err)
		}
	}
}

func TestCSVReader_BlankLinesAndCRLF(t *testing.T) {
	stop := tu.Stop{Year: 2012, Location: "Queens"}
	input := tu.Header() + "\r\n\r\n" + stop.Line() + "\r\n\n"

	rows, err := ReadAll(NewCSVReader(strings.NewReader(input), 0))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Line != 2 {
		t.Errorf("expected line 2 (after a blank line), got %d", rows[0].Line)
	}
	if loc := rows[0].Fields[sqf.FieldLocation]; loc != "Queens" {
		t.Errorf("expected trailing CR stripped, got %q", loc)
	}
}

func TestCSVReader_LineTooLong(t *testing.T) {
	input := "header\n" + strings.Repeat("x", 200) + "\n"
	_, err := NewCSVReader(strings.NewReader(input), 64).Next()
	if err == nil || err == io.EOF {
		t.Fatalf("expected scanner error, got %v", err)
	}
}

func TestSplitLine_NoQuoting(t *testing.T) {
	got := SplitLine(`2012,"A, B",C`)
	if len(got) != 4 {
		t.Fatalf("expected naive split into 4 fields, got %d: %q", len(got), got)
	}
	if got[1] != `"A` {
		t.Errorf("quotes should be kept verbatim, got %q", got[1])
	}
}

func TestLoad_MultipleFilesInOrder(t *testing.T) {
	a := tu.WriteCSV(t, "a.csv",
		tu.Stop{Year: 2012, Description: "a1", Race: "B"},
		tu.Stop{Year: 2012, Description: "a2", Race: "B"},
	)
	b := tu.WriteCSV(t, "b.csv",
		tu.Stop{Year: 2012, Description: "b1", Race: "B"},
		tu.Stop{Year: 2013, Description: "b2", Race: "W"},
	)

	db := sqf.New()
	stats, err := Load(context.Background(), db, []string{a, b}, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Records != 4 {
		t.Errorf("expected 4 records, got %d", stats.Records)
	}

	got := db.PopulationStopped(2012, "B")
	var descs []string
	for _, r := range got {
		descs = append(descs, r.Description())
	}
	if strings.Join(descs, ",") != "a1,a2,b1" {
		t.Errorf("expected argument order a1,a2,b1, got %v", descs)
	}
}

func TestLoad_AbortAndSkip(t *testing.T) {
	content := tu.CSV(tu.Stop{Year: 2012}, tu.Stop{Year: 2013}) + "notayear,x\n"
	path := tu.WriteFile(t, "bad.csv", content)

	db := sqf.New()
	_, err := Load(context.Background(), db, []string{path}, Options{OnError: sqf.PolicyAbort})
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Errorf("expected line 3, got %d", pe.Line)
	}

	db = sqf.New()
	stats, err := Load(context.Background(), db, []string{path}, Options{OnError: sqf.PolicySkip})
	if err != nil {
		t.Fatalf("Load with skip: %v", err)
	}
	if stats.Skipped != 1 || stats.Records != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.csv")

	_, err := Load(context.Background(), sqf.New(), []string{missing}, Options{})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_NoPaths(t *testing.T) {
	_, err := Load(context.Background(), sqf.New(), nil, Options{})
	if !errors.Is(err, errors.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	path := tu.WriteCSV(t, "a.csv", tu.Scenario()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, sqf.New(), []string{path}, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_Parquet(t *testing.T) {
	stops := tu.Scenario()
	path := filepath.Join(t.TempDir(), "scenario.parquet")

	w, err := parquet.NewRecordWriter(path, parquet.DefaultOptions())
	if err != nil {
		t.Fatalf("NewRecordWriter: %v", err)
	}
	for _, s := range stops {
		if err := w.Write([]sqf.Record{s.Record()}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := sqf.New()
	stats, err := Load(context.Background(), db, []string{path}, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.Records != 3 {
		t.Errorf("expected 3 records, got %d", stats.Records)
	}
	if b := db.MostCommonBorough(2013); b != sqf.Queens {
		t.Errorf("expected Queens, got %v", b)
	}
}

func TestLoad_ParquetErrors(t *testing.T) {
	notParquet := tu.WriteCSV(t, "stops.parquet", tu.Scenario()...)
	missing := filepath.Join(t.TempDir(), "missing.parquet")

	_, err := Load(context.Background(), sqf.New(), []string{notParquet}, Options{})
	if err == nil {
		t.Error("expected error for a CSV file named .parquet")
	}

	_, err = Load(context.Background(), sqf.New(), []string{missing}, Options{})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseFormatAndDetect(t *testing.T) {
	if f, err := ParseFormat("PARQUET"); err != nil || f != FormatParquet {
		t.Errorf("ParseFormat(PARQUET) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); !errors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	if Detect("x/stops.Parquet", FormatAuto) != FormatParquet {
		t.Error("expected parquet by extension")
	}
	if Detect("x/stops.txt", FormatAuto) != FormatCSV {
		t.Error("expected csv fallback")
	}
	if Detect("x/stops.parquet", FormatCSV) != FormatCSV {
		t.Error("explicit format should win")
	}
}
