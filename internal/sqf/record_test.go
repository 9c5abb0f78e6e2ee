package sqf_test

import (
	"strconv"
	"testing"

	"github.com/xtxerr/friskstat/internal/errors"
	"github.com/xtxerr/friskstat/internal/sqf"
	tu "github.com/xtxerr/friskstat/internal/testing"
)

func TestParseRow(t *testing.T) {
	stop := tu.Stop{
		Year:        2011,
		Description: "ROBBERY",
		Arrested:    true,
		Frisked:     false,
		Gender:      "F",
		Race:        "Q",
		Location:    "staten island",
	}

	r, err := sqf.ParseRow(stop.Fields())
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}

	if r != stop.Record() {
		t.Errorf("got %+v, want %+v", r, stop.Record())
	}
	if r.Year() != 2011 {
		t.Errorf("expected year=2011, got %d", r.Year())
	}
	if !r.Arrested() || r.Frisked() {
		t.Errorf("expected arrested and not frisked, got arrested=%v frisked=%v", r.Arrested(), r.Frisked())
	}
	if r.Location() != "staten island" {
		t.Errorf("location should be kept verbatim, got %q", r.Location())
	}
}

func TestParseRow_FlagsExactY(t *testing.T) {
	fields := tu.Stop{Year: 2012}.Fields()

	for _, v := range []string{"y", "Yes", " Y", "1", ""} {
		fields[sqf.FieldArrested] = v
		fields[sqf.FieldFrisked] = v

		r, err := sqf.ParseRow(fields)
		if err != nil {
			t.Fatalf("ParseRow(%q): %v", v, err)
		}
		if r.Arrested() || r.Frisked() {
			t.Errorf("flag %q should be false", v)
		}
	}
}

func TestParseRow_BadYear(t *testing.T) {
	fields := tu.Stop{Year: 2012}.Fields()
	fields[sqf.FieldYear] = "year"

	_, err := sqf.ParseRow(fields)
	if !errors.Is(err, errors.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !errors.Is(err, strconv.ErrSyntax) {
		t.Errorf("expected strconv cause, got %v", err)
	}

	var pe *errors.ParseError
	if !errors.As(err, &pe) || pe.Field != "year" {
		t.Errorf("expected year ParseError, got %v", err)
	}
}

func TestParseRow_ShortRow(t *testing.T) {
	fields := tu.Stop{Year: 2012}.Fields()[:sqf.FieldLocation]

	_, err := sqf.ParseRow(fields)
	if !errors.Is(err, errors.ErrShortRow) {
		t.Fatalf("expected ErrShortRow, got %v", err)
	}
	if !errors.IsParse(err) {
		t.Error("short row should count as a parse error")
	}
}
