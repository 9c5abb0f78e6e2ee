// Package testing provides test fixtures and helpers for friskstat.
//
// Rows are built at full width so that every column ParseRow reads exists;
// unused columns are left empty.
package testing

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/xtxerr/friskstat/internal/sqf"
)

// Stop describes the fields of one raw row that the data model reads.
type Stop struct {
	Year        int
	Description string
	Arrested    bool
	Frisked     bool
	Gender      string
	Race        string
	Location    string
}

// Fields renders s as a raw row of sqf.MinFields columns.
func (s Stop) Fields() []string {
	fields := make([]string, sqf.MinFields)
	fields[sqf.FieldYear] = strconv.Itoa(s.Year)
	fields[sqf.FieldDescription] = s.Description
	fields[sqf.FieldArrested] = flag(s.Arrested)
	fields[sqf.FieldFrisked] = flag(s.Frisked)
	fields[sqf.FieldGender] = s.Gender
	fields[sqf.FieldRace] = s.Race
	fields[sqf.FieldLocation] = s.Location
	return fields
}

// Line renders s as a comma-joined data line.
func (s Stop) Line() string {
	return strings.Join(s.Fields(), ",")
}

// Record returns the record ParseRow would build from s.
func (s Stop) Record() sqf.Record {
	return sqf.NewRecord(s.Year, s.Description, s.Arrested, s.Frisked, s.Gender, s.Race, s.Location)
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// Rows converts stops into numbered rows, starting at line 1.
func Rows(stops ...Stop) []sqf.Row {
	rows := make([]sqf.Row, len(stops))
	for i, s := range stops {
		rows[i] = sqf.Row{Line: i + 1, Fields: s.Fields()}
	}
	return rows
}

// Header is a placeholder header line of the right width.
func Header() string {
	cols := make([]string, sqf.MinFields)
	for i := range cols {
		cols[i] = "col" + strconv.Itoa(i)
	}
	cols[sqf.FieldYear] = "year"
	cols[sqf.FieldDescription] = "crimsusp"
	cols[sqf.FieldArrested] = "arstmade"
	cols[sqf.FieldFrisked] = "frisked"
	cols[sqf.FieldGender] = "sex"
	cols[sqf.FieldRace] = "race"
	cols[sqf.FieldLocation] = "city"
	return strings.Join(cols, ",")
}

// CSV renders a header line followed by one line per stop.
func CSV(stops ...Stop) string {
	var b strings.Builder
	b.WriteString(Header())
	b.WriteByte('\n')
	for _, s := range stops {
		b.WriteString(s.Line())
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteCSV writes stops as a CSV file in a temp directory and returns its path.
func WriteCSV(t *testing.T, name string, stops ...Stop) string {
	t.Helper()
	return WriteFile(t, name, CSV(stops...))
}

// WriteFile writes content to name in a temp directory and returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// LoadDatabase ingests stops into a new Database and fails the test on error.
func LoadDatabase(t *testing.T, stops ...Stop) *sqf.Database {
	t.Helper()
	db := sqf.New()
	if _, err := db.Ingest(sqf.NewSliceSource(Rows(stops...)), sqf.IngestOptions{}); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	return db
}

// Scenario returns the three stops of the reference scenario: two 2012 stops
// (Black male in Brooklyn, frisked and arrested; White female in the Bronx,
// neither) and one 2013 stop (Black male in Queens, frisked and arrested).
// All three are described "CPW".
func Scenario() []Stop {
	return []Stop{
		{Year: 2012, Description: "CPW", Arrested: true, Frisked: true, Gender: "M", Race: "B", Location: "Brooklyn"},
		{Year: 2012, Description: "CPW", Arrested: false, Frisked: false, Gender: "F", Race: "W", Location: "Bronx"},
		{Year: 2013, Description: "CPW", Arrested: true, Frisked: true, Gender: "M", Race: "B", Location: "Queens"},
	}
}
