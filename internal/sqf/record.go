package sqf

import (
	"strconv"

	"github.com/xtxerr/friskstat/internal/errors"
)

// =============================================================================
// Raw Row Layout
// =============================================================================

// Column positions of the fields a Record is built from.
const (
	FieldYear        = 0
	FieldDescription = 2
	FieldArrested    = 13
	FieldFrisked     = 16
	FieldGender      = 52
	FieldRace        = 66
	FieldLocation    = 71

	// MinFields is the shortest row ParseRow accepts.
	MinFields = FieldLocation + 1
)

// Field codes used by the queries.
const (
	FlagYes = "Y"

	RaceBlack = "B"
	RaceWhite = "W"

	GenderMale   = "M"
	GenderFemale = "F"
)

// =============================================================================
// Record
// =============================================================================

// Record is one stop-and-frisk event. The zero value is not meaningful;
// build records with NewRecord or ParseRow.
type Record struct {
	year        int
	description string
	arrested    bool
	frisked     bool
	gender      string
	race        string
	location    string
}

// NewRecord creates a record from already-derived values.
func NewRecord(year int, description string, arrested, frisked bool, gender, race, location string) Record {
	return Record{
		year:        year,
		description: description,
		arrested:    arrested,
		frisked:     frisked,
		gender:      gender,
		race:        race,
		location:    location,
	}
}

// ParseRow builds a Record from one raw row split into fields.
// Values are taken verbatim; arrested and frisked are true only for an
// exact "Y".
func ParseRow(fields []string) (Record, error) {
	if len(fields) < MinFields {
		return Record{}, &errors.ParseError{
			Value: strconv.Itoa(len(fields)) + " fields",
			Err:   errors.ErrShortRow,
		}
	}

	year, err := strconv.Atoi(fields[FieldYear])
	if err != nil {
		return Record{}, &errors.ParseError{
			Field: "year",
			Value: fields[FieldYear],
			Err:   err,
		}
	}

	return NewRecord(
		year,
		fields[FieldDescription],
		fields[FieldArrested] == FlagYes,
		fields[FieldFrisked] == FlagYes,
		fields[FieldGender],
		fields[FieldRace],
		fields[FieldLocation],
	), nil
}

func (r Record) Year() int           { return r.year }
func (r Record) Description() string { return r.description }
func (r Record) Arrested() bool      { return r.arrested }
func (r Record) Frisked() bool       { return r.frisked }
func (r Record) Gender() string      { return r.gender }
func (r Record) Race() string        { return r.race }
func (r Record) Location() string    { return r.location }
