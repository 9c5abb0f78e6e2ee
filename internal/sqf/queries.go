package sqf

import (
	"strings"

	"github.com/xtxerr/friskstat/internal/errors"
)

// =============================================================================
// Result Types
// =============================================================================

// Rates holds the frisked and arrested shares of a year's stops, 0–100.
type Rates struct {
	Frisked  float64
	Arrested float64
}

// GenderMatrix rows and columns.
const (
	RowFemale = 0
	RowMale   = 1

	ColBlack    = 0
	ColWhite    = 1
	ColCombined = 2
)

// GenderMatrix is the result of GenderBias.
//
// Each Black/White cell is half the within-race share of that gender as a
// percentage, so it lies in [0, 50]. The combined column is the sum of the
// Black and White cells in the same row. When a race has no stops its cells
// are 0 and its total is 0.
type GenderMatrix struct {
	Cells      [2][3]float64
	BlackTotal int
	WhiteTotal int
}

// YearSummary counts a year's stops.
type YearSummary struct {
	Year     int
	Total    int
	Frisked  int
	Arrested int
}

// =============================================================================
// Queries
// =============================================================================

// PopulationStopped returns the year's records whose race equals race
// exactly, in ingestion order. A year without records yields an empty slice.
func (d *Database) PopulationStopped(year int, race string) []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := []Record{}
	b := d.bucket(year)
	if b == nil {
		return result
	}

	for _, r := range b.records {
		if r.race == race {
			result = append(result, r)
		}
	}
	return result
}

// FriskedVsArrested returns the percentage of the year's stops that were
// frisked and the percentage that ended in arrest.
// A missing or empty year returns a NoDataError.
func (d *Database) FriskedVsArrested(year int) (Rates, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b := d.bucket(year)
	if b == nil || b.Len() == 0 {
		return Rates{}, &errors.NoDataError{Year: year}
	}

	var frisked, arrested int
	for _, r := range b.records {
		if r.frisked {
			frisked++
		}
		if r.arrested {
			arrested++
		}
	}

	total := float64(b.Len())
	return Rates{
		Frisked:  float64(frisked) * 100 / total,
		Arrested: float64(arrested) * 100 / total,
	}, nil
}

// raceTally counts stops of one race by gender.
type raceTally struct {
	total  int
	male   int
	female int
}

func (t *raceTally) add(gender string) {
	t.total++
	switch gender {
	case GenderMale:
		t.male++
	case GenderFemale:
		t.female++
	}
}

// halfShare returns (n / total) × 50, or 0 when total is 0.
func halfShare(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 0.5 * 100
}

// GenderBias compares the gender split of Black and White stops in year.
// See GenderMatrix for the layout. A missing year returns a NoDataError.
func (d *Database) GenderBias(year int) (GenderMatrix, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b := d.bucket(year)
	if b == nil {
		return GenderMatrix{}, &errors.NoDataError{Year: year}
	}

	var black, white raceTally
	for _, r := range b.records {
		switch r.race {
		case RaceBlack:
			black.add(r.gender)
		case RaceWhite:
			white.add(r.gender)
		}
	}

	var m GenderMatrix
	m.BlackTotal = black.total
	m.WhiteTotal = white.total

	m.Cells[RowFemale][ColBlack] = halfShare(black.female, black.total)
	m.Cells[RowFemale][ColWhite] = halfShare(white.female, white.total)
	m.Cells[RowMale][ColBlack] = halfShare(black.male, black.total)
	m.Cells[RowMale][ColWhite] = halfShare(white.male, white.total)

	for row := range m.Cells {
		m.Cells[row][ColCombined] = m.Cells[row][ColBlack] + m.Cells[row][ColWhite]
	}

	return m, nil
}

// CrimeIncrease returns the change, in percentage points, of the share of
// stops whose description contains substr, from year1 to year2.
// A negative result is a decrease.
//
// year1 must be before year2, otherwise an InvalidRangeError is returned.
// If either year has no records a NoDataError names the first such year.
func (d *Database) CrimeIncrease(substr string, year1, year2 int) (float64, error) {
	if year1 >= year2 {
		return 0, &errors.InvalidRangeError{Year1: year1, Year2: year2}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	f1, err := d.descriptionShare(substr, year1)
	if err != nil {
		return 0, err
	}
	f2, err := d.descriptionShare(substr, year2)
	if err != nil {
		return 0, err
	}

	return (f2 - f1) * 100, nil
}

// descriptionShare returns the fraction of year's stops whose description
// contains substr. Callers hold d.mu.
func (d *Database) descriptionShare(substr string, year int) (float64, error) {
	b := d.bucket(year)
	if b == nil || b.Len() == 0 {
		return 0, &errors.NoDataError{Year: year}
	}

	n := b.count(func(r Record) bool {
		return strings.Contains(r.description, substr)
	})
	return float64(n) / float64(b.Len()), nil
}

// BoroughCounts counts the year's stops per borough. Locations that are not
// a borough name are ignored.
func (d *Database) BoroughCounts(year int) BoroughCounts {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var counts BoroughCounts
	b := d.bucket(year)
	if b == nil {
		return counts
	}

	for _, r := range b.records {
		if borough, ok := MatchBorough(r.location); ok {
			counts[borough]++
		}
	}
	return counts
}

// MostCommonBorough returns the borough with the most stops in year.
// Ties go to the earliest borough in the order Brooklyn, Manhattan, Bronx,
// Queens, Staten Island; a year without matching stops yields Brooklyn.
func (d *Database) MostCommonBorough(year int) Borough {
	return d.BoroughCounts(year).Max()
}

// Summary counts the year's stops, frisks and arrests.
func (d *Database) Summary(year int) (YearSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	b := d.bucket(year)
	if b == nil {
		return YearSummary{Year: year}, &errors.NoDataError{Year: year}
	}

	s := YearSummary{Year: year, Total: b.Len()}
	for _, r := range b.records {
		if r.frisked {
			s.Frisked++
		}
		if r.arrested {
			s.Arrested++
		}
	}
	return s, nil
}
