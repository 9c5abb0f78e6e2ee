package sqf

import (
	"fmt"
	"strings"
)

// Borough is one of the five NYC boroughs, in a fixed order that also
// breaks ties in MostCommonBorough.
type Borough int

const (
	Brooklyn Borough = iota
	Manhattan
	Bronx
	Queens
	StatenIsland

	numBoroughs = 5
)

var boroughNames = [numBoroughs]string{
	"Brooklyn",
	"Manhattan",
	"Bronx",
	"Queens",
	"Staten Island",
}

// String returns the borough's display name.
func (b Borough) String() string {
	if b < 0 || int(b) >= numBoroughs {
		return fmt.Sprintf("Borough(%d)", int(b))
	}
	return boroughNames[b]
}

// Boroughs returns all boroughs in their fixed order.
func Boroughs() []Borough {
	return []Borough{Brooklyn, Manhattan, Bronx, Queens, StatenIsland}
}

// MatchBorough reports which borough location names, ignoring case.
// Anything other than an exact (case-insensitive) borough name is no match.
func MatchBorough(location string) (Borough, bool) {
	for i, name := range boroughNames {
		if strings.EqualFold(location, name) {
			return Borough(i), true
		}
	}
	return 0, false
}

// BoroughCounts holds one stop count per borough, indexed by Borough.
type BoroughCounts [numBoroughs]int

// Max returns the borough with the strictly greatest count. Ties go to the
// earliest borough in the fixed order; all zero yields Brooklyn.
func (c BoroughCounts) Max() Borough {
	best := Brooklyn
	for i := 1; i < numBoroughs; i++ {
		if c[i] > c[best] {
			best = Borough(i)
		}
	}
	return best
}

// Total returns the number of matched stops.
func (c BoroughCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
