// Package validation provides centralized input validation for friskstat
// command arguments.
//
// The domain queries accept any value and report missing data themselves;
// these checks catch arguments that can never match a record, such as a
// race code containing a comma, before a query runs.
package validation

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/xtxerr/friskstat/internal/errors"
)

// =============================================================================
// Year Validation
// =============================================================================

// YearRules bounds accepted years.
type YearRules struct {
	Min int
	Max int
}

// DefaultYearRules accepts any four-digit year.
func DefaultYearRules() YearRules {
	return YearRules{Min: 1000, Max: 9999}
}

// ParseYear parses a year argument with default rules.
func ParseYear(s string) (int, error) {
	return ParseYearWith(s, DefaultYearRules())
}

// ParseYearWith parses a year argument according to rules.
func ParseYearWith(s string, rules YearRules) (int, error) {
	s = strings.TrimSpace(s)
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.NewInvalidArgument("year", s, "not an integer")
	}
	if year < rules.Min || year > rules.Max {
		return 0, errors.NewInvalidArgument("year", s, "out of range "+strconv.Itoa(rules.Min)+"-"+strconv.Itoa(rules.Max))
	}
	return year, nil
}

// =============================================================================
// Field Value Validation
// =============================================================================

// ValidateFieldValue checks a value that is compared against a raw field.
// Fields come from a comma split, so a value containing a comma or a line
// break can never match.
func ValidateFieldValue(name, value string) error {
	if value == "" {
		return errors.NewInvalidArgument(name, value, "cannot be empty")
	}
	for i, r := range value {
		if r == ',' {
			return errors.NewInvalidArgument(name, value, "cannot contain ',' at position "+strconv.Itoa(i))
		}
		if r < 32 || r == 127 {
			return errors.NewInvalidArgument(name, value, "cannot contain control characters at position "+strconv.Itoa(i))
		}
	}
	return nil
}

// ValidateRaceCode checks a race code such as "B" or "W". Codes are matched
// exactly, so surrounding whitespace is rejected rather than trimmed.
func ValidateRaceCode(race string) error {
	if err := ValidateFieldValue("race", race); err != nil {
		return err
	}
	if strings.TrimSpace(race) != race {
		return errors.NewInvalidArgument("race", race, "has surrounding whitespace")
	}
	return nil
}

// ValidateDescription checks a description substring.
func ValidateDescription(substr string) error {
	return ValidateFieldValue("description", substr)
}

// ValidateColumn checks that column is one of allowed.
func ValidateColumn(column string, allowed []string) error {
	if !slices.Contains(allowed, column) {
		return errors.NewInvalidArgument("column", column, "must be one of "+strings.Join(allowed, ", "))
	}
	return nil
}

// =============================================================================
// LIKE Patterns
// =============================================================================

var sqlLikeMetaChars = regexp.MustCompile(`[%_\\]`)

// EscapeLikePattern escapes special characters in a LIKE pattern.
// Use with `ESCAPE '\'`.
func EscapeLikePattern(pattern string) string {
	return sqlLikeMetaChars.ReplaceAllStringFunc(pattern, func(s string) string {
		return "\\" + s
	})
}

// SafeLikeContains creates a safe LIKE contains pattern, matching the same
// values as strings.Contains.
func SafeLikeContains(pattern string) string {
	return "%" + EscapeLikePattern(pattern) + "%"
}
