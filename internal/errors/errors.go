// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Process exit codes for the friskstat CLI
// - Sentinel errors for all error conditions
// - Typed errors for row parsing, year ranges and missing data
// - Error category checking functions
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
	"strconv"
)

// ============================================================================
// Exit codes - returned by the CLI for each error category
// ============================================================================

const (
	CodeOK              = 0
	CodeUnknown         = 1
	CodeInvalidArgument = 2
	CodeParse           = 3
	CodeNoData          = 4
	CodeInvalidRange    = 5
	CodeInvalidConfig   = 6
	CodeNotFound        = 7
	CodeInternal        = 8
)

// CodeName returns a human-readable name for an exit code.
func CodeName(code int) string {
	switch code {
	case CodeOK:
		return "OK"
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeParse:
		return "Parse"
	case CodeNoData:
		return "NoData"
	case CodeInvalidRange:
		return "InvalidRange"
	case CodeInvalidConfig:
		return "InvalidConfig"
	case CodeNotFound:
		return "NotFound"
	case CodeInternal:
		return "Internal"
	default:
		return fmt.Sprintf("Code(%d)", code)
	}
}

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Ingestion errors
	ErrParse        = errors.New("parse error")
	ErrShortRow     = errors.New("row has too few fields")
	ErrYearMismatch = errors.New("record year does not match bucket year")

	// Query errors
	ErrInvalidRange = errors.New("invalid year range")
	ErrNoData       = errors.New("no data for year")

	// Validation errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidFormat   = errors.New("invalid format")

	// Not found
	ErrNotFound = errors.New("not found")

	// Internal errors
	ErrInternal = errors.New("internal error")
	ErrDatabase = errors.New("database error")
)

// ============================================================================
// Typed errors
// ============================================================================

// ParseError reports a raw row that could not be turned into a record.
// Line is the 1-based data line (header excluded); 0 when unknown.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	msg := "parse"
	if e.Line > 0 {
		msg += " line " + strconv.Itoa(e.Line)
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" (%q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrParse and the underlying cause to errors.Is/As.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// InvalidRangeError is returned when a comparison needs year1 < year2.
type InvalidRangeError struct {
	Year1 int
	Year2 int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("year %d must be before year %d: %v", e.Year1, e.Year2, ErrInvalidRange)
}

func (e *InvalidRangeError) Unwrap() error { return ErrInvalidRange }

// NoDataError is returned by numeric queries when a year has no records.
type NoDataError struct {
	Year int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%v %d", ErrNoData, e.Year)
}

func (e *NoDataError) Unwrap() error { return ErrNoData }

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// New is a convenience wrapper for errors.New
var New = errors.New

// IsParse returns true if err is a row parsing error.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrShortRow)
}

// IsNoData returns true if err reports a year without records.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrUnknownCommand) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidFormat)
}

// ============================================================================
// Error to exit code mapping
// ============================================================================

// ErrorToCode maps an error to its process exit code.
func ErrorToCode(err error) int {
	if err == nil {
		return CodeOK
	}

	var coded interface{ ExitCode() int }
	if As(err, &coded) {
		return coded.ExitCode()
	}

	switch {
	case IsParse(err):
		return CodeParse
	case Is(err, ErrInvalidRange):
		return CodeInvalidRange
	case IsNoData(err):
		return CodeNoData
	case Is(err, ErrInvalidConfig), Is(err, ErrMissingField):
		return CodeInvalidConfig
	case IsValidation(err):
		return CodeInvalidArgument
	case Is(err, ErrNotFound):
		return CodeNotFound
	case Is(err, ErrInternal), Is(err, ErrDatabase):
		return CodeInternal
	default:
		return CodeUnknown
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewValidation creates a configuration validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidArgument creates an invalid argument error.
func NewInvalidArgument(name string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", name, value, reason, ErrInvalidArgument)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
