package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedSentinel is returned for negative values that are not one of
	// the documented sentinel codes for the column.
	ErrUnexpectedSentinel = errors.New("unexpected sentinel value")

	// ErrUnknownGranularity is returned when a granularity name or value is not
	// weekly, monthly or annual.
	ErrUnknownGranularity = errors.New("unknown granularity")

	// ErrMissingColumn is returned when a required column is absent from a row.
	ErrMissingColumn = errors.New("missing column")

	errInvalidYear      = errors.New("invalid year")
	errInvalidYearMonth = errors.New("invalid YYYYMM key")
	errInvalidDate      = errors.New("unrecognised date format")
	errNotFinite        = errors.New("value is not finite")
)

// ParseError describes a malformed cell in an input table.
type ParseError struct {
	Source string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: column %q value %q: %v", e.Source, e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DomainError is returned when a transform is evaluated outside its domain,
// e.g. the natural log of a zero deposition total.
type DomainError struct {
	Op    string
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: value %g outside domain", e.Op, e.Value)
}
