package tolerance

import (
	"errors"
	"fmt"
)

var (
	// ErrToleranceNotFound is returned when the table has no entry for a fit.
	ErrToleranceNotFound = errors.New("tolerance not found")

	// ErrOutOfRange is returned when the fit exists but no size range
	// contains the nominal value.
	ErrOutOfRange = errors.New("nominal size out of range")

	// ErrInvalidTable is returned by the loaders for inconsistent tables.
	ErrInvalidTable = errors.New("invalid tolerance table")
)

// NotFoundError names the designation that could not be resolved.
type NotFoundError struct {
	Designation string
	Err         error // syntax error, if the designation did not parse
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tolerance not found for %q: %v", e.Designation, e.Err)
	}
	return fmt.Sprintf("tolerance not found for %q", e.Designation)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrToleranceNotFound }

// OutOfRangeError reports a nominal size outside every range of a fit.
type OutOfRangeError struct {
	Fit     Fit
	Nominal float64
	Min     float64 // covered domain of the fit
	Max     float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("nominal %g is outside the ranges of %s (covered [%g, %g))", e.Nominal, e.Fit, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// TableError reports an inconsistency found while loading a table.
type TableError struct {
	Source string
	Entry  int // index of the offending entry, -1 if not applicable
	Msg    string
}

func (e *TableError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("%s: entry %d: %s", e.Source, e.Entry, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

func (e *TableError) Is(target error) bool { return target == ErrInvalidTable }
