package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldUnknown is returned for references outside the document schema.
	ErrFieldUnknown = errors.New("unknown field")

	// ErrDerivedField is returned when writing a computed field.
	ErrDerivedField = errors.New("field is derived and cannot be set")

	// ErrInvalidValue is returned when a value does not fit the field type.
	ErrInvalidValue = errors.New("invalid value")

	// ErrMissingNominal is returned when a deviation is requested for a row
	// without nominal value.
	ErrMissingNominal = errors.New("nominal value missing")
)

// UnknownFieldError names a reference that does not resolve.
type UnknownFieldError struct {
	Field string
	Msg   string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q: %s", e.Field, e.Msg)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrFieldUnknown }

// FieldError is a recoverable data-entry error attached to a row field.
type FieldError struct {
	Row   int // 1-based, 0 for header fields
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }
