package export

import (
	"errors"
	"fmt"
)

// ErrTemplateUnavailable is returned when the template cannot be opened or
// lacks a sheet the rules write to.
var ErrTemplateUnavailable = errors.New("template unavailable")

// ErrTemplateOverwrite is returned when the destination of an export is the
// template file.
var ErrTemplateOverwrite = errors.New("export destination is the template")

// TemplateError describes a template problem.
type TemplateError struct {
	Path  string
	Sheet string // set when a sheet is missing
	Err   error
}

func (e *TemplateError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("template %s: sheet %q: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

func (e *TemplateError) Is(target error) bool { return target == ErrTemplateUnavailable }
