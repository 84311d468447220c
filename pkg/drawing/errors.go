package drawing

import (
	"errors"
	"fmt"
)

// ErrParse matches every *ParseError with errors.Is.
var ErrParse = errors.New("drawing: parse error")

// ParseError reports a source that cannot be decoded as a drawing.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("drawing: cannot parse %s (line %d): %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("drawing: cannot parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) true.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
