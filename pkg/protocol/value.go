package protocol

import (
	"math"
	"strconv"
	"strings"
)

// ValueKind tells what a Value holds.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueNumber
	ValueText
)

// Value is the content of one document field.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
}

// Num returns a numeric value.
func Num(v float64) Value {
	return Value{Kind: ValueNumber, Number: v}
}

// Str returns a text value. The empty string yields an empty value.
func Str(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: ValueText, Text: s}
}

// IsEmpty reports whether the field is unset.
func (v Value) IsEmpty() bool {
	return v.Kind == ValueEmpty
}

// Float returns the numeric content. Text is parsed, accepting a decimal
// comma.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Number, true
	case ValueText:
		return ParseNumber(v.Text)
	}
	return 0, false
}

// String returns the shortest exact text form of the value.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueText:
		return v.Text
	}
	return ""
}

// ParseNumber parses a decimal number written with either a point or a
// comma as separator. NaN, infinities and values out of float64 range are
// rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func numberPtr(v float64) *float64 {
	return &v
}
