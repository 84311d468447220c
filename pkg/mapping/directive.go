package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

// DirectiveKind selects how a value is rendered into a cell.
type DirectiveKind int

const (
	DirectiveRaw          DirectiveKind = iota // numbers as numeric cells, text as text
	DirectiveNumber                            // number:<p>
	DirectiveSigned                            // signed:<p>
	DirectiveText                              // text:<n>
	DirectiveDecimalComma                      // decimal-comma:<p>
	DirectiveDate                              // date:<layout>
)

const maxPrecision = 15

// ISODate is the layout of date fields in the protocol document.
const ISODate = "2006-01-02"

// Directive is a parsed format string.
type Directive struct {
	Kind      DirectiveKind
	Precision int    // number, signed, decimal-comma
	Width     int    // text
	Layout    string // date, Go time layout
	source    string
}

func (d Directive) String() string {
	return d.source
}

// ParseDirective parses a rule format. The empty string is the raw format.
func ParseDirective(s string) (Directive, error) {
	if s == "" {
		return Directive{Kind: DirectiveRaw}, nil
	}

	name, arg, ok := strings.Cut(s, ":")
	if !ok || arg == "" {
		return Directive{}, fmt.Errorf("format %q: missing argument", s)
	}

	d := Directive{source: s}
	switch name {
	case "number":
		d.Kind = DirectiveNumber
	case "signed":
		d.Kind = DirectiveSigned
	case "decimal-comma":
		d.Kind = DirectiveDecimalComma
	case "text":
		d.Kind = DirectiveText
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return Directive{}, fmt.Errorf("format %q: width must be a positive integer", s)
		}
		d.Width = n
		return d, nil
	case "date":
		d.Kind = DirectiveDate
		d.Layout = arg
		return d, nil
	default:
		return Directive{}, fmt.Errorf("format %q: unknown directive %q", s, name)
	}

	p, err := strconv.Atoi(arg)
	if err != nil || p < 0 || p > maxPrecision {
		return Directive{}, fmt.Errorf("format %q: precision must be 0..%d", s, maxPrecision)
	}
	d.Precision = p
	return d, nil
}

// CellKind is the type of a rendered cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a rendered value ready to be written into a worksheet.
type Cell struct {
	Kind      CellKind
	Number    float64
	Precision int // decimals for numeric cells, -1 for shortest
	Text      string
}

// Apply renders v. Values that do not fit the directive, such as text under
// a numeric format, are written as text unchanged.
func (d Directive) Apply(v protocol.Value) Cell {
	if v.IsEmpty() {
		return Cell{Kind: CellEmpty}
	}

	switch d.Kind {
	case DirectiveNumber, DirectiveSigned, DirectiveDecimalComma:
		f, ok := v.Float()
		if !ok {
			break
		}
		switch d.Kind {
		case DirectiveNumber:
			return Cell{Kind: CellNumber, Number: round(f, d.Precision), Precision: d.Precision}
		case DirectiveSigned:
			return Cell{Kind: CellText, Text: fmt.Sprintf("%+.*f", d.Precision, f)}
		default:
			s := strconv.FormatFloat(f, 'f', d.Precision, 64)
			return Cell{Kind: CellText, Text: strings.Replace(s, ".", ",", 1)}
		}
	case DirectiveText:
		return Cell{Kind: CellText, Text: truncate(v.String(), d.Width)}
	case DirectiveDate:
		if t, err := time.Parse(ISODate, strings.TrimSpace(v.String())); err == nil {
			return Cell{Kind: CellText, Text: t.Format(d.Layout)}
		}
	case DirectiveRaw:
		if v.Kind == protocol.ValueNumber {
			return Cell{Kind: CellNumber, Number: v.Number, Precision: -1}
		}
	}
	return Cell{Kind: CellText, Text: v.String()}
}

func round(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
