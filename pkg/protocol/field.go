package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxRows is the number of measurement rows in a protocol.
const MaxRows = 18

// Header field names.
const (
	HeaderDrawingNumber    = "drawing_number"
	HeaderCustomer         = "customer"
	HeaderOrder            = "order"
	HeaderPosition         = "position"
	HeaderDate             = "date"
	HeaderSurfaceTreatment = "surface_treatment"
	HeaderRemarks          = "remarks"
	HeaderInspector        = "inspector"
)

// Row sub-field names.
const (
	RowNominal    = "nominal"
	RowFit        = "fit"
	RowUpper      = "upper"
	RowLower      = "lower"
	RowMax        = "max"
	RowMin        = "min"
	RowTarget     = "target"
	RowMeasured   = "measured"
	RowInstrument = "instrument"
	RowNotes      = "notes"
)

var headerNames = []string{
	HeaderDrawingNumber, HeaderCustomer, HeaderOrder, HeaderPosition,
	HeaderDate, HeaderSurfaceTreatment, HeaderRemarks, HeaderInspector,
}

var rowNames = []string{
	RowNominal, RowFit, RowUpper, RowLower, RowMax, RowMin,
	RowTarget, RowMeasured, RowInstrument, RowNotes,
}

var derivedNames = map[string]bool{
	RowUpper: true, RowLower: true, RowMax: true, RowMin: true, RowTarget: true,
}

// FieldRef addresses one field of a Document: "header.<name>" or
// "row[<n>].<name>" with n counted from 1.
type FieldRef struct {
	Row  int // 0 for header fields
	Name string
}

// HeaderField returns a reference to a header field.
func HeaderField(name string) FieldRef {
	return FieldRef{Name: name}
}

// RowField returns a reference to a field of row n (1-based).
func RowField(n int, name string) FieldRef {
	return FieldRef{Row: n, Name: name}
}

// IsHeader reports whether r addresses a header field.
func (r FieldRef) IsHeader() bool {
	return r.Row == 0
}

// Derived reports whether the field is computed by Calculate.
func (r FieldRef) Derived() bool {
	return r.Row > 0 && derivedNames[r.Name]
}

func (r FieldRef) String() string {
	if r.IsHeader() {
		return "header." + r.Name
	}
	return "row[" + strconv.Itoa(r.Row) + "]." + r.Name
}

// Validate checks r against the document schema.
func (r FieldRef) Validate() error {
	names := rowNames
	if r.IsHeader() {
		names = headerNames
	} else if r.Row < 1 || r.Row > MaxRows {
		return &UnknownFieldError{Field: r.String(), Msg: fmt.Sprintf("row must be 1..%d", MaxRows)}
	}
	for _, n := range names {
		if n == r.Name {
			return nil
		}
	}
	return &UnknownFieldError{Field: r.String(), Msg: "no such field"}
}

// Fields returns every field of the schema: header fields first, then the
// row fields in row order.
func Fields() []FieldRef {
	refs := make([]FieldRef, 0, len(headerNames)+MaxRows*len(rowNames))
	for _, n := range headerNames {
		refs = append(refs, HeaderField(n))
	}
	for row := 1; row <= MaxRows; row++ {
		for _, n := range rowNames {
			refs = append(refs, RowField(row, n))
		}
	}
	return refs
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-z][a-z_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[.\[\]]`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

type refAST struct {
	Header *string    `  "header" "." @Ident`
	Row    *rowRefAST `| @@`
}

type rowRefAST struct {
	Index int    `"row" "[" @Int "]"`
	Name  string `"." @Ident`
}

var refParser = participle.MustBuild[refAST](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseFieldRef parses and validates a field reference.
func ParseFieldRef(s string) (FieldRef, error) {
	ast, err := refParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return FieldRef{}, &UnknownFieldError{Field: s, Msg: err.Error()}
	}

	var ref FieldRef
	if ast.Header != nil {
		ref = HeaderField(*ast.Header)
	} else {
		ref = RowField(ast.Row.Index, ast.Row.Name)
		if ref.Row < 1 {
			return FieldRef{}, &UnknownFieldError{Field: s, Msg: fmt.Sprintf("row must be 1..%d", MaxRows)}
		}
	}
	if err := ref.Validate(); err != nil {
		return FieldRef{}, err
	}
	return ref, nil
}

// MustParseFieldRef is like ParseFieldRef but panics on error.
func MustParseFieldRef(s string) FieldRef {
	ref, err := ParseFieldRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}
