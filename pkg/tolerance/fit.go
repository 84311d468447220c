package tolerance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Grade limits of the ISO 286 standard tolerance grades handled here.
const (
	MinGrade = 1
	MaxGrade = 18
)

// Fit is an ISO fit designation such as "H7" or "js6". Upper-case letters
// denote holes, lower-case letters shafts; the case is kept as written.
type Fit struct {
	Letter string
	Grade  int
}

func (f Fit) String() string {
	return f.Letter + strconv.Itoa(f.Grade)
}

// IsHole reports whether the designation describes a hole.
func (f Fit) IsHole() bool {
	return f.Letter != "" && strings.ToUpper(f.Letter) == f.Letter
}

var fitLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Letters", Pattern: `[A-Za-z]+`},
	{Name: "Grade", Pattern: `[0-9]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

type fitDesignation struct {
	Letters string `@Letters`
	Grade   string `@Grade`
}

var fitParser = participle.MustBuild[fitDesignation](
	participle.Lexer(fitLexer),
	participle.Elide("Whitespace"),
)

// FitSyntaxError reports a malformed fit designation.
type FitSyntaxError struct {
	Input string
	Msg   string
}

func (e *FitSyntaxError) Error() string {
	return fmt.Sprintf("invalid fit designation %q: %s", e.Input, e.Msg)
}

// ParseFit parses a designation of one or two letters followed by a grade.
// Leading zeros in the grade are accepted, so "H07" equals "H7".
func ParseFit(s string) (Fit, error) {
	d, err := fitParser.ParseString("", strings.TrimSpace(s))
	if err != nil {
		return Fit{}, &FitSyntaxError{Input: s, Msg: err.Error()}
	}
	if len(d.Letters) > 2 {
		return Fit{}, &FitSyntaxError{Input: s, Msg: "at most two letters allowed"}
	}
	grade, err := strconv.Atoi(d.Grade)
	if err != nil || grade < MinGrade || grade > MaxGrade {
		return Fit{}, &FitSyntaxError{Input: s, Msg: fmt.Sprintf("grade must be %d..%d", MinGrade, MaxGrade)}
	}
	return Fit{Letter: d.Letters, Grade: grade}, nil
}

// MustParseFit is like ParseFit but panics on error.
func MustParseFit(s string) Fit {
	f, err := ParseFit(s)
	if err != nil {
		panic(err)
	}
	return f
}
