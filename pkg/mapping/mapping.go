// Package mapping describes where protocol fields go in a spreadsheet.
//
// A RuleSet is a list of rules, each binding one protocol field to one cell
// of the template together with a format directive. No two rules may target
// the same cell.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

var (
	// ErrMappingFieldUnknown is returned for rules naming a field the
	// protocol does not have.
	ErrMappingFieldUnknown = errors.New("mapping references unknown field")

	// ErrInvalidMapping is returned for structurally broken rule sets.
	ErrInvalidMapping = errors.New("invalid mapping")
)

// FieldUnknownError identifies the rule with an unknown field.
type FieldUnknownError struct {
	Rule  int
	Field string
	Err   error
}

func (e *FieldUnknownError) Error() string {
	return fmt.Sprintf("mapping rule %d: unknown field %q", e.Rule, e.Field)
}

func (e *FieldUnknownError) Unwrap() error { return e.Err }

func (e *FieldUnknownError) Is(target error) bool { return target == ErrMappingFieldUnknown }

// RuleError reports any other problem with a rule.
type RuleError struct {
	Rule int
	Msg  string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("mapping rule %d: %s", e.Rule, e.Msg)
}

func (e *RuleError) Is(target error) bool { return target == ErrInvalidMapping }

// Rule binds a protocol field to a cell.
type Rule struct {
	Field  string `json:"field"`
	Sheet  string `json:"sheet,omitempty"` // defaults to the rule set sheet
	Cell   string `json:"cell"`
	Format string `json:"format,omitempty"`
}

// RuleSet is an immutable list of rules.
type RuleSet struct {
	Version int    `json:"version"`
	Sheet   string `json:"sheet,omitempty"` // default sheet, empty for the first sheet
	Rules   []Rule `json:"rules"`
}

// Binding is a validated rule with its parts decoded.
type Binding struct {
	Rule      Rule
	Index     int
	Field     protocol.FieldRef
	Sheet     string // empty for the first sheet of the workbook
	Cell      string // canonical upper-case address
	Directive Directive
}

// Compile validates every rule and returns the decoded bindings in rule
// order. Unknown fields are reported before any other problem.
func (rs *RuleSet) Compile() ([]Binding, error) {
	refs := make([]protocol.FieldRef, len(rs.Rules))
	for i, r := range rs.Rules {
		ref, err := protocol.ParseFieldRef(r.Field)
		if err != nil {
			return nil, &FieldUnknownError{Rule: i, Field: r.Field, Err: err}
		}
		refs[i] = ref
	}

	bindings := make([]Binding, 0, len(rs.Rules))
	seen := make(map[string]int)
	for i, r := range rs.Rules {
		col, row, err := excelize.CellNameToCoordinates(strings.TrimSpace(r.Cell))
		if err != nil {
			return nil, &RuleError{Rule: i, Msg: fmt.Sprintf("invalid cell %q: %v", r.Cell, err)}
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return nil, &RuleError{Rule: i, Msg: fmt.Sprintf("invalid cell %q: %v", r.Cell, err)}
		}

		sheet := r.Sheet
		if sheet == "" {
			sheet = rs.Sheet
		}
		// the empty sheet is only resolved against a workbook at export time
		key := strings.ToLower(sheet) + "!" + cell
		if prev, dup := seen[key]; dup {
			return nil, &RuleError{Rule: i, Msg: fmt.Sprintf("cell %s already used by rule %d", cell, prev)}
		}
		seen[key] = i

		dir, err := ParseDirective(r.Format)
		if err != nil {
			return nil, &RuleError{Rule: i, Msg: err.Error()}
		}

		bindings = append(bindings, Binding{
			Rule:      r,
			Index:     i,
			Field:     refs[i],
			Sheet:     sheet,
			Cell:      cell,
			Directive: dir,
		})
	}
	return bindings, nil
}

// Load reads a rule set file.
func Load(filename string) (*RuleSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping: %w", err)
	}
	defer file.Close()

	rs, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rs, nil
}

// Parse decodes and validates a rule set.
func Parse(r io.Reader) (*RuleSet, error) {
	var rs RuleSet
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if _, err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Save writes rs as JSON.
func (rs *RuleSet) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs)
}
