package mapping

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

func TestParseDirective(t *testing.T) {
	tests := []struct {
		input string
		want  Directive
	}{
		{"", Directive{Kind: DirectiveRaw}},
		{"number:3", Directive{Kind: DirectiveNumber, Precision: 3, source: "number:3"}},
		{"signed:0", Directive{Kind: DirectiveSigned, Precision: 0, source: "signed:0"}},
		{"text:12", Directive{Kind: DirectiveText, Width: 12, source: "text:12"}},
		{"decimal-comma:4", Directive{Kind: DirectiveDecimalComma, Precision: 4, source: "decimal-comma:4"}},
		{"date:02.01.2006 15:04", Directive{Kind: DirectiveDate, Layout: "02.01.2006 15:04", source: "date:02.01.2006 15:04"}},
	}

	for _, tt := range tests {
		got, err := ParseDirective(tt.input)
		if err != nil {
			t.Errorf("ParseDirective(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirective(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{"number", "number:", "number:x", "number:-1", "number:16", "text:0", "bold:1", "date:"} {
		if _, err := ParseDirective(bad); err == nil {
			t.Errorf("ParseDirective(%q): expected error", bad)
		}
	}
}

func TestDirectiveApply(t *testing.T) {
	tests := []struct {
		format string
		value  protocol.Value
		want   Cell
	}{
		{"", protocol.Value{}, Cell{Kind: CellEmpty}},
		{"", protocol.Num(25.5), Cell{Kind: CellNumber, Number: 25.5, Precision: -1}},
		{"", protocol.Str("ACME"), Cell{Kind: CellText, Text: "ACME"}},
		{"number:2", protocol.Num(24.98749), Cell{Kind: CellNumber, Number: 24.99, Precision: 2}},
		{"number:2", protocol.Str("12,346"), Cell{Kind: CellNumber, Number: 12.35, Precision: 2}},
		{"number:2", protocol.Str("n/a"), Cell{Kind: CellText, Text: "n/a"}},
		{"signed:3", protocol.Num(0.021), Cell{Kind: CellText, Text: "+0.021"}},
		{"signed:3", protocol.Num(-0.013), Cell{Kind: CellText, Text: "-0.013"}},
		{"signed:3", protocol.Num(0), Cell{Kind: CellText, Text: "+0.000"}},
		{"decimal-comma:4", protocol.Num(24.9935), Cell{Kind: CellText, Text: "24,9935"}},
		{"text:5", protocol.Str("Bügelmessschraube"), Cell{Kind: CellText, Text: "Bügel"}},
		{"text:5", protocol.Str("abc"), Cell{Kind: CellText, Text: "abc"}},
		{"date:02.01.2006", protocol.Str("2025-03-14"), Cell{Kind: CellText, Text: "14.03.2025"}},
		{"date:02.01.2006", protocol.Str("14.03.2025"), Cell{Kind: CellText, Text: "14.03.2025"}},
	}

	for _, tt := range tests {
		d, err := ParseDirective(tt.format)
		if err != nil {
			t.Fatalf("ParseDirective(%q) failed: %v", tt.format, err)
		}
		if diff := cmp.Diff(tt.want, d.Apply(tt.value)); diff != "" {
			t.Errorf("%q applied to %+v mismatch (-want +got):\n%s", tt.format, tt.value, diff)
		}
	}
}

func TestCompile(t *testing.T) {
	rs := &RuleSet{
		Sheet: "Protocol",
		Rules: []Rule{
			{Field: "header.customer", Cell: "b6"},
			{Field: "row[1].nominal", Sheet: "Other", Cell: "D17", Format: "number:3"},
		},
	}
	bindings, err := rs.Compile()
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(bindings) != 2 {
		t.Fatalf("got %d bindings", len(bindings))
	}
	if b := bindings[0]; b.Cell != "B6" || b.Sheet != "Protocol" || b.Field != protocol.HeaderField(protocol.HeaderCustomer) {
		t.Errorf("binding 0 = %+v", b)
	}
	if b := bindings[1]; b.Sheet != "Other" || b.Directive.Kind != DirectiveNumber || b.Field != protocol.RowField(1, protocol.RowNominal) {
		t.Errorf("binding 1 = %+v", b)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantErr error
		rule    int
	}{
		{"unknown field", []Rule{{Field: "header.customer", Cell: "A1"}, {Field: "row[1].colour", Cell: "A2"}}, ErrMappingFieldUnknown, 1},
		{"row out of range", []Rule{{Field: "row[19].nominal", Cell: "A1"}}, ErrMappingFieldUnknown, 0},
		{"unknown field wins over bad cell", []Rule{{Field: "header.customer", Cell: "??"}, {Field: "x", Cell: "A2"}}, ErrMappingFieldUnknown, 1},
		{"duplicate cell", []Rule{{Field: "header.customer", Cell: "A1"}, {Field: "header.order", Cell: "a1"}}, ErrInvalidMapping, 1},
		{"invalid cell", []Rule{{Field: "header.customer", Cell: "1A"}}, ErrInvalidMapping, 0},
		{"bad directive", []Rule{{Field: "header.customer", Cell: "A1", Format: "bold:1"}}, ErrInvalidMapping, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := &RuleSet{Rules: tt.rules}
			_, err := rs.Compile()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var fe *FieldUnknownError
			var re *RuleError
			switch {
			case errors.As(err, &fe):
				if fe.Rule != tt.rule {
					t.Errorf("rule = %d, want %d", fe.Rule, tt.rule)
				}
			case errors.As(err, &re):
				if re.Rule != tt.rule {
					t.Errorf("rule = %d, want %d", re.Rule, tt.rule)
				}
			default:
				t.Errorf("unexpected error type %T", err)
			}
		})
	}
}

func TestSameCellOnDifferentSheets(t *testing.T) {
	rs := &RuleSet{Rules: []Rule{
		{Field: "header.customer", Sheet: "One", Cell: "A1"},
		{Field: "header.order", Sheet: "Two", Cell: "A1"},
	}}
	if _, err := rs.Compile(); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.json")
	content := `{"version": 1, "sheet": "Messprotokoll", "rules": [
		{"field": "header.customer", "cell": "B6"},
		{"field": "row[1].target", "cell": "D18", "format": "number:4"}
	]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rs, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := &RuleSet{Version: 1, Sheet: "Messprotokoll", Rules: []Rule{
		{Field: "header.customer", Cell: "B6"},
		{Field: "row[1].target", Cell: "D18", Format: "number:4"},
	}}
	if diff := cmp.Diff(want, rs); diff != "" {
		t.Errorf("rule set mismatch (-want +got):\n%s", diff)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"rules": [{"field": "header.nope", "cell": "A1"}]}`), 0o644)
	if _, err := Load(bad); !errors.Is(err, ErrMappingFieldUnknown) {
		t.Errorf("expected ErrMappingFieldUnknown, got %v", err)
	}
	if _, err := Parse(strings.NewReader(`{"rules": [], "colour": 1}`)); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestDefaultRuleSet(t *testing.T) {
	rs := Default()
	bindings, err := rs.Compile()
	if err != nil {
		t.Fatalf("default rule set is invalid: %v", err)
	}
	if want := 8 + protocol.MaxRows*10; len(bindings) != want {
		t.Errorf("got %d rules, want %d", len(bindings), want)
	}

	cells := map[string]string{}
	for _, b := range bindings {
		cells[b.Field.String()] = b.Cell
	}
	checks := map[string]string{
		"header.customer":   "B6",
		"header.order":      "G6",
		"header.position":   "K6",
		"header.date":       "M6",
		"row[1].instrument": "D15",
		"row[1].nominal":    "D17",
		"row[1].target":     "D18",
		"row[18].nominal":   "U17",
		"row[18].target":    "U18",
		"row[1].measured":   "D19",
	}
	for field, cell := range checks {
		if cells[field] != cell {
			t.Errorf("%s mapped to %s, want %s", field, cells[field], cell)
		}
	}

	var buf bytes.Buffer
	if err := rs.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	again, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse of saved default failed: %v", err)
	}
	if diff := cmp.Diff(rs, again); diff != "" {
		t.Errorf("saved rule set differs (-want +got):\n%s", diff)
	}
}
