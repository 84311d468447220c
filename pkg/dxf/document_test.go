package dxf

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/vec"
)

// pairs joins group code / value pairs into DXF text.
func pairs(kv ...string) string {
	return strings.Join(kv, "\n") + "\n"
}

const sampleDXF = `  0
SECTION
  2
HEADER
  9
$ACADVER
  1
AC1027
  9
$INSUNITS
 70
     4
  0
ENDSEC
  0
SECTION
  2
TABLES
  0
TABLE
  2
LAYER
  0
ENDTAB
  0
ENDSEC
  0
SECTION
  2
ENTITIES
  0
LINE
  5
1A
  8
0
 10
0.0
 20
0.0
 11
100.0
 21
0.0
  0
DIMENSION
  5
2B
  8
DIM
  1

 10
50.0
 20
20.0
 42
25.0
  0
LWPOLYLINE
 90
3
 10
0
 20
0
 10
1
 20
1
 10
2
 20
0
  0
ENDSEC
  0
EOF
`

func TestReadDocument(t *testing.T) {
	doc, err := Read(strings.NewReader(sampleDXF))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if v := doc.Version(); v != "AC1027" {
		t.Errorf("Version = %q, want AC1027", v)
	}
	if u, ok := doc.HeaderInt("$INSUNITS"); !ok || u != 4 {
		t.Errorf("$INSUNITS = %d, %v; want 4", u, ok)
	}

	var types []string
	for _, e := range doc.Entities {
		types = append(types, e.Type)
	}
	if diff := cmp.Diff([]string{"LINE", "DIMENSION", "LWPOLYLINE"}, types); diff != "" {
		t.Fatalf("entity types mismatch (-want +got):\n%s", diff)
	}

	dim := doc.Entities[1]
	if dim.Handle() != "2B" || dim.Layer() != "DIM" {
		t.Errorf("handle/layer = %q/%q", dim.Handle(), dim.Layer())
	}
	if p, ok := dim.Point(10); !ok || p != (vec.Vec2{X: 50, Y: 20}) {
		t.Errorf("Point(10) = %v, %v", p, ok)
	}
	if m, ok := dim.Float(42); !ok || m != 25 {
		t.Errorf("Float(42) = %v, %v", m, ok)
	}
	if _, ok := dim.Float(13); ok {
		t.Errorf("Float(13) should be absent")
	}

	poly := doc.Entities[2]
	want := []vec.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}
	if diff := cmp.Diff(want, poly.Points(10)); diff != "" {
		t.Errorf("LWPOLYLINE points mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCRLF(t *testing.T) {
	text := strings.ReplaceAll(sampleDXF, "\n", "\r\n")
	doc, err := Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Entities) != 3 {
		t.Fatalf("got %d entities, want 3", len(doc.Entities))
	}
}

func TestReadWithoutEOFMarker(t *testing.T) {
	text := pairs("0", "SECTION", "2", "ENTITIES", "0", "TEXT", "1", "hello", "0", "ENDSEC")
	doc, err := Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Entities) != 1 || doc.Entities[0].Text() != "hello" {
		t.Fatalf("unexpected entities: %+v", doc.Entities)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"binary", "AutoCAD Binary DXF\r\n\x1a\x00garbage"},
		{"not a number", pairs("zero", "SECTION")},
		{"dangling code", "0\nSECTION\n2"},
		{"tag outside section", pairs("10", "1.0")},
		{"unterminated section", pairs("0", "SECTION", "2", "ENTITIES", "0", "LINE")},
		{"section without name", pairs("0", "SECTION", "8", "x")},
		{"plain text", "hello world\nthis is not a drawing\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("expected error")
			}
			var syn *SyntaxError
			if !errors.As(err, &syn) {
				t.Fatalf("expected *SyntaxError, got %T: %v", err, err)
			}
		})
	}
}

func TestMTextConcatenation(t *testing.T) {
	text := pairs("0", "SECTION", "2", "ENTITIES",
		"0", "MTEXT", "3", "first part ", "3", "second part ", "1", "end",
		"0", "ENDSEC", "0", "EOF")
	doc, err := Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := doc.Entities[0].Text(); got != "first part second part end" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestLegacyCodePageAndEscapes(t *testing.T) {
	// "Maß" in Windows-1252 followed by a \U+ escape for the diameter sign
	text := pairs("0", "SECTION", "2", "HEADER", "9", "$DWGCODEPAGE", "3", "ANSI_1252", "0", "ENDSEC",
		"0", "SECTION", "2", "ENTITIES",
		"0", "TEXT", "1", "Ma\xdf \\U+2205",
		"0", "ENDSEC", "0", "EOF")
	doc, err := Read(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := doc.Entities[0].Text(); got != "Maß ∅" {
		t.Fatalf("Text() = %q, want %q", got, "Maß ∅")
	}
}
