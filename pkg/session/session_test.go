package session

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/internal/metrics"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/drawing"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/export"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/mapping"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/tolerance"
)

func pairs(kv ...string) string {
	return strings.Join(kv, "\n") + "\n"
}

// Three texts on the X axis, 100 units apart.
var partDXF = pairs(
	"0", "SECTION", "2", "HEADER", "9", "$INSUNITS", "70", "4", "0", "ENDSEC",
	"0", "SECTION", "2", "ENTITIES",
	"0", "TEXT", "5", "A1", "1", "25", "10", "0", "20", "0",
	"0", "TEXT", "5", "A2", "1", "%%c12,5", "10", "100", "20", "0",
	"0", "TEXT", "5", "A3", "1", "Ra 3.2", "10", "200", "20", "0",
	"0", "ENDSEC", "0", "EOF",
)

const testTable = `{"unit": "mm", "fits": [
	{"fit": "H7", "ranges": [{"min": 18, "max": 30, "upper": 0.021, "lower": 0}]}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newSession(t *testing.T, m *metrics.Metrics) *Session {
	t.Helper()
	table, err := tolerance.Parse(strings.NewReader(testTable), "test")
	if err != nil {
		t.Fatal(err)
	}
	template := filepath.Join(t.TempDir(), "template.xlsx")
	if err := export.WriteTemplate(template); err != nil {
		t.Fatal(err)
	}
	return New(Options{
		Table:    table,
		Exporter: export.NewExporter(template, mapping.Default()),
		Metrics:  m,
		Width:    800,
		Height:   600,
	})
}

func loadPart(t *testing.T, s *Session) *drawing.Drawing {
	t.Helper()
	res := <-s.LoadDrawing(context.Background(), writeFile(t, "part.dxf", partDXF))
	if res.Err != nil {
		t.Fatalf("LoadDrawing failed: %v", res.Err)
	}
	return res.Drawing
}

// screenOf returns the screen position of a world point in the current view.
func screenOf(s *Session, x, y float64) vec.Vec2 {
	v := s.View()
	return v.WorldToScreen(vec.Vec2{X: x, Y: y})
}

func TestLoadDrawing(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newSession(t, m)
	d := loadPart(t, s)

	if s.Drawing() != d || len(d.Entities) != 3 {
		t.Fatalf("unexpected drawing %+v", d)
	}
	v := s.View()
	if v.Center != (vec.Vec2{X: 100, Y: 0}) {
		t.Errorf("view center = %v, want extents center", v.Center)
	}
	if want := 800 * (1 - DefaultFitMargin) / 200; math.Abs(v.Zoom-want) > 1e-9 {
		t.Errorf("zoom = %v, want %v", v.Zoom, want)
	}

	if got := testutil.ToFloat64(m.DrawingsLoaded.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("loads = %v", got)
	}
	if got := testutil.ToFloat64(m.EntitiesExtracted.WithLabelValues("text")); got != 3 {
		t.Errorf("texts = %v", got)
	}
}

func TestLoadFailureKeepsDrawing(t *testing.T) {
	s := newSession(t, nil)
	d := loadPart(t, s)

	bad := writeFile(t, "bad.dxf", "this is not\na drawing\n")
	res := <-s.LoadDrawing(context.Background(), bad)
	if !errors.Is(res.Err, drawing.ErrParse) {
		t.Fatalf("expected parse error, got %v", res.Err)
	}
	if s.Drawing() != d {
		t.Error("failed load replaced the drawing")
	}

	res = <-s.LoadDrawing(context.Background(), filepath.Join(t.TempDir(), "missing.dxf"))
	if res.Err == nil || s.Drawing() != d {
		t.Errorf("missing file: err = %v", res.Err)
	}
}

func TestBusy(t *testing.T) {
	s := newSession(t, nil)

	s.acquire(&s.loading)
	if res := <-s.LoadDrawing(context.Background(), "part.dxf"); !errors.Is(res.Err, ErrBusy) {
		t.Errorf("second load: expected ErrBusy, got %v", res.Err)
	}
	s.release(&s.loading)

	s.acquire(&s.exporting)
	if res := <-s.Export(context.Background(), filepath.Join(t.TempDir(), "out.xlsx")); !errors.Is(res.Err, ErrBusy) {
		t.Errorf("second export: expected ErrBusy, got %v", res.Err)
	}
	// A running export does not block loads.
	if res := <-s.LoadDrawing(context.Background(), writeFile(t, "part.dxf", partDXF)); res.Err != nil {
		t.Errorf("load during export failed: %v", res.Err)
	}
	s.release(&s.exporting)
}

func TestPickInto(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newSession(t, m)

	if _, _, err := s.PickInto(protocol.RowField(1, protocol.RowNominal), vec.Vec2{}); !errors.Is(err, ErrNoDrawing) {
		t.Fatalf("expected ErrNoDrawing, got %v", err)
	}
	loadPart(t, s)

	tests := []struct {
		target string
		x      float64
		want   protocol.Value
	}{
		{"row[1].nominal", 0, protocol.Num(25)},
		{"row[2].nominal", 100, protocol.Num(12.5)},
		{"row[2].notes", 100, protocol.Str("Ø12,5")},
		{"row[3].notes", 200, protocol.Str("Ra 3.2")},
		{"header.remarks", 200, protocol.Str("Ra 3.2")},
		{"row[4].fit", 0, protocol.Str("25")},
	}
	for _, tt := range tests {
		ref := protocol.MustParseFieldRef(tt.target)
		hit, ok, err := s.PickInto(ref, screenOf(s, tt.x, 0))
		if err != nil || !ok {
			t.Fatalf("PickInto(%s) = %v, %v", tt.target, ok, err)
		}
		if hit.Entity.Anchor.Points[0].X != tt.x {
			t.Errorf("%s: picked entity at %v", tt.target, hit.Entity.Anchor.Points[0])
		}
		got, err := s.Resolve(ref)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%s = %+v, want %+v", tt.target, got, tt.want)
		}
	}

	// A miss leaves the document alone.
	before := s.Document()
	if _, ok, err := s.PickInto(protocol.RowField(1, protocol.RowNominal), screenOf(s, 50, 0)); ok || err != nil {
		t.Errorf("pick between entities = %v, %v", ok, err)
	}
	if v, _ := s.Resolve(protocol.RowField(1, protocol.RowNominal)); v != protocol.Num(25) {
		t.Errorf("miss changed the document: %+v (was %+v)", v, before.Rows[0].Nominal)
	}

	if _, _, err := s.PickInto(protocol.RowField(1, protocol.RowUpper), screenOf(s, 0, 0)); !errors.Is(err, protocol.ErrDerivedField) {
		t.Errorf("expected ErrDerivedField, got %v", err)
	}

	if got := testutil.ToFloat64(m.Picks.WithLabelValues(metrics.ResultMiss)); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestPickRadiusIsInPixels(t *testing.T) {
	s := newSession(t, nil)
	loadPart(t, s)

	check := func(offset float64, want bool) {
		t.Helper()
		p := screenOf(s, 100, 0)
		p.X += offset
		if _, ok := s.PickAt(p); ok != want {
			t.Errorf("zoom %v, offset %v px: hit = %v, want %v", s.View().Zoom, offset, ok, want)
		}
	}

	check(40, true)
	check(60, false)

	s.ZoomAt(screenOf(s, 100, 0), 4)
	check(40, true)
	check(60, false)

	s.Pan(vec.Vec2{X: 30, Y: -12})
	check(40, true)
	check(60, false)
}

func TestNearestAt(t *testing.T) {
	s := New(Options{PickRadius: 1000, Width: 800, Height: 600})
	if hits := s.NearestAt(vec.Vec2{}, 0); hits != nil {
		t.Errorf("hits without drawing: %v", hits)
	}
	loadPart(t, s)

	hits := s.NearestAt(screenOf(s, 90, 0), 2)
	if len(hits) != 2 || hits[0].Entity.SourceID != "A2" || hits[1].Entity.SourceID != "A1" {
		t.Errorf("unexpected hits %+v", hits)
	}
}

func TestCalculate(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newSession(t, m)

	set := func(field string, v protocol.Value) {
		t.Helper()
		if err := s.Set(protocol.MustParseFieldRef(field), v); err != nil {
			t.Fatal(err)
		}
	}
	set("row[1].nominal", protocol.Num(25))
	set("row[1].fit", protocol.Str("H7"))
	set("row[2].nominal", protocol.Num(40))
	set("row[2].fit", protocol.Str("H7"))
	set("row[3].fit", protocol.Str("Z9"))
	set("row[3].nominal", protocol.Num(10))

	if err := s.Calculate(1); err != nil {
		t.Fatalf("Calculate(1) failed: %v", err)
	}
	if v, _ := s.Resolve(protocol.RowField(1, protocol.RowUpper)); v != protocol.Num(0.021) {
		t.Errorf("upper = %+v", v)
	}

	err := s.Calculate(2)
	if !errors.Is(err, tolerance.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if v, _ := s.Resolve(protocol.RowField(2, protocol.RowNominal)); v != protocol.Num(40) {
		t.Errorf("failed calculation changed nominal: %+v", v)
	}

	errs := s.CalculateAll()
	if len(errs) != 2 || errs[0].Row != 2 || errs[1].Row != 3 {
		t.Fatalf("CalculateAll errors = %v", errs)
	}
	if !errors.Is(errs[1], tolerance.ErrToleranceNotFound) {
		t.Errorf("row 3: expected ErrToleranceNotFound, got %v", errs[1])
	}

	want := map[string]float64{
		metrics.ResultOK:       2,
		metrics.ResultRange:    2,
		metrics.ResultNotFound: 1,
	}
	for result, n := range want {
		if got := testutil.ToFloat64(m.ToleranceLookups.WithLabelValues(result)); got != n {
			t.Errorf("lookups %s = %v, want %v", result, got, n)
		}
	}
}

func TestDocumentSnapshot(t *testing.T) {
	s := newSession(t, nil)
	ref := protocol.HeaderField(protocol.HeaderCustomer)
	if err := s.Set(ref, protocol.Str("ACME")); err != nil {
		t.Fatal(err)
	}

	doc := s.Document()
	doc.Header.Customer = "Other"
	if v, _ := s.Resolve(ref); v != protocol.Str("ACME") {
		t.Errorf("snapshot aliases session document: %+v", v)
	}

	s.SetDocument(doc)
	if v, _ := s.Resolve(ref); v != protocol.Str("Other") {
		t.Errorf("SetDocument not applied: %+v", v)
	}

	s.Reset()
	if v, _ := s.Resolve(ref); !v.IsEmpty() {
		t.Errorf("Reset kept %+v", v)
	}
}

func TestExport(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s := newSession(t, m)
	if err := s.Set(protocol.HeaderField(protocol.HeaderCustomer), protocol.Str("ACME")); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "protocol.xlsx")
	res := <-s.Export(context.Background(), dest)
	if res.Err != nil {
		t.Fatalf("Export failed: %v", res.Err)
	}
	if res.Artifact.Path != dest {
		t.Errorf("artifact path = %q", res.Artifact.Path)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("export missing: %v", err)
	}
	if got := testutil.ToFloat64(m.ExportsTotal.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("exports = %v", got)
	}

	// The flag is released once the result is delivered.
	res = <-s.Export(context.Background(), dest)
	if res.Err != nil {
		t.Errorf("second export failed: %v", res.Err)
	}

	noExporter := New(Options{})
	if res := <-noExporter.Export(context.Background(), dest); !errors.Is(res.Err, ErrNoExporter) {
		t.Errorf("expected ErrNoExporter, got %v", res.Err)
	}
}
