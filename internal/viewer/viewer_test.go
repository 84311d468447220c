package viewer

import (
	"testing"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

func TestTarget(t *testing.T) {
	tg := DefaultTarget()
	if got := tg.Field().String(); got != "row[1].nominal" {
		t.Fatalf("default target = %s", got)
	}

	if got := tg.PrevRow().Field().String(); got != "row[18].nominal" {
		t.Errorf("PrevRow from 1 = %s", got)
	}
	last := Target{Row: protocol.MaxRows}
	if got := last.NextRow().Row; got != 1 {
		t.Errorf("NextRow from %d = %d", protocol.MaxRows, got)
	}

	var names []string
	for i := 0; i < len(pickable)+1; i++ {
		names = append(names, tg.Field().Name)
		tg = tg.NextField()
	}
	want := []string{"nominal", "measured", "fit", "notes", "nominal"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("field cycle = %v, want %v", names, want)
			break
		}
	}

	for _, tg := range []Target{DefaultTarget(), DefaultTarget().NextField(), DefaultTarget().NextField().NextField()} {
		if err := tg.Field().Validate(); err != nil {
			t.Errorf("%s is not a valid field: %v", tg.Field(), err)
		}
	}
}

func TestAdvance(t *testing.T) {
	if got := DefaultTarget().Advance().Field().String(); got != "row[2].nominal" {
		t.Errorf("nominal advance = %s", got)
	}
	notes := Target{Row: 5, Sub: 3}
	if got := notes.Advance(); got != notes {
		t.Errorf("notes advanced to %+v", got)
	}
}

func TestArcPoints(t *testing.T) {
	pts := arcPoints(vec.Vec2{X: 10, Y: 0}, 5, 350, 10)
	if len(pts) < 3 {
		t.Fatalf("got %d points", len(pts))
	}
	first, last := pts[0], pts[len(pts)-1]
	if first.Y >= 0 || last.Y <= 0 {
		t.Errorf("arc across 0° runs from %v to %v", first, last)
	}
	for _, p := range pts {
		if p.X < 14.9 {
			t.Errorf("point %v leaves the short arc", p)
		}
	}

	circle := arcPoints(vec.Vec2{}, 1, 0, 360)
	if len(circle) != arcSegments+1 {
		t.Errorf("full circle has %d points, want %d", len(circle), arcSegments+1)
	}
}
