package viewport

import (
	"math"
	"testing"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/geometry"
)

const eps = 1e-9

func near(a, b vec.Vec2, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func testViewports() []*Viewport {
	flat := New(640, 480)
	flat.InvertY = false

	panned := New(1000, 800)
	panned.Center = vec.Vec2{X: 123.5, Y: -42.25}
	panned.Zoom = 3.7

	tiny := New(1, 1)
	tiny.Zoom = 0.01
	tiny.Center = vec.Vec2{X: 1e4, Y: 1e4}

	return []*Viewport{New(800, 600), flat, panned, tiny}
}

func TestRoundTrip(t *testing.T) {
	points := []vec.Vec2{
		{X: 0, Y: 0},
		{X: 12.5, Y: -7.25},
		{X: -300, Y: 1e3},
		{X: 0.001, Y: 0.002},
	}
	for i, v := range testViewports() {
		for _, p := range points {
			got := v.ScreenToWorld(v.WorldToScreen(p))
			if !near(got, p, eps*math.Max(1, math.Abs(p.X)+math.Abs(p.Y))) {
				t.Errorf("viewport %d: round trip of %v = %v", i, p, got)
			}
		}
	}
}

func TestCenterMapsToScreenCenter(t *testing.T) {
	v := New(800, 600)
	v.Center = vec.Vec2{X: 10, Y: 20}
	v.Zoom = 2
	got := v.WorldToScreen(v.Center)
	if !near(got, vec.Vec2{X: 400, Y: 300}, eps) {
		t.Fatalf("center maps to %v, want (400,300)", got)
	}
	// Y axis grows upward in world space
	up := v.WorldToScreen(vec.Vec2{X: 10, Y: 21})
	if up.Y >= got.Y {
		t.Fatalf("world +Y should move up on screen: %v vs %v", up, got)
	}
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	anchors := []vec.Vec2{{X: 0, Y: 0}, {X: 400, Y: 300}, {X: 17, Y: 590}, {X: 799, Y: 1}}
	factors := []float64{1.2, 1 / 1.2, 5, 0.01}

	for _, v := range testViewports() {
		for _, anchor := range anchors {
			for _, f := range factors {
				world := v.ScreenToWorld(anchor)
				v.ZoomAt(anchor, f)
				if got := v.WorldToScreen(world); !near(got, anchor, 1e-6) {
					t.Errorf("after ZoomAt(%v, %v) world point moved to %v", anchor, f, got)
				}
				if got := v.WorldToScreen(v.ScreenToWorld(anchor)); !near(got, anchor, 1e-6) {
					t.Errorf("anchor round trip after zoom = %v, want %v", got, anchor)
				}
			}
		}
	}
}

func TestZoomAtClampsAndStillKeepsAnchor(t *testing.T) {
	v := New(800, 600)
	v.MaxZoom = 4
	anchor := vec.Vec2{X: 100, Y: 100}
	world := v.ScreenToWorld(anchor)

	v.ZoomAt(anchor, 1000)
	if v.Zoom != 4 {
		t.Fatalf("zoom = %v, want clamped 4", v.Zoom)
	}
	if got := v.WorldToScreen(world); !near(got, anchor, 1e-9) {
		t.Fatalf("anchor moved to %v", got)
	}
}

func TestZoomAtIgnoresInvalidFactor(t *testing.T) {
	v := New(800, 600)
	before := *v
	for _, f := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		v.ZoomAt(vec.Vec2{X: 10, Y: 10}, f)
	}
	if *v != before {
		t.Fatalf("invalid factors changed viewport: %+v", *v)
	}
}

func TestPanFollowsPointer(t *testing.T) {
	for _, v := range testViewports() {
		p := vec.Vec2{X: 5, Y: 5}
		before := v.WorldToScreen(p)
		delta := vec.Vec2{X: 30, Y: -12}
		v.Pan(delta)
		after := v.WorldToScreen(p)
		if !near(after, before.Add(delta), 1e-6) {
			t.Errorf("Pan(%v): point moved from %v to %v", delta, before, after)
		}
	}
}

func TestFit(t *testing.T) {
	v := New(1000, 500)
	bbox := geometry.BoundingBox{Min: vec.Vec2{X: 0, Y: 0}, Max: vec.Vec2{X: 200, Y: 50}}
	v.Fit(bbox, 0.1)

	if !near(v.Center, vec.Vec2{X: 100, Y: 25}, eps) {
		t.Fatalf("center = %v", v.Center)
	}
	if math.Abs(v.Zoom-4.5) > eps {
		t.Fatalf("zoom = %v, want 4.5", v.Zoom)
	}
	vis := v.VisibleBounds()
	if !vis.Contains(bbox.Min) || !vis.Contains(bbox.Max) {
		t.Fatalf("fitted box %v not inside visible bounds %v", bbox, vis)
	}
}

func TestPixelsToWorld(t *testing.T) {
	v := New(100, 100)
	v.Zoom = 4
	if got := v.PixelsToWorld(50); got != 12.5 {
		t.Fatalf("PixelsToWorld(50) = %v, want 12.5", got)
	}
}
