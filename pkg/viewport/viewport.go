// Package viewport maps between drawing (world) coordinates and screen
// pixels for an interactive pan/zoom view.
package viewport

import (
	"math"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/geometry"
)

// Default zoom limits in pixels per world unit.
const (
	DefaultMinZoom = 1e-3
	DefaultMaxZoom = 1e4
)

// Viewport represents a view onto a drawing.
//
// The mapping is
//
//	sx = (wx - Center.X) * Zoom + Width/2
//	sy = Height/2 - (wy - Center.Y) * Zoom   (InvertY)
//	sy = Height/2 + (wy - Center.Y) * Zoom   (!InvertY)
//
// so Center is the pan offset: the world point shown in the middle of the
// screen.
type Viewport struct {
	// Center position in world coordinates
	Center vec.Vec2

	// Zoom level (pixels per world unit), always > 0
	Zoom float64

	// Screen dimensions (pixels)
	Width  int
	Height int

	// InvertY flips the Y axis. Drawings have Y increasing upward while
	// screens have Y increasing downward, so this is on by default.
	InvertY bool

	MinZoom float64
	MaxZoom float64
}

// New creates a viewport with zoom 1 centered on the world origin.
func New(width, height int) *Viewport {
	return &Viewport{
		Zoom:    1.0,
		Width:   width,
		Height:  height,
		InvertY: true,
		MinZoom: DefaultMinZoom,
		MaxZoom: DefaultMaxZoom,
	}
}

func (v *Viewport) halfSize() (float64, float64) {
	return float64(v.Width) / 2.0, float64(v.Height) / 2.0
}

func (v *Viewport) ySign() float64 {
	if v.InvertY {
		return -1
	}
	return 1
}

// WorldToScreen converts a world position to screen pixels.
func (v *Viewport) WorldToScreen(p vec.Vec2) vec.Vec2 {
	hw, hh := v.halfSize()
	return vec.Vec2{
		X: (p.X-v.Center.X)*v.Zoom + hw,
		Y: v.ySign()*(p.Y-v.Center.Y)*v.Zoom + hh,
	}
}

// ScreenToWorld converts screen pixels to a world position. It is the
// exact inverse of WorldToScreen.
func (v *Viewport) ScreenToWorld(p vec.Vec2) vec.Vec2 {
	hw, hh := v.halfSize()
	return vec.Vec2{
		X: (p.X-hw)/v.Zoom + v.Center.X,
		Y: v.ySign()*(p.Y-hh)/v.Zoom + v.Center.Y,
	}
}

// Pan moves the view by a screen pixel offset, so that content follows a
// pointer dragged by delta.
func (v *Viewport) Pan(delta vec.Vec2) {
	v.Center.X -= delta.X / v.Zoom
	v.Center.Y -= v.ySign() * delta.Y / v.Zoom
}

// ZoomAt multiplies the zoom by factor while keeping the world point under
// anchor fixed on screen. factor > 1 zooms in. Non-positive or non-finite
// factors are ignored.
func (v *Viewport) ZoomAt(anchor vec.Vec2, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}

	// World position under the cursor before zoom
	world := v.ScreenToWorld(anchor)

	v.Zoom = v.clamp(v.Zoom * factor)

	// Choose the center so that world maps back to anchor
	hw, hh := v.halfSize()
	v.Center.X = world.X - (anchor.X-hw)/v.Zoom
	v.Center.Y = world.Y - v.ySign()*(anchor.Y-hh)/v.Zoom
}

func (v *Viewport) clamp(z float64) float64 {
	if v.MinZoom > 0 && z < v.MinZoom {
		z = v.MinZoom
	}
	if v.MaxZoom > 0 && z > v.MaxZoom {
		z = v.MaxZoom
	}
	return z
}

// Fit adjusts the viewport so the whole box is visible. margin is the
// fraction of the screen kept free around the content (0.1 = 10%).
func (v *Viewport) Fit(bbox geometry.BoundingBox, margin float64) {
	if bbox.IsEmpty() || v.Width <= 0 || v.Height <= 0 {
		return
	}

	v.Center = bbox.Center()

	width, height := bbox.Width(), bbox.Height()
	if width <= 0 && height <= 0 {
		return
	}

	fill := 1.0 - margin
	zoom := math.Inf(1)
	if width > 0 {
		zoom = float64(v.Width) * fill / width
	}
	if height > 0 {
		zoom = math.Min(zoom, float64(v.Height)*fill/height)
	}
	v.Zoom = v.clamp(zoom)
}

// Resize updates the viewport when the window is resized.
func (v *Viewport) Resize(width, height int) {
	v.Width = width
	v.Height = height
}

// PixelsToWorld converts a screen distance to world units at the current
// zoom. It is used to turn a fixed pick tolerance in pixels into a world
// radius.
func (v *Viewport) PixelsToWorld(px float64) float64 {
	return px / v.Zoom
}

// VisibleBounds returns the area of the world currently on screen.
func (v *Viewport) VisibleBounds() geometry.BoundingBox {
	bb := geometry.NewBoundingBox()
	bb.Expand(v.ScreenToWorld(vec.Vec2{}))
	bb.Expand(v.ScreenToWorld(vec.Vec2{X: float64(v.Width), Y: float64(v.Height)}))
	return bb
}
