// Package geometry provides the planar primitives shared by the drawing
// model, the viewport and the picker. World coordinates are plain
// vec.Vec2 values in drawing units (usually millimetres).
package geometry

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// Segment is a straight line between two world points.
type Segment struct {
	A, B vec.Vec2
}

// Length returns the length of the segment.
func (s Segment) Length() float64 {
	return s.B.Sub(s.A).Length()
}

// Midpoint returns the point halfway between A and B.
func (s Segment) Midpoint() vec.Vec2 {
	return s.A.Add(s.B.Sub(s.A).Mul(0.5))
}

// BoundingBox represents an axis-aligned rectangular boundary.
type BoundingBox struct {
	Min vec.Vec2 // lower-left corner
	Max vec.Vec2 // upper-right corner
}

// NewBoundingBox creates an empty bounding box that any call to Expand
// will replace.
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: vec.Vec2{X: math.Inf(1), Y: math.Inf(1)},
		Max: vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// IsEmpty checks if the bounding box contains no point.
func (bb BoundingBox) IsEmpty() bool {
	return bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y
}

// Expand grows the bounding box to include pos.
func (bb *BoundingBox) Expand(pos vec.Vec2) {
	if pos.X < bb.Min.X {
		bb.Min.X = pos.X
	}
	if pos.Y < bb.Min.Y {
		bb.Min.Y = pos.Y
	}
	if pos.X > bb.Max.X {
		bb.Max.X = pos.X
	}
	if pos.Y > bb.Max.Y {
		bb.Max.Y = pos.Y
	}
}

// ExpandBox grows the bounding box to include other.
func (bb *BoundingBox) ExpandBox(other BoundingBox) {
	if !other.IsEmpty() {
		bb.Expand(other.Min)
		bb.Expand(other.Max)
	}
}

// Contains reports whether pos lies inside or on the edge of the box.
func (bb BoundingBox) Contains(pos vec.Vec2) bool {
	return pos.X >= bb.Min.X && pos.X <= bb.Max.X &&
		pos.Y >= bb.Min.Y && pos.Y <= bb.Max.Y
}

// Intersects checks if two bounding boxes overlap.
func (bb BoundingBox) Intersects(other BoundingBox) bool {
	return bb.Min.X <= other.Max.X && bb.Max.X >= other.Min.X &&
		bb.Min.Y <= other.Max.Y && bb.Max.Y >= other.Min.Y
}

// Width returns the horizontal extent of the box.
func (bb BoundingBox) Width() float64 {
	return bb.Max.X - bb.Min.X
}

// Height returns the vertical extent of the box.
func (bb BoundingBox) Height() float64 {
	return bb.Max.Y - bb.Min.Y
}

// Center returns the center point of the box.
func (bb BoundingBox) Center() vec.Vec2 {
	return vec.Vec2{
		X: (bb.Min.X + bb.Max.X) / 2,
		Y: (bb.Min.Y + bb.Max.Y) / 2,
	}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b vec.Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DistanceToSegment returns the shortest distance from p to the segment s.
// A degenerate segment behaves like a point.
func DistanceToSegment(p vec.Vec2, s Segment) float64 {
	d := s.B.Sub(s.A)
	lenSq := d.X*d.X + d.Y*d.Y
	if lenSq == 0 {
		return Distance(p, s.A)
	}
	t := ((p.X-s.A.X)*d.X + (p.Y-s.A.Y)*d.Y) / lenSq
	switch {
	case t <= 0:
		return Distance(p, s.A)
	case t >= 1:
		return Distance(p, s.B)
	}
	return Distance(p, s.A.Add(d.Mul(t)))
}

// DistanceToBox returns the distance from p to the box, zero when p is
// inside or on the boundary.
func DistanceToBox(p vec.Vec2, bb BoundingBox) float64 {
	if bb.IsEmpty() {
		return math.Inf(1)
	}
	dx := math.Max(math.Max(bb.Min.X-p.X, 0), p.X-bb.Max.X)
	dy := math.Max(math.Max(bb.Min.Y-p.Y, 0), p.Y-bb.Max.Y)
	return math.Hypot(dx, dy)
}

// Project returns the orthogonal projection of p onto the infinite line
// through origin with the given direction angle in degrees.
func Project(p, origin vec.Vec2, angleDeg float64) vec.Vec2 {
	rad := angleDeg * math.Pi / 180.0
	dir := vec.Vec2{X: math.Cos(rad), Y: math.Sin(rad)}
	dot := (p.X-origin.X)*dir.X + (p.Y-origin.Y)*dir.Y
	return origin.Add(dir.Mul(dot))
}
