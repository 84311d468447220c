package geometry

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// Anchor is the hit-test geometry of a pickable entity. Any combination of
// points, segments and boxes may be present; the distance to an anchor is
// the minimum over all of its parts.
type Anchor struct {
	Points   []vec.Vec2
	Segments []Segment
	Boxes    []BoundingBox
}

// PointAnchor builds an anchor made of the given points.
func PointAnchor(points ...vec.Vec2) Anchor {
	return Anchor{Points: points}
}

// IsEmpty reports whether the anchor has no geometry at all.
func (a Anchor) IsEmpty() bool {
	return len(a.Points) == 0 && len(a.Segments) == 0 && len(a.Boxes) == 0
}

// DistanceTo returns the minimum distance from p to the anchor. An empty
// anchor is infinitely far away.
func (a Anchor) DistanceTo(p vec.Vec2) float64 {
	best := math.Inf(1)
	for _, q := range a.Points {
		best = math.Min(best, Distance(p, q))
	}
	for _, s := range a.Segments {
		best = math.Min(best, DistanceToSegment(p, s))
	}
	for _, b := range a.Boxes {
		best = math.Min(best, DistanceToBox(p, b))
	}
	return best
}

// Bounds returns the bounding box of all anchor parts.
func (a Anchor) Bounds() BoundingBox {
	bb := NewBoundingBox()
	for _, q := range a.Points {
		bb.Expand(q)
	}
	for _, s := range a.Segments {
		bb.Expand(s.A)
		bb.Expand(s.B)
	}
	for _, b := range a.Boxes {
		bb.ExpandBox(b)
	}
	return bb
}
