// Package drawing holds the normalized, format-independent model of a
// loaded drawing: the pickable entities (dimensions and texts) with their
// world-space anchors, plus display-only geometry.
package drawing

import (
	"fmt"
	"strconv"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/geometry"
)

// Kind distinguishes pickable entities.
type Kind int

const (
	KindDimension Kind = iota
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindDimension:
		return "dimension"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Unit is the drawing length unit as declared by the source file.
type Unit int

// Values follow the DXF $INSUNITS numbering.
const (
	UnitUnitless   Unit = 0
	UnitInch       Unit = 1
	UnitFoot       Unit = 2
	UnitMillimeter Unit = 4
	UnitCentimeter Unit = 5
	UnitMeter      Unit = 6
	UnitMicrometer Unit = 13
	UnitDecimeter  Unit = 14
)

var unitNames = map[Unit]string{
	UnitUnitless:   "",
	UnitInch:       "in",
	UnitFoot:       "ft",
	UnitMillimeter: "mm",
	UnitCentimeter: "cm",
	UnitMeter:      "m",
	UnitMicrometer: "µm",
	UnitDecimeter:  "dm",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "unit(" + strconv.Itoa(int(u)) + ")"
}

// Value is what an entity contributes when picked.
type Value struct {
	Number    float64 // measured value of a dimension
	HasNumber bool
	Unit      Unit
	Text      string // raw source text: dimension override or text content
}

// String formats the value for display: the number with four decimals for
// dimensions, the raw text otherwise.
func (v Value) String() string {
	if v.HasNumber {
		return strconv.FormatFloat(v.Number, 'f', 4, 64)
	}
	return v.Text
}

// Entity is one pickable drawing object. Entities are immutable once the
// drawing is extracted.
type Entity struct {
	Index    int // position in Drawing.Entities
	Kind     Kind
	Value    Value
	Anchor   geometry.Anchor
	SourceID string // DXF handle, or "#n" with the source ordinal
	Layer    string
}

// DisplayText returns the entity text with formatting codes removed.
func (e Entity) DisplayText() string {
	return CleanText(e.Value.Text)
}

// PrimitiveKind identifies display geometry.
type PrimitiveKind int

const (
	PrimitiveLine PrimitiveKind = iota
	PrimitivePolyline
	PrimitiveCircle
	PrimitiveArc
)

// Primitive is display-only geometry. It is never picked.
type Primitive struct {
	Kind   PrimitiveKind
	Points []vec.Vec2 // line end points or polyline vertices
	Closed bool

	Center     vec.Vec2
	Radius     float64
	StartAngle float64 // degrees, counter-clockwise
	EndAngle   float64
}

// Bounds returns the bounding box of the primitive.
func (p Primitive) Bounds() geometry.BoundingBox {
	bb := geometry.NewBoundingBox()
	switch p.Kind {
	case PrimitiveCircle, PrimitiveArc:
		bb.Expand(vec.Vec2{X: p.Center.X - p.Radius, Y: p.Center.Y - p.Radius})
		bb.Expand(vec.Vec2{X: p.Center.X + p.Radius, Y: p.Center.Y + p.Radius})
	default:
		for _, pt := range p.Points {
			bb.Expand(pt)
		}
	}
	return bb
}

// Drawing is a parsed source file.
type Drawing struct {
	Source     string
	Units      Unit
	Entities   []Entity
	Primitives []Primitive
	Extents    geometry.BoundingBox
}

// Count returns the number of entities of the given kind.
func (d *Drawing) Count(kind Kind) int {
	n := 0
	for _, e := range d.Entities {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
