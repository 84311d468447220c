package viewer

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/drawing"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/viewport"
)

var (
	ColorBackground = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	ColorGeometry   = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
	ColorDimension  = color.NRGBA{R: 0, G: 90, B: 200, A: 255}
	ColorText       = color.NRGBA{R: 0, G: 140, B: 70, A: 255}
	ColorSelected   = color.NRGBA{R: 230, G: 120, B: 0, A: 255}
)

const (
	lineWidth   = 1.0
	markerSize  = 3.0
	arcSegments = 48
)

func toPt(p vec.Vec2) f32.Point {
	return f32.Pt(float32(p.X), float32(p.Y))
}

// renderPolyline strokes a polyline in screen coordinates.
func renderPolyline(gtx layout.Context, pts []vec.Vec2, closed bool, width float32, c color.NRGBA) {
	if len(pts) < 2 {
		return
	}
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(toPt(pts[0]))
	for _, p := range pts[1:] {
		path.LineTo(toPt(p))
	}
	if closed {
		path.Close()
	}

	stroke := clip.Stroke{
		Path:  path.End(),
		Width: width,
	}.Op()
	paint.FillShape(gtx.Ops, c, stroke)
}

// renderMarker fills a small circle at a screen position.
func renderMarker(gtx layout.Context, p vec.Vec2, radius float64, c color.NRGBA) {
	stack := op.Affine(f32.Affine2D{}.Offset(toPt(p))).Push(gtx.Ops)
	defer stack.Pop()

	r := int(math.Ceil(radius))
	rect := image.Rectangle{Min: image.Pt(-r, -r), Max: image.Pt(r, r)}
	paint.FillShape(gtx.Ops, c, clip.Ellipse(rect).Op(gtx.Ops))
}

// arcPoints approximates an arc in world coordinates. Angles are degrees,
// counter-clockwise.
func arcPoints(center vec.Vec2, radius, start, end float64) []vec.Vec2 {
	sweep := end - start
	for sweep <= 0 {
		sweep += 360
	}
	n := int(math.Ceil(arcSegments * sweep / 360))
	if n < 2 {
		n = 2
	}
	pts := make([]vec.Vec2, 0, n+1)
	for i := 0; i <= n; i++ {
		a := (start + sweep*float64(i)/float64(n)) * math.Pi / 180
		pts = append(pts, vec.Vec2{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)})
	}
	return pts
}

func screenPoints(v *viewport.Viewport, world []vec.Vec2) []vec.Vec2 {
	out := make([]vec.Vec2, len(world))
	for i, p := range world {
		out[i] = v.WorldToScreen(p)
	}
	return out
}

// renderDrawing draws the display geometry and the pickable entities.
// selected is the index of the highlighted entity, or -1.
func renderDrawing(gtx layout.Context, v *viewport.Viewport, d *drawing.Drawing, selected int) {
	visible := v.VisibleBounds()

	for _, p := range d.Primitives {
		if !p.Bounds().Intersects(visible) {
			continue
		}
		switch p.Kind {
		case drawing.PrimitiveCircle:
			renderPolyline(gtx, screenPoints(v, arcPoints(p.Center, p.Radius, 0, 360)), true, lineWidth, ColorGeometry)
		case drawing.PrimitiveArc:
			renderPolyline(gtx, screenPoints(v, arcPoints(p.Center, p.Radius, p.StartAngle, p.EndAngle)), false, lineWidth, ColorGeometry)
		default:
			renderPolyline(gtx, screenPoints(v, p.Points), p.Closed, lineWidth, ColorGeometry)
		}
	}

	for _, e := range d.Entities {
		c := ColorText
		if e.Kind == drawing.KindDimension {
			c = ColorDimension
		}
		width := float32(lineWidth)
		if e.Index == selected {
			c = ColorSelected
			width *= 2
		}

		for _, s := range e.Anchor.Segments {
			renderPolyline(gtx, screenPoints(v, []vec.Vec2{s.A, s.B}), false, width, c)
		}
		for _, b := range e.Anchor.Boxes {
			corners := []vec.Vec2{b.Min, {X: b.Max.X, Y: b.Min.Y}, b.Max, {X: b.Min.X, Y: b.Max.Y}}
			renderPolyline(gtx, screenPoints(v, corners), true, width, c)
		}
		for _, p := range e.Anchor.Points {
			renderMarker(gtx, v.WorldToScreen(p), markerSize*float64(width), c)
		}
	}
}
