package drawing

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/vec"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/dxf"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/geometry"
)

// DIMENSION type codes (group 70, low bits).
const (
	dimRotated   = 0
	dimAligned   = 1
	dimAngular   = 2
	dimDiameter  = 3
	dimRadius    = 4
	dimAngular3P = 5
	dimOrdinate  = 6

	dimTypeMask     = 0x07
	dimOrdinateXBit = 64
)

// ExtractFile reads a drawing file.
func ExtractFile(filename string) (*Drawing, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Extract(file, filename)
}

// Extract decodes a drawing from r. source names the input in errors and
// in Drawing.Source. Unsupported entity types are skipped.
func Extract(r io.Reader, source string) (*Drawing, error) {
	doc, err := dxf.Read(r)
	if err != nil {
		perr := &ParseError{Source: source, Err: err}
		var syn *dxf.SyntaxError
		if errors.As(err, &syn) {
			perr.Line = syn.Line
		}
		return nil, perr
	}

	d := &Drawing{
		Source:  source,
		Units:   UnitUnitless,
		Extents: geometry.NewBoundingBox(),
	}
	if u, ok := doc.HeaderInt("$INSUNITS"); ok {
		d.Units = Unit(u)
	}

	for i := range doc.Entities {
		raw := &doc.Entities[i]
		if inPaperSpace(raw) {
			continue
		}
		switch raw.Type {
		case "DIMENSION":
			d.addEntity(dimensionEntity(raw, d.Units), i)
		case "TEXT", "MTEXT":
			d.addEntity(textEntity(raw), i)
		case "LINE", "LWPOLYLINE", "CIRCLE", "ARC":
			if p, ok := primitive(raw); ok {
				d.Primitives = append(d.Primitives, p)
				d.Extents.ExpandBox(p.Bounds())
			}
		}
	}

	return d, nil
}

// inPaperSpace reports whether an entity belongs to a layout rather than
// the model (group 67 = 1).
func inPaperSpace(raw *dxf.Entity) bool {
	space, _ := raw.Int(67)
	return space == 1
}

func (d *Drawing) addEntity(e Entity, ordinal int) {
	e.Index = len(d.Entities)
	if e.SourceID == "" {
		e.SourceID = "#" + strconv.Itoa(ordinal)
	}
	d.Entities = append(d.Entities, e)
	d.Extents.ExpandBox(e.Anchor.Bounds())
}

func dimensionEntity(raw *dxf.Entity, units Unit) Entity {
	e := Entity{
		Kind:     KindDimension,
		SourceID: raw.Handle(),
		Layer:    raw.Layer(),
	}
	e.Value.Text = raw.String(1)
	e.Value.Unit = units
	e.Value.Number, e.Value.HasNumber = dimensionValue(raw)
	e.Anchor = dimensionAnchor(raw)
	return e
}

// dimensionValue resolves the value a dimension displays: a numeric text
// override wins, then the stored actual measurement, then the value
// computed from the definition points. Angular measurements are stored in
// radians and returned in degrees.
func dimensionValue(raw *dxf.Entity) (float64, bool) {
	if text := raw.String(1); text != "" && !strings.Contains(text, "<>") {
		if v, ok := NumberInText(text); ok {
			return v, true
		}
	}

	flags, _ := raw.Int(70)
	if m, ok := raw.Float(42); ok {
		if kind := flags & dimTypeMask; kind == dimAngular || kind == dimAngular3P {
			return m * 180 / math.Pi, true
		}
		return m, true
	}

	p10, ok10 := raw.Point(10)
	p13, ok13 := raw.Point(13)
	p14, ok14 := raw.Point(14)
	p15, ok15 := raw.Point(15)

	switch flags & dimTypeMask {
	case dimRotated:
		if ok13 && ok14 {
			angle := raw.FloatOr(50, 0)
			line := geometry.Segment{A: geometry.Project(p13, p10, angle), B: geometry.Project(p14, p10, angle)}
			return line.Length(), true
		}
	case dimAligned:
		if ok13 && ok14 {
			return geometry.Segment{A: p13, B: p14}.Length(), true
		}
	case dimDiameter, dimRadius:
		if ok10 && ok15 {
			return geometry.Segment{A: p10, B: p15}.Length(), true
		}
	case dimOrdinate:
		if ok10 && ok13 {
			if flags&dimOrdinateXBit != 0 {
				return math.Abs(p13.X - p10.X), true
			}
			return math.Abs(p13.Y - p10.Y), true
		}
	case dimAngular, dimAngular3P:
		// angles are not lengths; only an explicit measurement is used
	}
	return 0, false
}

// dimensionAnchor returns the dimension line's reference geometry: the
// dimension line between the projected measured points plus the definition
// point and the text midpoint.
func dimensionAnchor(raw *dxf.Entity) geometry.Anchor {
	var a geometry.Anchor

	flags, _ := raw.Int(70)
	p10, ok10 := raw.Point(10)
	p11, ok11 := raw.Point(11)
	p13, ok13 := raw.Point(13)
	p14, ok14 := raw.Point(14)
	p15, ok15 := raw.Point(15)

	switch flags & dimTypeMask {
	case dimRotated, dimAligned:
		if ok10 && ok13 && ok14 {
			angle := raw.FloatOr(50, 0)
			if flags&dimTypeMask == dimAligned {
				d := p14.Sub(p13)
				angle = math.Atan2(d.Y, d.X) * 180 / math.Pi
			}
			a.Segments = append(a.Segments, geometry.Segment{
				A: geometry.Project(p13, p10, angle),
				B: geometry.Project(p14, p10, angle),
			})
		}
	case dimDiameter, dimRadius:
		if ok10 && ok15 {
			a.Segments = append(a.Segments, geometry.Segment{A: p10, B: p15})
		}
	default:
		if ok13 {
			a.Points = append(a.Points, p13)
		}
		if ok14 {
			a.Points = append(a.Points, p14)
		}
	}

	if ok10 {
		a.Points = append(a.Points, p10)
	}
	if ok11 {
		a.Points = append(a.Points, p11)
	}
	return a
}

func textEntity(raw *dxf.Entity) Entity {
	e := Entity{
		Kind:     KindText,
		SourceID: raw.Handle(),
		Layer:    raw.Layer(),
	}
	e.Value.Text = raw.Text()
	if v, ok := NumberInText(e.Value.Text); ok && isPlainNumber(CleanText(e.Value.Text)) {
		e.Value.Number, e.Value.HasNumber = v, true
	}

	p10, ok10 := raw.Point(10)
	if !ok10 {
		return e
	}
	e.Anchor.Points = append(e.Anchor.Points, p10)

	if raw.Type == "TEXT" {
		// aligned texts also carry a second alignment point
		h, _ := raw.Int(72)
		v, _ := raw.Int(73)
		if p11, ok := raw.Point(11); ok && (h != 0 || v != 0) {
			e.Anchor.Points = append(e.Anchor.Points, p11)
		}
		return e
	}

	if box, ok := mtextBox(raw, p10, e.Value.Text); ok {
		e.Anchor.Boxes = append(e.Anchor.Boxes, box)
	}
	return e
}

// mtextBox derives the frame of an unrotated MTEXT from its attachment
// point, reference width and text height.
func mtextBox(raw *dxf.Entity, insert vec.Vec2, text string) (geometry.BoundingBox, bool) {
	width, okW := raw.Float(41)
	height, okH := raw.Float(40)
	if !okW || !okH || width <= 0 || height <= 0 {
		return geometry.BoundingBox{}, false
	}
	if rot := raw.FloatOr(50, 0); rot != 0 {
		return geometry.BoundingBox{}, false
	}
	if dir, ok := raw.Point(11); ok && (dir.Y != 0 || dir.X <= 0) {
		return geometry.BoundingBox{}, false
	}

	attach, ok := raw.Int(71)
	if !ok || attach < 1 || attach > 9 {
		attach = 1
	}
	row := float64((attach - 1) / 3) // 0 top, 1 middle, 2 bottom
	col := float64((attach - 1) % 3) // 0 left, 1 center, 2 right

	lines := float64(strings.Count(text, `\P`) + 1)
	total := lines * height

	top := insert.Y + row*total/2
	left := insert.X - col*width/2
	return geometry.BoundingBox{
		Min: vec.Vec2{X: left, Y: top - total},
		Max: vec.Vec2{X: left + width, Y: top},
	}, true
}

func primitive(raw *dxf.Entity) (Primitive, bool) {
	switch raw.Type {
	case "LINE":
		a, okA := raw.Point(10)
		b, okB := raw.Point(11)
		if !okA || !okB {
			return Primitive{}, false
		}
		return Primitive{Kind: PrimitiveLine, Points: []vec.Vec2{a, b}}, true
	case "LWPOLYLINE":
		pts := raw.Points(10)
		if len(pts) < 2 {
			return Primitive{}, false
		}
		flags, _ := raw.Int(70)
		return Primitive{Kind: PrimitivePolyline, Points: pts, Closed: flags&1 != 0}, true
	case "CIRCLE", "ARC":
		c, okC := raw.Point(10)
		r, okR := raw.Float(40)
		if !okC || !okR || r <= 0 {
			return Primitive{}, false
		}
		p := Primitive{Kind: PrimitiveCircle, Center: c, Radius: r}
		if raw.Type == "ARC" {
			p.Kind = PrimitiveArc
			p.StartAngle = raw.FloatOr(50, 0)
			p.EndAngle = raw.FloatOr(51, 360)
		}
		return p, true
	}
	return Primitive{}, false
}

var (
	formatCode   = regexp.MustCompile(`\\[ACcFfHhQTWp][^;]*;`)
	stackCode    = regexp.MustCompile(`\\S([^;^#/]*)[\^#/]([^;]*);`)
	toggleCode   = regexp.MustCompile(`\\[LlOoKk]`)
	numberInText = regexp.MustCompile(`[-+]?[0-9]+(?:[.,][0-9]+)?`)
	plainNumber  = regexp.MustCompile(`^[-+]?[0-9]+(?:[.,][0-9]+)?$`)
	specialChars = strings.NewReplacer(
		"%%c", "Ø", "%%C", "Ø",
		"%%d", "°", "%%D", "°",
		"%%p", "±", "%%P", "±",
	)
)

// CleanText removes MTEXT formatting codes and expands the %%c/%%d/%%p
// control sequences.
func CleanText(s string) string {
	s = stackCode.ReplaceAllString(s, "$1/$2")
	s = formatCode.ReplaceAllString(s, "")
	s = toggleCode.ReplaceAllString(s, "")
	s = strings.NewReplacer(`\P`, "\n", `\~`, " ", `\\`, `\`, "{", "", "}", "").Replace(s)
	s = specialChars.Replace(s)
	return strings.TrimSpace(s)
}

// NumberInText extracts the first number in a text after formatting codes
// are removed. A decimal comma is accepted.
func NumberInText(s string) (float64, bool) {
	m := numberInText.FindString(CleanText(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	return v, err == nil
}

func isPlainNumber(s string) bool {
	return plainNumber.MatchString(s)
}
