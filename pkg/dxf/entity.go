package dxf

import (
	"seehuhn.de/go/geom/vec"
)

// Entity is one record of the ENTITIES section.
type Entity struct {
	Type string // upper-case entity type, e.g. "DIMENSION"
	Tags []Tag  // group code / value pairs after the type tag
	Line int    // line of the type tag
}

// Lookup returns the first tag with the given code.
func (e *Entity) Lookup(code int) (Tag, bool) {
	for _, t := range e.Tags {
		if t.Code == code {
			return t, true
		}
	}
	return Tag{}, false
}

// String returns the value of the first tag with the given code, or "".
// Surrounding whitespace is kept, text values are used verbatim.
func (e *Entity) String(code int) string {
	if t, ok := e.Lookup(code); ok {
		return t.Value
	}
	return ""
}

// Float returns the first tag with the given code as a number.
func (e *Entity) Float(code int) (float64, bool) {
	t, ok := e.Lookup(code)
	if !ok {
		return 0, false
	}
	v, err := t.Float()
	return v, err == nil
}

// FloatOr returns the numeric value of code, or def when absent.
func (e *Entity) FloatOr(code int, def float64) float64 {
	if v, ok := e.Float(code); ok {
		return v
	}
	return def
}

// Int returns the first tag with the given code as an integer.
func (e *Entity) Int(code int) (int, bool) {
	t, ok := e.Lookup(code)
	if !ok {
		return 0, false
	}
	v, err := t.Int()
	return v, err == nil
}

// Point returns the 2D point stored under the X code xcode and its Y code
// xcode+10.
func (e *Entity) Point(xcode int) (vec.Vec2, bool) {
	x, okX := e.Float(xcode)
	y, okY := e.Float(xcode + 10)
	if !okX || !okY {
		return vec.Vec2{}, false
	}
	return vec.Vec2{X: x, Y: y}, true
}

// Points returns all points stored under the repeated codes xcode/xcode+10,
// as used by LWPOLYLINE vertices.
func (e *Entity) Points(xcode int) []vec.Vec2 {
	var pts []vec.Vec2
	var pending *float64
	for _, t := range e.Tags {
		switch t.Code {
		case xcode:
			if v, err := t.Float(); err == nil {
				pending = &v
			}
		case xcode + 10:
			if pending == nil {
				continue
			}
			if v, err := t.Float(); err == nil {
				pts = append(pts, vec.Vec2{X: *pending, Y: v})
			}
			pending = nil
		}
	}
	return pts
}

// Handle returns the entity handle (group 5).
func (e *Entity) Handle() string {
	t, _ := e.Lookup(5)
	return t.String()
}

// Layer returns the layer name (group 8).
func (e *Entity) Layer() string {
	t, _ := e.Lookup(8)
	return t.String()
}

// Text returns the concatenated text content. MTEXT splits long strings
// over any number of code 3 tags followed by a final code 1 tag.
func (e *Entity) Text() string {
	var out string
	for _, t := range e.Tags {
		if t.Code == 3 && e.Type == "MTEXT" {
			out += t.Value
		}
	}
	return out + e.String(1)
}

func (e *Entity) decodeText(dec *textDecoder) {
	for i := range e.Tags {
		if isTextCode(e.Tags[i].Code) {
			e.Tags[i].Value = dec.decode(e.Tags[i].Value)
		}
	}
}

// isTextCode reports whether a group code carries free text.
func isTextCode(code int) bool {
	return code == 1 || code == 3
}
