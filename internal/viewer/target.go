package viewer

import (
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

// pickable lists the row fields a pick can fill, in cycling order.
var pickable = []string{
	protocol.RowNominal,
	protocol.RowMeasured,
	protocol.RowFit,
	protocol.RowNotes,
}

// Target is the field the next pick is bound to.
type Target struct {
	Row int
	Sub int // index into pickable
}

// DefaultTarget is the nominal value of row 1.
func DefaultTarget() Target {
	return Target{Row: 1}
}

// Field returns the protocol field of t.
func (t Target) Field() protocol.FieldRef {
	return protocol.RowField(t.Row, pickable[t.Sub])
}

// NextRow moves to the following row, wrapping after the last one.
func (t Target) NextRow() Target {
	t.Row = t.Row%protocol.MaxRows + 1
	return t
}

// PrevRow moves to the previous row, wrapping before the first one.
func (t Target) PrevRow() Target {
	t.Row--
	if t.Row < 1 {
		t.Row = protocol.MaxRows
	}
	return t
}

// NextField cycles through the pickable fields of the row.
func (t Target) NextField() Target {
	t.Sub = (t.Sub + 1) % len(pickable)
	return t
}

// Advance is applied after a successful pick: nominal values fill row by
// row, other fields stay put.
func (t Target) Advance() Target {
	if pickable[t.Sub] == protocol.RowNominal {
		return t.NextRow()
	}
	return t
}
