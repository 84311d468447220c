// Package protocol holds the measurement protocol being edited: a header
// and a fixed number of measurement rows.
//
// Tolerance deviations are derived data. They are stored together with the
// nominal value and fit they were computed from and are only reported while
// both are unchanged, so a stale deviation is never visible.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/tolerance"
)

// Header carries the protocol's identifying fields.
type Header struct {
	DrawingNumber    string `json:"drawing_number,omitempty"`
	Customer         string `json:"customer,omitempty"`
	Order            string `json:"order,omitempty"`
	Position         string `json:"position,omitempty"`
	Date             string `json:"date,omitempty"` // ISO 8601, YYYY-MM-DD
	SurfaceTreatment string `json:"surface_treatment,omitempty"`
	Remarks          string `json:"remarks,omitempty"`
	Inspector        string `json:"inspector,omitempty"`
}

func (h *Header) field(name string) *string {
	switch name {
	case HeaderDrawingNumber:
		return &h.DrawingNumber
	case HeaderCustomer:
		return &h.Customer
	case HeaderOrder:
		return &h.Order
	case HeaderPosition:
		return &h.Position
	case HeaderDate:
		return &h.Date
	case HeaderSurfaceTreatment:
		return &h.SurfaceTreatment
	case HeaderRemarks:
		return &h.Remarks
	case HeaderInspector:
		return &h.Inspector
	}
	return nil
}

// Row is one measured characteristic.
type Row struct {
	Nominal    *float64 `json:"nominal,omitempty"`
	Fit        string   `json:"fit,omitempty"`
	Measured   *float64 `json:"measured,omitempty"`
	Instrument string   `json:"instrument,omitempty"`
	Notes      string   `json:"notes,omitempty"`

	calc *calculation
}

type calculation struct {
	nominal   float64
	fit       string
	deviation tolerance.Deviation
}

// Deviation returns the computed deviation if it still matches the row's
// nominal value and fit.
func (r *Row) Deviation() (tolerance.Deviation, bool) {
	if r.calc == nil || r.Nominal == nil {
		return tolerance.Deviation{}, false
	}
	if r.calc.nominal != *r.Nominal || r.calc.fit != r.Fit {
		return tolerance.Deviation{}, false
	}
	return r.calc.deviation, true
}

// IsEmpty reports whether no user data was entered in the row.
func (r *Row) IsEmpty() bool {
	return r.Nominal == nil && r.Fit == "" && r.Measured == nil && r.Instrument == "" && r.Notes == ""
}

// Document is the protocol being edited. The zero value is an empty
// protocol. A Document is not safe for concurrent use.
type Document struct {
	Header Header       `json:"header"`
	Rows   [MaxRows]Row `json:"rows"`
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Row returns row n (1-based).
func (d *Document) Row(n int) (*Row, error) {
	if n < 1 || n > MaxRows {
		return nil, &UnknownFieldError{Field: RowField(n, RowNominal).String(), Msg: fmt.Sprintf("row must be 1..%d", MaxRows)}
	}
	return &d.Rows[n-1], nil
}

// Resolve returns the value of a field. Unset fields resolve to an empty
// value.
func (d *Document) Resolve(ref FieldRef) (Value, error) {
	if err := ref.Validate(); err != nil {
		return Value{}, err
	}
	if ref.IsHeader() {
		return Str(*d.Header.field(ref.Name)), nil
	}

	row := &d.Rows[ref.Row-1]
	switch ref.Name {
	case RowNominal:
		return optional(row.Nominal), nil
	case RowMeasured:
		return optional(row.Measured), nil
	case RowFit:
		return Str(row.Fit), nil
	case RowInstrument:
		return Str(row.Instrument), nil
	case RowNotes:
		return Str(row.Notes), nil
	}

	dev, ok := row.Deviation()
	if !ok {
		return Value{}, nil
	}
	nominal := *row.Nominal
	largest, smallest := dev.Limits(nominal)
	switch ref.Name {
	case RowUpper:
		return Num(dev.Upper), nil
	case RowLower:
		return Num(dev.Lower), nil
	case RowMax:
		return Num(largest), nil
	case RowMin:
		return Num(smallest), nil
	case RowTarget:
		return Num(dev.Target(nominal)), nil
	}
	return Value{}, &UnknownFieldError{Field: ref.String(), Msg: "no such field"}
}

func optional(p *float64) Value {
	if p == nil {
		return Value{}
	}
	return Num(*p)
}

// Set writes a field. Derived fields are rejected with ErrDerivedField.
// Numeric fields accept numbers and numeric text; an empty value clears
// the field.
func (d *Document) Set(ref FieldRef, v Value) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.Derived() {
		return &FieldError{Row: ref.Row, Field: ref.Name, Err: ErrDerivedField}
	}
	if ref.IsHeader() {
		*d.Header.field(ref.Name) = strings.TrimSpace(v.String())
		return nil
	}

	row := &d.Rows[ref.Row-1]
	switch ref.Name {
	case RowNominal, RowMeasured:
		var p *float64
		if !v.IsEmpty() {
			f, ok := v.Float()
			if !ok || !isFinite(f) {
				return &FieldError{Row: ref.Row, Field: ref.Name, Err: fmt.Errorf("%w: %q is not a finite number", ErrInvalidValue, v.String())}
			}
			p = numberPtr(f)
		}
		if ref.Name == RowNominal {
			row.Nominal = p
			row.calc = nil
		} else {
			row.Measured = p
		}
	case RowFit:
		row.Fit = strings.TrimSpace(v.String())
		row.calc = nil
	case RowInstrument:
		row.Instrument = v.String()
	case RowNotes:
		row.Notes = v.String()
	}
	return nil
}

// Calculate computes the deviation of row n from its nominal value and fit.
// A row without fit has no deviation. On error the row is left unchanged
// apart from dropping a stale deviation.
func (d *Document) Calculate(n int, table *tolerance.Table) error {
	row, err := d.Row(n)
	if err != nil {
		return err
	}
	if row.Fit == "" {
		row.calc = nil
		return nil
	}
	if row.Nominal == nil {
		return &FieldError{Row: n, Field: RowNominal, Err: ErrMissingNominal}
	}

	dev, err := tolerance.ComputeDeviation(*row.Nominal, row.Fit, table)
	if err != nil {
		return &FieldError{Row: n, Field: RowFit, Err: err}
	}
	row.calc = &calculation{nominal: *row.Nominal, fit: row.Fit, deviation: dev}
	return nil
}

// CalculateAll recomputes every row that has a fit and returns the errors
// of the rows that failed.
func (d *Document) CalculateAll(table *tolerance.Table) []*FieldError {
	var errs []*FieldError
	for n := 1; n <= MaxRows; n++ {
		if err := d.Calculate(n, table); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				errs = append(errs, fe)
			}
		}
	}
	return errs
}

// Reset clears all fields.
func (d *Document) Reset() {
	*d = Document{}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	for i := range c.Rows {
		r := &c.Rows[i]
		if r.Nominal != nil {
			r.Nominal = numberPtr(*r.Nominal)
		}
		if r.Measured != nil {
			r.Measured = numberPtr(*r.Measured)
		}
		if r.calc != nil {
			calc := *r.calc
			r.calc = &calc
		}
	}
	return &c
}

// Encode writes the document as JSON. Derived fields are not stored.
func (d *Document) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// Decode reads a document written by Encode. Deviations have to be
// recomputed with Calculate.
func Decode(r io.Reader) (*Document, error) {
	d := New()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("decode protocol: %w", err)
	}
	return d, nil
}
