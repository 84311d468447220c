package tolerance

import "fmt"

// Deviation is the permitted variation of a size, in the table unit.
type Deviation struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Limits returns the largest and smallest permitted size.
func (d Deviation) Limits(nominal float64) (max, min float64) {
	return nominal + d.Upper, nominal + d.Lower
}

// Target returns the centre of the tolerance zone.
func (d Deviation) Target(nominal float64) float64 {
	return nominal + (d.Upper+d.Lower)/2
}

func (d Deviation) String() string {
	return fmt.Sprintf("%+.3f/%+.3f", d.Upper, d.Lower)
}

// ComputeDeviation parses designation and looks it up in table. A malformed
// designation is reported as ErrToleranceNotFound.
func ComputeDeviation(nominal float64, designation string, table *Table) (Deviation, error) {
	fit, err := ParseFit(designation)
	if err != nil {
		return Deviation{}, &NotFoundError{Designation: designation, Err: err}
	}
	return table.Lookup(nominal, fit)
}
