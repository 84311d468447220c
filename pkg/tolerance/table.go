// Package tolerance implements ISO fit lookups against a tolerance table.
//
// A Table maps a fit designation to a sorted list of half-open nominal size
// ranges [Min, Max), each carrying the upper and lower deviation in the
// table's unit. Lookups are exact: there is no interpolation between ranges
// and no default deviation. A loaded table is never modified and may be
// shared between goroutines.
package tolerance

import (
	"math"
	"sort"
)

// DefaultUnit is the length unit assumed for tables that do not name one.
const DefaultUnit = "mm"

// Range is one nominal size band of a fit.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Contains reports whether nominal lies in [Min, Max).
func (r Range) Contains(nominal float64) bool {
	return nominal >= r.Min && nominal < r.Max
}

// Table is a read-only fit lookup table.
type Table struct {
	Unit string
	fits map[Fit][]Range
}

// Lookup returns the deviation for nominal under fit.
func (t *Table) Lookup(nominal float64, fit Fit) (Deviation, error) {
	ranges, ok := t.fits[fit]
	if !ok {
		return Deviation{}, &NotFoundError{Designation: fit.String()}
	}

	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].Max > nominal })
	if i == len(ranges) || !ranges[i].Contains(nominal) {
		return Deviation{}, &OutOfRangeError{
			Fit:     fit,
			Nominal: nominal,
			Min:     ranges[0].Min,
			Max:     ranges[len(ranges)-1].Max,
		}
	}
	return Deviation{Upper: ranges[i].Upper, Lower: ranges[i].Lower}, nil
}

// Fits returns every designation in the table, sorted by letter and grade.
func (t *Table) Fits() []Fit {
	fits := make([]Fit, 0, len(t.fits))
	for f := range t.fits {
		fits = append(fits, f)
	}
	sort.Slice(fits, func(i, j int) bool {
		if fits[i].Letter != fits[j].Letter {
			return fits[i].Letter < fits[j].Letter
		}
		return fits[i].Grade < fits[j].Grade
	})
	return fits
}

// Ranges returns a copy of the size ranges of fit.
func (t *Table) Ranges(fit Fit) []Range {
	return append([]Range(nil), t.fits[fit]...)
}

// Len returns the number of fits in the table.
func (t *Table) Len() int {
	return len(t.fits)
}

// builder assembles and validates a table.
type builder struct {
	source string
	table  *Table
}

func newBuilder(source, unit string) *builder {
	if unit == "" {
		unit = DefaultUnit
	}
	return &builder{
		source: source,
		table:  &Table{Unit: unit, fits: make(map[Fit][]Range)},
	}
}

func (b *builder) add(entry int, fit Fit, r Range) error {
	switch {
	case !finite(r.Min, r.Max, r.Upper, r.Lower):
		return &TableError{Source: b.source, Entry: entry, Msg: "non-finite value"}
	case r.Min >= r.Max:
		return &TableError{Source: b.source, Entry: entry, Msg: "range min must be below max"}
	case r.Upper < r.Lower:
		return &TableError{Source: b.source, Entry: entry, Msg: "upper deviation below lower deviation"}
	}
	b.table.fits[fit] = append(b.table.fits[fit], r)
	return nil
}

// finish sorts the ranges of every fit and rejects overlaps.
func (b *builder) finish() (*Table, error) {
	for fit, ranges := range b.table.fits {
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].Min < ranges[j].Min })
		for i := 1; i < len(ranges); i++ {
			if ranges[i].Min < ranges[i-1].Max {
				return nil, &TableError{
					Source: b.source,
					Entry:  -1,
					Msg:    "overlapping ranges for " + fit.String(),
				}
			}
		}
	}
	return b.table, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
