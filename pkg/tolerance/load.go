package tolerance

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

type tableFile struct {
	Unit string     `json:"unit"`
	Fits []fitEntry `json:"fits"`
}

type fitEntry struct {
	Fit    string  `json:"fit"`
	Ranges []Range `json:"ranges"`
}

// Load reads a table file.
func Load(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open tolerance table: %w", err)
	}
	defer file.Close()

	return Parse(file, filename)
}

// Parse decodes a table of the form
//
//	{"unit": "mm", "fits": [{"fit": "H7", "ranges": [{"min": 18, "max": 30, "upper": 0.021, "lower": 0}]}]}
func Parse(r io.Reader, source string) (*Table, error) {
	var f tableFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: decode tolerance table: %w", source, err)
	}

	b := newBuilder(source, f.Unit)
	seen := make(map[Fit]bool)
	for i, e := range f.Fits {
		fit, err := ParseFit(e.Fit)
		if err != nil {
			return nil, &TableError{Source: source, Entry: i, Msg: err.Error()}
		}
		if seen[fit] {
			return nil, &TableError{Source: source, Entry: i, Msg: "duplicate fit " + fit.String()}
		}
		seen[fit] = true
		if len(e.Ranges) == 0 {
			return nil, &TableError{Source: source, Entry: i, Msg: "fit without ranges"}
		}
		for _, r := range e.Ranges {
			if err := b.add(i, fit, r); err != nil {
				return nil, err
			}
		}
	}
	return b.finish()
}

// legacyRow is one entry of the flat tolerances.json list used by earlier
// releases. Deviations are in micrometres and the size band is (lower, upper].
type legacyRow struct {
	Class string  `json:"toleranzklasse"`
	Lower float64 `json:"lowerlimit"`
	Upper float64 `json:"upperlimit"`
	ES    float64 `json:"es"`
	EI    float64 `json:"ei"`
}

// LoadLegacy reads a legacy flat tolerance list.
func LoadLegacy(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open tolerance table: %w", err)
	}
	defer file.Close()

	return ParseLegacy(file, filename)
}

// ParseLegacy converts a legacy flat list into a millimetre table. Each
// (lower, upper] band becomes [lower, upper) and the deviations are scaled
// from micrometres to millimetres.
func ParseLegacy(r io.Reader, source string) (*Table, error) {
	var rows []legacyRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%s: decode legacy tolerance table: %w", source, err)
	}

	b := newBuilder(source, DefaultUnit)
	for i, row := range rows {
		fit, err := ParseFit(row.Class)
		if err != nil {
			return nil, &TableError{Source: source, Entry: i, Msg: err.Error()}
		}
		rng := Range{
			Min:   row.Lower,
			Max:   row.Upper,
			Upper: micrometres(row.ES),
			Lower: micrometres(row.EI),
		}
		if err := b.add(i, fit, rng); err != nil {
			return nil, err
		}
	}
	return b.finish()
}

// micrometres converts µm to mm, rounded to nanometres.
func micrometres(v float64) float64 {
	return math.Round(v*1000) / 1e6
}

// Save writes t in the table file format.
func (t *Table) Save(w io.Writer) error {
	f := tableFile{Unit: t.Unit}
	for _, fit := range t.Fits() {
		f.Fits = append(f.Fits, fitEntry{Fit: fit.String(), Ranges: t.Ranges(fit)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
