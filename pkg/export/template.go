package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/mapping"
	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

// Colours of the default protocol sheet.
const (
	colorGray      = "D9D9D9"
	colorYellow    = "FFFF00"
	colorLightBlue = "C5D9F1"
	colorLogo      = "4472C4"
)

const (
	lastColumn   = 25 // Y
	ratingColumn = 24 // X, merged with Y
	fontFamily   = "Arial"
)

// Instruments offered for the measuring instrument row.
var Instruments = []string{
	"optisch",
	"Messschieber",
	"Bügelmessschraube",
	"Höhenmessgerät",
	"3D-Messmaschine",
}

// style keys
const (
	stSmall = iota
	stLabelBox
	stValueBox
	stTitle
	stLogo
	stLabel
	stHeaderGray
	stCell
	stCellYellow
	stLabelYellow
	stLabelGray
	stLabelBlue
	stCellBlue
	stCount
)

// layoutWriter builds a sheet and keeps the first error.
type layoutWriter struct {
	f      *excelize.File
	sheet  string
	styles [stCount]int
	err    error
}

func (w *layoutWriter) do(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *layoutWriter) style(key int, s *excelize.Style) {
	if w.err != nil {
		return
	}
	id, err := w.f.NewStyle(s)
	w.do(err)
	w.styles[key] = id
}

func (w *layoutWriter) set(cell string, v interface{}, style int) {
	if w.err != nil {
		return
	}
	w.do(w.f.SetCellValue(w.sheet, cell, v))
	w.do(w.f.SetCellStyle(w.sheet, cell, cell, w.styles[style]))
}

func (w *layoutWriter) fill(from, to string, style int) {
	if w.err != nil {
		return
	}
	w.do(w.f.SetCellStyle(w.sheet, from, to, w.styles[style]))
}

func (w *layoutWriter) merge(from, to string) {
	if w.err != nil {
		return
	}
	w.do(w.f.MergeCell(w.sheet, from, to))
}

func (w *layoutWriter) width(col string, width float64) {
	if w.err != nil {
		return
	}
	w.do(w.f.SetColWidth(w.sheet, col, col, width))
}

func (w *layoutWriter) height(row int, height float64) {
	if w.err != nil {
		return
	}
	w.do(w.f.SetRowHeight(w.sheet, row, height))
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(err)
	}
	return name
}

func colName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		panic(err)
	}
	return name
}

func border(style int) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: style},
		{Type: "top", Color: "000000", Style: style},
		{Type: "right", Color: "000000", Style: style},
		{Type: "bottom", Color: "000000", Style: style},
	}
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

// NewTemplate builds the default protocol workbook. Its cells line up with
// mapping.Default.
func NewTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), mapping.DefaultSheet); err != nil {
		f.Close()
		return nil, err
	}

	w := &layoutWriter{f: f, sheet: mapping.DefaultSheet}
	w.defineStyles()
	w.header()
	w.table()
	w.dimensions()
	w.page()
	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("build template: %w", w.err)
	}
	return f, nil
}

// WriteTemplate writes the default protocol workbook to path.
func WriteTemplate(path string) error {
	f, err := NewTemplate()
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func (w *layoutWriter) defineStyles() {
	thin, thick := border(1), border(5)
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	font := func(size float64, bold bool) *excelize.Font {
		return &excelize.Font{Family: fontFamily, Size: size, Bold: bold}
	}

	w.style(stSmall, &excelize.Style{
		Font:      font(8, false),
		Alignment: &excelize.Alignment{Horizontal: "right", Vertical: "center"},
	})
	w.style(stLabelBox, &excelize.Style{Font: font(10, true), Border: thick})
	w.style(stValueBox, &excelize.Style{Font: font(9, false), Border: thick})
	w.style(stTitle, &excelize.Style{Font: font(20, true), Alignment: center})
	w.style(stLogo, &excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 14, Bold: true, Color: colorLogo},
		Alignment: center,
	})
	w.style(stLabel, &excelize.Style{Font: font(10, true), Border: thin})
	w.style(stHeaderGray, &excelize.Style{Font: font(10, true), Fill: solid(colorGray), Border: thin, Alignment: center})
	w.style(stCell, &excelize.Style{Font: font(9, false), Border: thin, Alignment: center})
	w.style(stCellYellow, &excelize.Style{Font: font(9, false), Fill: solid(colorYellow), Border: thin, Alignment: center})
	w.style(stLabelYellow, &excelize.Style{Font: font(10, true), Fill: solid(colorYellow), Border: thin, Alignment: center})
	w.style(stLabelGray, &excelize.Style{Font: font(10, true), Fill: solid(colorGray), Border: thin, Alignment: center})
	w.style(stLabelBlue, &excelize.Style{Font: font(10, true), Fill: solid(colorLightBlue), Border: thin, Alignment: center})
	w.style(stCellBlue, &excelize.Style{Font: font(9, false), Fill: solid(colorLightBlue), Border: thin, Alignment: center})
}

func (w *layoutWriter) header() {
	w.set("U1", "Ersteller:", stSmall)
	w.set("U2", "Revision:", stSmall)
	w.set("U3", "Letzte Änderung:", stSmall)
	w.set("U4", "Geändert durch:", stSmall)

	row := strconv.Itoa(mapping.HeaderRow)
	labels := []struct {
		label, at       string
		value, valueEnd string
	}{
		{"Kunde:", "A", mapping.CustomerCell, "E"},
		{"Auftrag: AT- 25 /", "F", mapping.OrderCell, "I"},
		{"Pos.:", "J", mapping.PositionCell, ""},
		{"Dat.:", "L", mapping.DateCell, ""},
		{"Zeichn.-Nr.:", "N", mapping.DrawingNumberCell, "R"},
		{"Prüfer:", "S", mapping.InspectorCell, "U"},
	}
	for _, l := range labels {
		w.set(l.at+row, l.label, stLabelBox)
		w.fill(l.value, l.value, stValueBox)
		if l.valueEnd != "" {
			w.fill(l.value, l.valueEnd+row, stValueBox)
			w.merge(l.value, l.valueEnd+row)
		}
	}

	w.set("A8", "Messprotokoll", stTitle)
	w.merge("A8", "T9")
	w.set("U8", "TOOL", stLogo)
	w.set("U9", "SERVICE", stLogo)

	for _, l := range []struct {
		row   int
		label string
	}{
		{mapping.SurfaceTreatmentRow, "Oberflächenbehandlung:"},
		{mapping.RemarksRow, "Bemerkungen:"},
	} {
		w.set(cellName(1, l.row), l.label, stLabel)
		w.merge(cellName(1, l.row), cellName(3, l.row))
		w.fill(cellName(4, l.row), cellName(21, l.row), stLabel)
		w.merge(cellName(4, l.row), cellName(21, l.row))
	}
}

func (w *layoutWriter) table() {
	lastMeasure := mapping.FirstMeasureColumn + protocol.MaxRows - 1

	// instrument header
	r := mapping.InstrumentHeaderRow
	w.fill(cellName(1, r), cellName(lastColumn, r), stHeaderGray)
	for col := 1; col < ratingColumn; col++ {
		w.set(cellName(col, r), "Messmittel", stHeaderGray)
	}
	w.set(cellName(ratingColumn, r), "NAME", stHeaderGray)
	w.merge(cellName(ratingColumn, r), cellName(lastColumn, r))

	// instruments, written per measure by the rules
	r = mapping.InstrumentRow
	w.fill(cellName(1, r), cellName(3, r), stCellYellow)
	w.fill(cellName(4, r), cellName(lastColumn, r), stCell)
	w.set(cellName(1, r), Instruments[0], stCellYellow)
	w.set(cellName(2, r), Instruments[0], stCellYellow)
	w.set(cellName(ratingColumn, r), "A", stCell)
	w.set(cellName(lastColumn, r), "B", stCell)

	// labels
	r = mapping.LabelRow
	w.set(cellName(1, r), "Maß lt.\nZeichnung", stLabelYellow)
	w.set(cellName(2, r), "keine Be-\nschädig-\nungen", stLabelYellow)
	w.set(cellName(3, r), "keine\nGrate", stLabelYellow)
	w.fill(cellName(4, r), cellName(ratingColumn-1, r), stLabelGray)
	for n := 1; n <= protocol.MaxRows; n++ {
		w.set(mapping.MeasureCell(n, r), fmt.Sprintf("Maß %d", n), stLabelGray)
	}
	w.set(cellName(ratingColumn, r), "Bewer-\ntung", stLabel)
	w.fill(cellName(ratingColumn, r), cellName(lastColumn, r), stLabel)
	w.merge(cellName(ratingColumn, r), cellName(lastColumn, r))

	// nominal and target
	w.fill(cellName(1, mapping.NominalRow), cellName(3, mapping.NominalRow), stCellYellow)
	w.fill(cellName(4, mapping.NominalRow), cellName(lastColumn, mapping.NominalRow), stCell)
	w.set(cellName(1, mapping.TargetRow), "SOLL ➡", stLabelBlue)
	w.fill(cellName(2, mapping.TargetRow), cellName(3, mapping.TargetRow), stCellYellow)
	w.fill(cellName(4, mapping.TargetRow), cellName(lastColumn, mapping.TargetRow), stCell)

	// measurement rows
	for i := 0; i <= mapping.MeasurementRows; i++ {
		r = mapping.FirstPieceRow + i
		w.fill(cellName(1, r), cellName(1, r), stCellBlue)
		w.fill(cellName(2, r), cellName(3, r), stCellYellow)
		w.fill(cellName(4, r), cellName(lastColumn, r), stCell)
	}
	w.set(cellName(1, mapping.FirstPieceRow), "Anfahrteil", stLabelBlue)

	// tolerance block
	for _, l := range []struct {
		row   int
		label string
	}{
		{mapping.FitRow, "Passung"},
		{mapping.MaxRow, "Größtmaß"},
		{mapping.MinRow, "Kleinstmaß"},
		{mapping.UpperRow, "oberes Abmaß"},
		{mapping.LowerRow, "unteres Abmaß"},
		{mapping.NotesRow, "Hinweis"},
	} {
		w.set(cellName(1, l.row), l.label, stLabel)
		w.fill(cellName(2, l.row), cellName(3, l.row), stLabel)
		w.merge(cellName(1, l.row), cellName(3, l.row))
		w.fill(cellName(4, l.row), cellName(lastMeasure, l.row), stCell)
	}
}

func (w *layoutWriter) dimensions() {
	w.width("A", 12)
	w.width("B", 10)
	w.width("C", 8)
	for col := 4; col < ratingColumn; col++ {
		w.width(colName(col), 7)
	}
	w.width("X", 6)
	w.width("Y", 6)

	heights := []float64{25, 20, 35, 20, 20, 20}
	for i, h := range heights {
		w.height(mapping.InstrumentHeaderRow+i, h)
	}
	for r := mapping.FirstPieceRow + 1; r <= mapping.FirstPieceRow+mapping.MeasurementRows; r++ {
		w.height(r, 18)
	}
}

func (w *layoutWriter) page() {
	if w.err != nil {
		return
	}
	size := 9 // A4
	orientation := "landscape"
	w.do(w.f.SetPageLayout(w.sheet, &excelize.PageLayoutOptions{
		Size:        &size,
		Orientation: &orientation,
	}))
	left, right, top, bottom := 0.5, 0.5, 0.75, 0.75
	w.do(w.f.SetPageMargins(w.sheet, &excelize.PageLayoutMarginsOptions{
		Left:   &left,
		Right:  &right,
		Top:    &top,
		Bottom: &bottom,
	}))
}
