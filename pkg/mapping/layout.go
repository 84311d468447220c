package mapping

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/OpenTraceLab/OpenTraceMeasure/pkg/protocol"
)

// Default protocol sheet layout. The generated template and the default
// rule set both follow it.
const (
	DefaultSheet = "Messprotokoll"

	HeaderRow = 6

	SurfaceTreatmentRow = 11
	RemarksRow          = 12

	InstrumentHeaderRow = 14
	InstrumentRow       = 15
	LabelRow            = 16
	NominalRow          = 17
	TargetRow           = 18
	FirstPieceRow       = 19 // measured value of the first piece
	MeasurementRows     = 15 // further blank measurement rows after the first piece

	FitRow   = FirstPieceRow + MeasurementRows + 2
	MaxRow   = FitRow + 1
	MinRow   = FitRow + 2
	UpperRow = FitRow + 3
	LowerRow = FitRow + 4
	NotesRow = FitRow + 5

	// FirstMeasureColumn is the column of measure 1 (column D).
	FirstMeasureColumn = 4
)

// Header cells of the default layout.
const (
	CustomerCell         = "B6"
	OrderCell            = "G6"
	PositionCell         = "K6"
	DateCell             = "M6"
	DrawingNumberCell    = "O6"
	InspectorCell        = "T6"
	SurfaceTreatmentCell = "D11"
	RemarksCell          = "D12"
)

// DateLayout is the date format of the default layout.
const DateLayout = "02.01.2006"

// MeasureCell returns the cell of measure n (1-based) in the given sheet row.
func MeasureCell(n, row int) string {
	cell, err := excelize.CoordinatesToCellName(FirstMeasureColumn+n-1, row)
	if err != nil {
		panic(fmt.Sprintf("mapping: measure %d row %d: %v", n, row, err))
	}
	return cell
}

// Default returns the rule set matching the default template.
func Default() *RuleSet {
	rs := &RuleSet{Version: 1, Sheet: DefaultSheet}
	add := func(ref protocol.FieldRef, cell, format string) {
		rs.Rules = append(rs.Rules, Rule{Field: ref.String(), Cell: cell, Format: format})
	}

	add(protocol.HeaderField(protocol.HeaderCustomer), CustomerCell, "")
	add(protocol.HeaderField(protocol.HeaderOrder), OrderCell, "")
	add(protocol.HeaderField(protocol.HeaderPosition), PositionCell, "")
	add(protocol.HeaderField(protocol.HeaderDate), DateCell, "date:"+DateLayout)
	add(protocol.HeaderField(protocol.HeaderDrawingNumber), DrawingNumberCell, "")
	add(protocol.HeaderField(protocol.HeaderInspector), InspectorCell, "")
	add(protocol.HeaderField(protocol.HeaderSurfaceTreatment), SurfaceTreatmentCell, "")
	add(protocol.HeaderField(protocol.HeaderRemarks), RemarksCell, "")

	for n := 1; n <= protocol.MaxRows; n++ {
		add(protocol.RowField(n, protocol.RowInstrument), MeasureCell(n, InstrumentRow), "text:30")
		add(protocol.RowField(n, protocol.RowNominal), MeasureCell(n, NominalRow), "")
		add(protocol.RowField(n, protocol.RowTarget), MeasureCell(n, TargetRow), "number:4")
		add(protocol.RowField(n, protocol.RowMeasured), MeasureCell(n, FirstPieceRow), "")
		add(protocol.RowField(n, protocol.RowFit), MeasureCell(n, FitRow), "")
		add(protocol.RowField(n, protocol.RowMax), MeasureCell(n, MaxRow), "number:4")
		add(protocol.RowField(n, protocol.RowMin), MeasureCell(n, MinRow), "number:4")
		add(protocol.RowField(n, protocol.RowUpper), MeasureCell(n, UpperRow), "signed:3")
		add(protocol.RowField(n, protocol.RowLower), MeasureCell(n, LowerRow), "signed:3")
		add(protocol.RowField(n, protocol.RowNotes), MeasureCell(n, NotesRow), "text:60")
	}
	return rs
}
