package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/epcr/internal/report"
)

// SheetName is the worksheet holding the report rows.
const SheetName = "Patient Reports"

// WorkbookHeaders are the column titles in order.
var WorkbookHeaders = []string{
	"Report ID", "Date", "Time", "Patient ID", "Care Level", "Staff",
	"BP", "Pulse", "Temp", "SpO2",
}

var columnWidths = []float64{38, 14, 8, 16, 12, 10, 10, 8, 8, 8}

// WriteWorkbook writes reports as an XLSX workbook to w, one row per report
// in the given order.
func (x *Renderer) WriteWorkbook(w io.Writer, reports []report.PatientReport) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range WorkbookHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, r := range reports {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, x.row(r)); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.ID, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (x *Renderer) row(r report.PatientReport) *[]any {
	created := x.CreatedAt(r)
	v := r.ClinicalInfo.Vitals
	values := []any{
		r.ID,
		created.Format(DateLayout),
		created.Format(TimeLayout),
		r.PatientID,
		string(r.CareLevel),
		r.StaffID,
		v.BP,
		v.Pulse,
		v.Temp,
		v.SpO2,
	}
	return &values
}
