package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// SheetName is the worksheet holding the exported record
const SheetName = "Record"

// XLSXRenderer renders a one-record workbook
type XLSXRenderer struct{}

// NewXLSXRenderer creates a new XLSXRenderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (r *XLSXRenderer) Format() port.ExportFormat { return port.ExportXLSX }
func (r *XLSXRenderer) Extension() string         { return ".xlsx" }
func (r *XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Render writes the title in row 1, labels in row 2 and values in row 3
func (r *XLSXRenderer) Render(site string, rec entity.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	fields := rec.Labeled()
	if err := f.SetCellValue(SheetName, "A1", DocumentTitle); err != nil {
		return nil, fmt.Errorf("failed to write title: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"02447C"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, fv := range fields {
		col := i + 1
		header, err := excelize.CoordinatesToCellName(col, 2)
		if err != nil {
			return nil, err
		}
		value, err := excelize.CoordinatesToCellName(col, 3)
		if err != nil {
			return nil, err
		}

		if err := f.SetCellValue(SheetName, header, fv.Label); err != nil {
			return nil, fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := f.SetCellValue(SheetName, value, cellValue(fv)); err != nil {
			return nil, fmt.Errorf("failed to write cell %s: %w", value, err)
		}

		colName, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(SheetName, colName, colName, 22); err != nil {
			return nil, fmt.Errorf("failed to size column %s: %w", colName, err)
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(fields), 2)
	if err := f.SetCellStyle(SheetName, "A2", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    DocumentTitle,
		Subject:  rec.LetterNo,
		Category: site,
	}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// cellValue writes the sanctioned amount as a number when it parses and
// survives the conversion to a float. Anything else stays text, so no digits
// are lost.
func cellValue(fv entity.LabeledValue) interface{} {
	if fv.Label != entity.LabelAmountSanctioned || fv.Value == "" {
		return fv.Value
	}
	d, err := decimal.NewFromString(fv.Value)
	if err != nil {
		return fv.Value
	}
	f, _ := d.Float64()
	if !decimal.NewFromFloat(f).Equal(d) {
		return fv.Value
	}
	return f
}
