// Package export writes the equipment grid and its summary to an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName is the name of the single worksheet.
const SheetName = "Equipment"

// WriteWorkbook writes every non-blank row followed by the summary lines. Failing rows
// carry the "does not fit" text in the volume column, and an unmeasurable aggregate shows
// the sentinel text plus the banner.
func WriteWorkbook(w io.Writer, rows []calculator.EquipmentRow, calc calculator.Calculator, f *display.Formatter) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName(book.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []interface{}{
		f.Text(display.KeyHeaderIndex),
		f.Text(display.KeyHeaderName),
		f.Text(display.KeyHeaderDepth),
		f.Text(display.KeyHeaderWidth),
		f.Text(display.KeyHeaderHeight),
		f.Text(display.KeyHeaderQuantity),
		f.Text(display.KeyHeaderVolume),
	}
	if err := book.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := 2
	for _, row := range rows {
		if row.Blank() {
			continue
		}
		view := f.Row(row, calc.Evaluate(row))
		var volume interface{} = view.VolumeText
		if !view.Error {
			volume = view.Volume
		}
		values := []interface{}{row.Index, row.Name, row.Depth, row.Width, row.Height, row.Quantity, volume}
		if err := setRow(book, line, values); err != nil {
			return err
		}
		line++
	}

	summary := f.Summary(calc.Aggregate(rows))
	line++
	lines := [][]interface{}{
		{f.Text(display.KeySummaryHeading)},
		{f.Text(display.KeyTotalVolume), summary.TotalVolumeText},
		{f.Text(display.KeyContainersNeeded), summary.ContainersNeededText},
	}
	if summary.Banner != "" {
		lines = append(lines, []interface{}{summary.Banner})
	}
	for _, values := range lines {
		if err := setRow(book, line, values); err != nil {
			return err
		}
		line++
	}

	if err := book.SetColWidth(SheetName, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(book *excelize.File, line int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := book.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", line, err)
	}
	return nil
}
