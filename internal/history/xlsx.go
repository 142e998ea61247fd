package history

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"savetrack/internal/core"
)

// SheetName is the worksheet holding exported entries.
const SheetName = "History"

// XLSXContentType is the MIME type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes entries as a single-sheet workbook with the CSV columns.
// Amounts are numeric cells so spreadsheets can chart them directly.
func WriteXLSX(w io.Writer, entries []core.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	for i, h := range Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("writing header %s: %w", h, err)
		}
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.Timestamp.UTC().Format(TimestampLayout),
			e.Goal.Decimal().InexactFloat64(),
			e.MonthlyTarget.Decimal().InexactFloat64(),
			e.CurrentSaved.Decimal().InexactFloat64(),
			e.Remaining.Decimal().InexactFloat64(),
			e.ProgressFraction,
			e.HappinessFraction,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "G", 18); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
