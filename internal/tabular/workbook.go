// Package tabular reads and writes the xlsx workbooks used for roster import
// and export.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when a workbook has no worksheet to read.
var ErrNoSheet = errors.New("tabular: workbook has no sheets")

// ReadWorkbook returns the rows of the first worksheet keyed by the header
// row. Header text is kept verbatim. Empty cells are left out of the row and
// rows without any value are skipped.
func ReadWorkbook(r io.Reader) ([]map[string]any, error) {
	rows, _, err := ReadWorkbookLines(r)
	return rows, err
}

// ReadWorkbookLines is ReadWorkbook that also reports, for every returned
// row, the 1-based sheet line it was read from. The header is line 1.
func ReadWorkbookLines(r io.Reader) ([]map[string]any, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("tabular: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrNoSheet
	}

	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("tabular: read sheet %q: %w", sheets[0], err)
	}
	if len(grid) == 0 {
		return nil, nil, nil
	}

	headers := grid[0]
	rows := make([]map[string]any, 0, len(grid)-1)
	lines := make([]int, 0, len(grid)-1)
	for n, cells := range grid[1:] {
		row := make(map[string]any, len(headers))
		for i, cell := range cells {
			if i >= len(headers) || strings.TrimSpace(headers[i]) == "" {
				continue
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			row[headers[i]] = cell
		}
		if len(row) > 0 {
			rows = append(rows, row)
			lines = append(lines, n+2)
		}
	}
	return rows, lines, nil
}

// WriteWorkbook writes a single sheet named sheet with a header row of
// columns followed by one line per row.
func WriteWorkbook(w io.Writer, sheet string, columns []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("tabular: name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("tabular: write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(columns))
		for j, column := range columns {
			values[j] = row[column]
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("tabular: write row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("tabular: write workbook: %w", err)
	}
	return nil
}
