package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dvloznov/investment-ledger/internal/cells"
	"github.com/dvloznov/investment-ledger/internal/domain"
)

// SheetName is the worksheet the ledger is written to.
const SheetName = "Investments"

// RawRow is one unnormalized table row keyed by canonical field name.
type RawRow map[string]any

// sheetRows reads every data row of a worksheet. Columns are located by a
// case-insensitive match of the header against the canonical field names; a
// header with fewer than two labels is ignored and the canonical order is
// assumed.
func sheetRows(f *excelize.File, sheet string) ([]RawRow, error) {
	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheetRows: read %q: %w", sheet, err)
	}
	if len(grid) == 0 {
		return nil, nil
	}

	header := make([]string, len(grid[0]))
	labels := 0
	for i, v := range grid[0] {
		header[i] = strings.TrimSpace(v)
		if header[i] != "" {
			labels++
		}
	}
	if labels < 2 {
		header = domain.Fields
	}

	columns := make(map[string]int, len(domain.Fields))
	for _, field := range domain.Fields {
		for i, h := range header {
			if strings.EqualFold(h, field) {
				columns[field] = i + 1
				break
			}
		}
	}

	rows := make([]RawRow, 0, len(grid)-1)
	for r := 2; r <= len(grid); r++ {
		row := make(RawRow, len(columns))
		for field, col := range columns {
			v, err := cells.ReadCell(f, sheet, col, r)
			if err != nil {
				return nil, fmt.Errorf("sheetRows: row %d: %w", r, err)
			}
			row[field] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ledgerSheet picks the ledger worksheet, falling back to the first one.
func ledgerSheet(f *excelize.File) string {
	if idx, err := f.GetSheetIndex(SheetName); err == nil && idx >= 0 {
		return SheetName
	}
	if sheets := f.GetSheetList(); len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// firstSheet is the worksheet read from uploaded workbooks.
func firstSheet(f *excelize.File) string {
	if sheets := f.GetSheetList(); len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// buildWorkbook renders entries under the canonical header.
func buildWorkbook(entries []domain.Entry) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("buildWorkbook: rename sheet: %w", err)
	}

	header := make([]any, len(domain.Fields))
	for i, field := range domain.Fields {
		header[i] = field
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("buildWorkbook: header: %w", err)
	}

	for i, e := range entries {
		row := make([]any, len(domain.Fields))
		for j, field := range domain.Fields {
			row[j] = e.Value(field)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("buildWorkbook: cell name: %w", err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("buildWorkbook: row %d: %w", i+2, err)
		}
	}
	return f, nil
}

// writeAtomic writes the workbook to a temporary file next to path and
// renames it into place, so readers never observe a partial file.
func writeAtomic(path string, f *excelize.File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// readWorkbook parses a workbook from r and returns the rows of its first
// sheet.
func readWorkbook(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("readWorkbook: open: %w", err)
	}
	defer f.Close()

	sheet := firstSheet(f)
	if sheet == "" {
		return nil, nil
	}
	return sheetRows(f, sheet)
}
