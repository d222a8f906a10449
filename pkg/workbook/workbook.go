// Package workbook reads and writes dues tables in .xlsx files.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// Workbook is one worksheet of an .xlsx file used as the record store.
type Workbook struct {
	path  string
	sheet string

	mu      sync.Mutex
	columns map[string]int
}

// New returns a store over the named worksheet of the file at path.
func New(path, sheet string) *Workbook {
	return &Workbook{path: path, sheet: sheet}
}

// Describe returns a label for logs and the status command.
func (w *Workbook) Describe() string {
	return fmt.Sprintf("xlsx %s (%s)", w.path, w.sheet)
}

// FetchAll reads the worksheet. Row 1 is the header.
func (w *Workbook) FetchAll(ctx context.Context) (*dues.Table, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, openError(w.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(w.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", dues.ErrConnection, w.sheet, err)
	}

	var headers []string
	var records [][]string
	if len(rows) > 0 {
		headers = rows[0]
		records = rows[1:]
	}
	w.columns = columnMap(headers)
	return dues.NewTable(headers, records), nil
}

// WriteCell sets one cell and saves the file.
func (w *Workbook) WriteCell(ctx context.Context, position int, column string, value int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	row := dues.StorageRow(position)

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return dues.NewWriteError(row, column, openError(w.path, err))
	}
	defer f.Close()

	if w.columns == nil {
		rows, err := f.GetRows(w.sheet)
		if err != nil {
			return dues.NewWriteError(row, column, fmt.Errorf("%w: %v", dues.ErrConnection, err))
		}
		if len(rows) > 0 {
			w.columns = columnMap(rows[0])
		}
	}
	col, ok := w.columns[column]
	if !ok {
		return dues.NewWriteError(row, column, fmt.Errorf("%w: %s", dues.ErrUnknownColumn, column))
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return dues.NewWriteError(row, column, err)
	}
	if err := f.SetCellValue(w.sheet, cell, value); err != nil {
		return dues.NewWriteError(row, column, err)
	}
	if err := f.Save(); err != nil {
		return dues.NewWriteError(row, column, fmt.Errorf("%w: %v", dues.ErrConnection, err))
	}
	return nil
}

// WriteTable renders table as a single-sheet workbook. Numeric cells are
// written as numbers so totals stay summable in a spreadsheet.
func WriteTable(out io.Writer, sheet string, table *dues.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for p, r := range table.Rows {
		values := make([]any, len(r.Cells))
		for i, v := range r.Cells {
			values[i] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, dues.StorageRow(p))
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", p, err)
		}
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Create writes table to a new file at path.
func Create(path, sheet string, table *dues.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteTable(out, sheet, table); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func cellValue(v string) any {
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: workbook %s not found", dues.ErrConnection, path)
	}
	return fmt.Errorf("%w: open workbook %s: %v", dues.ErrConnection, path, err)
}

func columnMap(headers []string) map[string]int {
	m := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := m[h]; !dup {
			m[h] = i + 1
		}
	}
	return m
}
