package workbook

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

func testTable() *dues.Table {
	return dues.NewTable(
		[]string{"Flat No", dues.ColumnRegularMaintenance, dues.ColumnBikeCount, dues.ColumnTotalPerMonth},
		[][]string{
			{"A-101", "1000", "2", "1200"},
			{"A-102", "1500.5", "0", ""},
		},
	)
}

func TestCreateAndFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dues.xlsx")
	if err := Create(path, "Due_Amounts", testTable()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	wb := New(path, "Due_Amounts")
	tbl, err := wb.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, expected 2", tbl.Len())
	}
	if got, _ := tbl.Cell(1, dues.ColumnRegularMaintenance); got != "1500.5" {
		t.Errorf("maintenance = %q, expected 1500.5", got)
	}
	if got, _ := tbl.Cell(0, "Flat No"); got != "A-101" {
		t.Errorf("flat = %q, expected A-101", got)
	}
}

func TestWriteCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dues.xlsx")
	if err := Create(path, "Due_Amounts", testTable()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	wb := New(path, "Due_Amounts")
	ctx := context.Background()

	if _, err := wb.FetchAll(ctx); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if err := wb.WriteCell(ctx, 1, dues.ColumnBikeCount, 3); err != nil {
		t.Fatalf("WriteCell() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue("Due_Amounts", "C3")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if got != "3" {
		t.Errorf("C3 = %q, expected 3", got)
	}
}

func TestWriteCellUnknownColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dues.xlsx")
	_ = Create(path, "Due_Amounts", testTable())

	err := New(path, "Due_Amounts").WriteCell(context.Background(), 0, dues.ColumnMonthsDue, 1)
	if !errors.Is(err, dues.ErrUnknownColumn) {
		t.Errorf("WriteCell() error = %v, expected ErrUnknownColumn", err)
	}
}

func TestFetchMissingFile(t *testing.T) {
	wb := New(filepath.Join(t.TempDir(), "missing.xlsx"), "Due_Amounts")

	if _, err := wb.FetchAll(context.Background()); !errors.Is(err, dues.ErrConnection) {
		t.Errorf("FetchAll() error = %v, expected ErrConnection", err)
	}
}

func TestWriteTableNumbers(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, "Results", testTable()); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	typ, err := f.GetCellType("Results", "B2")
	if err != nil {
		t.Fatalf("GetCellType() error = %v", err)
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Errorf("B2 type = %v, expected a number", typ)
	}
	if got, _ := f.GetCellValue("Results", "A1"); got != "Flat No" {
		t.Errorf("A1 = %q, expected header", got)
	}
}
