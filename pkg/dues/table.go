// Package dues holds the maintenance-due table model and the rule that derives
// monthly and outstanding totals from a row's inputs.
package dues

import (
	"fmt"
)

// HeaderRows is the number of sheet rows above the first record.
const HeaderRows = 1

// Default header labels used by the society sheet.
const (
	ColumnRegularMaintenance = "Regular Maintenance"
	ColumnShopArea           = "Shop Area"
	ColumnParkingArea        = "Parking Area"
	ColumnBikeCount          = "# of Bike"
	ColumnCycleCount         = "# of Cycle"
	ColumnMonthsDue          = "# of Months Due"
	ColumnTotalPerMonth      = "Total Amount/Month"
	ColumnTotalOutstanding   = "Total Outstanding Amount"
)

// Columns names the header label of every field the dashboard understands.
type Columns struct {
	RegularMaintenance string
	ShopArea           string
	ParkingArea        string
	BikeCount          string
	CycleCount         string
	MonthsDue          string
	TotalPerMonth      string
	TotalOutstanding   string
}

// DefaultColumns returns the labels used by the society sheet.
func DefaultColumns() Columns {
	return Columns{
		RegularMaintenance: ColumnRegularMaintenance,
		ShopArea:           ColumnShopArea,
		ParkingArea:        ColumnParkingArea,
		BikeCount:          ColumnBikeCount,
		CycleCount:         ColumnCycleCount,
		MonthsDue:          ColumnMonthsDue,
		TotalPerMonth:      ColumnTotalPerMonth,
		TotalOutstanding:   ColumnTotalOutstanding,
	}
}

// Editable returns the user-editable columns in save order.
func (c Columns) Editable() []string {
	return []string{c.BikeCount, c.CycleCount, c.MonthsDue}
}

// IsEditable reports whether name is one of the editable columns.
func (c Columns) IsEditable(name string) bool {
	for _, col := range c.Editable() {
		if col == name {
			return true
		}
	}
	return false
}

// Required returns every column the header must contain.
func (c Columns) Required() []string {
	return []string{
		c.RegularMaintenance,
		c.ShopArea,
		c.ParkingArea,
		c.BikeCount,
		c.CycleCount,
		c.MonthsDue,
		c.TotalPerMonth,
		c.TotalOutstanding,
	}
}

// Row is one dwelling unit's record. Cells line up with Table.Headers.
type Row struct {
	Cells []string `json:"cells"`
}

// Table is an ordered set of records. A row's position is its address.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// NewTable builds a table from a header and raw records. Short records are
// padded with blanks and long ones truncated to the header width.
func NewTable(headers []string, records [][]string) *Table {
	t := &Table{
		Headers: append([]string(nil), headers...),
		Rows:    make([]Row, 0, len(records)),
	}
	for _, rec := range records {
		cells := make([]string, len(headers))
		copy(cells, rec)
		t.Rows = append(t.Rows, Row{Cells: cells})
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		Headers: append([]string(nil), t.Headers...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, r := range t.Rows {
		c.Rows[i] = Row{Cells: append([]string(nil), r.Cells...)}
	}
	return c
}

// ColumnIndex returns the 0-based index of a header.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the value at position/column.
func (t *Table) Cell(position int, column string) (string, error) {
	idx, err := t.locate(position, column)
	if err != nil {
		return "", err
	}
	return t.Rows[position].Cells[idx], nil
}

// SetCell overwrites the value at position/column.
func (t *Table) SetCell(position int, column, value string) error {
	idx, err := t.locate(position, column)
	if err != nil {
		return err
	}
	t.Rows[position].Cells[idx] = value
	return nil
}

func (t *Table) locate(position int, column string) (int, error) {
	if position < 0 || position >= len(t.Rows) {
		return 0, fmt.Errorf("row %d: out of range (table has %d rows)", position, len(t.Rows))
	}
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return idx, nil
}

// Validate checks the header against the required columns and that the
// table holds at least one record. A blank sheet, with neither header nor
// records, is empty rather than malformed.
func (t *Table) Validate(cols Columns) error {
	if len(t.Headers) == 0 && len(t.Rows) == 0 {
		return ErrEmptyData
	}

	var missing []string
	for _, name := range cols.Required() {
		if _, ok := t.ColumnIndex(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	if len(t.Rows) == 0 {
		return ErrEmptyData
	}
	return nil
}

// StorageRow maps a 0-based position to the 1-based sheet row.
func StorageRow(position int) int {
	return position + HeaderRows + 1
}
