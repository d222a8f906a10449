package dues

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Fixed monthly charges per vehicle.
const (
	BikeCharge  = 100
	CycleCharge = 50
)

// MaxCount bounds the integer fields so totals stay exact in float64.
const MaxCount = 1_000_000

var errBlank = errors.New("value is blank")

// Inputs are the coerced fields the totals depend on.
type Inputs struct {
	RegularMaintenance float64
	ShopArea           float64
	ParkingArea        float64
	BikeCount          int64
	CycleCount         int64
	MonthsDue          int64
}

// Totals computes the monthly and outstanding amounts.
func Totals(in Inputs) (perMonth, outstanding float64) {
	perMonth = in.RegularMaintenance +
		float64(in.BikeCount)*BikeCharge +
		float64(in.CycleCount)*CycleCharge +
		in.ShopArea +
		in.ParkingArea
	outstanding = perMonth * float64(in.MonthsDue)
	return perMonth, outstanding
}

// ParseInputs coerces the input fields of the row at position.
func ParseInputs(cols Columns, t *Table, position int) (Inputs, error) {
	var in Inputs
	floats := []struct {
		column string
		dst    *float64
	}{
		{cols.RegularMaintenance, &in.RegularMaintenance},
		{cols.ShopArea, &in.ShopArea},
		{cols.ParkingArea, &in.ParkingArea},
	}
	for _, f := range floats {
		raw, err := t.Cell(position, f.column)
		if err != nil {
			return Inputs{}, err
		}
		v, err := ParseDecimal(raw)
		if err != nil {
			return Inputs{}, &InvalidInputError{Position: position, Column: f.column, Value: raw, Err: err}
		}
		*f.dst = v
	}

	ints := []struct {
		column string
		dst    *int64
	}{
		{cols.BikeCount, &in.BikeCount},
		{cols.CycleCount, &in.CycleCount},
		{cols.MonthsDue, &in.MonthsDue},
	}
	for _, f := range ints {
		raw, err := t.Cell(position, f.column)
		if err != nil {
			return Inputs{}, err
		}
		v, err := ParseCount(raw)
		if err != nil {
			return Inputs{}, &InvalidInputError{Position: position, Column: f.column, Value: raw, Err: err}
		}
		*f.dst = v
	}
	return in, nil
}

// Recalc returns a copy of the row at position with both totals re-derived.
// All other cells pass through unchanged; t is not modified.
func Recalc(cols Columns, t *Table, position int) (Row, error) {
	in, err := ParseInputs(cols, t, position)
	if err != nil {
		return Row{}, err
	}
	perMonth, outstanding := Totals(in)

	row := Row{Cells: append([]string(nil), t.Rows[position].Cells...)}
	idx, ok := t.ColumnIndex(cols.TotalPerMonth)
	if !ok {
		return Row{}, &MissingColumnsError{Columns: []string{cols.TotalPerMonth}}
	}
	row.Cells[idx] = FormatNumber(perMonth)
	idx, ok = t.ColumnIndex(cols.TotalOutstanding)
	if !ok {
		return Row{}, &MissingColumnsError{Columns: []string{cols.TotalOutstanding}}
	}
	row.Cells[idx] = FormatNumber(outstanding)
	return row, nil
}

// ParseDecimal parses an amount. Thousands separators are accepted.
func ParseDecimal(raw string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, errBlank
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("value is not finite")
	}
	return v, nil
}

// ParseCount parses an integer field. Sheets may deliver whole numbers as
// floats ("2.0"), so the value is parsed as a decimal and truncated toward zero.
// Values beyond MaxCount in magnitude are rejected.
func ParseCount(raw string) (int64, error) {
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if math.Abs(v) > MaxCount {
		return 0, ErrCountOutOfRange
	}
	return int64(v), nil
}

// FormatNumber renders a number the way the sheet stores it.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
