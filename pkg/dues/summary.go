package dues

// Summary aggregates the totals stored in a table.
type Summary struct {
	Rows             int
	RowsWithDues     int     // rows whose months due is above zero
	TotalPerMonth    float64 // sum of Total Amount/Month
	TotalOutstanding float64 // sum of Total Outstanding Amount
	Unparsable       int     // rows skipped because a total or months due did not parse
}

// Summarize sums the derived columns as stored, without recalculating.
func Summarize(cols Columns, t *Table) Summary {
	s := Summary{Rows: t.Len()}
	for pos := range t.Rows {
		perMonth, err1 := cellDecimal(t, pos, cols.TotalPerMonth)
		outstanding, err2 := cellDecimal(t, pos, cols.TotalOutstanding)
		months, err3 := cellCount(t, pos, cols.MonthsDue)
		if err1 != nil || err2 != nil || err3 != nil {
			s.Unparsable++
			continue
		}
		s.TotalPerMonth += perMonth
		s.TotalOutstanding += outstanding
		if months > 0 {
			s.RowsWithDues++
		}
	}
	return s
}

func cellDecimal(t *Table, pos int, column string) (float64, error) {
	raw, err := t.Cell(pos, column)
	if err != nil {
		return 0, err
	}
	return ParseDecimal(raw)
}

func cellCount(t *Table, pos int, column string) (int64, error) {
	raw, err := t.Cell(pos, column)
	if err != nil {
		return 0, err
	}
	return ParseCount(raw)
}
