package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

var testHeaders = []string{
	"Flat No",
	dues.ColumnRegularMaintenance,
	dues.ColumnBikeCount,
	dues.ColumnCycleCount,
	dues.ColumnShopArea,
	dues.ColumnParkingArea,
	dues.ColumnMonthsDue,
	dues.ColumnTotalPerMonth,
	dues.ColumnTotalOutstanding,
}

func testTable() *dues.Table {
	return dues.NewTable(testHeaders, [][]string{
		{"A-101", "1000", "0", "0", "200", "100", "1", "1300", "1300"},
		{"A-102", "1200", "1", "1", "0", "0", "2", "1350", "2700"},
		{"A-103", "900", "0", "2", "0", "50", "0", "1050", "0"},
	})
}

func newTestSession() *Session {
	return New("s1", testTable(), dues.DefaultColumns(), time.Unix(0, 0))
}

type write struct {
	position int
	column   string
	value    int
}

type recordingWriter struct {
	writes []write
	fail   map[string]error
}

func (w *recordingWriter) WriteCell(_ context.Context, position int, column string, value int) error {
	w.writes = append(w.writes, write{position, column, value})
	if err, ok := w.fail[fmt.Sprintf("%d/%s", position, column)]; ok {
		return err
	}
	return nil
}

func cell(t *testing.T, s *Session, position int, column string) string {
	t.Helper()
	v, err := s.Working().Cell(position, column)
	if err != nil {
		t.Fatalf("Cell(%d, %q) error = %v", position, column, err)
	}
	return v
}

func TestApplyEditRecalculates(t *testing.T) {
	s := newTestSession()

	if s.State() != StateClean {
		t.Fatalf("State() = %q, expected clean", s.State())
	}

	edits := []struct {
		column string
		value  string
	}{
		{dues.ColumnBikeCount, "2"},
		{dues.ColumnCycleCount, "3"},
		{dues.ColumnMonthsDue, "4"},
	}
	for _, e := range edits {
		if err := s.ApplyEdit(0, e.column, e.value); err != nil {
			t.Fatalf("ApplyEdit(%q) error = %v", e.column, err)
		}
	}

	if got := cell(t, s, 0, dues.ColumnTotalPerMonth); got != "1650" {
		t.Errorf("%s = %q, expected 1650", dues.ColumnTotalPerMonth, got)
	}
	if got := cell(t, s, 0, dues.ColumnTotalOutstanding); got != "6600" {
		t.Errorf("%s = %q, expected 6600", dues.ColumnTotalOutstanding, got)
	}
	if s.State() != StateDirty {
		t.Errorf("State() = %q, expected dirty", s.State())
	}
	if got := s.Dirty(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Dirty() = %v, expected [0]", got)
	}
}

func TestApplyEditZeroMonths(t *testing.T) {
	s := newTestSession()

	if err := s.ApplyEdit(1, dues.ColumnMonthsDue, "0"); err != nil {
		t.Fatalf("ApplyEdit() error = %v", err)
	}
	if got := cell(t, s, 1, dues.ColumnTotalOutstanding); got != "0" {
		t.Errorf("%s = %q, expected 0", dues.ColumnTotalOutstanding, got)
	}
	if got := cell(t, s, 1, dues.ColumnTotalPerMonth); got != "1350" {
		t.Errorf("%s = %q, expected 1350", dues.ColumnTotalPerMonth, got)
	}
}

func TestApplyEditRejectsNonEditable(t *testing.T) {
	s := newTestSession()

	for _, column := range []string{dues.ColumnTotalPerMonth, dues.ColumnRegularMaintenance, "Flat No"} {
		err := s.ApplyEdit(0, column, "5")
		if !errors.Is(err, ErrNotEditable) {
			t.Errorf("ApplyEdit(%q) error = %v, expected ErrNotEditable", column, err)
		}
	}
	if s.State() != StateClean {
		t.Errorf("State() = %q, expected clean", s.State())
	}
	if got := cell(t, s, 0, dues.ColumnTotalPerMonth); got != "1300" {
		t.Errorf("%s = %q, expected unchanged 1300", dues.ColumnTotalPerMonth, got)
	}
}

func TestApplyEditOutOfRange(t *testing.T) {
	s := newTestSession()

	if err := s.ApplyEdit(3, dues.ColumnBikeCount, "1"); !errors.Is(err, ErrNoSuchRow) {
		t.Errorf("ApplyEdit() error = %v, expected ErrNoSuchRow", err)
	}
}

func TestApplyEditBlankKeepsRowDirty(t *testing.T) {
	s := newTestSession()

	err := s.ApplyEdit(1, dues.ColumnBikeCount, "")
	var inputErr *dues.InvalidInputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("ApplyEdit() error = %v, expected InvalidInputError", err)
	}
	if !s.IsDirty(1) {
		t.Error("row 1 should be dirty after a blank edit")
	}
	if got := cell(t, s, 1, dues.ColumnTotalPerMonth); got != "1350" {
		t.Errorf("%s = %q, expected previous total 1350", dues.ColumnTotalPerMonth, got)
	}
}

func TestScanEdits(t *testing.T) {
	s := newTestSession()

	result := s.ScanEdits([]Edit{
		{Position: 0, Column: dues.ColumnBikeCount, Value: "0"},          // unchanged
		{Position: 0, Column: dues.ColumnCycleCount, Value: "2"},         // changed
		{Position: 1, Column: dues.ColumnTotalPerMonth, Value: "1"},      // not editable
		{Position: 2, Column: dues.ColumnRegularMaintenance, Value: "1"}, // not editable
		{Position: 7, Column: dues.ColumnBikeCount, Value: "1"},          // no such row
	})

	if len(result.Applied) != 1 {
		t.Fatalf("Applied = %v, expected one edit", result.Applied)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, expected none", result.Errors)
	}
	if got := s.Dirty(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Dirty() = %v, expected [0]", got)
	}
	if got := cell(t, s, 0, dues.ColumnTotalPerMonth); got != "1400" {
		t.Errorf("%s = %q, expected 1400", dues.ColumnTotalPerMonth, got)
	}
	if got := cell(t, s, 1, dues.ColumnTotalPerMonth); got != "1350" {
		t.Errorf("non-editable edit changed totals: %q", got)
	}
}

func TestScanEditsReportsFinalRowState(t *testing.T) {
	s := newTestSession()

	result := s.ScanEdits([]Edit{
		{Position: 0, Column: dues.ColumnBikeCount, Value: "x"},
		{Position: 1, Column: dues.ColumnBikeCount, Value: ""},
		{Position: 1, Column: dues.ColumnCycleCount, Value: "5"},
		{Position: 2, Column: dues.ColumnMonthsDue, Value: "3"},
	})

	if len(result.Errors) != 2 {
		t.Fatalf("Errors = %v, expected one per invalid row", result.Errors)
	}
	if got := cell(t, s, 2, dues.ColumnTotalOutstanding); got != "3150" {
		t.Errorf("row 2 outstanding = %q, expected 3150", got)
	}
}

func TestSave(t *testing.T) {
	s := newTestSession()
	_ = s.ApplyEdit(2, dues.ColumnBikeCount, "1")
	_ = s.ApplyEdit(0, dues.ColumnMonthsDue, "3")

	w := &recordingWriter{}
	report := s.Save(context.Background(), w)

	want := []write{
		{0, dues.ColumnBikeCount, 0},
		{0, dues.ColumnCycleCount, 0},
		{0, dues.ColumnMonthsDue, 3},
		{2, dues.ColumnBikeCount, 1},
		{2, dues.ColumnCycleCount, 2},
		{2, dues.ColumnMonthsDue, 0},
	}
	if len(w.writes) != len(want) {
		t.Fatalf("writes = %v, expected %v", w.writes, want)
	}
	for i := range want {
		if w.writes[i] != want[i] {
			t.Errorf("write %d = %v, expected %v", i, w.writes[i], want[i])
		}
	}
	if len(report.Attempted) != 6 || report.Err() != nil {
		t.Errorf("report = %+v, expected 6 clean attempts", report)
	}
	if report.Attempted[0].String() != "# of Bike row 2" {
		t.Errorf("Attempted[0] = %q, expected %q", report.Attempted[0].String(), "# of Bike row 2")
	}
	if report.Attempted[3].Row != 4 {
		t.Errorf("Attempted[3].Row = %d, expected 4", report.Attempted[3].Row)
	}
	if s.State() != StateClean {
		t.Errorf("State() = %q, expected clean after save", s.State())
	}
}

func TestSaveBlankWritesZero(t *testing.T) {
	s := newTestSession()
	_ = s.ApplyEdit(1, dues.ColumnCycleCount, "")

	w := &recordingWriter{}
	s.Save(context.Background(), w)

	found := false
	for _, wr := range w.writes {
		if wr.position == 1 && wr.column == dues.ColumnCycleCount {
			found = true
			if wr.value != 0 {
				t.Errorf("blank cell written as %d, expected 0", wr.value)
			}
		}
	}
	if !found {
		t.Error("blank cell was not written")
	}
}

func TestSaveClearsDirtyOnFailure(t *testing.T) {
	s := newTestSession()
	_ = s.ApplyEdit(0, dues.ColumnBikeCount, "1")
	_ = s.ApplyEdit(1, dues.ColumnBikeCount, "2")

	boom := dues.NewWriteError(2, dues.ColumnBikeCount, dues.ErrConnection)
	w := &recordingWriter{fail: map[string]error{"0/" + dues.ColumnBikeCount: boom}}
	report := s.Save(context.Background(), w)

	if len(w.writes) != 6 {
		t.Errorf("writes = %d, expected every cell attempted", len(w.writes))
	}
	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %v, expected 1", report.Failures)
	}
	if !errors.Is(report.Err(), dues.ErrConnection) {
		t.Errorf("report.Err() = %v, expected ErrConnection", report.Err())
	}
	if s.State() != StateClean {
		t.Errorf("State() = %q, expected clean after failed save", s.State())
	}
}

func TestSaveNothingDirty(t *testing.T) {
	s := newTestSession()
	w := &recordingWriter{}

	report := s.Save(context.Background(), w)
	if !report.Empty() {
		t.Errorf("report = %+v, expected empty", report)
	}
	if len(w.writes) != 0 {
		t.Errorf("writes = %v, expected none", w.writes)
	}
}

func TestDiscardIsIdempotent(t *testing.T) {
	s := newTestSession()
	original := testTable()

	_ = s.ApplyEdit(0, dues.ColumnBikeCount, "9")
	_ = s.ApplyEdit(2, dues.ColumnMonthsDue, "7")

	for i := 0; i < 2; i++ {
		s.Discard()
		if s.State() != StateClean {
			t.Errorf("discard %d: State() = %q, expected clean", i, s.State())
		}
		w := s.Working()
		for p := range original.Rows {
			for c := range original.Headers {
				if w.Rows[p].Cells[c] != original.Rows[p].Cells[c] {
					t.Errorf("discard %d: cell (%d,%s) = %q, expected %q",
						i, p, original.Headers[c], w.Rows[p].Cells[c], original.Rows[p].Cells[c])
				}
			}
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestSession()
	_ = s.ApplyEdit(1, dues.ColumnBikeCount, "4")

	restored := Restore(s.Snapshot(), dues.DefaultColumns())

	if !restored.IsDirty(1) {
		t.Error("restored session lost its dirty row")
	}
	if got := cell(t, restored, 1, dues.ColumnBikeCount); got != "4" {
		t.Errorf("restored working cell = %q, expected 4", got)
	}
	restored.Discard()
	if got := cell(t, restored, 1, dues.ColumnBikeCount); got != "1" {
		t.Errorf("restored baseline cell = %q, expected 1", got)
	}
}
