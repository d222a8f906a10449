// Package session tracks one user's edits against a fetched dues table:
// the read-only baseline, the working copy and the set of dirty rows.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

var (
	// ErrNotEditable is returned when an edit targets a column outside the editable set.
	ErrNotEditable = errors.New("column is not editable")

	// ErrNoSuchRow is returned when an edit targets a position outside the table.
	ErrNoSuchRow = errors.New("no such row")
)

// State is the edit state of a session.
type State string

const (
	StateClean State = "clean"
	StateDirty State = "dirty"
)

// CellWriter performs point writes against the record store.
type CellWriter interface {
	WriteCell(ctx context.Context, position int, column string, value int) error
}

// Edit is a committed cell value from the grid.
type Edit struct {
	Position int    `json:"position"`
	Column   string `json:"column"`
	Value    string `json:"value"`
}

// Session owns the working table and dirty set for one user.
type Session struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
	columns   dues.Columns
	baseline  *dues.Table
	working   *dues.Table
	dirty     map[int]struct{}
}

// New creates a clean session over a freshly fetched table.
func New(id string, table *dues.Table, cols dues.Columns, now time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		columns:   cols,
		baseline:  table.Clone(),
		working:   table.Clone(),
		dirty:     make(map[int]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Columns returns the header labels the session works with.
func (s *Session) Columns() dues.Columns {
	return s.columns
}

// Working returns a copy of the working table.
func (s *Session) Working() *dues.Table {
	return s.working.Clone()
}

// Baseline returns a copy of the table as fetched.
func (s *Session) Baseline() *dues.Table {
	return s.baseline.Clone()
}

// State reports whether the session has pending edits.
func (s *Session) State() State {
	if len(s.dirty) == 0 {
		return StateClean
	}
	return StateDirty
}

// Dirty returns the dirty positions in ascending order.
func (s *Session) Dirty() []int {
	positions := make([]int, 0, len(s.dirty))
	for p := range s.dirty {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// IsDirty reports whether position has unsaved edits.
func (s *Session) IsDirty(position int) bool {
	_, ok := s.dirty[position]
	return ok
}

// ApplyEdit writes value into the working table, marks the row dirty and
// re-derives its totals. If the row's inputs cannot be coerced the edit is
// kept, the row stays dirty with its previous totals, and an
// *dues.InvalidInputError is returned.
func (s *Session) ApplyEdit(position int, column, value string) error {
	if !s.columns.IsEditable(column) {
		return fmt.Errorf("%w: %s", ErrNotEditable, column)
	}
	if position < 0 || position >= s.working.Len() {
		return fmt.Errorf("%w: position %d", ErrNoSuchRow, position)
	}

	if err := s.working.SetCell(position, column, strings.TrimSpace(value)); err != nil {
		return err
	}
	s.dirty[position] = struct{}{}

	row, err := dues.Recalc(s.columns, s.working, position)
	if err != nil {
		return err
	}
	s.working.Rows[position] = row
	return nil
}

// ScanResult lists what a grid scan changed.
type ScanResult struct {
	Applied []Edit
	Errors  []error
}

// ScanEdits compares submitted grid cells with the working table and applies
// every editable cell whose value differs. Cells of other columns and
// positions outside the table are ignored. Errors holds at most one
// recalculation error per row, reflecting the row's final state.
func (s *Session) ScanEdits(cells []Edit) ScanResult {
	var result ScanResult
	rowErrs := make(map[int]error)

	for _, c := range cells {
		if !s.columns.IsEditable(c.Column) {
			continue
		}
		if c.Position < 0 || c.Position >= s.working.Len() {
			continue
		}
		current, err := s.working.Cell(c.Position, c.Column)
		if err != nil {
			rowErrs[c.Position] = err
			continue
		}
		value := strings.TrimSpace(c.Value)
		if value == current {
			continue
		}

		result.Applied = append(result.Applied, Edit{Position: c.Position, Column: c.Column, Value: value})
		if err := s.ApplyEdit(c.Position, c.Column, value); err != nil {
			rowErrs[c.Position] = err
		} else {
			delete(rowErrs, c.Position)
		}
	}

	positions := make([]int, 0, len(rowErrs))
	for p := range rowErrs {
		positions = append(positions, p)
	}
	sort.Ints(positions)
	for _, p := range positions {
		result.Errors = append(result.Errors, rowErrs[p])
	}
	return result
}

// CellRef addresses a written cell by column and storage row.
type CellRef struct {
	Position int    `json:"position"`
	Column   string `json:"column"`
	Row      int    `json:"row"`
	Value    int    `json:"value"`
}

func (c CellRef) String() string {
	return fmt.Sprintf("%s row %d", c.Column, c.Row)
}

// CellFailure pairs a cell with the reason its write did not happen.
type CellFailure struct {
	Cell CellRef
	Err  error
}

// SaveReport summarises a save.
type SaveReport struct {
	Attempted []CellRef
	Failures  []CellFailure
}

// Empty reports whether there was nothing to save.
func (r SaveReport) Empty() bool {
	return len(r.Attempted) == 0 && len(r.Failures) == 0
}

// Err joins every failure, or returns nil.
func (r SaveReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Save writes every editable cell of every dirty row, one point write per
// cell. Blank values are written as 0. A failed write does not stop the
// others, and the dirty set is cleared whatever the outcome.
func (s *Session) Save(ctx context.Context, w CellWriter) SaveReport {
	var report SaveReport
	defer func() {
		s.dirty = make(map[int]struct{})
	}()

	for _, position := range s.Dirty() {
		for _, column := range s.columns.Editable() {
			ref := CellRef{Position: position, Column: column, Row: dues.StorageRow(position)}

			raw, err := s.working.Cell(position, column)
			if err != nil {
				report.Failures = append(report.Failures, CellFailure{Cell: ref, Err: err})
				continue
			}
			value, err := saveValue(raw)
			if err != nil {
				report.Failures = append(report.Failures, CellFailure{
					Cell: ref,
					Err:  &dues.InvalidInputError{Position: position, Column: column, Value: raw, Err: err},
				})
				continue
			}
			ref.Value = value

			report.Attempted = append(report.Attempted, ref)
			if err := w.WriteCell(ctx, position, column, value); err != nil {
				report.Failures = append(report.Failures, CellFailure{Cell: ref, Err: err})
			}
		}
	}
	return report
}

// saveValue converts a working value to the integer written to the store.
func saveValue(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := dues.ParseCount(raw)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Discard restores the working table to the baseline and clears the dirty set.
func (s *Session) Discard() {
	s.working = s.baseline.Clone()
	s.dirty = make(map[int]struct{})
}

// Reload replaces both baseline and working table with a freshly fetched
// table and clears the dirty set.
func (s *Session) Reload(table *dues.Table) {
	s.baseline = table.Clone()
	s.working = table.Clone()
	s.dirty = make(map[int]struct{})
}

// Touch records activity at now.
func (s *Session) Touch(now time.Time) {
	s.updatedAt = now
}
