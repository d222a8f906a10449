package dues

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnection indicates the record store could not be reached.
	ErrConnection = errors.New("record store unreachable")

	// ErrAuth indicates the credential bundle was rejected by the record store.
	ErrAuth = errors.New("record store rejected credentials")

	// ErrEmptyData indicates the sheet has no records.
	ErrEmptyData = errors.New("no data found in the sheet")

	// ErrCountOutOfRange is returned for counts above MaxCount in magnitude.
	ErrCountOutOfRange = errors.New("count out of range")

	// ErrUnknownColumn is returned when a column name is not part of the header.
	ErrUnknownColumn = errors.New("unknown column")
)

// InvalidInputError reports a cell that could not be coerced to the numeric
// type the recalculation needs.
type InvalidInputError struct {
	Position int
	Column   string
	Value    string
	Err      error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("row %d: invalid %s value %q: %v", e.Position, e.Column, e.Value, e.Err)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// WriteError reports a rejected point write. Row is the storage row (1-based,
// header included) so the message matches what a user sees in the sheet.
type WriteError struct {
	Row    int
	Column string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s row %d: %v", e.Column, e.Row, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError.
func NewWriteError(row int, column string, err error) *WriteError {
	return &WriteError{Row: row, Column: column, Err: err}
}

// MissingColumnsError is returned when the header lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet header is missing required columns: %s", strings.Join(e.Columns, ", "))
}
