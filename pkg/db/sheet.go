package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// Sheet is a spreadsheet tab stored cell by cell in SQLite.
type Sheet struct {
	conn *Connection
	name string

	mu      sync.Mutex
	columns map[string]int // header label -> 1-based column, as of the last fetch
}

// NewSheet returns the sheet with the given tab name.
func NewSheet(conn *Connection, name string) *Sheet {
	return &Sheet{conn: conn, name: name}
}

// Describe returns a label for logs and the status command.
func (s *Sheet) Describe() string {
	return fmt.Sprintf("sqlite %s (%s)", s.conn.GetPath(), s.name)
}

// FetchAll reads every stored row. Row 1 is the header.
func (s *Sheet) FetchAll(ctx context.Context) (*dues.Table, error) {
	grid, err := s.readGrid(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dues.ErrConnection, err)
	}

	var headers []string
	var records [][]string
	if len(grid) > 0 {
		headers = grid[0]
		records = grid[1:]
	}

	s.mu.Lock()
	s.columns = columnMap(headers)
	s.mu.Unlock()

	return dues.NewTable(headers, records), nil
}

// readGrid returns the sheet as dense rows, starting at row 1.
func (s *Sheet) readGrid(ctx context.Context) ([][]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT row_no, col_no, value FROM sheet_cells
		WHERE sheet = ?
		ORDER BY row_no, col_no
	`, s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	var grid [][]string
	for rows.Next() {
		var rowNo, colNo int
		var value string
		if err := rows.Scan(&rowNo, &colNo, &value); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		for len(grid) < rowNo {
			grid = append(grid, nil)
		}
		row := grid[rowNo-1]
		for len(row) < colNo {
			row = append(row, "")
		}
		row[colNo-1] = value
		grid[rowNo-1] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cells: %w", err)
	}
	return grid, nil
}

// WriteCell stores value at the record's storage row and the column's header
// position as of the last fetch.
func (s *Sheet) WriteCell(ctx context.Context, position int, column string, value int) error {
	row := dues.StorageRow(position)

	col, err := s.columnIndex(ctx, column)
	if err != nil {
		return dues.NewWriteError(row, column, err)
	}

	err = s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sheet_cells (sheet, row_no, col_no, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(sheet, row_no, col_no) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, s.name, row, col, strconv.Itoa(value)); err != nil {
			return err
		}
		return setMetadata(ctx, tx, s.lastWriteKey(), time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return dues.NewWriteError(row, column, fmt.Errorf("%w: %v", dues.ErrConnection, err))
	}
	return nil
}

func (s *Sheet) columnIndex(ctx context.Context, column string) (int, error) {
	s.mu.Lock()
	cols := s.columns
	s.mu.Unlock()

	if cols == nil {
		grid, err := s.readGrid(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", dues.ErrConnection, err)
		}
		var headers []string
		if len(grid) > 0 {
			headers = grid[0]
		}
		cols = columnMap(headers)

		s.mu.Lock()
		s.columns = cols
		s.mu.Unlock()
	}

	idx, ok := cols[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", dues.ErrUnknownColumn, column)
	}
	return idx, nil
}

// ReplaceAll overwrites the whole sheet with the table, header included.
func (s *Sheet) ReplaceAll(ctx context.Context, table *dues.Table) error {
	err := s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_cells WHERE sheet = ?`, s.name); err != nil {
			return fmt.Errorf("failed to clear sheet: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sheet_cells (sheet, row_no, col_no, value) VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for c, h := range table.Headers {
			if _, err := stmt.ExecContext(ctx, s.name, 1, c+1, h); err != nil {
				return fmt.Errorf("failed to insert header: %w", err)
			}
		}
		for p, r := range table.Rows {
			for c, v := range r.Cells {
				if v == "" {
					continue
				}
				if _, err := stmt.ExecContext(ctx, s.name, dues.StorageRow(p), c+1, v); err != nil {
					return fmt.Errorf("failed to insert cell: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.columns = columnMap(table.Headers)
	s.mu.Unlock()
	return nil
}

// LastWrite returns the time of the last point write, if any.
func (s *Sheet) LastWrite(ctx context.Context) (sql.NullString, error) {
	var value sql.NullString
	err := s.conn.QueryRow(ctx, `SELECT value FROM sheet_metadata WHERE key = ?`, s.lastWriteKey()).Scan(&value)
	if err == sql.ErrNoRows {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to get last write: %w", err)
	}
	return value, nil
}

func (s *Sheet) lastWriteKey() string {
	return "last_write:" + s.name
}

func setMetadata(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sheet_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
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
