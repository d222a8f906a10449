// Package db provides the SQLite-backed local sheet used when the dashboard
// runs without a Google spreadsheet.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Sheet cells
-- One row per non-empty cell, addressed like a spreadsheet (1-based row/col).
-- Row 1 holds the header.
CREATE TABLE IF NOT EXISTS sheet_cells (
    sheet TEXT NOT NULL,
    row_no INTEGER NOT NULL,
    col_no INTEGER NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (sheet, row_no, col_no)
);

CREATE INDEX IF NOT EXISTS idx_sheet_cells_sheet_row
    ON sheet_cells(sheet, row_no);

-- Sheet metadata table
-- Stores key-value metadata such as the last write time per sheet
CREATE TABLE IF NOT EXISTS sheet_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
