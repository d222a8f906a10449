// Package recordstore selects and opens the backend that holds the dues sheet.
package recordstore

import (
	"context"
	"fmt"

	"github.com/shunichi-ikebuchi/society-dues/pkg/config"
	"github.com/shunichi-ikebuchi/society-dues/pkg/db"
	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/pathutil"
	"github.com/shunichi-ikebuchi/society-dues/pkg/sheets"
	"github.com/shunichi-ikebuchi/society-dues/pkg/workbook"
)

// Store reads the whole dues sheet and writes single cells back.
type Store interface {
	FetchAll(ctx context.Context) (*dues.Table, error)
	WriteCell(ctx context.Context, position int, column string, value int) error
	Describe() string
}

// Opened is a store plus the function that releases it.
type Opened struct {
	Store
	close func() error
}

// Close releases the backend's resources.
func (o *Opened) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, paths *pathutil.PathResolver) (*Opened, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		client, err := sheets.NewClient(ctx, sheets.Config{
			CredentialsPath: cfg.Sheets.CredentialsPath,
			CredentialsJSON: cfg.Sheets.CredentialsJSON,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			SpreadsheetName: cfg.Sheets.SpreadsheetName,
			WorksheetName:   cfg.Sheets.WorksheetName,
			APIEndpoint:     cfg.Sheets.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return &Opened{Store: client}, nil

	case config.BackendSQLite:
		conn, err := db.Open(paths.GetDatabasePath())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dues.ErrConnection, err)
		}
		return &Opened{Store: db.NewSheet(conn, cfg.Sheets.WorksheetName), close: conn.Close}, nil

	case config.BackendXLSX:
		return &Opened{Store: workbook.New(paths.GetWorkbookPath(), cfg.Sheets.WorksheetName)}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
