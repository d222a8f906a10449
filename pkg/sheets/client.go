// Package sheets provides the Google Sheets record store, authenticated with a
// service-account credential bundle.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
)

// Scopes grants read/write on spreadsheets and the drive access needed to
// open a spreadsheet by name.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveScope,
}

// ErrSpreadsheetNotFound is returned when no spreadsheet has the configured name.
var ErrSpreadsheetNotFound = fmt.Errorf("%w: spreadsheet not found", dues.ErrConnection)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Config holds the spreadsheet address and credential sources.
type Config struct {
	CredentialsPath string        // Path to the service-account JSON bundle
	CredentialsJSON string        // Inline service-account JSON, takes precedence over CredentialsPath
	SpreadsheetID   string        // Skips the drive lookup when set
	SpreadsheetName string        // Document name, used with drive files.list
	WorksheetName   string        // Tab name
	APIEndpoint     string        // Custom API endpoint (emulator or tests), disables auth
	Timeout         time.Duration // Default: 30 seconds
}

// Client wraps the Sheets and Drive services for one worksheet.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
	cfg    Config

	mu            sync.Mutex
	spreadsheetID string
	columns       map[string]int
}

// NewClient creates a new Sheets client authenticated as the service account.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	// If custom endpoint is specified (emulator mode), use simplified client
	if cfg.APIEndpoint != "" {
		return newEmulatorClient(ctx, cfg)
	}

	credBytes, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwtConfig, err := google.JWTConfigFromJSON(credBytes, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse credentials: %v", dues.ErrAuth, err)
	}

	httpClient := jwtConfig.Client(ctx)
	httpClient.Timeout = cfg.Timeout

	return newClient(ctx, cfg, option.WithHTTPClient(httpClient))
}

// newEmulatorClient creates a client for a local Sheets emulator (no OAuth).
func newEmulatorClient(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSuffix(cfg.APIEndpoint, "/") + "/"
	return newClientWithEndpoints(ctx, cfg, endpoint, endpoint+"drive/v3/",
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithoutAuthentication(),
	)
}

func newClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	return newClientWithEndpoints(ctx, cfg, "", "", opts...)
}

func newClientWithEndpoints(ctx context.Context, cfg Config, sheetsEndpoint, driveEndpoint string, opts ...option.ClientOption) (*Client, error) {
	sheetsOpts := opts
	driveOpts := opts
	if sheetsEndpoint != "" {
		sheetsOpts = append(append([]option.ClientOption(nil), opts...), option.WithEndpoint(sheetsEndpoint))
		driveOpts = append(append([]option.ClientOption(nil), opts...), option.WithEndpoint(driveEndpoint))
	}

	sheetsService, err := sheets.NewService(ctx, sheetsOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	return &Client{
		sheets:        sheetsService,
		drive:         driveService,
		cfg:           cfg,
		spreadsheetID: cfg.SpreadsheetID,
	}, nil
}

// loadCredentials returns the service-account bundle with its private key
// repaired: bundles pasted into env files often carry a literal `\n`.
func loadCredentials(cfg Config) ([]byte, error) {
	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 {
		if cfg.CredentialsPath == "" {
			return nil, fmt.Errorf("%w: no service account credentials configured", dues.ErrAuth)
		}
		var err error
		raw, err = os.ReadFile(cfg.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to read credentials file: %v", dues.ErrAuth, err)
		}
	}
	return fixPrivateKey(raw)
}

func fixPrivateKey(raw []byte) ([]byte, error) {
	var bundle map[string]any
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("%w: credentials are not valid JSON: %v", dues.ErrAuth, err)
	}
	key, ok := bundle["private_key"].(string)
	if !ok || !strings.Contains(key, `\n`) {
		return raw, nil
	}
	bundle["private_key"] = strings.ReplaceAll(key, `\n`, "\n")
	return json.Marshal(bundle)
}

// Describe returns a label for logs and the status command.
func (c *Client) Describe() string {
	name := c.cfg.SpreadsheetName
	if c.cfg.SpreadsheetID != "" {
		name = c.cfg.SpreadsheetID
	}
	return fmt.Sprintf("google sheets %s (%s)", name, c.cfg.WorksheetName)
}

// SpreadsheetID resolves the document ID, looking it up by name on first use.
func (c *Client) SpreadsheetID(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.spreadsheetID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(c.cfg.SpreadsheetName), spreadsheetMimeType)
	resp, err := c.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, c.cfg.SpreadsheetName)
	}

	c.mu.Lock()
	c.spreadsheetID = resp.Files[0].Id
	c.mu.Unlock()
	return resp.Files[0].Id, nil
}

// FetchAll reads the whole worksheet. Row 1 is the header.
func (c *Client) FetchAll(ctx context.Context) (*dues.Table, error) {
	id, err := c.SpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.sheets.Spreadsheets.Values.Get(id, quoteSheet(c.cfg.WorksheetName)).
		ValueRenderOption("UNFORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	grid := toStrings(resp.Values)
	var headers []string
	var records [][]string
	if len(grid) > 0 {
		headers = grid[0]
		records = grid[1:]
	}

	c.mu.Lock()
	c.columns = columnMap(headers)
	c.mu.Unlock()

	return dues.NewTable(headers, records), nil
}

// WriteCell updates one cell: storage row position+2, column by header
// position as of the last fetch.
func (c *Client) WriteCell(ctx context.Context, position int, column string, value int) error {
	row := dues.StorageRow(position)

	id, err := c.SpreadsheetID(ctx)
	if err != nil {
		return dues.NewWriteError(row, column, err)
	}
	col, err := c.columnIndex(ctx, id, column)
	if err != nil {
		return dues.NewWriteError(row, column, err)
	}

	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return dues.NewWriteError(row, column, err)
	}

	body := &sheets.ValueRange{Values: [][]interface{}{{value}}}
	_, err = c.sheets.Spreadsheets.Values.Update(id, quoteSheet(c.cfg.WorksheetName)+"!"+cell, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return dues.NewWriteError(row, column, classify(err))
	}
	return nil
}

func (c *Client) columnIndex(ctx context.Context, id, column string) (int, error) {
	c.mu.Lock()
	cols := c.columns
	c.mu.Unlock()

	if cols == nil {
		resp, err := c.sheets.Spreadsheets.Values.Get(id, quoteSheet(c.cfg.WorksheetName)+"!1:1").
			Context(ctx).
			Do()
		if err != nil {
			return 0, classify(err)
		}
		grid := toStrings(resp.Values)
		var headers []string
		if len(grid) > 0 {
			headers = grid[0]
		}
		cols = columnMap(headers)

		c.mu.Lock()
		c.columns = cols
		c.mu.Unlock()
	}

	idx, ok := cols[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", dues.ErrUnknownColumn, column)
	}
	return idx, nil
}

// classify maps API and transport failures onto the dues error kinds.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", dues.ErrAuth, apiErr.Message)
		case apiErr.Code == http.StatusBadRequest:
			return fmt.Errorf("request rejected: %s", apiErr.Message)
		default:
			return fmt.Errorf("%w: sheets API error (status %d): %s", dues.ErrConnection, apiErr.Code, apiErr.Message)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", dues.ErrAuth, retrieveErr)
	}

	return fmt.Errorf("%w: %v", dues.ErrConnection, err)
}

func toStrings(values [][]interface{}) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatValue(v)
		}
		grid[i] = cells
	}
	return grid
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return dues.FormatNumber(t)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}

// quoteSheet wraps a tab name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
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
