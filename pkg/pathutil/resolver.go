// Package pathutil provides centralized path management for the dashboard's
// local files: the SQLite sheet, the xlsx workbook and the session database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathResolver manages paths for local data files.
type PathResolver struct {
	dataDir       string
	databasePath  string
	workbookPath  string
	sessionDBPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataDir is the root directory for all local files (e.g., ./data)
	DataDir string
	// DatabasePath is the path to the SQLite sheet database
	DatabasePath string
	// WorkbookPath is the path to the .xlsx record store
	WorkbookPath string
	// SessionDBPath is the path to the bbolt session database
	SessionDBPath string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {DataDir}/dues.db
// If WorkbookPath is empty, it defaults to {DataDir}/dues.xlsx
// If SessionDBPath is empty, it defaults to {DataDir}/sessions.db
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir, "dues.db")
	}

	workbookPath := config.WorkbookPath
	if workbookPath == "" {
		workbookPath = filepath.Join(config.DataDir, "dues.xlsx")
	}

	sessionDBPath := config.SessionDBPath
	if sessionDBPath == "" {
		sessionDBPath = filepath.Join(config.DataDir, "sessions.db")
	}

	return &PathResolver{
		dataDir:       config.DataDir,
		databasePath:  dbPath,
		workbookPath:  workbookPath,
		sessionDBPath: sessionDBPath,
	}
}

// GetDataDir returns the data root directory.
func (p *PathResolver) GetDataDir() string {
	return p.dataDir
}

// GetDatabasePath returns the SQLite database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetWorkbookPath returns the workbook file path.
func (p *PathResolver) GetWorkbookPath() string {
	return p.workbookPath
}

// GetSessionDBPath returns the session database file path.
func (p *PathResolver) GetSessionDBPath() string {
	return p.sessionDBPath
}

// ExportFileName returns the download name for a workbook export.
// Example: dues-2024-01-31.xlsx
func ExportFileName(worksheet string, at time.Time) string {
	if worksheet == "" {
		worksheet = "dues"
	}
	return fmt.Sprintf("%s-%s.xlsx", worksheet, at.Format("2006-01-02"))
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
