// Package config provides configuration management for the dues dashboard.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Supported record store backends.
const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
	BackendXLSX   = "xlsx"
)

// Config represents the application configuration.
type Config struct {
	Backend    string
	Sheets     SheetsConfig
	Storage    StorageConfig
	Session    SessionConfig
	Server     ServerConfig
	LayoutFile string
	Debug      bool
}

// SheetsConfig represents Google Sheets configuration.
type SheetsConfig struct {
	SpreadsheetName string
	SpreadsheetID   string
	WorksheetName   string
	CredentialsPath string
	CredentialsJSON string
	Endpoint        string
}

// StorageConfig represents local file locations.
type StorageConfig struct {
	DataDir      string
	DBPath       string
	WorkbookPath string
}

// SessionConfig represents edit-session persistence settings.
type SessionConfig struct {
	DBPath string
	TTL    time.Duration
}

// ServerConfig represents HTTP server settings.
type ServerConfig struct {
	Port  int
	Title string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("PORT", 8501)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	ttl, err := parseDurationEnv("DUES_SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid DUES_SESSION_TTL: %w", err)
	}

	config := &Config{
		Backend: getEnvOrDefault("DUES_BACKEND", BackendSheets),
		Sheets: SheetsConfig{
			SpreadsheetName: getEnvOrDefault("DUES_SPREADSHEET_NAME", "Society_Maintenance"),
			SpreadsheetID:   os.Getenv("DUES_SPREADSHEET_ID"),
			WorksheetName:   getEnvOrDefault("DUES_WORKSHEET_NAME", "Due_Amounts"),
			CredentialsPath: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
			Endpoint:        os.Getenv("DUES_SHEETS_ENDPOINT"),
		},
		Storage: StorageConfig{
			DataDir:      getEnvOrDefault("DUES_DATA_DIR", "./data"),
			DBPath:       os.Getenv("DUES_DB_PATH"),
			WorkbookPath: os.Getenv("DUES_WORKBOOK_PATH"),
		},
		Session: SessionConfig{
			DBPath: os.Getenv("DUES_SESSION_DB_PATH"),
			TTL:    ttl,
		},
		Server: ServerConfig{
			Port:  port,
			Title: getEnvOrDefault("DUES_TITLE", "Brahmaputra Apartment Dashboard - Dues Overview"),
		},
		LayoutFile: os.Getenv("DUES_LAYOUT_FILE"),
		Debug:      os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Required returns the configuration paths the selected backend needs.
func (c *Config) Required() [][]string {
	switch c.Backend {
	case BackendSheets:
		required := [][]string{{"sheets", "worksheetName"}}
		if c.Sheets.SpreadsheetID == "" {
			required = append(required, []string{"sheets", "spreadsheetName"})
		}
		// The emulator endpoint runs without credentials
		if c.Sheets.Endpoint == "" {
			required = append(required, []string{"sheets", "credentials"})
		}
		return required
	case BackendSQLite:
		return [][]string{{"sheets", "worksheetName"}, {"storage", "dataDir"}}
	case BackendXLSX:
		return [][]string{{"sheets", "worksheetName"}, {"storage", "dataDir"}}
	}
	return nil
}

// ValidateBackend checks the backend name and the keys it requires.
func (c *Config) ValidateBackend() error {
	switch c.Backend {
	case BackendSheets, BackendSQLite, BackendXLSX:
	default:
		return fmt.Errorf("unknown DUES_BACKEND %q (expected %s, %s or %s)",
			c.Backend, BackendSheets, BackendSQLite, BackendXLSX)
	}
	return c.Validate(c.Required()...)
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) == 0 {
			continue
		}

		var value string
		switch path[0] {
		case "sheets":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "spreadsheetName":
				value = c.Sheets.SpreadsheetName
			case "spreadsheetId":
				value = c.Sheets.SpreadsheetID
			case "worksheetName":
				value = c.Sheets.WorksheetName
			case "credentials":
				value = c.Sheets.CredentialsJSON
				if value == "" {
					value = c.Sheets.CredentialsPath
				}
			case "endpoint":
				value = c.Sheets.Endpoint
			}
		case "storage":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "dataDir":
				value = c.Storage.DataDir
			case "dbPath":
				value = c.Storage.DBPath
			case "workbookPath":
				value = c.Storage.WorkbookPath
			}
		case "session":
			if len(path) < 2 {
				continue
			}
			switch path[1] {
			case "dbPath":
				value = c.Session.DBPath
			}
		}

		if value == "" {
			missing = append(missing, joinPath(path))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// joinPath joins a path slice into a dot-separated string.
func joinPath(path []string) string {
	result := ""
	for i, p := range path {
		if i > 0 {
			result += "."
		}
		result += p
	}
	return result
}
