// Package cmd provides CLI commands for dues-dashboard.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/society-dues/pkg/config"
	"github.com/shunichi-ikebuchi/society-dues/pkg/layout"
	"github.com/shunichi-ikebuchi/society-dues/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dues-dashboard",
	Short: "Edit society maintenance dues stored in a spreadsheet",
	Long: `dues-dashboard serves a small web dashboard over the society's
maintenance-dues sheet. Bike, cycle and months-due counts can be edited;
the monthly and outstanding totals are recalculated per row and the edited
cells are written back one by one.

It supports:
- Google Sheets, a local SQLite sheet or an .xlsx workbook as the record store
- Save and discard of pending edits per browser session
- Exporting the working table as .xlsx

Example:
  dues-dashboard serve --port 8501
  dues-dashboard status
  dues-dashboard seed --from ./data/dues.xlsx`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(seedCmd)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// setup bundles what every command derives from the configuration.
type setup struct {
	cfg    *config.Config
	paths  *pathutil.PathResolver
	layout *layout.Layout
}

// loadSetup loads and validates configuration, paths and sheet layout.
func loadSetup() *setup {
	slog.Info("Loading configuration")

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if cfg.Debug && !debug {
		debug = true
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	exitOnError(cfg.ValidateBackend(), "invalid configuration")

	paths := pathutil.New(pathutil.Config{
		DataDir:       cfg.Storage.DataDir,
		DatabasePath:  cfg.Storage.DBPath,
		WorkbookPath:  cfg.Storage.WorkbookPath,
		SessionDBPath: cfg.Session.DBPath,
	})

	l, err := layout.Load(cfg.LayoutFile)
	exitOnError(err, "failed to load sheet layout")

	return &setup{cfg: cfg, paths: paths, layout: l}
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
