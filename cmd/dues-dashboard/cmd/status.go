package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/society-dues/pkg/db"
	"github.com/shunichi-ikebuchi/society-dues/pkg/dues"
	"github.com/shunichi-ikebuchi/society-dues/pkg/recordstore"
	"github.com/shunichi-ikebuchi/society-dues/pkg/sessionstore"
)

var statusPurge bool

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display sheet and session statistics",
	Long: `Fetch the dues sheet once and display a summary.

Shows:
- Record store in use
- Number of rows and rows with months due
- Sum of monthly and outstanding totals as stored in the sheet
- Last local write (sqlite backend)
- Stored edit sessions

Example:
  dues-dashboard status
  dues-dashboard status --purge`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusPurge, "purge", false, "delete expired edit sessions")
}

func runStatus(cmd *cobra.Command, args []string) {
	rt := loadSetup()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := recordstore.Open(ctx, rt.cfg, rt.paths)
	exitOnError(err, "failed to open record store")
	defer store.Close()

	slog.Debug("Fetching sheet", "backend", store.Describe())
	table, err := store.FetchAll(ctx)
	exitOnError(err, "failed to fetch sheet")

	cols := rt.layout.DuesColumns()
	exitOnError(table.Validate(cols), "sheet is not usable")

	summary := dues.Summarize(cols, table)

	// Display statistics
	fmt.Println("\n=== Dues Sheet ===")
	fmt.Printf("Record store:           %s\n", store.Describe())
	fmt.Printf("Rows:                   %d\n", summary.Rows)
	fmt.Printf("Rows with dues:         %d\n", summary.RowsWithDues)
	fmt.Printf("Total per month:        %s\n", dues.FormatNumber(summary.TotalPerMonth))
	fmt.Printf("Total outstanding:      %s\n", dues.FormatNumber(summary.TotalOutstanding))
	if summary.Unparsable > 0 {
		fmt.Printf("Rows not summed:        %d\n", summary.Unparsable)
	}

	if sheet, ok := store.Store.(*db.Sheet); ok {
		lastWrite, err := sheet.LastWrite(ctx)
		exitOnError(err, "failed to get last write")
		if lastWrite.Valid {
			fmt.Printf("Last write:             %s\n", lastWrite.String)
		} else {
			fmt.Printf("Last write:             (never)\n")
		}
	}

	sessions, err := sessionstore.New(rt.paths.GetSessionDBPath(), rt.cfg.Session.TTL)
	exitOnError(err, "failed to open session store")
	defer sessions.Close()

	if statusPurge {
		n, err := sessions.Purge()
		exitOnError(err, "failed to purge sessions")
		fmt.Printf("Expired sessions purged: %d\n", n)
	}
	count, err := sessions.Count()
	exitOnError(err, "failed to count sessions")
	fmt.Printf("Stored sessions:        %d\n", count)

	fmt.Println()

	slog.Info("Status displayed successfully")
}
