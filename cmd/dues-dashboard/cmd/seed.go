package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/society-dues/pkg/db"
	"github.com/shunichi-ikebuchi/society-dues/pkg/workbook"
)

var (
	seedFrom  string
	seedSheet string
)

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load an .xlsx workbook into the local SQLite sheet",
	Long: `Copy one worksheet of an .xlsx workbook into the local SQLite sheet
used by DUES_BACKEND=sqlite. The existing rows of that sheet are replaced.

Example:
  dues-dashboard seed --from ./Society_Maintenance.xlsx
  dues-dashboard seed --from ./export.xlsx --sheet Due_Amounts`,
	Run: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFrom, "from", "", "workbook to import (required)")
	seedCmd.Flags().StringVar(&seedSheet, "sheet", "", "worksheet to read (default DUES_WORKSHEET_NAME)")
	_ = seedCmd.MarkFlagRequired("from")
}

func runSeed(cmd *cobra.Command, args []string) {
	rt := loadSetup()
	ctx := context.Background()

	sheetName := seedSheet
	if sheetName == "" {
		sheetName = rt.cfg.Sheets.WorksheetName
	}

	slog.Info("Reading workbook", "path", seedFrom, "sheet", sheetName)
	table, err := workbook.New(seedFrom, sheetName).FetchAll(ctx)
	exitOnError(err, "failed to read workbook")
	exitOnError(table.Validate(rt.layout.DuesColumns()), "workbook is not usable")

	dbPath := rt.paths.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	sheet := db.NewSheet(conn, rt.cfg.Sheets.WorksheetName)
	exitOnError(sheet.ReplaceAll(ctx, table), "failed to store sheet")

	fmt.Printf("Seeded %d rows into %s\n", table.Len(), sheet.Describe())
	slog.Info("Seed completed", "rows", table.Len())
}
