package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/db"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/store"
)

const defaultHistoryLimit = 20

var historyLimit int

// historyCmd lists result documents stored in the database.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List assessments stored in the database",
	Long: `List the most recent result documents stored in the database, newest first.
Requires database.enabled. Use "assessor report --id <id>" to show one.`,
	Example: `  assessor history
  assessor history --limit 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "Maximum number of results to list")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	results, closeDB, err := openResultStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := results.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), rows)
	return nil
}

// openResultStore connects to the configured database. The returned function
// closes the connection.
func openResultStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*store.DBStore, func(), error) {
	if !cfg.Database.Enabled {
		return nil, nil, errors.NewConfigFieldError(errors.CodeConfiguration,
			"database storage is disabled", "database.enabled", false)
	}

	database, err := db.Connect(ctx, &cfg.Database.Config)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(); err != nil {
			logger.Warn("Failed to close database connection", "error", err)
		}
	}
	return store.NewDBStore(db.NewResultRepository(database), logger), closeDB, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printHistory prints one row per stored result.
func printHistory(w io.Writer, rows []*db.AssessmentResult) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No stored assessments.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Created", "Target", "Task", "Report", "Total")
	for _, r := range rows {
		_ = table.Append([]string{
			r.ID.String(),
			timestamp(r.CreatedAt.Local()),
			r.Target,
			r.TaskID,
			r.ReportID,
			strconv.Itoa(r.TotalVulnerabilities),
		})
	}
	_ = table.Render()
}
