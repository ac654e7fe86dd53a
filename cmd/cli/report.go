package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anstrom/assessor/internal/report"
)

var (
	reportSummaryOnly bool
	reportID          string
)

// reportCmd prints a saved result document.
var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Show a saved vulnerability document",
	Long: `Print the severity distribution and the vulnerability list of a result
document written by a previous run (openvas_<timestamp>.json), or of a
document stored in the database when --id is given.`,
	Example: `  assessor report scan_results/openvas_20261014_120000.json
  assessor report scan_results/openvas_20261014_120000.json --summary
  assessor report --id 3f0c2a9e-8f57-4f0e-9d43-2b1b8f6f0c11`,
	Args: reportArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportSummaryOnly, "summary", false, "Only print the severity distribution")
	reportCmd.Flags().StringVar(&reportID, "id", "", "Show the stored document with this ID instead of a file")
}

// reportArgs requires exactly one of a file argument or --id.
func reportArgs(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	switch {
	case id != "" && len(args) > 0:
		return fmt.Errorf("give either a file or --id, not both")
	case id == "" && len(args) != 1:
		return fmt.Errorf("requires a result file or --id")
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	doc, err := loadReport(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scan of %s\n", timestamp(doc.Timestamp))
	printSummary(out, doc)
	if !reportSummaryOnly {
		fmt.Fprintln(out)
		printVulnerabilities(out, doc)
	}
	return nil
}

func loadReport(cmd *cobra.Command, args []string) (*report.Document, error) {
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		return report.LoadDocument(args[0])
	}

	cfg, logger, err := setup()
	if err != nil {
		return nil, err
	}
	ctx := commandContext(cmd)
	results, closeDB, err := openResultStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeDB()
	return results.LoadDocument(ctx, id)
}
