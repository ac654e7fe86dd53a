package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/engine"
	"github.com/anstrom/assessor/internal/errors"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/metrics"
	"github.com/anstrom/assessor/internal/store"
)

// Preset targets offered by the interactive prompt.
const (
	presetPublicTarget = "scanme.nmap.org"
	presetLocalTarget  = "127.0.0.1"
)

// assessCmd runs a full assessment without prompting.
var assessCmd = &cobra.Command{
	Use:   "assess <target>",
	Short: "Run discovery and a vulnerability assessment against a target",
	Long: `Run the complete assessment pipeline against a target: nmap discovery, then
target, task and report handling on the GVM service. Only scan targets you
are authorized to test.`,
	Example: `  assessor assess 192.168.1.10
  ASSESSOR_GVM_PASSWORD=secret assessor assess scanme.nmap.org`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssessment(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)
}

// runInteractive asks for a target and assesses it. Declining or an unknown
// choice ends the program without running anything.
func runInteractive(cmd *cobra.Command, _ []string) error {
	target, ok, err := promptTarget(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return runAssessment(cmd, target)
}

// promptTarget offers the preset targets or a custom one. A custom target
// needs an explicit "yes" to the permission question.
func promptTarget(in io.Reader, out io.Writer) (string, bool, error) {
	reader := bufio.NewReader(in)

	fmt.Fprintf(out, "1. %s\n2. %s\n3. Custom target\n", presetPublicTarget, presetLocalTarget)
	fmt.Fprint(out, "Select (1/2/3): ")
	choice, err := readLine(reader)
	if err != nil {
		return "", false, err
	}

	switch choice {
	case "1":
		return presetPublicTarget, true, nil
	case "2":
		return presetLocalTarget, true, nil
	case "3":
		fmt.Fprint(out, "Enter target: ")
		target, err := readLine(reader)
		if err != nil {
			return "", false, err
		}
		if target == "" {
			return "", false, nil
		}
		fmt.Fprint(out, "Have permission? (yes/no): ")
		answer, err := readLine(reader)
		if err != nil {
			return "", false, err
		}
		if strings.ToLower(answer) != "yes" {
			return "", false, nil
		}
		return target, true, nil
	default:
		return "", false, nil
	}
}

// readLine reads one trimmed line. EOF reads as an empty answer.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// runAssessment runs the engine once. Pipeline failures are logged and the
// command still succeeds; only setup and configuration problems fail it.
func runAssessment(cmd *cobra.Command, target string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	outcome, err := engine.New(cfg, deps).Run(ctx, target)
	if err != nil {
		return reportFailure(out, err)
	}

	printSummary(out, outcome.Document)
	for _, where := range outcome.Saved {
		fmt.Fprintf(out, "Results saved: %s\n", where)
	}
	fmt.Fprintf(out, "\nScan Complete: %d vulnerabilities found\n", outcome.Document.TotalVulnerabilities)
	return nil
}

// reportFailure prints a failed run. Only configuration errors are returned,
// every pipeline failure, authentication included, exits normally.
func reportFailure(out io.Writer, err error) error {
	if errors.IsFatal(err) {
		return err
	}
	fmt.Fprintf(out, "\nAssessment failed [%s]: %v\n", errors.GetCode(err), err)
	return nil
}

// buildDeps wires the result stores and metrics for a run.
func buildDeps(ctx context.Context, cfg *config.Config, logger *logging.Logger) (engine.Deps, func(), error) {
	files, err := store.NewFileStore(cfg.Results.Dir, logger)
	if err != nil {
		return engine.Deps{}, nil, err
	}

	deps := engine.Deps{
		Discoveries: files,
		Documents:   []store.DocumentSaver{files},
		Metrics:     metrics.NewPrometheus(cfg.Metrics.Textfile),
		Logger:      logger,
	}
	cleanup := func() {}

	if cfg.Database.Enabled {
		results, closeDB, err := openResultStore(ctx, cfg, logger)
		if err != nil {
			return engine.Deps{}, nil, err
		}
		deps.Documents = append(deps.Documents, results)
		cleanup = closeDB
	}

	return deps, cleanup, nil
}
