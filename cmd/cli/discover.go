package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/discovery"
	"github.com/anstrom/assessor/internal/logging"
	"github.com/anstrom/assessor/internal/store"
)

// discoverCmd represents the discover command.
var discoverCmd = &cobra.Command{
	Use:   "discover <target>",
	Short: "Run the discovery scan only",
	Long: `Run the nmap discovery stage against a target, print the alive hosts and
their services, and save the result as nmap_<timestamp>.json in the results
directory. No GVM connection is made.`,
	Example: `  assessor discover 192.168.1.0/24
  assessor discover scanme.nmap.org --ports 22,80,443
  assessor discover 10.0.0.5 --no-scripts --timeout 2m`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	addDiscoveryFlags(discoverCmd.Flags())

	for key, flag := range map[string]string{
		"discovery.ports":   "ports",
		"discovery.timeout": "timeout",
	} {
		if err := viper.BindPFlag(key, discoverCmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

func addDiscoveryFlags(fs *pflag.FlagSet) {
	fs.String("ports", "", "Ports to scan (nmap syntax, default is nmap's top ports)")
	fs.Duration("timeout", 0, "Maximum duration of the discovery scan (0 for none)")
	fs.Bool("no-scripts", false, "Skip the default NSE script set (-sC)")
	fs.Bool("no-version", false, "Skip service and version detection (-sV)")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	applyDiscoveryFlags(cmd.Flags(), cfg)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := newScanner(cfg, logger).Scan(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printDiscovery(out, result)

	files, err := store.NewFileStore(cfg.Results.Dir, logger)
	if err != nil {
		return err
	}
	path, err := files.SaveDiscovery(result)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Results saved: %s\n", path)
	return nil
}

// applyDiscoveryFlags turns the capability switches off when requested.
func applyDiscoveryFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if skip, err := fs.GetBool("no-scripts"); err == nil && skip {
		cfg.Discovery.DefaultScripts = false
	}
	if skip, err := fs.GetBool("no-version"); err == nil && skip {
		cfg.Discovery.ServiceDetection = false
	}
}

func newScanner(cfg *config.Config, logger *logging.Logger) *discovery.Scanner {
	return discovery.NewScanner(
		discovery.WithServiceDetection(cfg.Discovery.ServiceDetection),
		discovery.WithDefaultScripts(cfg.Discovery.DefaultScripts),
		discovery.WithPorts(cfg.Discovery.Ports),
		discovery.WithTimeout(cfg.Discovery.Timeout),
		discovery.WithLogger(logger.WithComponent("discovery")),
	)
}
