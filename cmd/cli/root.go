// Package cli provides the command-line interface of the assessor.
// Without a subcommand it prompts for a target and runs a full assessment;
// subcommands run discovery alone or print a saved result document.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anstrom/assessor/internal/config"
	"github.com/anstrom/assessor/internal/logging"
)

const envPrefix = "ASSESSOR"

var (
	cfgFile string
	verbose bool
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "assessor",
	Short: "Two-stage network security assessment",
	Long: `Assessor runs a fast nmap discovery scan against a target, then drives a
full vulnerability assessment on a Greenbone (GVM) service over GMP and saves
the severity-classified findings as a JSON document.

Run without arguments to choose a target interactively.`,
	Version:       getVersion(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runInteractive,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind verbose flag: %v\n", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// ASSESSOR_GVM_PASSWORD overrides gvm.password, and so on
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// getConfigFilePath returns the config file in use, if any.
func getConfigFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return viper.ConfigFileUsed()
}

// overrides lists the settings that may come from the environment or flags.
var overrides = []struct {
	key   string
	apply func(v *viper.Viper, key string, cfg *config.Config)
}{
	{"gvm.connection", func(v *viper.Viper, k string, c *config.Config) { c.GVM.Connection = v.GetString(k) }},
	{"gvm.host", func(v *viper.Viper, k string, c *config.Config) { c.GVM.Host = v.GetString(k) }},
	{"gvm.port", func(v *viper.Viper, k string, c *config.Config) { c.GVM.Port = v.GetInt(k) }},
	{"gvm.socket_path", func(v *viper.Viper, k string, c *config.Config) { c.GVM.SocketPath = v.GetString(k) }},
	{"gvm.username", func(v *viper.Viper, k string, c *config.Config) { c.GVM.Username = v.GetString(k) }},
	{"gvm.password", func(v *viper.Viper, k string, c *config.Config) { c.GVM.Password = v.GetString(k) }},
	{"gvm.tls_skip_verify", func(v *viper.Viper, k string, c *config.Config) { c.GVM.TLSSkipVerify = v.GetBool(k) }},
	{"assessment.poll_interval", func(v *viper.Viper, k string, c *config.Config) { c.Assessment.PollInterval = v.GetDuration(k) }},
	{"assessment.poll_timeout", func(v *viper.Viper, k string, c *config.Config) { c.Assessment.PollTimeout = v.GetDuration(k) }},
	{"assessment.strict_findings", func(v *viper.Viper, k string, c *config.Config) { c.Assessment.StrictFindings = v.GetBool(k) }},
	{"discovery.ports", func(v *viper.Viper, k string, c *config.Config) { c.Discovery.Ports = v.GetString(k) }},
	{"discovery.timeout", func(v *viper.Viper, k string, c *config.Config) { c.Discovery.Timeout = v.GetDuration(k) }},
	{"results.dir", func(v *viper.Viper, k string, c *config.Config) { c.Results.Dir = v.GetString(k) }},
	{"database.enabled", func(v *viper.Viper, k string, c *config.Config) { c.Database.Enabled = v.GetBool(k) }},
	{"database.password", func(v *viper.Viper, k string, c *config.Config) { c.Database.Password = v.GetString(k) }},
	{"metrics.textfile", func(v *viper.Viper, k string, c *config.Config) { c.Metrics.Textfile = v.GetString(k) }},
	{"dns.server", func(v *viper.Viper, k string, c *config.Config) { c.DNS.Server = v.GetString(k) }},
	{"logging.level", func(v *viper.Viper, k string, c *config.Config) { c.Logging.Level = v.GetString(k) }},
	{"logging.format", func(v *viper.Viper, k string, c *config.Config) { c.Logging.Format = v.GetString(k) }},
	{"logging.output", func(v *viper.Viper, k string, c *config.Config) { c.Logging.Output = v.GetString(k) }},
}

// applyOverrides copies every override set in v onto cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, o.key, cfg)
		}
	}
}

// loadConfig loads the config file, applies environment and flag overrides
// and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(getConfigFilePath())
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	applyOverrides(viper.GetViper(), cfg)
	if verbose {
		cfg.Logging.Level = string(logging.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration, creates the results and logs directories
// and installs the default logger.
func setup() (*config.Config, *logging.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}
	return cfg, initLogging(cfg), nil
}

// initLogging initializes structured logging based on configuration.
func initLogging(cfg *config.Config) *logging.Logger {
	logConfig := logging.Config{
		Level:     logging.LogLevel(cfg.Logging.Level),
		Format:    logging.LogFormat(cfg.Logging.Format),
		Output:    cfg.Logging.Output,
		AddSource: cfg.Logging.Level == "debug",
	}

	logger, err := logging.New(logConfig)
	if err != nil {
		// Fall back to default if creation fails
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)

	if verbose {
		logging.Debug("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
	return logger
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
