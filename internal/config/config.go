package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/assessor/internal/db"
	"github.com/anstrom/assessor/internal/errors"
)

const (
	defaultGVMPort      = 9390
	defaultPollInterval = 15 * time.Second
	defaultGVMTimeout   = 2 * time.Minute
	defaultDNSTimeout   = 5 * time.Second
	dirPerm             = 0750
	filePerm            = 0600
)

// Connection types for the scan-management service.
const (
	ConnectionTLS  = "tls"
	ConnectionUnix = "unix"
)

// Config represents the complete assessor configuration
type Config struct {
	// Remote scan-management service
	GVM GVMConfig `yaml:"gvm" json:"gvm"`

	// Discovery scan settings
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Vulnerability assessment policy
	Assessment AssessmentConfig `yaml:"assessment" json:"assessment"`

	// Where result documents are written
	Results ResultsConfig `yaml:"results" json:"results"`

	// Optional database persistence
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Hostname resolution for fallback targets
	DNS DNSConfig `yaml:"dns" json:"dns"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// GVMConfig holds connection settings for the GMP service
type GVMConfig struct {
	// Connection type: tls or unix
	Connection string `yaml:"connection" json:"connection" validate:"oneof=tls unix"`

	Host string `yaml:"host" json:"host" validate:"required_if=Connection tls"`
	Port int    `yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`

	// Unix socket path, used when Connection is unix
	SocketPath string `yaml:"socket_path" json:"socket_path" validate:"required_if=Connection unix"`

	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"-"`

	// gvmd ships with a self-signed certificate by default
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`

	// Per-request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// DiscoveryConfig holds the discovery scan capability profile
type DiscoveryConfig struct {
	// Enable service/version detection (-sV)
	ServiceDetection bool `yaml:"service_detection" json:"service_detection"`

	// Run the default script set (-sC)
	DefaultScripts bool `yaml:"default_scripts" json:"default_scripts"`

	// Ports to scan, empty for nmap's default set
	Ports string `yaml:"ports" json:"ports"`

	// Maximum duration of the discovery scan, 0 for none
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"min=0"`
}

// AssessmentConfig holds the task and aggregation policy
type AssessmentConfig struct {
	// Interval between task status queries
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" validate:"gt=0"`

	// Maximum time to wait for a terminal task status, 0 waits forever
	PollTimeout time.Duration `yaml:"poll_timeout" json:"poll_timeout" validate:"min=0"`

	// Substring that marks the preferred scan configuration
	ConfigMarker string `yaml:"config_marker" json:"config_marker"`

	// Scanner type code of the managed vulnerability scanner
	ScannerType string `yaml:"scanner_type" json:"scanner_type" validate:"required"`

	// Fail aggregation on findings with missing fields instead of recording them
	StrictFindings bool `yaml:"strict_findings" json:"strict_findings"`
}

// ResultsConfig holds result and log directories
type ResultsConfig struct {
	Dir     string `yaml:"dir" json:"dir" validate:"required"`
	LogsDir string `yaml:"logs_dir" json:"logs_dir" validate:"required"`
}

// DatabaseConfig enables Postgres persistence of result documents
type DatabaseConfig struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	db.Config `yaml:",inline"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// Path of a Prometheus textfile written after every run, empty disables
	Textfile string `yaml:"textfile" json:"textfile"`
}

// DNSConfig holds resolver settings
type DNSConfig struct {
	// host:port of the DNS server, empty uses /etc/resolv.conf
	Server  string        `yaml:"server" json:"server" validate:"omitempty,hostname_port"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path, tee:<path>)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		GVM: GVMConfig{
			Connection:    ConnectionTLS,
			Host:          "127.0.0.1",
			Port:          defaultGVMPort,
			SocketPath:    "/run/gvmd/gvmd.sock",
			Username:      "admin",
			TLSSkipVerify: true,
			Timeout:       defaultGVMTimeout,
		},
		Discovery: DiscoveryConfig{
			ServiceDetection: true,
			DefaultScripts:   true,
		},
		Assessment: AssessmentConfig{
			PollInterval: defaultPollInterval,
			PollTimeout:  0,
			ConfigMarker: "discovery",
			ScannerType:  "2",
		},
		Results: ResultsConfig{
			Dir:     "scan_results",
			LogsDir: "logs",
		},
		Database: DatabaseConfig{
			Enabled: false,
			Config:  db.DefaultConfig(),
		},
		DNS: DNSConfig{
			Timeout: defaultDNSTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "tee:logs/scan_engine.log",
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := Default()

	if path == "" {
		return config, nil
	}

	// Return defaults if no config file
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON is a subset of YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(path), err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("failed %q validation", fe.Tag()), fe.Namespace(), fe.Value())
		}
		return errors.WrapConfigError(errors.CodeValidation, "configuration validation failed", err)
	}

	if c.Database.Enabled {
		if c.Database.Database == "" {
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				"database name is required when database is enabled", "database.database", nil)
		}
		if c.Database.Username == "" {
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				"database username is required when database is enabled", "database.username", nil)
		}
	}

	return nil
}

// GVMAddress returns the address dialed for the scan-management service
func (c *Config) GVMAddress() string {
	return c.GVM.Address()
}

// Address returns the socket path or host:port, depending on the connection type
func (g GVMConfig) Address() string {
	if g.Connection == ConnectionUnix {
		return g.SocketPath
	}
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}

// EnsureDirs creates the results and logs directories
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Results.Dir, c.Results.LogsDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return errors.WrapConfigError(errors.CodeDirectoryCreate, "failed to create "+dir, err)
		}
	}
	return nil
}
