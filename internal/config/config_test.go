package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/assessor/internal/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ConnectionTLS, cfg.GVM.Connection)
	assert.Equal(t, "127.0.0.1", cfg.GVM.Host)
	assert.Equal(t, 9390, cfg.GVM.Port)
	assert.Equal(t, "admin", cfg.GVM.Username)
	assert.Equal(t, 15*time.Second, cfg.Assessment.PollInterval)
	assert.Zero(t, cfg.Assessment.PollTimeout)
	assert.Equal(t, "2", cfg.Assessment.ScannerType)
	assert.True(t, cfg.Discovery.ServiceDetection)
	assert.True(t, cfg.Discovery.DefaultScripts)
	assert.False(t, cfg.Database.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid yaml config",
			file: "config.yaml",
			content: `
gvm:
  host: gvm.internal
  port: 9391
  username: scanner
  password: secret
assessment:
  poll_interval: 5s
  poll_timeout: 2h
  strict_findings: true
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "gvm.internal:9391", cfg.GVMAddress())
				assert.Equal(t, "secret", cfg.GVM.Password)
				assert.Equal(t, 5*time.Second, cfg.Assessment.PollInterval)
				assert.Equal(t, 2*time.Hour, cfg.Assessment.PollTimeout)
				assert.True(t, cfg.Assessment.StrictFindings)
				// untouched sections keep defaults
				assert.Equal(t, "scan_results", cfg.Results.Dir)
			},
		},
		{
			name:    "valid json config",
			file:    "config.json",
			content: `{"gvm": {"connection": "unix", "socket_path": "/tmp/gvmd.sock", "username": "admin"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ConnectionUnix, cfg.GVM.Connection)
				assert.Equal(t, "/tmp/gvmd.sock", cfg.GVMAddress())
			},
		},
		{
			name:    "invalid yaml syntax",
			file:    "config.yaml",
			content: "gvm: [unclosed",
			wantErr: true,
		},
		{
			name:    "invalid connection type",
			file:    "config.yaml",
			content: "gvm:\n  connection: carrier-pigeon\n",
			wantErr: true,
		},
		{
			name:    "non-positive poll interval",
			file:    "config.yaml",
			content: "assessment:\n  poll_interval: 0s\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
		field  string
	}{
		{
			name:   "missing username",
			modify: func(cfg *Config) { cfg.GVM.Username = "" },
			field:  "Config.GVM.Username",
		},
		{
			name:   "port out of range",
			modify: func(cfg *Config) { cfg.GVM.Port = 70000 },
			field:  "Config.GVM.Port",
		},
		{
			name: "unix without socket",
			modify: func(cfg *Config) {
				cfg.GVM.Connection = ConnectionUnix
				cfg.GVM.SocketPath = ""
			},
			field: "Config.GVM.SocketPath",
		},
		{
			name:   "invalid log level",
			modify: func(cfg *Config) { cfg.Logging.Level = "loud" },
			field:  "Config.Logging.Level",
		},
		{
			name: "database enabled without name",
			modify: func(cfg *Config) {
				cfg.Database.Enabled = true
				cfg.Database.Username = "assessor"
			},
			field: "database.database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.GVM.Host = "10.0.0.5"
	cfg.Assessment.PollTimeout = 90 * time.Minute
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", loaded.GVM.Host)
	assert.Equal(t, 90*time.Minute, loaded.Assessment.PollTimeout)
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Results.Dir = filepath.Join(base, "results")
	cfg.Results.LogsDir = filepath.Join(base, "logs")

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.Results.Dir)
	assert.DirExists(t, cfg.Results.LogsDir)
}
