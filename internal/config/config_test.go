package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netbackup/internal/normalize"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "./backups", cfg.Backup.BackupDir)
	assert.Equal(t, SessionModeSimulated, cfg.Session.Mode)
	assert.Equal(t, 30*time.Second, cfg.Session.Timeout)
	assert.Equal(t, 4, cfg.Backup.Concurrency)
	assert.Equal(t, normalize.DefaultIgnorePatterns(), cfg.IgnorePatterns())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
backup:
  backup_dir: /var/lib/netbackup
  concurrency: 8
comparison:
  ignore_lines:
    - "! Last configuration change"
    - "!Time:"
session:
  mode: ssh
  timeout: 45s
history:
  db_path: /var/lib/netbackup/history.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/netbackup", cfg.Backup.BackupDir)
	assert.Equal(t, 8, cfg.Backup.Concurrency)
	assert.Equal(t, []string{"! Last configuration change", "!Time:"}, cfg.IgnorePatterns())
	assert.Equal(t, SessionModeSSH, cfg.Session.Mode)
	assert.Equal(t, 45*time.Second, cfg.Session.Timeout)
	assert.Equal(t, 0.1, cfg.Session.ConnectFailureRate, "unset fields keep defaults")
	assert.Equal(t, "/var/lib/netbackup/history.db", cfg.History.DBPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NETBACKUP_BACKUP_DIR", "/tmp/override")
	t.Setenv("NETBACKUP_HISTORY_DB", "/tmp/history.db")
	t.Setenv("NETBACKUP_USERNAME", "netops")
	t.Setenv("NETBACKUP_PASSWORD", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override", cfg.Backup.BackupDir)
	assert.Equal(t, "/tmp/history.db", cfg.History.DBPath)
	assert.Equal(t, "netops", cfg.Session.Username)
	assert.Equal(t, "s3cret", cfg.Session.Password)
}

func TestLoad_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "backup: [unclosed"},
		{"unknown session mode", "session:\n  mode: telnet\n"},
		{"failure rate out of range", "session:\n  connect_failure_rate: 1.5\n"},
		{"negative concurrency", "backup:\n  concurrency: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestIgnorePatterns_ExplicitEmptyListDisablesFiltering(t *testing.T) {
	path := writeSettings(t, `
comparison:
  ignore_lines: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	patterns := cfg.IgnorePatterns()
	assert.NotNil(t, patterns)
	assert.Empty(t, patterns)
}

func TestIgnorePatterns_AbsentKeyKeepsDefaults(t *testing.T) {
	path := writeSettings(t, `
comparison: {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultIgnorePatterns(), cfg.IgnorePatterns())
}

func TestIgnorePatterns_ReturnsCopy(t *testing.T) {
	cfg := Default()
	cfg.Comparison.IgnoreLines = []string{"!"}

	patterns := cfg.IgnorePatterns()
	patterns[0] = "#"

	assert.Equal(t, []string{"!"}, cfg.Comparison.IgnoreLines)
}
