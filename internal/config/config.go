package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netbackup/internal/normalize"
)

// Session modes
const (
	SessionModeSimulated = "simulated"
	SessionModeSSH       = "ssh"
)

// Settings is the top-level settings file structure.
type Settings struct {
	Backup     BackupSettings     `yaml:"backup"`
	Comparison ComparisonSettings `yaml:"comparison"`
	Session    SessionSettings    `yaml:"session"`
	History    HistorySettings    `yaml:"history"`
}

// BackupSettings controls where snapshots go and how many devices run at once.
type BackupSettings struct {
	BackupDir   string `yaml:"backup_dir"`
	Concurrency int    `yaml:"concurrency"` // 0 = one worker per device
}

// ComparisonSettings holds the normalizer configuration.
type ComparisonSettings struct {
	IgnoreLines []string `yaml:"ignore_lines"`
}

// SessionSettings selects and tunes the device session implementation.
type SessionSettings struct {
	Mode                string        `yaml:"mode"`
	Timeout             time.Duration `yaml:"timeout"`
	ConnectFailureRate  float64       `yaml:"connect_failure_rate"`
	RetrieveFailureRate float64       `yaml:"retrieve_failure_rate"`
	SimulatedDelay      time.Duration `yaml:"simulated_delay"`
	KnownHosts          string        `yaml:"known_hosts"`
	Username            string        `yaml:"-"` // from env only
	Password            string        `yaml:"-"` // from env only
}

// HistorySettings points at the optional SQLite history database.
type HistorySettings struct {
	DBPath string `yaml:"db_path"`
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	return &Settings{
		Backup: BackupSettings{
			BackupDir:   "./backups",
			Concurrency: 4,
		},
		Session: SessionSettings{
			Mode:                SessionModeSimulated,
			Timeout:             30 * time.Second,
			ConnectFailureRate:  0.1,
			RetrieveFailureRate: 0.05,
		},
	}
}

// Load reads settings from path. A missing file yields the defaults; fields
// absent from the file keep their default values.
func Load(path string) (*Settings, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults only
		case err != nil:
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides on top of file values.
func applyEnv(cfg *Settings) {
	if dir := os.Getenv("NETBACKUP_BACKUP_DIR"); dir != "" {
		cfg.Backup.BackupDir = dir
	}
	if db := os.Getenv("NETBACKUP_HISTORY_DB"); db != "" {
		cfg.History.DBPath = db
	}
	cfg.Session.Username = os.Getenv("NETBACKUP_USERNAME")
	cfg.Session.Password = os.Getenv("NETBACKUP_PASSWORD")
}

// Validate checks the settings for values that cannot work.
func (s *Settings) Validate() error {
	if s.Backup.BackupDir == "" {
		return fmt.Errorf("backup.backup_dir is required")
	}
	if s.Backup.Concurrency < 0 {
		return fmt.Errorf("backup.concurrency must not be negative")
	}
	switch s.Session.Mode {
	case SessionModeSimulated, SessionModeSSH:
	default:
		return fmt.Errorf("unsupported session mode: %q", s.Session.Mode)
	}
	for name, rate := range map[string]float64{
		"connect_failure_rate":  s.Session.ConnectFailureRate,
		"retrieve_failure_rate": s.Session.RetrieveFailureRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("session.%s must be between 0 and 1", name)
		}
	}
	return nil
}

// IgnorePatterns returns the configured ignore prefixes, or the normalizer
// defaults when ignore_lines is absent. An explicit empty list disables
// filtering.
func (s *Settings) IgnorePatterns() []string {
	if s.Comparison.IgnoreLines == nil {
		return normalize.DefaultIgnorePatterns()
	}
	out := make([]string, len(s.Comparison.IgnoreLines))
	copy(out, s.Comparison.IgnoreLines)
	return out
}
