package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"netbackup/internal/diffcheck"
	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	type TEXT NOT NULL,
	total_devices INTEGER NOT NULL,
	succeeded INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	created_at TEXT DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS run_devices (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	device TEXT NOT NULL,
	host TEXT NOT NULL,
	succeeded INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS comparisons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	device TEXT NOT NULL,
	compared_at TEXT NOT NULL,
	status TEXT NOT NULL,
	identical INTEGER NOT NULL,
	differences_count INTEGER NOT NULL,
	previous TEXT,
	latest TEXT,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
CREATE INDEX IF NOT EXISTS idx_run_devices_run ON run_devices(run_id);
CREATE INDEX IF NOT EXISTS idx_comparisons_device ON comparisons(device, compared_at);
`

// RunRecord is one stored fleet backup run.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	TotalDevices  int       `json:"total_devices"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	FailedDevices []string  `json:"failed_devices"`
}

// ComparisonRecord is one stored comparison outcome.
type ComparisonRecord struct {
	Device           string    `json:"device"`
	ComparedAt       time.Time `json:"compared_at"`
	Status           string    `json:"status"`
	Identical        bool      `json:"identical"`
	DifferencesCount int       `json:"differences_count"`
	Previous         string    `json:"previous,omitempty"`
	Latest           string    `json:"latest,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// DB wraps the SQLite run history
type DB struct {
	db     *sql.DB
	logger logging.Logger
}

// NewDB opens or creates the history database at path
func NewDB(path string, logger logging.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create history directory: %w", err)
	}

	dsn, err := dataSourceName(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create history schema: %w", err)
	}

	logger.Debug("Opened history database %s", path)
	return &DB{db: db, logger: logger}, nil
}

// dataSourceName builds a file: URI for path, escaping characters such as
// '?' and '#' that would otherwise be read as query or fragment.
func dataSourceName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve history path: %w", err)
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "_pragma=busy_timeout(5000)",
	}
	return u.String(), nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// RecordRun stores a fleet result and its per-device outcomes.
func (d *DB) RecordRun(ctx context.Context, result *models.FleetBackupResult) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, timestamp, type, total_devices, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, result.RunID, formatTime(result.Timestamp), result.Type,
		result.TotalDevices, len(result.Success), len(result.Failed))
	if err != nil {
		return fmt.Errorf("cannot insert run %s: %w", result.RunID, err)
	}

	insert := func(devices []models.DeviceSummary, succeeded bool) error {
		for _, dev := range devices {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO run_devices (run_id, device, host, succeeded) VALUES (?, ?, ?, ?)
			`, result.RunID, dev.Name, dev.Host, succeeded); err != nil {
				return fmt.Errorf("cannot insert device %s for run %s: %w", dev.Name, result.RunID, err)
			}
		}
		return nil
	}
	if err := insert(result.Success, true); err != nil {
		return err
	}
	if err := insert(result.Failed, false); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	d.logger.Debug("Recorded run %s in history", result.RunID)
	return nil
}

// RecordComparison stores a comparison outcome.
func (d *DB) RecordComparison(ctx context.Context, result *diffcheck.ComparisonResult) error {
	var previous, latest string
	if result.BackupsCompared != nil {
		previous, latest = result.BackupsCompared.Previous, result.BackupsCompared.Latest
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO comparisons (device, compared_at, status, identical, differences_count, previous, latest, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, result.Device, formatTime(result.ComparedAt), string(result.Status), result.Identical,
		result.DifferencesCount, previous, latest, result.Error)
	if err != nil {
		return fmt.Errorf("cannot insert comparison for %s: %w", result.Device, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (d *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT run_id, timestamp, type, total_devices, succeeded, failed
		FROM runs
		ORDER BY timestamp DESC, created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var ts string
		if err := rows.Scan(&r.RunID, &ts, &r.Type, &r.TotalDevices, &r.Succeeded, &r.Failed); err != nil {
			rows.Close()
			return nil, err
		}
		if r.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("bad timestamp for run %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if runs[i].FailedDevices, err = d.failedDevices(ctx, runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (d *DB) failedDevices(ctx context.Context, runID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT device FROM run_devices WHERE run_id = ? AND succeeded = 0 ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		devices = append(devices, name)
	}
	return devices, rows.Err()
}

// DeviceComparisons returns up to limit comparisons for device, newest first
func (d *DB) DeviceComparisons(ctx context.Context, device string, limit int) ([]ComparisonRecord, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT device, compared_at, status, identical, differences_count, previous, latest, error
		FROM comparisons
		WHERE device = ?
		ORDER BY compared_at DESC, id DESC
		LIMIT ?
	`, device, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []ComparisonRecord{}
	for rows.Next() {
		var r ComparisonRecord
		var ts string
		var previous, latest, errMsg sql.NullString
		if err := rows.Scan(&r.Device, &ts, &r.Status, &r.Identical, &r.DifferencesCount,
			&previous, &latest, &errMsg); err != nil {
			return nil, err
		}
		if r.ComparedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("bad timestamp for comparison of %s: %w", r.Device, err)
		}
		r.Previous, r.Latest, r.Error = previous.String, latest.String, errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
