package orchestrator

import (
	"netbackup/internal/models"
	"netbackup/internal/snapshot"
)

// Backup types recorded in result artifacts
const (
	BackupTypeLive      = "backup"
	BackupTypeSimulated = "mock_backup"
)

// Config contains all the parameters needed for a fleet backup run.
type Config struct {
	ConcurrencyLimit int    // Maximum number of devices backed up concurrently (0 = unlimited)
	BackupType       string // Recorded in info and result artifacts
}

// DeviceBackupResult contains the result of backing up a single device.
type DeviceBackupResult struct {
	Device   models.Device
	Snapshot *snapshot.Snapshot
	Error    error
}

// Succeeded reports whether the device was backed up
func (r DeviceBackupResult) Succeeded() bool {
	return r.Error == nil && r.Snapshot != nil
}
