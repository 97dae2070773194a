package orchestrator

import (
	"context"
	"time"

	"netbackup/internal/models"
	"netbackup/internal/snapshot"
)

// SnapshotWriter is the part of the snapshot store a fleet run writes to.
type SnapshotWriter interface {
	Put(deviceName string, capturedAt time.Time, content string) (*snapshot.Snapshot, error)
	WriteInfo(snap *snapshot.Snapshot, backupType string) error
	WriteFleetResult(result *models.FleetBackupResult) error
	Lock() (func() error, error)
}

// RunRecorder receives each completed fleet result, e.g. a history database.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *models.FleetBackupResult) error
}
