package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"netbackup/internal/models"
	"netbackup/internal/session"
	"netbackup/internal/snapshot"
	"netbackup/pkg/logging"
)

// Service orchestrates the fleet backup process.
type Service struct {
	config    Config
	connector session.Connector
	store     SnapshotWriter
	recorder  RunRecorder
	logger    logging.Logger
	now       func() time.Time
	newRunID  func() string
}

// NewService creates a new orchestrator service with the given configuration.
func NewService(
	config Config,
	connector session.Connector,
	store SnapshotWriter,
	logger logging.Logger,
) *Service {
	if config.BackupType == "" {
		config.BackupType = BackupTypeLive
	}
	return &Service{
		config:    config,
		connector: connector,
		store:     store,
		logger:    logger,
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
}

// WithRecorder attaches a recorder that receives every completed run.
func (s *Service) WithRecorder(r RunRecorder) *Service {
	s.recorder = r
	return s
}

// WithClock overrides the time source used for snapshot and run timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BackupAll backs up every device and returns the fleet result. Connection
// and retrieval failures are isolated to their device; a storage failure
// aborts the run and is returned as the error.
func (s *Service) BackupAll(ctx context.Context, devices []models.Device) (*models.FleetBackupResult, error) {
	if err := validateDevices(devices); err != nil {
		return nil, err
	}

	unlock, err := s.store.Lock()
	if err != nil {
		return nil, fmt.Errorf("cannot start backup run: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			s.logger.Warn("Failed to release backup lock: %v", err)
		}
	}()

	started := s.now()
	s.logger.Info("Starting backup of %d devices", len(devices))

	g, gctx := errgroup.WithContext(ctx)
	// Set the concurrency limit if specified
	if s.config.ConcurrencyLimit > 0 {
		g.SetLimit(s.config.ConcurrencyLimit)
	}

	// Each worker owns one slot, so no further synchronisation is needed.
	results := make([]DeviceBackupResult, len(devices))
	for i, device := range devices {
		g.Go(func() error {
			result, err := s.backupDevice(gctx, device)
			results[i] = result
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Backup run aborted: %v", err)
		return nil, fmt.Errorf("backup run aborted: %w", err)
	}

	fleet := s.buildFleetResult(started, results)
	if err := s.store.WriteFleetResult(fleet); err != nil {
		return nil, fmt.Errorf("cannot write fleet result: %w", err)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordRun(ctx, fleet); err != nil {
			s.logger.Warn("Failed to record run %s in history: %v", fleet.RunID, err)
		}
	}

	s.logSummary(results)
	return fleet, nil
}

// backupDevice runs connect, retrieve and store for one device. The
// returned error is non-nil only for store failures that must abort the run.
func (s *Service) backupDevice(ctx context.Context, device models.Device) (DeviceBackupResult, error) {
	result := DeviceBackupResult{Device: device}
	s.logger.Info("Starting backup for %s...", device.Name)

	sess, err := s.connector.Connect(ctx, device)
	if err != nil {
		s.logger.Error("Connection failed for %s: %v", device.Name, err)
		result.Error = fmt.Errorf("error connecting to device: %w", err)
		return result, nil
	}
	defer func() {
		if err := sess.Close(); err != nil {
			s.logger.Debug("Failed to close session for %s: %v", device.Name, err)
		}
	}()

	config, err := sess.Retrieve(ctx, device.DeviceType)
	if err != nil {
		s.logger.Error("Error retrieving config from %s: %v", device.Name, err)
		result.Error = fmt.Errorf("error retrieving configuration: %w", err)
		return result, nil
	}

	snap, err := s.store.Put(device.Name, s.now(), config)
	if err != nil {
		result.Error = fmt.Errorf("error storing snapshot: %w", err)
		if snapshot.IsErrorCategory(err, snapshot.ErrStorageFailed) {
			return result, result.Error
		}
		s.logger.Error("Cannot store snapshot for %s: %v", device.Name, err)
		return result, nil
	}

	if err := s.store.WriteInfo(snap, s.config.BackupType); err != nil {
		result.Error = fmt.Errorf("error writing backup info: %w", err)
		return result, result.Error
	}

	result.Snapshot = snap
	s.logger.Info("Successfully backed up %s to %s", device.Name, snap.Filename)
	return result, nil
}

// buildFleetResult splits per-device results into success and failed lists
// in inventory order.
func (s *Service) buildFleetResult(started time.Time, results []DeviceBackupResult) *models.FleetBackupResult {
	fleet := &models.FleetBackupResult{
		RunID:        s.newRunID(),
		Success:      make([]models.DeviceSummary, 0, len(results)),
		Failed:       make([]models.DeviceSummary, 0),
		TotalDevices: len(results),
		Timestamp:    started,
		Type:         s.config.BackupType,
	}
	for _, r := range results {
		if r.Succeeded() {
			fleet.Success = append(fleet.Success, r.Device.Summary())
		} else {
			fleet.Failed = append(fleet.Failed, r.Device.Summary())
		}
	}
	return fleet
}

// logSummary logs the outcome of the run and every failed device.
func (s *Service) logSummary(results []DeviceBackupResult) {
	failed := countFailures(results)
	for _, r := range results {
		if !r.Succeeded() {
			s.logger.Warn("Device %s: %v", r.Device.Name, r.Error)
		}
	}
	s.logger.Info("Backup summary: %d devices, %d successful, %d failed",
		len(results), len(results)-failed, failed)
}

// validateDevices rejects inventories without unique, non-empty names.
func validateDevices(devices []models.Device) error {
	seen := make(map[string]struct{}, len(devices))
	for i, d := range devices {
		if d.Name == "" {
			return fmt.Errorf("device at position %d has no name", i)
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate device name: %s", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// countFailures counts the number of devices that were not backed up.
func countFailures(results []DeviceBackupResult) int {
	count := 0
	for _, r := range results {
		if !r.Succeeded() {
			count++
		}
	}
	return count
}
