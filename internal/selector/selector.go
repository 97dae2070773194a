// Package selector picks a device's two newest snapshots and compares them.
package selector

import (
	"fmt"
	"strings"
	"time"

	"netbackup/internal/diffcheck"
	"netbackup/internal/models"
	"netbackup/internal/snapshot"
	"netbackup/pkg/logging"
)

// MinBackups is the number of snapshots a comparison needs.
const MinBackups = 2

// SnapshotSource lists and reads stored snapshots
type SnapshotSource interface {
	ListForDevice(deviceName string) ([]snapshot.Snapshot, error)
	Read(snap snapshot.Snapshot) (string, error)
}

// Selector composes the snapshot store with the diff checker.
type Selector struct {
	store   SnapshotSource
	checker *diffcheck.Checker
	logger  logging.Logger
}

// New creates a Selector
func New(store SnapshotSource, checker *diffcheck.Checker, logger logging.Logger) *Selector {
	return &Selector{store: store, checker: checker, logger: logger}
}

// ListBackups returns the device's snapshots newest first.
func (s *Selector) ListBackups(deviceName string) ([]snapshot.Snapshot, error) {
	return s.store.ListForDevice(deviceName)
}

// CompareLatestTwo diffs the second-newest snapshot (old side) against the
// newest (new side). Every failure is reported inside the result.
func (s *Selector) CompareLatestTwo(deviceName string) *diffcheck.ComparisonResult {
	if strings.TrimSpace(deviceName) == "" {
		return s.checker.ErrorResult(deviceName,
			diffcheck.NewDiffError(diffcheck.ErrInvalidInput, "device name is empty", "", nil))
	}

	backups, err := s.store.ListForDevice(deviceName)
	if err != nil {
		return s.checker.ErrorResult(deviceName,
			diffcheck.NewDiffError(diffcheck.ErrComparisonFailed, "cannot list backups", deviceName, err))
	}

	if len(backups) < MinBackups {
		s.logger.Info("Only %d backup(s) found for %s - need at least %d for comparison", len(backups), deviceName, MinBackups)
		return s.insufficient(deviceName, len(backups))
	}

	latest, previous := backups[0], backups[1]
	s.logger.Info("Comparing %s vs %s", previous.Filename, latest.Filename)

	previousText, err := s.store.Read(previous)
	if err != nil {
		return s.checker.ErrorResult(deviceName,
			diffcheck.NewDiffError(diffcheck.ErrComparisonFailed, "cannot read backup "+previous.Filename, deviceName, err))
	}
	latestText, err := s.store.Read(latest)
	if err != nil {
		return s.checker.ErrorResult(deviceName,
			diffcheck.NewDiffError(diffcheck.ErrComparisonFailed, "cannot read backup "+latest.Filename, deviceName, err))
	}

	result := s.checker.Compare(previousText, latestText, deviceName)
	result.Config1File = previous.Filename
	result.Config2File = latest.Filename
	result.BackupsCompared = &diffcheck.BackupPair{
		Previous: previous.Filename,
		Latest:   latest.Filename,
	}
	return result
}

func (s *Selector) insufficient(deviceName string, available int) *diffcheck.ComparisonResult {
	msg := fmt.Sprintf("Insufficient backups: %d found, need at least %d", available, MinBackups)
	return &diffcheck.ComparisonResult{
		Status:           diffcheck.StatusInsufficientData,
		Device:           deviceName,
		Summary:          msg,
		Differences:      []diffcheck.Difference{},
		ComparedAt:       s.checker.Now(),
		Error:            msg,
		BackupsAvailable: &available,
		Cause:            diffcheck.NewDiffError(diffcheck.ErrInsufficientData, msg, deviceName, nil),
	}
}

// DeviceChange is the per-device line of a ChangeSummary.
type DeviceChange struct {
	HasChanges  bool   `json:"has_changes"`
	ChangeCount int    `json:"change_count"`
	Error       string `json:"error,omitempty"`
}

// ChangeSummary aggregates CompareLatestTwo over a fleet.
type ChangeSummary struct {
	Timestamp          time.Time                     `json:"timestamp"`
	DevicesChecked     int                           `json:"devices_checked"`
	DevicesWithChanges int                           `json:"devices_with_changes"`
	DevicesUnchanged   int                           `json:"devices_unchanged"`
	DevicesSkipped     int                           `json:"devices_skipped"`
	Details            map[string]DeviceChange       `json:"details"`
	Results            []*diffcheck.ComparisonResult `json:"-"`
}

// CheckAll compares the latest two snapshots of every device. Devices that
// cannot be compared are counted as skipped.
func (s *Selector) CheckAll(devices []models.Device) *ChangeSummary {
	summary := &ChangeSummary{
		Timestamp:      s.checker.Now(),
		DevicesChecked: len(devices),
		Details:        make(map[string]DeviceChange, len(devices)),
		Results:        make([]*diffcheck.ComparisonResult, 0, len(devices)),
	}

	for _, device := range devices {
		result := s.CompareLatestTwo(device.Name)
		summary.Results = append(summary.Results, result)

		change := DeviceChange{
			HasChanges:  result.HasChanges(),
			ChangeCount: result.DifferencesCount,
			Error:       result.Error,
		}
		summary.Details[device.Name] = change

		switch {
		case result.Failed():
			summary.DevicesSkipped++
		case change.HasChanges:
			summary.DevicesWithChanges++
		default:
			summary.DevicesUnchanged++
		}
	}

	s.logger.Info("Change check completed: %d devices with changes, %d unchanged, %d skipped",
		summary.DevicesWithChanges, summary.DevicesUnchanged, summary.DevicesSkipped)
	return summary
}
