package models

import "time"

// FleetBackupResult is the outcome of one fleet backup run. Success and
// Failed partition the input devices.
type FleetBackupResult struct {
	RunID        string          `json:"run_id"`
	Success      []DeviceSummary `json:"success"`
	Failed       []DeviceSummary `json:"failed"`
	TotalDevices int             `json:"total_devices"`
	Timestamp    time.Time       `json:"timestamp"`
	Type         string          `json:"type"`
}

// SnapshotInfo is the per-device record of the latest successful backup.
type SnapshotInfo struct {
	Device    string    `json:"device"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
	Type      string    `json:"type"`
}
