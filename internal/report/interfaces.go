package report

import (
	"netbackup/internal/diffcheck"
	"netbackup/internal/history"
	"netbackup/internal/models"
	"netbackup/internal/selector"
	"netbackup/internal/snapshot"
)

// IPrinter is the interface for rendering command results
type IPrinter interface {
	PrintComparison(result *diffcheck.ComparisonResult, format OutputFormatType) error
	PrintFleetResult(result *models.FleetBackupResult, format OutputFormatType) error
	PrintChangeSummary(summary *selector.ChangeSummary, format OutputFormatType) error
	PrintSnapshots(device string, snaps []snapshot.Snapshot, format OutputFormatType) error
	PrintRuns(runs []history.RunRecord, format OutputFormatType) error
	PrintComparisonHistory(device string, records []history.ComparisonRecord, format OutputFormatType) error
}
