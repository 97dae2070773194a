package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"netbackup/internal/diffcheck"
	"netbackup/internal/history"
	"netbackup/internal/models"
	"netbackup/internal/selector"
	"netbackup/internal/snapshot"
)

// OutputFormatType defines the format types for command output.
type OutputFormatType string

const (
	// OutputFormatTypeJSON represents JSON output format
	OutputFormatTypeJSON OutputFormatType = "JSON"
	// OutputFormatTypeTABLE represents table output format
	OutputFormatTypeTABLE OutputFormatType = "TABLE"
	// OutputFormatTypeTEXT represents the plain comparison report
	OutputFormatTypeTEXT OutputFormatType = "TEXT"
)

const ruleWidth = 60

// ParseFormat maps a flag value onto an output format, ignoring case.
func ParseFormat(s string) (OutputFormatType, error) {
	switch f := OutputFormatType(strings.ToUpper(s)); f {
	case OutputFormatTypeJSON, OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

var _ IPrinter = (*Printer)(nil)

// Printer renders results to a writer.
type Printer struct {
	out io.Writer
	now func() time.Time
}

// NewPrinter creates a Printer writing to out. A nil out means stdout.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out, now: time.Now}
}

// PrintComparison prints one comparison result.
func (p *Printer) PrintComparison(result *diffcheck.ComparisonResult, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(result)
	case OutputFormatTypeTABLE:
		return p.printComparisonTable(result)
	case OutputFormatTypeTEXT:
		return p.printComparisonText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// printComparisonText prints the human-readable diff report
func (p *Printer) printComparisonText(r *diffcheck.ComparisonResult) error {
	rule := strings.Repeat("=", ruleWidth)
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "CONFIGURATION COMPARISON REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Device: %s\n", r.Device)
	fmt.Fprintf(&b, "Date: %s\n", r.ComparedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Summary: %s\n\n", r.Summary)

	if r.BackupsCompared != nil {
		fmt.Fprintln(&b, "Backups Compared:")
		fmt.Fprintf(&b, "  Previous: %s\n", r.BackupsCompared.Previous)
		fmt.Fprintf(&b, "  Latest: %s\n\n", r.BackupsCompared.Latest)
	}

	switch {
	case r.Failed():
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	case r.Identical:
		fmt.Fprintln(&b, "Configurations are identical - no changes detected")
	default:
		fmt.Fprintf(&b, "Found %d differences:\n\n", r.DifferencesCount)
		for _, d := range r.Differences {
			fmt.Fprintf(&b, "Line %d:\n", d.LineNumber)
			if d.OldValue != "" {
				fmt.Fprintf(&b, "  - %s\n", d.OldValue)
			}
			if d.NewValue != "" {
				fmt.Fprintf(&b, "  + %s\n", d.NewValue)
			}
			fmt.Fprintln(&b)
		}
	}

	fmt.Fprintln(&b, rule)
	_, err := io.WriteString(p.out, b.String())
	return err
}

// printComparisonTable prints differences as an aligned table
func (p *Printer) printComparisonTable(r *diffcheck.ComparisonResult) error {
	writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(writer, "\nDEVICE:\t%s\n", r.Device)
	if r.BackupsCompared != nil {
		fmt.Fprintf(writer, "PREVIOUS:\t%s\n", r.BackupsCompared.Previous)
		fmt.Fprintf(writer, "LATEST:\t%s\n", r.BackupsCompared.Latest)
	}
	fmt.Fprintln(writer, "")

	if r.Failed() {
		fmt.Fprintf(writer, "Error: %s\n", r.Error)
		return writer.Flush()
	}

	if len(r.Differences) > 0 {
		fmt.Fprintln(writer, "LINE\tPREVIOUS\tLATEST\tSTATUS")
		fmt.Fprintln(writer, "----\t--------\t------\t------")
		for _, d := range r.Differences {
			fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n",
				d.LineNumber, formatLine(d.OldValue), formatLine(d.NewValue), lineStatus(d))
		}
		fmt.Fprintln(writer, "")
	}

	fmt.Fprintf(writer, "Summary: %s\n", r.Summary)
	return writer.Flush()
}

// lineStatus names the kind of change at one position
func lineStatus(d diffcheck.Difference) string {
	switch {
	case d.OldValue == "":
		return "ADDED"
	case d.NewValue == "":
		return "REMOVED"
	default:
		return "CHANGED"
	}
}

// formatLine formats a config line for table display
func formatLine(s string) string {
	if s == "" {
		return "<empty>"
	}
	// tabs would break column alignment
	return strings.ReplaceAll(s, "\t", " ")
}

// PrintFleetResult prints the outcome of a backup run.
func (p *Printer) PrintFleetResult(result *models.FleetBackupResult, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(result)
	case OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(writer, "\nRUN ID:\t%s\n", result.RunID)
		fmt.Fprintf(writer, "TYPE:\t%s\n\n", result.Type)
		fmt.Fprintln(writer, "DEVICE\tHOST\tSTATUS")
		fmt.Fprintln(writer, "------\t----\t------")
		for _, d := range result.Success {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", d.Name, d.Host, "OK")
		}
		for _, d := range result.Failed {
			fmt.Fprintf(writer, "%s\t%s\t%s\n", d.Name, d.Host, "FAILED")
		}
		fmt.Fprintln(writer, "")
		fmt.Fprintf(writer, "Summary: %d devices, %d successful, %d failed\n",
			result.TotalDevices, len(result.Success), len(result.Failed))
		return writer.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintChangeSummary prints a fleet-wide change check.
func (p *Printer) PrintChangeSummary(summary *selector.ChangeSummary, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(summary)
	case OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		names := make([]string, 0, len(summary.Details))
		for name := range summary.Details {
			names = append(names, name)
		}
		sort.Strings(names)

		writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(writer, "\nDEVICE\tCHANGES\tSTATUS")
		fmt.Fprintln(writer, "------\t-------\t------")
		for _, name := range names {
			d := summary.Details[name]
			status := "UNCHANGED"
			switch {
			case d.Error != "":
				status = "SKIPPED: " + d.Error
			case d.HasChanges:
				status = "CHANGED"
			}
			fmt.Fprintf(writer, "%s\t%d\t%s\n", name, d.ChangeCount, status)
		}
		fmt.Fprintln(writer, "")
		fmt.Fprintf(writer, "Summary: %d devices checked, %d with changes, %d unchanged, %d skipped\n",
			summary.DevicesChecked, summary.DevicesWithChanges, summary.DevicesUnchanged, summary.DevicesSkipped)
		return writer.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintSnapshots prints a device's snapshots, newest first.
func (p *Printer) PrintSnapshots(device string, snaps []snapshot.Snapshot, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(struct {
			Device    string              `json:"device"`
			Snapshots []snapshot.Snapshot `json:"snapshots"`
		}{device, snaps})
	case OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(writer, "\nDEVICE:\t%s\n\n", device)
		fmt.Fprintln(writer, "FILENAME\tCAPTURED\tAGE\tSIZE")
		fmt.Fprintln(writer, "--------\t--------\t---\t----")
		now := p.now()
		for _, s := range snaps {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
				s.Filename,
				s.CapturedAt.Format("2006-01-02 15:04:05"),
				humanize.RelTime(s.CapturedAt, now, "ago", "from now"),
				humanize.Bytes(uint64(s.Size)))
		}
		fmt.Fprintln(writer, "")
		fmt.Fprintf(writer, "Summary: %d backups found\n", len(snaps))
		return writer.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintRuns prints stored backup runs.
func (p *Printer) PrintRuns(runs []history.RunRecord, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(runs)
	case OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(writer, "\nRUN ID\tSTARTED\tTYPE\tDEVICES\tFAILED")
		fmt.Fprintln(writer, "------\t-------\t----\t-------\t------")
		now := p.now()
		for _, r := range runs {
			failed := humanize.Comma(int64(r.Failed))
			if len(r.FailedDevices) > 0 {
				failed += " (" + strings.Join(r.FailedDevices, ", ") + ")"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
				r.RunID,
				humanize.RelTime(r.Timestamp, now, "ago", "from now"),
				r.Type,
				humanize.Comma(int64(r.TotalDevices)),
				failed)
		}
		return writer.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// PrintComparisonHistory prints stored comparison outcomes for one device.
func (p *Printer) PrintComparisonHistory(device string, records []history.ComparisonRecord, format OutputFormatType) error {
	switch format {
	case OutputFormatTypeJSON:
		return p.printJSON(records)
	case OutputFormatTypeTABLE, OutputFormatTypeTEXT:
		if len(records) == 0 {
			_, err := fmt.Fprintf(p.out, "No comparisons recorded for %s\n", device)
			return err
		}
		writer := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(writer, "\nComparisons for %s\n", device)
		fmt.Fprintln(writer, "COMPARED\tSTATUS\tCHANGES\tPREVIOUS\tLATEST\tERROR")
		fmt.Fprintln(writer, "--------\t------\t-------\t--------\t------\t-----")
		now := p.now()
		for _, r := range records {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
				humanize.RelTime(r.ComparedAt, now, "ago", "from now"),
				r.Status,
				humanize.Comma(int64(r.DifferencesCount)),
				orDash(r.Previous),
				orDash(r.Latest),
				orDash(r.Error))
		}
		return writer.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printJSON prints v as indented JSON
func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling report to JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(data))
	return err
}
