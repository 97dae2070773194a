package diffcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"netbackup/internal/normalize"
	"netbackup/pkg/logging"
)

// Checker compares configuration texts after stripping ignored lines.
// Its ignore patterns are fixed for its lifetime.
type Checker struct {
	normalizer *normalize.Normalizer
	logger     logging.Logger
	now        func() time.Time
}

// NewChecker creates a Checker. A nil pattern list selects the default
// ignore patterns; an empty non-nil list filters nothing.
func NewChecker(patterns []string, logger logging.Logger) *Checker {
	if patterns == nil {
		patterns = normalize.DefaultIgnorePatterns()
	}
	return &Checker{
		normalizer: normalize.New(patterns),
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the comparison timestamp source
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

// IgnorePatterns returns the patterns this checker filters with
func (c *Checker) IgnorePatterns() []string {
	return c.normalizer.Patterns()
}

// Now returns the checker's current time
func (c *Checker) Now() time.Time {
	return c.now()
}

// Compare diffs oldText against newText line by line.
//
// The comparison is positional: line i of one side is compared with line i
// of the other. An inserted or deleted line therefore shows up as a change
// on every following line rather than as a single edit.
func (c *Checker) Compare(oldText, newText, device string) *ComparisonResult {
	oldLines := c.normalizer.Lines(oldText)
	newLines := c.normalizer.Lines(newText)

	differences := PositionalDiff(oldLines, newLines)

	result := &ComparisonResult{
		Status:           StatusCompared,
		Device:           device,
		Identical:        len(differences) == 0,
		DifferencesCount: len(differences),
		Differences:      differences,
		ComparedAt:       c.now(),
	}
	if result.Identical {
		result.Summary = "Configurations are identical"
	} else {
		result.Summary = fmt.Sprintf("Found %d differences", len(differences))
	}

	c.logger.Debug("Compared configurations for %s: %s", device, result.Summary)
	return result
}

// CompareFiles reads two configuration files and compares them. Read
// failures are returned as a StatusError result, never as a panic or error.
func (c *Checker) CompareFiles(oldPath, newPath, device string) *ComparisonResult {
	oldText, err := os.ReadFile(oldPath)
	if err != nil {
		return c.ErrorResult(device, NewDiffError(ErrComparisonFailed, "cannot read configuration", device, err))
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return c.ErrorResult(device, NewDiffError(ErrComparisonFailed, "cannot read configuration", device, err))
	}

	result := c.Compare(string(oldText), string(newText), device)
	result.Config1File = filepath.Base(oldPath)
	result.Config2File = filepath.Base(newPath)
	return result
}

// ErrorResult wraps err in a StatusError result for device.
func (c *Checker) ErrorResult(device string, err error) *ComparisonResult {
	c.logger.Error("Error comparing configs for %s: %v", device, err)
	return &ComparisonResult{
		Status:      StatusError,
		Device:      device,
		Identical:   false,
		Summary:     fmt.Sprintf("Comparison error: %v", err),
		Differences: []Difference{},
		ComparedAt:  c.now(),
		Error:       err.Error(),
		Cause:       err,
	}
}

// PositionalDiff compares a and b index by index. The shorter side is
// padded with empty strings.
func PositionalDiff(a, b []string) []Difference {
	n := max(len(a), len(b))
	differences := make([]Difference, 0)
	for i := 0; i < n; i++ {
		var lineA, lineB string
		if i < len(a) {
			lineA = a[i]
		}
		if i < len(b) {
			lineB = b[i]
		}
		if lineA != lineB {
			differences = append(differences, Difference{
				LineNumber: i + 1,
				OldValue:   lineA,
				NewValue:   lineB,
			})
		}
	}
	return differences
}
