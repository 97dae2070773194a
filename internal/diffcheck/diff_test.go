package diffcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netbackup/internal/normalize"
	"netbackup/pkg/logging"
)

func newTestChecker() *Checker {
	return NewChecker(nil, logging.NewMockLogger()).WithClock(func() time.Time {
		return time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	})
}

func TestCompare_Identical(t *testing.T) {
	checker := newTestChecker()
	inputs := []string{"", "hostname r1", "hostname r1\ninterface Gi0/1\n no shutdown\n", "!\n# only noise"}

	for _, text := range inputs {
		result := checker.Compare(text, text, "r1")
		assert.Equal(t, StatusCompared, result.Status)
		assert.True(t, result.Identical, "identical input %q", text)
		assert.Equal(t, 0, result.DifferencesCount)
		assert.Empty(t, result.Differences)
		assert.Equal(t, "Configurations are identical", result.Summary)
	}
}

func TestCompare_PositionalChange(t *testing.T) {
	result := newTestChecker().Compare("a\nb\nc", "a\nX\nc", "r1")

	assert.False(t, result.Identical)
	assert.Equal(t, 1, result.DifferencesCount)
	assert.Equal(t, []Difference{{LineNumber: 2, OldValue: "b", NewValue: "X"}}, result.Differences)
	assert.Equal(t, "Found 1 differences", result.Summary)
	assert.Equal(t, "r1", result.Device)
}

func TestCompare_TailInsertion(t *testing.T) {
	result := newTestChecker().Compare("a\nb", "a\nb\nc", "r1")

	assert.Equal(t, []Difference{{LineNumber: 3, OldValue: "", NewValue: "c"}}, result.Differences)
}

func TestCompare_TailDeletion(t *testing.T) {
	result := newTestChecker().Compare("a\nb\nc", "a\nb", "r1")

	assert.Equal(t, []Difference{{LineNumber: 3, OldValue: "c", NewValue: ""}}, result.Differences)
}

func TestCompare_InsertionCascades(t *testing.T) {
	result := newTestChecker().Compare("a\nb\nc", "a\nNEW\nb\nc", "r1")

	assert.Equal(t, []Difference{
		{LineNumber: 2, OldValue: "b", NewValue: "NEW"},
		{LineNumber: 3, OldValue: "c", NewValue: "b"},
		{LineNumber: 4, OldValue: "", NewValue: "c"},
	}, result.Differences)
}

func TestCompare_IgnoresNoiseLines(t *testing.T) {
	old := "!\n! Last configuration change at 10:00\nhostname r1\n!\nend"
	updated := "!\n! Last configuration change at 11:45\n! NVRAM config last updated today\nhostname r1\n!\nend\n"

	result := newTestChecker().Compare(old, updated, "r1")
	assert.True(t, result.Identical)
}

func TestCompare_CustomPatterns(t *testing.T) {
	checker := NewChecker([]string{"ntp clock-period"}, logging.NewMockLogger())

	result := checker.Compare("hostname r1\nntp clock-period 17179", "hostname r1\nntp clock-period 17180", "r1")
	assert.True(t, result.Identical)

	result = checker.Compare("!\nhostname r1", "hostname r1", "r1")
	assert.False(t, result.Identical, "\"!\" is not ignored when custom patterns replace the defaults")
}

func TestCompare_EmptyPatternListFiltersNothing(t *testing.T) {
	checker := NewChecker([]string{}, logging.NewMockLogger())
	assert.Empty(t, checker.IgnorePatterns())

	result := checker.Compare("!\nhostname r1", "hostname r1", "r1")
	assert.False(t, result.Identical)

	assert.Equal(t, normalize.DefaultIgnorePatterns(), NewChecker(nil, logging.NewMockLogger()).IgnorePatterns())
}

func TestCompare_SymmetricDetection(t *testing.T) {
	checker := newTestChecker()
	pairs := [][2]string{
		{"a\nb\nc", "a\nX\nc"},
		{"a", "a\nb"},
		{"same", "same"},
		{"", "x"},
	}

	for _, p := range pairs {
		ab := checker.Compare(p[0], p[1], "r1")
		ba := checker.Compare(p[1], p[0], "r1")
		assert.Equal(t, ab.Identical, ba.Identical)
		require.Equal(t, ab.DifferencesCount, ba.DifferencesCount)
		for i := range ab.Differences {
			assert.Equal(t, ab.Differences[i].OldValue, ba.Differences[i].NewValue)
			assert.Equal(t, ab.Differences[i].NewValue, ba.Differences[i].OldValue)
		}
	}
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "config1.cfg")
	newPath := filepath.Join(dir, "config2.cfg")
	require.NoError(t, os.WriteFile(oldPath, []byte("hostname device1\ninterface Gi0/1\n shutdown"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("hostname device1\ninterface Gi0/1\n no shutdown\ninterface Gi0/2"), 0o644))

	result := newTestChecker().CompareFiles(oldPath, newPath, "test-device")

	assert.Equal(t, StatusCompared, result.Status)
	assert.Equal(t, 2, result.DifferencesCount)
	assert.Equal(t, "config1.cfg", result.Config1File)
	assert.Equal(t, "config2.cfg", result.Config2File)
}

func TestCompareFiles_MissingFileIsErrorResult(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "exists.cfg")
	require.NoError(t, os.WriteFile(existing, []byte("hostname r1"), 0o644))

	for _, paths := range [][2]string{
		{filepath.Join(dir, "missing.cfg"), existing},
		{existing, filepath.Join(dir, "missing.cfg")},
	} {
		result := newTestChecker().CompareFiles(paths[0], paths[1], "r1")

		assert.Equal(t, StatusError, result.Status)
		assert.False(t, result.Identical)
		assert.Empty(t, result.Differences)
		assert.NotEmpty(t, result.Error)
		assert.True(t, IsErrorCategory(result.Cause, ErrComparisonFailed))
		assert.Contains(t, result.Summary, "Comparison error")
	}
}

func TestPositionalDiff_Empty(t *testing.T) {
	assert.Empty(t, PositionalDiff(nil, nil))
	assert.NotNil(t, PositionalDiff(nil, nil), "empty diff is an empty slice, not nil")
}

func TestComparisonResult_Flags(t *testing.T) {
	checker := newTestChecker()

	changed := checker.Compare("a", "b", "r1")
	assert.True(t, changed.HasChanges())
	assert.False(t, changed.Failed())

	failed := checker.ErrorResult("r1", fmt.Errorf("boom"))
	assert.False(t, failed.HasChanges())
	assert.True(t, failed.Failed())
}

func TestDiffError_Error(t *testing.T) {
	err1 := NewDiffError(ErrComparisonFailed, "test message", "r1", nil)
	assert.Equal(t, "comparison_failed: test message (device: r1)", err1.Error())

	err2 := NewDiffError(ErrInvalidInput, "test message", "", nil)
	assert.Equal(t, "invalid_input: test message", err2.Error())
}

func TestDiffError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewDiffError(ErrInvalidInput, "wrapper", "", cause)

	assert.Equal(t, cause, err.Unwrap(), "Unwrap should return the underlying error")
}

func TestIsErrorCategory(t *testing.T) {
	err1 := NewDiffError(ErrInvalidInput, "test message", "", nil)
	assert.True(t, IsErrorCategory(err1, ErrInvalidInput))
	assert.False(t, IsErrorCategory(err1, ErrComparisonFailed))

	inner := NewDiffError(ErrInsufficientData, "inner", "r1", nil)
	outer := fmt.Errorf("outer wrapper: %w", inner)
	assert.True(t, IsErrorCategory(outer, ErrInsufficientData))

	assert.False(t, IsErrorCategory(nil, ErrInvalidInput))
	assert.False(t, IsErrorCategory(fmt.Errorf("regular error"), ErrInvalidInput))
}
