package diffcheck

import "time"

// Status tags which variant of ComparisonResult a value is.
type Status string

const (
	// StatusCompared means both texts were read and diffed
	StatusCompared Status = "compared"
	// StatusInsufficientData means fewer than two snapshots were available
	StatusInsufficientData Status = "insufficient_data"
	// StatusError means the texts could not be read
	StatusError Status = "error"
)

// Difference is one positional line difference. An empty value means the
// line is absent on that side.
type Difference struct {
	LineNumber int    `json:"line_number"`
	OldValue   string `json:"old_value"`
	NewValue   string `json:"new_value"`
}

// BackupPair names the two snapshot files a comparison used.
type BackupPair struct {
	Previous string `json:"previous"`
	Latest   string `json:"latest"`
}

// ComparisonResult is the outcome of comparing two configurations. For
// StatusCompared, Identical is true exactly when Differences is empty.
type ComparisonResult struct {
	Status           Status       `json:"status"`
	Device           string       `json:"device"`
	Identical        bool         `json:"identical"`
	DifferencesCount int          `json:"differences_count"`
	Summary          string       `json:"summary"`
	Differences      []Difference `json:"differences"`
	ComparedAt       time.Time    `json:"compared_at"`
	Config1File      string       `json:"config1_file,omitempty"`
	Config2File      string       `json:"config2_file,omitempty"`
	Error            string       `json:"error,omitempty"`
	BackupsAvailable *int         `json:"backups_available,omitempty"`
	BackupsCompared  *BackupPair  `json:"backups_compared,omitempty"`

	// Cause keeps the categorised error behind Error for callers.
	Cause error `json:"-"`
}

// HasChanges reports whether a successful comparison found differences.
func (r *ComparisonResult) HasChanges() bool {
	return r.Status == StatusCompared && !r.Identical
}

// Failed reports whether the result carries an error.
func (r *ComparisonResult) Failed() bool {
	return r.Status != StatusCompared
}
