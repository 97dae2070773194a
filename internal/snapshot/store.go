package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

const (
	// TimestampLayout is fixed-width so filenames sort in capture order.
	TimestampLayout = "20060102_150405"

	// Extension of snapshot files
	Extension = ".cfg"

	// ResultsFile holds the latest fleet run result
	ResultsFile = "backup_results.json"

	infoSuffix = "_info.json"
	lockName   = ".netbackup.lock"
)

// Snapshot references one stored configuration file. Content is loaded on
// demand with Store.Read.
type Snapshot struct {
	DeviceName string    `json:"device"`
	CapturedAt time.Time `json:"captured_at"`
	Filename   string    `json:"filename"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
}

// Store is a directory of snapshot files named {device}_{YYYYMMDD_HHMMSS}.cfg.
// Put is safe for concurrent use with distinct filenames.
type Store struct {
	root   string
	logger logging.Logger
}

// NewStore creates a store rooted at dir. The directory is created on first write.
func NewStore(dir string, logger logging.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// Root returns the backup root directory
func (s *Store) Root() string {
	return s.root
}

// FileName returns the snapshot filename for a device and capture time.
func FileName(deviceName string, capturedAt time.Time) string {
	return deviceName + "_" + capturedAt.Format(TimestampLayout) + Extension
}

// ParseFileName extracts the capture time from a snapshot filename of the
// given device. It reports false for files of other devices or malformed names.
func ParseFileName(deviceName, filename string) (time.Time, bool) {
	prefix := deviceName + "_"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, Extension) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), Extension)
	if len(stamp) != len(TimestampLayout) {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func validateDeviceName(name string) error {
	if name == "" {
		return NewStoreError(ErrInvalidInput, "device name is empty", "", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return NewStoreError(ErrInvalidInput, fmt.Sprintf("device name %q is not a valid file name", name), "", nil)
	}
	return nil
}

func (s *Store) ensureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return NewStoreError(ErrStorageFailed, "cannot create backup directory", s.root, err)
	}
	return nil
}

// Put writes content as a new snapshot for deviceName captured at capturedAt.
// A second Put for the same device within the same second replaces the
// earlier file.
func (s *Store) Put(deviceName string, capturedAt time.Time, content string) (*Snapshot, error) {
	if err := validateDeviceName(deviceName); err != nil {
		return nil, err
	}
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}

	name := FileName(deviceName, capturedAt)
	path := filepath.Join(s.root, name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return nil, NewStoreError(ErrStorageFailed, "cannot write snapshot", path, err)
	}

	s.logger.Debug("Stored snapshot %s (%d bytes)", name, len(content))
	return &Snapshot{
		DeviceName: deviceName,
		CapturedAt: capturedAt.Truncate(time.Second),
		Filename:   name,
		Path:       path,
		Size:       int64(len(content)),
	}, nil
}

// ListForDevice returns the device's snapshots newest first, ordered by
// filename. A missing backup root yields an empty list.
func (s *Store) ListForDevice(deviceName string) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Snapshot{}, nil
	}
	if err != nil {
		return nil, NewStoreError(ErrStorageFailed, "cannot list backup directory", s.root, err)
	}

	snapshots := make([]Snapshot, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		capturedAt, ok := ParseFileName(deviceName, entry.Name())
		if !ok {
			continue
		}
		snap := Snapshot{
			DeviceName: deviceName,
			CapturedAt: capturedAt,
			Filename:   entry.Name(),
			Path:       filepath.Join(s.root, entry.Name()),
		}
		if info, err := entry.Info(); err == nil {
			snap.Size = info.Size()
		}
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Filename > snapshots[j].Filename
	})
	return snapshots, nil
}

// Read loads the content of a listed snapshot.
func (s *Store) Read(snap Snapshot) (string, error) {
	path := snap.Path
	if path == "" {
		path = filepath.Join(s.root, snap.Filename)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", NewStoreError(ErrNotFound, "snapshot no longer exists", path, err)
	}
	if err != nil {
		return "", NewStoreError(ErrStorageFailed, "cannot read snapshot", path, err)
	}
	return string(data), nil
}

// WriteInfo records snap as the device's latest backup in {device}_info.json.
func (s *Store) WriteInfo(snap *Snapshot, backupType string) error {
	info := models.SnapshotInfo{
		Device:    snap.DeviceName,
		Filename:  snap.Filename,
		Timestamp: snap.CapturedAt,
		Size:      int(snap.Size),
		Type:      backupType,
	}
	path := filepath.Join(s.root, snap.DeviceName+infoSuffix)
	return s.writeJSON(path, info)
}

// ReadInfo loads the device's latest backup record.
func (s *Store) ReadInfo(deviceName string) (*models.SnapshotInfo, error) {
	var info models.SnapshotInfo
	if err := s.readJSON(filepath.Join(s.root, deviceName+infoSuffix), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WriteFleetResult persists the fleet run result artifact.
func (s *Store) WriteFleetResult(result *models.FleetBackupResult) error {
	if err := s.ensureRoot(); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.root, ResultsFile), result)
}

// ReadFleetResult loads the last persisted fleet run result.
func (s *Store) ReadFleetResult() (*models.FleetBackupResult, error) {
	var result models.FleetBackupResult
	if err := s.readJSON(filepath.Join(s.root, ResultsFile), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lock takes an exclusive, non-blocking lock on the backup root so that two
// fleet runs do not write into the same directory at once.
func (s *Store) Lock() (func() error, error) {
	if err := s.ensureRoot(); err != nil {
		return nil, err
	}
	path := filepath.Join(s.root, lockName)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, NewStoreError(ErrStorageFailed, "cannot acquire backup lock", path, err)
	}
	if !locked {
		return nil, NewStoreError(ErrLocked, "another backup run holds the lock", path, nil)
	}
	return fl.Unlock, nil
}

func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return NewStoreError(ErrStorageFailed, "cannot encode record", path, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return NewStoreError(ErrStorageFailed, "cannot write record", path, err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStoreError(ErrNotFound, "record does not exist", path, err)
	}
	if err != nil {
		return NewStoreError(ErrStorageFailed, "cannot read record", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewStoreError(ErrStorageFailed, "cannot decode record", path, err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the same directory so
// readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
