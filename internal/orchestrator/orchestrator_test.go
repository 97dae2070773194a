package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"netbackup/internal/models"
	"netbackup/internal/session"
	sessionMocks "netbackup/internal/session/mocks"
	"netbackup/internal/snapshot"
	"netbackup/pkg/logging"
)

func fixedClock() time.Time {
	return time.Date(2024, time.February, 1, 6, 0, 0, 0, time.Local)
}

func fleet(n int) []models.Device {
	devices := make([]models.Device, n)
	types := []string{models.DeviceTypeCiscoIOS, models.DeviceTypeJuniperJunos, models.DeviceTypeAristaEOS, "unknown"}
	for i := range devices {
		devices[i] = models.Device{
			Name:       fmt.Sprintf("dev-%02d", i),
			Host:       fmt.Sprintf("10.0.0.%d", i+1),
			DeviceType: types[i%len(types)],
		}
	}
	return devices
}

// setupService creates a Service over a temp-dir store and the given connector
func setupService(t *testing.T, config Config, connector session.Connector) (*Service, *snapshot.Store) {
	t.Helper()
	logger := logging.NewMockLogger()
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "backups"), logger)
	return NewService(config, connector, store, logger).WithClock(fixedClock), store
}

func names(summaries []models.DeviceSummary) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.Name
	}
	return out
}

func TestBackupAll_EmptyFleet(t *testing.T) {
	service, _ := setupService(t, Config{}, session.NewSimulatedConnector(logging.NewMockLogger()))

	result, err := service.BackupAll(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Success)
	assert.Empty(t, result.Failed)
	assert.NotNil(t, result.Success)
	assert.NotNil(t, result.Failed)
	assert.Equal(t, 0, result.TotalDevices)
}

func TestBackupAll_AllSucceed(t *testing.T) {
	devices := fleet(4)
	connector := session.NewSimulatedConnector(logging.NewMockLogger(), session.WithSeed(3))
	service, store := setupService(t, Config{BackupType: BackupTypeSimulated}, connector)

	result, err := service.BackupAll(context.Background(), devices)
	require.NoError(t, err)

	assert.Equal(t, []string{"dev-00", "dev-01", "dev-02", "dev-03"}, names(result.Success))
	assert.Empty(t, result.Failed)
	assert.Equal(t, 4, result.TotalDevices)
	assert.Equal(t, BackupTypeSimulated, result.Type)
	assert.NotEmpty(t, result.RunID)

	for _, d := range devices {
		snaps, err := store.ListForDevice(d.Name)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, snapshot.FileName(d.Name, fixedClock()), snaps[0].Filename)

		info, err := store.ReadInfo(d.Name)
		require.NoError(t, err)
		assert.Equal(t, BackupTypeSimulated, info.Type)
	}

	persisted, err := store.ReadFleetResult()
	require.NoError(t, err)
	assert.Equal(t, result.RunID, persisted.RunID)
	assert.Equal(t, result.Success, persisted.Success)
}

func TestBackupAll_IsolatesDeviceFailures(t *testing.T) {
	devices := fleet(6)
	policy := func(stage session.Stage, d models.Device) bool {
		return (stage == session.StageConnect && d.Name == "dev-01") ||
			(stage == session.StageRetrieve && d.Name == "dev-04")
	}
	connector := session.NewSimulatedConnector(logging.NewMockLogger(), session.WithFailurePolicy(policy))
	service, store := setupService(t, Config{}, connector)

	result, err := service.BackupAll(context.Background(), devices)
	require.NoError(t, err)

	assert.Equal(t, []string{"dev-01", "dev-04"}, names(result.Failed))
	assert.Equal(t, []string{"dev-00", "dev-02", "dev-03", "dev-05"}, names(result.Success))
	assert.Equal(t, models.DeviceSummary{Name: "dev-01", Host: "10.0.0.2"}, result.Failed[0])

	snaps, err := store.ListForDevice("dev-04")
	require.NoError(t, err)
	assert.Empty(t, snaps, "failed retrieval must not leave a snapshot")
}

// TestBackupAll_PartitionUnderConcurrency checks that success and failed
// partition the input set whatever the processing order.
func TestBackupAll_PartitionUnderConcurrency(t *testing.T) {
	devices := fleet(40)

	for _, limit := range []int{0, 1, 3, 16} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			connector := session.NewSimulatedConnector(logging.NewMockLogger(),
				session.WithFailurePolicy(session.RandomFailures(0.3, 0.2, uint64(limit)+1)),
				session.WithDelay(2*time.Millisecond))
			service, _ := setupService(t, Config{ConcurrencyLimit: limit}, connector)

			result, err := service.BackupAll(context.Background(), devices)
			require.NoError(t, err)

			all := append(names(result.Success), names(result.Failed)...)
			sort.Strings(all)
			expected := make([]string, len(devices))
			for i, d := range devices {
				expected[i] = d.Name
			}
			assert.Equal(t, expected, all)
			assert.Equal(t, len(devices), result.TotalDevices)
		})
	}
}

func TestBackupAll_ClosesSessionAfterRetrieve(t *testing.T) {
	device := models.Device{Name: "r1", Host: "10.0.0.1", DeviceType: models.DeviceTypeCiscoIOS}

	sessMock := sessionMocks.NewSession(t)
	sessMock.On("Retrieve", mock.Anything, models.DeviceTypeCiscoIOS).Return("hostname r1\n", nil).Once()
	sessMock.On("Close").Return(nil).Once()

	connMock := sessionMocks.NewConnector(t)
	connMock.On("Connect", mock.Anything, device).Return(sessMock, nil).Once()

	service, store := setupService(t, Config{}, connMock)
	result, err := service.BackupAll(context.Background(), []models.Device{device})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, names(result.Success))

	snaps, err := store.ListForDevice("r1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	content, err := store.Read(snaps[0])
	require.NoError(t, err)
	assert.Equal(t, "hostname r1\n", content)
}

func TestBackupAll_RetrieveErrorStillClosesSession(t *testing.T) {
	device := models.Device{Name: "r1", Host: "10.0.0.1", DeviceType: models.DeviceTypeJuniperJunos}

	sessMock := sessionMocks.NewSession(t)
	sessMock.On("Retrieve", mock.Anything, models.DeviceTypeJuniperJunos).
		Return("", session.NewRetrievalError("r1", "command failed", nil)).Once()
	sessMock.On("Close").Return(errors.New("already closed")).Once()

	connMock := sessionMocks.NewConnector(t)
	connMock.On("Connect", mock.Anything, device).Return(sessMock, nil).Once()

	service, _ := setupService(t, Config{}, connMock)
	result, err := service.BackupAll(context.Background(), []models.Device{device})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, names(result.Failed))
}

func TestBackupAll_ConnectErrorNoRetry(t *testing.T) {
	device := models.Device{Name: "r1", Host: "10.0.0.1"}

	connMock := sessionMocks.NewConnector(t)
	connMock.On("Connect", mock.Anything, device).
		Return(nil, session.NewConnectionError("r1", "timeout", context.DeadlineExceeded)).Once()

	service, _ := setupService(t, Config{}, connMock)
	result, err := service.BackupAll(context.Background(), []models.Device{device})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1"}, names(result.Failed))
	connMock.AssertNumberOfCalls(t, "Connect", 1)
}

func TestBackupAll_StorageFailureAbortsRun(t *testing.T) {
	connector := session.NewSimulatedConnector(logging.NewMockLogger())
	store := &failingStore{putErr: snapshot.NewStoreError(snapshot.ErrStorageFailed, "disk full", "/backups", nil)}
	service := NewService(Config{}, connector, store, logging.NewMockLogger())

	result, err := service.BackupAll(context.Background(), fleet(3))

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, snapshot.IsErrorCategory(err, snapshot.ErrStorageFailed))
	assert.False(t, store.wroteResult, "an aborted run must not write a fleet result")
	assert.True(t, store.unlocked)
}

func TestBackupAll_LockedStore(t *testing.T) {
	service, store := setupService(t, Config{}, session.NewSimulatedConnector(logging.NewMockLogger()))

	unlock, err := store.Lock()
	require.NoError(t, err)
	defer unlock()

	_, err = service.BackupAll(context.Background(), fleet(1))
	assert.True(t, snapshot.IsErrorCategory(err, snapshot.ErrLocked))
}

func TestBackupAll_InvalidInventory(t *testing.T) {
	service, _ := setupService(t, Config{}, session.NewSimulatedConnector(logging.NewMockLogger()))

	_, err := service.BackupAll(context.Background(), []models.Device{{Name: "a"}, {Name: "a"}})
	assert.ErrorContains(t, err, "duplicate device name")

	_, err = service.BackupAll(context.Background(), []models.Device{{Host: "10.0.0.1"}})
	assert.ErrorContains(t, err, "has no name")
}

func TestBackupAll_RecordsRun(t *testing.T) {
	service, _ := setupService(t, Config{}, session.NewSimulatedConnector(logging.NewMockLogger()))
	recorder := &recordingRecorder{}
	service.WithRecorder(recorder)

	result, err := service.BackupAll(context.Background(), fleet(2))
	require.NoError(t, err)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, result.RunID, recorder.runs[0].RunID)
}

func TestBackupAll_RecorderFailureIsNotFatal(t *testing.T) {
	service, _ := setupService(t, Config{}, session.NewSimulatedConnector(logging.NewMockLogger()))
	service.WithRecorder(&recordingRecorder{err: errors.New("database is locked")})

	_, err := service.BackupAll(context.Background(), fleet(2))
	assert.NoError(t, err)
}

func TestCountFailures(t *testing.T) {
	results := []DeviceBackupResult{
		{Snapshot: &snapshot.Snapshot{}},
		{Error: errors.New("error 1")},
		{Snapshot: &snapshot.Snapshot{}},
		{},
	}

	assert.Equal(t, 2, countFailures(results))
}

type failingStore struct {
	putErr      error
	wroteResult bool
	unlocked    bool
}

func (f *failingStore) Put(string, time.Time, string) (*snapshot.Snapshot, error) {
	return nil, f.putErr
}

func (f *failingStore) WriteInfo(*snapshot.Snapshot, string) error { return nil }

func (f *failingStore) WriteFleetResult(*models.FleetBackupResult) error {
	f.wroteResult = true
	return nil
}

func (f *failingStore) Lock() (func() error, error) {
	return func() error { f.unlocked = true; return nil }, nil
}

type recordingRecorder struct {
	mu   sync.Mutex
	runs []*models.FleetBackupResult
	err  error
}

func (r *recordingRecorder) RecordRun(_ context.Context, result *models.FleetBackupResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, result)
	return nil
}
