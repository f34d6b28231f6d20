package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/laptimer"
	"codeberg.org/mutker/wthud/internal/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLog = logger.With("history_test")

func lap(d time.Duration, at time.Time, newRecord bool) laptimer.Record {
	return laptimer.Record{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Timestamp: at,
		Duration:  d,
		Formatted: laptimer.Format(d),
		Seconds:   laptimer.Seconds(d),
		NewRecord: newRecord,
	}
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "lap_history.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 18, 4, 5, 0, time.Local)
	require.NoError(t, sink.Append(context.Background(), lap(65123*time.Millisecond, at, true)))
	require.NoError(t, sink.Append(context.Background(), lap(59500*time.Millisecond, at.Add(time.Minute), true)))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Formatted Time,Seconds", lines[0])
	assert.Equal(t, "2024-03-09 18:04:05,01:05.123,65.123", lines[1])
	assert.Equal(t, "2024-03-09 18:05:05,00:59.500,59.500", lines[2])
}

func TestCSVSinkAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lap_history.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,Formatted Time,Seconds\n"), 0o644))

	sink, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, sink.Append(context.Background(), lap(time.Second, time.Now(), false)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Timestamp"))
}

func TestCSVSinkEmptyPath(t *testing.T) {
	_, err := NewCSVSink("")
	assert.True(t, errors.HasCode(err, ErrInvalidPath))
}

func TestRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laps.db")
	repo, err := NewRepository(path, testLog)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC)
	session := uuid.New()

	slow := lap(70*time.Second, base, true)
	slow.SessionID = session
	fast := lap(65123*time.Millisecond, base.Add(time.Minute), true)
	fast.SessionID = session

	require.NoError(t, repo.Append(ctx, slow))
	require.NoError(t, repo.Append(ctx, fast))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Laps)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 65123*time.Millisecond, stats.Best)
	assert.True(t, stats.Last.Equal(base.Add(time.Minute)))

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, fast.ID, recent[0].ID)
	assert.Equal(t, "01:05.123", recent[0].Formatted)
	assert.Equal(t, 65.123, recent[0].Seconds)
	assert.True(t, recent[0].NewRecord)
	assert.Equal(t, session, recent[1].SessionID)

	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	err = repo.Append(ctx, fast)
	assert.True(t, errors.HasCode(err, ErrRecorderClose))
}

func TestRepositoryDuplicateID(t *testing.T) {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "laps.db"), testLog)
	require.NoError(t, err)
	defer repo.Close()

	rec := lap(time.Second, time.Now(), false)
	require.NoError(t, repo.Append(context.Background(), rec))

	err = repo.Append(context.Background(), rec)
	assert.True(t, errors.HasCode(err, ErrTransactionFailed))
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laps.db")

	repo, err := NewRepository(path, testLog)
	require.NoError(t, err)
	require.NoError(t, repo.Append(context.Background(), lap(time.Second, time.Now(), true)))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path, testLog)
	require.NoError(t, err)
	defer repo.Close()

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Laps)
}

func TestSchemaMismatchBacksUpAndRecreates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "laps.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE laps (old TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := NewRepository(path, testLog)
	require.NoError(t, err)
	defer repo.Close()

	backups, err := filepath.Glob(filepath.Join(dir, backupDirName, "laps_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	require.NoError(t, repo.Append(context.Background(), lap(time.Second, time.Now(), true)))
}

type memSink struct {
	mu      sync.Mutex
	records []laptimer.Record
	fail    bool
	closed  bool
}

func (m *memSink) Append(_ context.Context, rec laptimer.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return errors.New().New(ErrAppendFailed)
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestRecorderFansOutAndDrains(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	r := NewRecorderWithSinks(8, testLog, a, b)

	for i := 1; i <= 5; i++ {
		r.Record(lap(time.Duration(i)*time.Second, time.Now(), false))
	}
	require.NoError(t, r.Close())

	assert.Len(t, a.records, 5)
	assert.Len(t, b.records, 5)
	assert.True(t, a.closed)
	assert.True(t, b.closed)

	// Dropped, not panicking.
	r.Record(lap(time.Second, time.Now(), false))
	assert.NoError(t, r.Close())
}

func TestRecorderSinkFailureDoesNotStopOthers(t *testing.T) {
	bad, good := &memSink{fail: true}, &memSink{}
	r := NewRecorderWithSinks(4, testLog, bad, good)

	r.Record(lap(time.Second, time.Now(), false))
	r.Record(lap(2*time.Second, time.Now(), false))
	require.NoError(t, r.Close())

	assert.Empty(t, bad.records)
	assert.Len(t, good.records, 2)
}

func TestNewRecorderFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		CSVPath: filepath.Join(dir, "laps.csv"),
		DBPath:  filepath.Join(dir, "laps.db"),
	}

	r, err := NewRecorder(cfg, testLog)
	require.NoError(t, err)
	require.NotNil(t, r.Repository())

	r.Record(lap(42*time.Second, time.Now(), true))

	require.Eventually(t, func() bool {
		stats, err := r.Repository().Stats(context.Background())
		return err == nil && stats.Laps == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Close())

	data, err := os.ReadFile(cfg.CSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "00:42.000,42.000")
}

func TestNewRecorderWithoutSinks(t *testing.T) {
	r, err := NewRecorder(Config{}, testLog)
	require.NoError(t, err)
	assert.Nil(t, r.Repository())

	r.Record(lap(time.Second, time.Now(), false))
	assert.NoError(t, r.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.True(t, errors.HasCode(Config{QueueSize: -1}.Validate(), ErrInvalidConfig))
}

func TestBackupPath(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 30, 15, 250e6, time.UTC)
	got := backupPath(filepath.Join("data", "laps.db"), 3, at)
	assert.Equal(t, filepath.Join("data", backupDirName, "laps_v3_20240501T123015.250Z.db"), got)
}
