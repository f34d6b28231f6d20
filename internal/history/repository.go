package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/laptimer"
	"codeberg.org/mutker/wthud/internal/logger"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	path   string
	logger logger.Logger
	mu     sync.Mutex
	closed bool
}

// NewRepository opens (or creates) the SQLite lap store at path.
func NewRepository(path string, log logger.Logger) (LapRepository, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, phaseErr(ErrStorageInit, "create_directory", path, err)
	}

	dsn := path + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=2000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, phaseErr(ErrStorageInit, "open_database", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := ValidateAndUpdateSchema(db, path, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", path).
		Int("schema_version", SchemaVersion).
		Msg("Lap repository initialized")

	return &repository{
		db:     db,
		path:   path,
		logger: log,
	}, nil
}

func (r *repository) Append(ctx context.Context, rec laptimer.Record) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errFactory.New(ErrRecorderClose)
	}

	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, insertLapSQL,
		id.String(),
		rec.SessionID.String(),
		rec.Timestamp.UnixMilli(),
		rec.Duration.Milliseconds(),
		rec.Seconds,
		rec.Formatted,
		boolToInt(rec.NewRecord),
	)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to insert lap")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Str("id", id.String()).Msg("Stored lap")

	return nil
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	var (
		stats  Stats
		bestMS int64
		lastMS int64
	)

	err := r.db.QueryRowContext(ctx, statsSQL).Scan(&stats.Laps, &stats.Sessions, &bestMS, &lastMS)
	if err != nil {
		return Stats{}, errors.New().Wrap(ErrQueryFailed, err)
	}

	stats.Best = time.Duration(bestMS) * time.Millisecond
	if lastMS > 0 {
		stats.Last = time.UnixMilli(lastMS)
	}

	return stats, nil
}

func (r *repository) Recent(ctx context.Context, limit int) ([]laptimer.Record, error) {
	errFactory := errors.New()

	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, recentSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var records []laptimer.Record
	for rows.Next() {
		var (
			id, session string
			ts, ms      int64
			newRecord   int
			rec         laptimer.Record
		)
		if err := rows.Scan(&id, &session, &ts, &ms, &rec.Seconds, &rec.Formatted, &newRecord); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}

		rec.ID, _ = uuid.Parse(id)
		rec.SessionID, _ = uuid.Parse(session)
		rec.Timestamp = time.UnixMilli(ts)
		rec.Duration = time.Duration(ms) * time.Millisecond
		rec.NewRecord = newRecord == 1

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return records, nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.db.Close()
		return phaseErr(ErrStorageClose, "checkpoint_wal", r.path, err)
	}

	if err := r.db.Close(); err != nil {
		return phaseErr(ErrStorageClose, "close_database", r.path, err)
	}

	r.logger.Info().Msg("Lap repository closed")

	return nil
}
