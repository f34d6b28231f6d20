package history

import (
	"database/sql"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS laps (
	       id          TEXT PRIMARY KEY,
	       session_id  TEXT NOT NULL,
	       timestamp   INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       duration_ms INTEGER NOT NULL CHECK (duration_ms >= 0),
	       seconds     REAL NOT NULL,
	       formatted   TEXT NOT NULL,
	       new_record  INTEGER NOT NULL CHECK (new_record IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS laps_session_idx ON laps (session_id);
	   CREATE INDEX IF NOT EXISTS laps_timestamp_idx ON laps (timestamp);`

	insertLapSQL = `
    INSERT INTO laps (
        id, session_id, timestamp,
        duration_ms, seconds, formatted, new_record
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	statsSQL = `
    SELECT COUNT(*),
           COUNT(DISTINCT session_id),
           COALESCE(MIN(duration_ms), 0),
           COALESCE(MAX(timestamp), 0)
    FROM laps`

	recentSQL = `
    SELECT id, session_id, timestamp, duration_ms, seconds, formatted, new_record
    FROM laps
    ORDER BY timestamp DESC
    LIMIT ?`

	stampVersionSQL = `INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`
	versionSQL      = `SELECT MAX(version) FROM schema_versions`
	tableExistsSQL  = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
)

var tables = []string{"laps", "schema_versions"}

// phaseError is attached as data to storage errors.
type phaseError struct {
	Phase  string
	Detail string
	Error  string
}

func phaseErr(code errors.ErrorCode, phase, detail string, err error) errors.Error {
	return errors.New().WithData(code, phaseError{Phase: phase, Detail: detail, Error: err.Error()})
}

// inTx runs fn in a transaction, rolling back unless fn and the commit succeed.
func inTx(db *sql.DB, log logger.Logger, code errors.ErrorCode, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.New().Wrap(code, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New().Wrap(code, err)
	}

	return nil
}

// InitSchema creates the lap tables and stamps SchemaVersion.
func InitSchema(db *sql.DB, log logger.Logger) error {
	log.Debug().Msg("Creating lap database...")

	err := inTx(db, log, ErrSchemaInitFailed, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return phaseErr(ErrSchemaInitFailed, "create_tables", "", err)
		}
		if _, err := tx.Exec(stampVersionSQL, SchemaVersion); err != nil {
			return phaseErr(ErrSchemaInitFailed, "stamp_version", "", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("version", SchemaVersion).Msg("Lap schema initialized")

	return nil
}

// GetSchemaVersion returns the newest stamped version, 0 for an empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version sql.NullInt64
	if err := db.QueryRow(versionSQL).Scan(&version); err != nil {
		return 0, phaseErr(ErrSchemaValidationFailed, "read_version", "", err)
	}

	return int(version.Int64), nil
}

func TableExists(db *sql.DB, table string) (bool, error) {
	var n int
	if err := db.QueryRow(tableExistsSQL, table).Scan(&n); err != nil {
		return false, phaseErr(ErrSchemaValidationFailed, "table_exists", table, err)
	}
	return n > 0, nil
}
