package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/logger"
)

// backupPath names the copy of dbPath taken before replacing schema version.
func backupPath(dbPath string, version int, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	name := fmt.Sprintf("%s_v%d_%s.db", base, version, now.UTC().Format("20060102T150405.000Z"))
	return filepath.Join(filepath.Dir(dbPath), backupDirName, name)
}

// backupDatabase snapshots the open database with VACUUM INTO. It must not
// run inside a transaction.
func backupDatabase(db *sql.DB, dbPath string, version int, log logger.Logger) (string, error) {
	dst := backupPath(dbPath, version, time.Now())

	if err := os.MkdirAll(filepath.Dir(dst), defaultDirPerm); err != nil {
		return "", phaseErr(ErrSchemaMigrationFailed, "backup_dir", filepath.Dir(dst), err)
	}

	// VACUUM INTO takes a literal, not a bound parameter.
	quoted := "'" + strings.ReplaceAll(dst, "'", "''") + "'"
	if _, err := db.Exec("VACUUM INTO " + quoted); err != nil {
		return "", phaseErr(ErrSchemaMigrationFailed, "backup", dst, err)
	}

	log.Info().Str("path", dst).Int("version", version).Msg("Lap database backed up")

	return dst, nil
}

// ValidateAndUpdateSchema brings db to SchemaVersion. Laps are not migrated
// between versions: an outdated database is backed up and recreated empty.
func ValidateAndUpdateSchema(db *sql.DB, dbPath string, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return errors.New().Wrap(ErrSchemaValidationFailed, err)
	}

	switch version {
	case SchemaVersion:
		log.Debug().Int("version", version).Msg("Lap schema up to date")
		return nil
	case 0:
		// New file, nothing to keep.
	default:
		log.Warn().Int("found", version).Int("want", SchemaVersion).Msg("Lap schema version mismatch")
		if _, err := backupDatabase(db, dbPath, version, log); err != nil {
			return err
		}
	}

	if err := dropTables(db, log); err != nil {
		return err
	}

	return InitSchema(db, log)
}

func dropTables(db *sql.DB, log logger.Logger) error {
	return inTx(db, log, ErrSchemaMigrationFailed, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return phaseErr(ErrSchemaMigrationFailed, "drop_table", table, err)
			}
		}
		return nil
	})
}
