package journal

import (
	"database/sql"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS entries (
	       id          TEXT PRIMARY KEY,
	       timestamp   INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       code        TEXT NOT NULL,
	       message     TEXT NOT NULL,
	       detail      TEXT NOT NULL,
	       operation   TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS entries_code ON entries (code);`

	insertEntrySQL = `
    INSERT INTO entries (
        id, timestamp, code, message, detail, operation
    ) VALUES (?, ?, ?, ?, ?, ?)`

	countByCodeSQL = `
    SELECT code, COUNT(*)
    FROM entries
    GROUP BY code`

	recentSQL = `
    SELECT id, timestamp, code, message, detail, operation
    FROM entries
    ORDER BY id DESC
    LIMIT ?`
)

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, errors.NewIOError("create tables", err))
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, errors.NewIOError("record schema version", err))
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Journal schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, or 0 for an empty database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WrapWithCode(ErrSchemaFailed, errors.NewIOError("read schema version", err))
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WrapWithCode(ErrSchemaFailed,
			errors.NewIOError("check table "+tableName, err))
	}
	return exists, nil
}
