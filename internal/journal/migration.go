package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
)

const backupDirName = "backups"

func backupDatabase(db *sql.DB, dbPath string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	backupDir := filepath.Join(filepath.Dir(dbPath), backupDirName)
	if err := os.MkdirAll(backupDir, defaultDirPerm); err != nil {
		return "", errFactory.WrapWithCode(ErrSchemaFailed, err)
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(backupDir,
		fmt.Sprintf("journal_v%d_%s.db", version, timestamp))

	// VACUUM INTO requires no active transaction
	quoted := strings.ReplaceAll(backupPath, "'", "''")
	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return "", errFactory.WrapWithCode(ErrSchemaFailed, errors.NewIOError("backup "+backupPath, err))
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Journal backup created")

	return backupPath, nil
}

// ValidateAndUpdateSchema checks the schema version and recreates the schema
// when it does not match. An outdated database is backed up first.
func ValidateAndUpdateSchema(db *sql.DB, dbPath string, log logger.Logger) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	if version == SchemaVersion {
		log.Debug().Int("version", version).Msg("Journal schema version is current")
		return nil
	}

	if version != 0 {
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
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback drop tables")
			}
		}
	}()

	for _, table := range []string{"entries", "schema_versions"} {
		if _, err := tx.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return errFactory.WrapWithCode(ErrSchemaFailed, errors.NewIOError("drop table "+table, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.WrapWithCode(ErrSchemaFailed, err)
	}
	committed = true

	return nil
}
