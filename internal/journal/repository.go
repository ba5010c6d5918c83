package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*Entry
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
	closeErr      error
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.WrapWithCode(ErrInvalidDBPath,
			errors.NewArgumentError("db_path", "must not be empty"))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WrapWithCode(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WrapWithCode(ErrStorageInit, errors.NewIOError("open journal", err))
	}

	if err := ValidateAndUpdateSchema(db, cfg.DBPath, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Journal repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*Entry, 0, cfg.BatchSize),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 0 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) Record(entry *Entry) error {
	if entry == nil {
		return errors.New().WrapWithCode(ErrInvalidEntry,
			errors.NewArgumentError("entry", "must not be nil"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, entry)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) CountByCode(ctx context.Context) (map[errors.ErrorCode]int, error) {
	errFactory := errors.New()

	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, countByCodeSQL)
	if err != nil {
		return nil, errFactory.Wrap(queryError(ctx, "count entries", err))
	}
	defer rows.Close()

	counts := make(map[errors.ErrorCode]int)
	for rows.Next() {
		var (
			code  string
			count int
		)
		if err := rows.Scan(&code, &count); err != nil {
			return nil, errFactory.WrapWithCode(ErrStorageQuery, errors.NewIOError("scan count", err))
		}
		counts[errors.ErrorCode(code)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(queryError(ctx, "count entries", err))
	}

	return counts, nil
}

func (r *repository) Recent(ctx context.Context, n int) ([]Entry, error) {
	errFactory := errors.New()

	if n <= 0 {
		return nil, errFactory.WrapWithCode(ErrInvalidEntry,
			errors.NewArgumentError("n", "must be positive"))
	}

	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, recentSQL, n)
	if err != nil {
		return nil, errFactory.Wrap(queryError(ctx, "read entries", err))
	}
	defer rows.Close()

	entries := make([]Entry, 0, n)
	for rows.Next() {
		var (
			e    Entry
			ts   int64
			code string
		)
		if err := rows.Scan(&e.ID, &ts, &code, &e.Message, &e.Detail, &e.Operation); err != nil {
			return nil, errFactory.WrapWithCode(ErrStorageQuery, errors.NewIOError("scan entry", err))
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Code = errors.ErrorCode(code)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(queryError(ctx, "read entries", err))
	}

	return entries, nil
}

// Flush writes any buffered entries immediately
func (r *repository) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flush()
}

func (r *repository) Close() error {
	r.closeOnce.Do(func() {
		close(r.shutdownChan)
		if r.flushTicker != nil {
			r.flushTicker.Stop()
		}

		// The flusher performs the final flush when it is running
		<-r.flushDoneChan
		if err := r.Flush(); err != nil {
			r.closeErr = err
			return
		}

		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			r.closeErr = errors.New().WrapWithCode(ErrStorageClose, errors.NewIOError("checkpoint wal", err))
			return
		}

		if err := r.db.Close(); err != nil {
			r.closeErr = errors.New().WrapWithCode(ErrStorageClose, errors.NewIOError("close journal", err))
			return
		}

		r.logger.Info().Msg("Journal repository closed gracefully")
	})

	return r.closeErr
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			if err := r.Flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic journal flush failed")
			}
		case <-r.shutdownChan:
			if err := r.Flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Final journal flush failed")
			}
			return
		}
	}
}

func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.WrapWithCode(ErrTransactionFailed, errors.NewIOError("begin", err))
	}

	stmt, err := tx.Prepare(insertEntrySQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.WrapWithCode(ErrTransactionFailed, errors.NewIOError("prepare insert", err))
	}
	defer stmt.Close()

	for _, e := range r.buffer {
		if _, err := stmt.Exec(
			e.ID,
			e.Timestamp.UnixNano(),
			string(e.Code),
			e.Message,
			e.Detail,
			e.Operation,
		); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.WrapWithCode(ErrTransactionFailed, errors.NewIOError("insert entry", err))
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.WrapWithCode(ErrTransactionFailed, errors.NewIOError("commit", err))
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed journal entries")
	r.buffer = r.buffer[:0]

	return nil
}

// queryError prefers the context's own failure over the driver's report of it
func queryError(ctx context.Context, op string, err error) error {
	if ctxErr := errors.FromContext(ctx); ctxErr != nil {
		return ctxErr
	}
	return errors.NewIOError(op, err)
}
