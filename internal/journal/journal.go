package journal

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/logger"
	"github.com/oklog/ulid/v2"
)

type service struct {
	repo Repository
	cfg  Config

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

type noopJournal struct{}

// NewService opens the journal described by cfg. A disabled journal
// records nothing and reports no entries.
func NewService(cfg Config, log logger.Logger) (Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		log.Debug().Msg("Error journal disabled, using no-op journal")
		return noopJournal{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create journal repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Msg("Journal service initialized")

	return newService(repo, cfg), nil
}

func newService(repo Repository, cfg Config) *service {
	return &service{
		repo:    repo,
		cfg:     cfg,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *service) Record(ctx context.Context, err errors.Error, operation string) error {
	errFactory := errors.New()

	if err == nil {
		return errFactory.WrapWithCode(ErrInvalidEntry,
			errors.NewArgumentError("err", "must not be nil"))
	}

	if ctxErr := errors.FromContext(ctx); ctxErr != nil {
		return errFactory.Wrap(ctxErr)
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:        s.newID(now),
		Timestamp: now,
		Code:      err.Code(),
		Message:   err.Message(),
		Detail:    err.FullString(),
		Operation: errors.Sanitize(operation),
	}

	return s.repo.Record(entry)
}

func (s *service) CountByCode(ctx context.Context) (map[errors.ErrorCode]int, error) {
	return s.repo.CountByCode(ctx)
}

func (s *service) Recent(ctx context.Context, n int) ([]Entry, error) {
	return s.repo.Recent(ctx, n)
}

func (s *service) Close() error {
	return s.repo.Close()
}

// newID returns a ULID that sorts after every ID this service issued before
func (s *service) newID(t time.Time) string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (noopJournal) Record(context.Context, errors.Error, string) error { return nil }

func (noopJournal) CountByCode(context.Context) (map[errors.ErrorCode]int, error) {
	return map[errors.ErrorCode]int{}, nil
}

func (noopJournal) Recent(context.Context, int) ([]Entry, error) { return nil, nil }

func (noopJournal) Close() error { return nil }
