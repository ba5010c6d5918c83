package journal

import (
	"context"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
)

// Journal records classified errors and answers questions about them
type Journal interface {
	Record(ctx context.Context, err errors.Error, operation string) error
	CountByCode(ctx context.Context) (map[errors.ErrorCode]int, error)
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}

// Repository defines the interface for journal storage
type Repository interface {
	Record(entry *Entry) error
	CountByCode(ctx context.Context) (map[errors.ErrorCode]int, error)
	Recent(ctx context.Context, n int) ([]Entry, error)
	Close() error
}

// Entry is a single journaled error
type Entry struct {
	ID        string
	Timestamp time.Time
	Code      errors.ErrorCode
	Message   string
	Detail    string
	Operation string
}
