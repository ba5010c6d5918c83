package journal

import (
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
)

const (
	defaultDirPerm      = 0o755
	defaultDBPath       = "/var/lib/netfault/journal.db"
	defaultBatchSize    = 16
	defaultBatchTimeout = 5 * time.Second
)

type Config struct {
	DBPath       string
	BatchSize    int
	BatchTimeout time.Duration
	Enabled      bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:       defaultDBPath,
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Enabled:      false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// DBPath only matters once the journal is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.WrapWithCode(ErrInvalidDBPath,
			errors.NewArgumentError("db_path", "must not be empty"))
	}
	if c.BatchSize < 0 {
		return errFactory.WrapWithCode(ErrInvalidConfig,
			errors.NewArgumentError("batch_size", "must not be negative"))
	}
	if c.BatchTimeout < 0 {
		return errFactory.WrapWithCode(ErrInvalidConfig,
			errors.NewArgumentError("batch_timeout", "must not be negative"))
	}
	return nil
}
