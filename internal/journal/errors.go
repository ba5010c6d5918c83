package journal

import "codeberg.org/mutker/netfault/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrParameterError
	ErrInvalidDBPath = errors.ErrParameterError
	ErrInvalidEntry  = errors.ErrParameterError

	// Storage Errors
	ErrStorageInit       = errors.ErrIoError
	ErrStorageClose      = errors.ErrIoError
	ErrStorageQuery      = errors.ErrIoError
	ErrSchemaFailed      = errors.ErrIoError
	ErrTransactionFailed = errors.ErrIoError
)
