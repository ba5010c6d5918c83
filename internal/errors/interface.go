// Package errors classifies raw failures into a closed set of codes and
// renders them as single-line, log-safe domain errors.
package errors

// ErrorCode represents one of the canonical failure kinds callers branch on
type ErrorCode string

// Error represents a classified domain error.
// Every message it surfaces is sanitized to a single line.
type Error interface {
	error
	Code() ErrorCode
	Message() string
	Cause() error
	Trace() string
	FullString() string
	SimpleString() string
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	// New returns the shared message-less error for code
	New(code ErrorCode) Error
	// WithMessage returns a fresh error, or the shared one when msg is empty
	WithMessage(code ErrorCode, msg string) Error
	// Wrap classifies err and keeps it as the cause
	Wrap(err error) Error
	// WrapWithCode keeps err as the cause under an explicitly chosen code
	WrapWithCode(code ErrorCode, err error) Error
	Classify(err error) ErrorCode
}
