package errors

import (
	"context"
	"errors"
)

// Raw cause types for producers that have no natural Go error of their own.
// They describe a failure, they are not domain errors.
// A nil pointer of any of them reads as the zero value.

// TimeoutError reports that an operation ran out of time
type TimeoutError struct {
	Op  string
	Err error
}

func NewTimeoutError(op string, err error) *TimeoutError {
	return &TimeoutError{Op: op, Err: err}
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return "timed out"
	}
	return describe(e.Op, "timed out", e.Err)
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (*TimeoutError) Timeout() bool { return true }

// IOError reports a local disk or stream fault
type IOError struct {
	Op  string
	Err error
}

func NewIOError(op string, err error) *IOError {
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string {
	if e == nil {
		return "i/o failure"
	}
	return describe(e.Op, "i/o failure", e.Err)
}

func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ArgumentError reports an invalid argument or a violated precondition
type ArgumentError struct {
	Name   string
	Reason string
}

func NewArgumentError(name, reason string) *ArgumentError {
	return &ArgumentError{Name: name, Reason: reason}
}

func (e *ArgumentError) Error() string {
	if e == nil {
		return "invalid argument"
	}
	if e.Name == "" {
		return e.Reason
	}
	return e.Name + ": " + e.Reason
}

// SerializationError reports an encoding or decoding failure
type SerializationError struct {
	Format string
	Err    error
}

func NewSerializationError(format string, err error) *SerializationError {
	return &SerializationError{Format: format, Err: err}
}

func (e *SerializationError) Error() string {
	if e == nil {
		return "serialization failure"
	}
	return describe(e.Format, "serialization failure", e.Err)
}

func (e *SerializationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CancellationError reports a cancelled operation.
// Requested is true only when the caller itself asked for the cancellation.
type CancellationError struct {
	Requested bool
	Err       error
}

func NewCancellationError(requested bool, err error) *CancellationError {
	return &CancellationError{Requested: requested, Err: err}
}

func (e *CancellationError) Error() string {
	if e == nil {
		return "operation cancelled"
	}
	if e.Requested {
		return describe("", "operation cancelled by caller", e.Err)
	}
	return describe("", "operation cancelled", e.Err)
}

func (e *CancellationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TransportError reports a network transport failure with its sub-status
type TransportError struct {
	Status TransportStatus
	Msg    string
	Err    error
}

func NewTransportError(status TransportStatus, msg string, err error) *TransportError {
	return &TransportError{Status: status, Msg: msg, Err: err}
}

func (e *TransportError) Error() string {
	if e == nil {
		return "transport failure"
	}
	msg := e.Msg
	if msg == "" {
		msg = "transport failure (" + e.Status.String() + ")"
	}
	return describe("", msg, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// FromContext describes why ctx ended.
// It returns nil while ctx is live, the deadline error when it expired, and a
// CancellationError otherwise. A cancellation carrying its own cause was not
// requested by the caller; a plain cancel was.
func FromContext(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return err
	}

	cause := context.Cause(ctx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return NewCancellationError(true, err)
	}

	return NewCancellationError(false, cause)
}

func describe(op, what string, err error) string {
	msg := what
	if op != "" {
		msg = op + ": " + what
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}
