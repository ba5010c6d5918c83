package errors

import (
	"errors"
	"fmt"
	"io"

	pkgerrors "github.com/pkg/errors"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// domainError implements the Error interface
type domainError struct {
	code    ErrorCode
	message string
	cause   error
	stack   pkgerrors.StackTrace
}

func (e *domainError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}

	return GetErrorMessage(e.code)
}

func (e *domainError) Code() ErrorCode {
	return e.code
}

func (e *domainError) Message() string {
	return Sanitize(e.message)
}

func (e *domainError) Cause() error {
	return e.cause
}

func (e *domainError) Unwrap() error {
	return e.cause
}

// Trace returns the stack captured at construction, else the immediate cause's own trace
func (e *domainError) Trace() string {
	if len(e.stack) > 0 {
		return formatStack(e.stack)
	}

	return traceOf(e.cause)
}

func (e *domainError) SimpleString() string {
	return simpleString(e)
}

func (e *domainError) FullString() string {
	return fullString(e)
}

// Format renders the full form for %+v and the message otherwise.
// Other verbs get the message in fmt's bad-verb form.
func (e *domainError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.FullString())
			return
		}
		_, _ = io.WriteString(s, e.Error())
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = fmt.Fprintf(s, "%%!%c(%s)", verb, e.Error())
	}
}

// FactoryOption configures a Factory
type FactoryOption func(*defaultFactory)

// WithRegistry makes the factory share message-less errors through r
func WithRegistry(r *Registry) FactoryOption {
	return func(f *defaultFactory) {
		if r != nil {
			f.registry = r
		}
	}
}

// WithTraceCapture records a stack trace on every freshly created error.
// Shared message-less errors never carry one.
func WithTraceCapture(enabled bool) FactoryOption {
	return func(f *defaultFactory) {
		f.captureTrace = enabled
	}
}

type defaultFactory struct {
	registry     *Registry
	captureTrace bool
}

func (f *defaultFactory) New(code ErrorCode) Error {
	return f.registry.Get(code)
}

func (f *defaultFactory) WithMessage(code ErrorCode, msg string) Error {
	if msg == "" {
		return f.New(code)
	}

	return f.newError(code, msg, nil)
}

func (f *defaultFactory) Wrap(err error) Error {
	return f.WrapWithCode(Classify(err), err)
}

func (f *defaultFactory) WrapWithCode(code ErrorCode, err error) Error {
	if err == nil {
		return f.New(code)
	}

	return f.newError(code, err.Error(), err)
}

func (*defaultFactory) Classify(err error) ErrorCode {
	return Classify(err)
}

func (f *defaultFactory) newError(code ErrorCode, msg string, cause error) *domainError {
	e := &domainError{
		code:    code,
		message: msg,
		cause:   cause,
	}
	if f.captureTrace {
		e.stack = captureStack()
	}
	return e
}

// New creates a Factory instance backed by the process-wide registry
func New() Factory {
	return &defaultFactory{registry: defaultRegistry}
}

// NewFactory creates a Factory with its own configuration.
// Without WithRegistry it shares the process-wide registry.
func NewFactory(opts ...FactoryOption) Factory {
	f := &defaultFactory{registry: defaultRegistry}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetCode returns the code of the outermost domain error in err's chain,
// or ErrUnknownError when there is none.
func GetCode(err error) ErrorCode {
	var domainErr Error
	if errors.As(err, &domainErr) {
		return domainErr.Code()
	}

	return ErrUnknownError
}
