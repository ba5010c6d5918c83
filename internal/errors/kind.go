package errors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Kind is the discriminated shape of a raw failure
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindIO
	KindInvalidArgument
	KindSerialization
	KindCancellation
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindSerialization:
		return "serialization"
	case KindCancellation:
		return "cancellation"
	case KindTransport:
		return "transport"
	default:
		return "other"
	}
}

// Cause is the tagged view of a raw failure that classification operates on.
// Status is meaningful for KindTransport, Requested for KindCancellation.
type Cause struct {
	Kind      Kind
	Status    TransportStatus
	Requested bool
}

type timeout interface {
	Timeout() bool
}

// Inspect reduces err to its tagged shape.
// A domain error anywhere in the chain is taken at its code, the same one
// GetCode reports. Otherwise, when err wraps another error, the wrapped one is
// tested first and err itself is only consulted if that yields nothing.
func Inspect(err error) Cause {
	if err == nil {
		return Cause{Kind: KindOther}
	}

	var domainErr Error
	if errors.As(err, &domainErr) {
		return codeCause(domainErr.Code())
	}

	target := err
	if inner := errors.Unwrap(err); inner != nil {
		target = inner
	}

	c := inspectChain(target)
	if c.Kind == KindOther && target != err {
		c = inspectChain(err)
	}

	return c
}

func inspectChain(err error) Cause {
	switch {
	case isTimeout(err):
		return Cause{Kind: KindTimeout}
	case isIO(err):
		return Cause{Kind: KindIO}
	case isInvalidArgument(err):
		return Cause{Kind: KindInvalidArgument}
	case isSerialization(err):
		return Cause{Kind: KindSerialization}
	}

	var cancelErr *CancellationError
	if errors.As(err, &cancelErr) {
		return Cause{Kind: KindCancellation, Requested: cancelErr != nil && cancelErr.Requested}
	}
	if errors.Is(err, context.Canceled) {
		return Cause{Kind: KindCancellation, Requested: true}
	}

	if status, ok := TransportStatusOf(err); ok {
		return Cause{Kind: KindTransport, Status: status}
	}

	return Cause{Kind: KindOther}
}

// codeCause maps an already classified error back onto the shape its code stands for
func codeCause(code ErrorCode) Cause {
	switch code {
	case ErrTimeout:
		return Cause{Kind: KindTimeout}
	case ErrIoError:
		return Cause{Kind: KindIO}
	case ErrParameterError:
		return Cause{Kind: KindInvalidArgument}
	case ErrJSONError:
		return Cause{Kind: KindSerialization}
	default:
		return Cause{Kind: KindOther}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	// net.Error, *url.Error, *TimeoutError and friends
	var t timeout
	return errors.As(err, &t) && t.Timeout()
}

func isIO(err error) bool {
	var (
		ioErr      *IOError
		pathErr    *fs.PathError
		linkErr    *os.LinkError
		syscallErr *os.SyscallError
	)

	switch {
	case errors.As(err, &ioErr),
		errors.As(err, &pathErr),
		errors.As(err, &linkErr),
		errors.As(err, &syscallErr):
		return true
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrShortWrite) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, fs.ErrClosed)
}

func isInvalidArgument(err error) bool {
	var (
		argErr        *ArgumentError
		numErr        *strconv.NumError
		validationErr validator.ValidationErrors
		invalidErr    *validator.InvalidValidationError
	)

	switch {
	case errors.As(err, &argErr),
		errors.As(err, &numErr),
		errors.As(err, &validationErr),
		errors.As(err, &invalidErr):
		return true
	}

	return errors.Is(err, fs.ErrInvalid)
}

func isSerialization(err error) bool {
	var (
		serErr         *SerializationError
		syntaxErr      *json.SyntaxError
		typeErr        *json.UnmarshalTypeError
		unmarshalErr   *json.InvalidUnmarshalError
		unsupportedErr *json.UnsupportedTypeError
		valueErr       *json.UnsupportedValueError
		marshalerErr   *json.MarshalerError
		yamlErr        *yaml.TypeError
	)

	switch {
	case errors.As(err, &serErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.As(err, &unmarshalErr),
		errors.As(err, &unsupportedErr),
		errors.As(err, &valueErr),
		errors.As(err, &marshalerErr),
		errors.As(err, &yamlErr):
		return true
	}

	return false
}
