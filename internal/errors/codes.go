package errors

// Canonical error codes. The set is closed; Classify only ever returns one of these.
const (
	ErrTimeout        ErrorCode = "Timeout"
	ErrIoError        ErrorCode = "IoError"
	ErrParameterError ErrorCode = "ParameterError"
	ErrJSONError      ErrorCode = "JsonError"
	ErrUnknownError   ErrorCode = "UnknownError"
)

var codes = []ErrorCode{
	ErrTimeout,
	ErrIoError,
	ErrParameterError,
	ErrJSONError,
	ErrUnknownError,
}

// Default error messages, used by Error() when no message was supplied
var errorMessages = map[ErrorCode]string{
	ErrTimeout:        "Operation timed out",
	ErrIoError:        "I/O failure",
	ErrParameterError: "Invalid parameter",
	ErrJSONError:      "Serialization failure",
	ErrUnknownError:   "Unknown error",
}

// Codes returns every canonical error code
func Codes() []ErrorCode {
	out := make([]ErrorCode, len(codes))
	copy(out, codes)

	return out
}

// IsValid reports whether c is one of the canonical codes
func (c ErrorCode) IsValid() bool {
	_, ok := errorMessages[c]
	return ok
}

func (c ErrorCode) String() string {
	return string(c)
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
