package errors

import (
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const (
	chainSeparator = " ---> "
	maxChainDepth  = 64
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

type tracer interface {
	Trace() string
}

// Sanitize strips every carriage return and line feed so s renders on one line
func Sanitize(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}

	return lineBreaks.Replace(s)
}

// Messages collects the sanitized message of err and of every cause below it.
// Empty messages and a level repeating the one above it are skipped.
func Messages(err error) []string {
	var out []string

	for depth := 0; err != nil && depth < maxChainDepth; depth++ {
		msg := messageOf(err)
		if msg != "" && (len(out) == 0 || out[len(out)-1] != msg) {
			out = append(out, msg)
		}
		err = errors.Unwrap(err)
	}

	return out
}

func messageOf(err error) string {
	if e, ok := err.(Error); ok {
		return e.Message()
	}

	return Sanitize(err.Error())
}

func simpleString(e Error) string {
	return fmt.Sprintf("ErrorCode=%s, ErrorMsg=%s", e.Code(), e.Message())
}

func fullString(e Error) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ErrorCode=%s, ErrorMsg=%s, StackTrace=", e.Code(), strings.Join(Messages(e), chainSeparator))
	if trace := e.Trace(); trace != "" {
		b.WriteString("\n")
		b.WriteString(trace)
	}

	return b.String()
}

// traceOf returns err's own trace without looking further down the chain
func traceOf(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case *domainError:
		if e != nil && len(e.stack) > 0 {
			return formatStack(e.stack)
		}
		return ""
	case tracer:
		return e.Trace()
	case stackTracer:
		return formatStack(e.StackTrace())
	}

	return ""
}

func captureStack() pkgerrors.StackTrace {
	st, ok := pkgerrors.New("").(stackTracer)
	if !ok {
		return nil
	}

	return st.StackTrace()
}

func formatStack(st pkgerrors.StackTrace) string {
	return strings.TrimPrefix(fmt.Sprintf("%+v", st), "\n")
}
