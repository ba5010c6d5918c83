package logger

import (
	"io"
	"os"
	"syscall"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ParseLevel maps a configured level name onto a LogLevel
func ParseLevel(name string) (LogLevel, error) {
	switch name {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warning", "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return WarnLevel, errors.NewArgumentError("log_level", "unknown level "+errors.Sanitize(name))
	}
}

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the global logger
func Init(level LogLevel, isService bool) {
	log = zerolog.New(consoleWriter(os.Stdout, isService)).With().Timestamp().Logger()
	SetLogLevel(level)
}

func consoleWriter(out io.Writer, isService bool) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	return output
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with its code and cause chain
func ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{withCode(log.Error(), err)}
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return &LogEvent{withCode(log.Fatal(), err)}
}

// withCode emits sanitized text only
func withCode(e *zerolog.Event, err errors.Error) *zerolog.Event {
	if err == nil {
		return e
	}

	e = e.Str("error_code", string(err.Code())).
		Str("error_message", err.Message()).
		Strs("error_chain", errors.Messages(err))
	if cause := err.Cause(); cause != nil {
		e = e.Str("cause", errors.Sanitize(cause.Error()))
	}

	return e
}

type instance struct {
	zl zerolog.Logger
}

// New returns a Logger writing to w, independent of the global logger.
// Output is JSON when json is true and console formatted otherwise.
func New(w io.Writer, level LogLevel, json bool) Logger {
	var out io.Writer = w
	if !json {
		out = consoleWriter(w, false)
	}

	return &instance{
		zl: zerolog.New(out).Level(zerolog.Level(level)).With().Timestamp().Logger(),
	}
}

// Default returns a Logger backed by the global logger
func Default() Logger {
	return global{}
}

func (l *instance) Debug() *LogEvent { return &LogEvent{l.zl.Debug()} }
func (l *instance) Info() *LogEvent  { return &LogEvent{l.zl.Info()} }
func (l *instance) Warn() *LogEvent  { return &LogEvent{l.zl.Warn()} }
func (l *instance) Error() *LogEvent { return &LogEvent{l.zl.Error()} }

func (l *instance) ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{withCode(l.zl.Error(), err)}
}

func (l *instance) ErrorWithContext(err errors.Error, component, operation string) *LogEvent {
	return &LogEvent{withCode(l.zl.Error(), err).
		Str("component", component).
		Str("operation", operation)}
}

type global struct{}

func (global) Debug() *LogEvent { return Debug() }
func (global) Info() *LogEvent  { return Info() }
func (global) Warn() *LogEvent  { return Warn() }
func (global) Error() *LogEvent { return Error() }

func (global) ErrorWithCode(err errors.Error) *LogEvent {
	return ErrorWithCode(err)
}

func (global) ErrorWithContext(err errors.Error, component, operation string) *LogEvent {
	return &LogEvent{withCode(log.Error(), err).
		Str("component", component).
		Str("operation", operation)}
}
