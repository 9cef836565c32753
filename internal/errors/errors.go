// Package apperrors holds the error types the watslog commands return and
// the exit codes they map to. Every type that carries a cause unwraps to it,
// so rollinglog sentinels stay visible to errors.Is.
package apperrors

import "fmt"

// Exit codes of the watslog binary.
const (
	ExitSuccess          = 0
	ExitErrorGeneric     = 1
	ExitErrorTimeout     = 2
	ExitErrorUnavailable = 3 // the log stayed locked or could not be opened
	ExitErrorConfig      = 4
	ExitErrorCanceled    = 130 // SIGINT
)

// ConfigError reports an invalid flag, environment variable or settings
// file entry.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError formats a ConfigError.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// LogFileError records which operation on which log file failed.
type LogFileError struct {
	// Op is the operation, e.g. "append", "truncate", "read header".
	Op    string
	Path  string
	Cause error
}

// Error returns "op path: cause".
func (e LogFileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

func (e LogFileError) Unwrap() error { return e.Cause }

// NewLogFileError wraps cause; a nil cause yields nil.
func NewLogFileError(op, path string, cause error) error {
	if cause == nil {
		return nil
	}
	return LogFileError{Op: op, Path: path, Cause: cause}
}

// ServerError is returned when the status server cannot start or stop.
type ServerError struct {
	Message string
	Cause   error
}

func (e ServerError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e ServerError) Unwrap() error { return e.Cause }

// NewServerError creates a ServerError. cause may be nil.
func NewServerError(message string, cause error) error {
	return ServerError{Message: message, Cause: cause}
}

// ValidationError reports a command argument or request field that is out
// of range. Value is the rejected input and may be nil.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e ValidationError) Error() string {
	switch {
	case e.Field == "":
		return "invalid input: " + e.Message
	case e.Value == nil:
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}
