package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/virinco/watsclient/internal/rollinglog"
)

// ColorProvider defines the interface for obtaining terminal color codes.
// This abstraction breaks the import cycle with cli.
type ColorProvider interface {
	Yellow() string
	Reset() string
}

// DefaultColorProvider provides no color codes (for non-terminal output).
type DefaultColorProvider struct{}

func (d DefaultColorProvider) Yellow() string { return "" }
func (d DefaultColorProvider) Reset() string  { return "" }

// HandleCommandError prints a one-line status for a failed command and
// returns the matching exit code.
//
// Parameters:
//   - err: The error that occurred.
//   - duration: How long the command ran before it failed (0 to omit).
//   - out: The io.Writer to which the status line will be written.
//   - colors: Provider for terminal color codes (can be nil for no colors).
//
// Returns:
//   - int: The appropriate exit code for the error type.
func HandleCommandError(err error, duration time.Duration, out io.Writer, colors ColorProvider) int {
	if err == nil {
		return ExitSuccess
	}
	if colors == nil {
		colors = DefaultColorProvider{}
	}

	msgSuffix := ""
	if duration > 0 {
		msgSuffix = fmt.Sprintf(" after %s%s%s", colors.Yellow(), duration, colors.Reset())
	}

	var (
		cfgErr ConfigError
		valErr ValidationError
	)
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(out, "Status: Configuration error: %v\n", err)
		return ExitErrorConfig
	case errors.As(err, &valErr):
		fmt.Fprintf(out, "Status: Invalid input: %v\n", err)
		return ExitErrorConfig
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "Status: Failure (Timeout). The execution limit was reached%s.\n", msgSuffix)
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "%sStatus: Canceled%s.%s\n", colors.Yellow(), msgSuffix, colors.Reset())
		return ExitErrorCanceled
	case errors.Is(err, rollinglog.ErrDropped), errors.Is(err, rollinglog.ErrLocked), errors.Is(err, rollinglog.ErrTruncateBusy):
		fmt.Fprintf(out, "Status: Log file unavailable%s: %v\n", msgSuffix, err)
		return ExitErrorUnavailable
	}
	fmt.Fprintf(out, "Status: Failure. An unexpected error occurred: %v\n", err)
	return ExitErrorGeneric
}
