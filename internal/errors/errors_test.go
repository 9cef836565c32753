package apperrors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/virinco/watsclient/internal/rollinglog"
)

func TestErrorMessages(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", NewConfigError("max size (%d) must be greater than min size (%d)", 10, 20), "max size (10) must be greater than min size (20)"},
		{"log file", NewLogFileError("truncate", "/var/log/wats.log", fs.ErrPermission), "truncate /var/log/wats.log: permission denied"},
		{"server with cause", NewServerError("server failed to start", errors.New("address in use")), "server failed to start: address in use"},
		{"server without cause", NewServerError("server stopped", nil), "server stopped"},
		{"validation with value", NewValidationError("lines", "must be strictly positive", -3), "invalid lines -3: must be strictly positive"},
		{"validation without value", NewValidationError("message", "must not be empty", nil), "invalid message: must not be empty"},
		{"validation without field", NewValidationError("", "empty body", nil), "invalid input: empty body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewLogFileErrorNilCause(t *testing.T) {
	t.Parallel()
	if err := NewLogFileError("append", "wats.log", nil); err != nil {
		t.Errorf("NewLogFileError(nil) = %v, want nil", err)
	}
}

func TestLogFileErrorKeepsSentinels(t *testing.T) {
	t.Parallel()
	cause := fmt.Errorf("%w: %w", rollinglog.ErrDropped, rollinglog.ErrLocked)
	err := fmt.Errorf("write entry: %w", NewLogFileError("append", "wats.log", cause))

	if !errors.Is(err, rollinglog.ErrDropped) || !errors.Is(err, rollinglog.ErrLocked) {
		t.Errorf("sentinels lost in %v", err)
	}
	var lfErr LogFileError
	if !errors.As(err, &lfErr) {
		t.Fatal("errors.As did not find the LogFileError")
	}
	if lfErr.Op != "append" || lfErr.Path != "wats.log" {
		t.Errorf("LogFileError = %+v", lfErr)
	}
}

func TestServerErrorUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("bind: permission denied")
	if !errors.Is(NewServerError("server failed to start", cause), cause) {
		t.Error("ServerError must unwrap to its cause")
	}
	if errors.Unwrap(NewServerError("stopped", nil)) != nil {
		t.Error("a ServerError without cause unwraps to nil")
	}
}

func TestErrorKindsAreDistinct(t *testing.T) {
	t.Parallel()
	err := NewConfigError("bad")
	var valErr ValidationError
	if errors.As(err, &valErr) {
		t.Error("a ConfigError is not a ValidationError")
	}
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Message != "bad" {
		t.Errorf("errors.As(ConfigError) = %+v", cfgErr)
	}
}

func TestExitCodesUnique(t *testing.T) {
	t.Parallel()
	seen := map[int]string{}
	for name, code := range map[string]int{
		"success":     ExitSuccess,
		"generic":     ExitErrorGeneric,
		"timeout":     ExitErrorTimeout,
		"unavailable": ExitErrorUnavailable,
		"config":      ExitErrorConfig,
		"canceled":    ExitErrorCanceled,
	} {
		if other, ok := seen[code]; ok {
			t.Errorf("exit code %d used by %s and %s", code, name, other)
		}
		seen[code] = name
	}
}
