package rollinglog

import (
	"github.com/virinco/watsclient/internal/logging"
)

// FallbackSink receives failures that could not be written to the log file
// itself: dropped entries and abandoned truncations.
type FallbackSink interface {
	Report(op string, err error)
}

// FallbackFunc adapts a function to FallbackSink.
type FallbackFunc func(op string, err error)

// Report calls f(op, err).
func (f FallbackFunc) Report(op string, err error) { f(op, err) }

// NopFallback discards every report.
type NopFallback struct{}

// Report does nothing.
func (NopFallback) Report(string, error) {}

// LoggerFallback forwards reports to a process logger.
type LoggerFallback struct {
	Logger logging.Logger
}

// Report logs the failure at error level.
func (l LoggerFallback) Report(op string, err error) {
	if l.Logger == nil {
		return
	}
	l.Logger.Error("error writing to WATS log file", err, logging.String("op", op))
}
