package server

import (
	"log"
	"time"

	"github.com/virinco/watsclient/internal/logging"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger routes the server's own diagnostics to logger. nil keeps the
// default stdout logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStdLogger is WithLogger for a standard library logger.
func WithStdLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logging.NewStdLoggerAdapter(logger)
		}
	}
}

// WithTimeouts replaces the HTTP and streaming timeouts.
func WithTimeouts(timeouts Timeouts) Option {
	return func(s *Server) {
		s.timeouts = timeouts
	}
}

// Timeouts bounds the status server's connections.
type Timeouts struct {
	// ShutdownTimeout bounds the drain of open requests after cancellation.
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	// WriteTimeout of zero leaves /follow streams open indefinitely.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// FollowPoll is how often /follow re-reads the log when file events
	// are unavailable.
	FollowPoll time.Duration
}

// DefaultServerTimeouts suits a station-local endpoint with long-lived
// /follow streams.
func DefaultServerTimeouts() Timeouts {
	return Timeouts{
		ShutdownTimeout: 10 * time.Second,
		ReadTimeout:     10 * time.Second,
		IdleTimeout:     2 * time.Minute,
		FollowPoll:      time.Second,
	}
}
