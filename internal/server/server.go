// Package server provides the local status HTTP endpoint of a station's
// rolling log: health, Prometheus metrics, the current header, the tail of
// the body, a live stream of appended entries, and an entry intake for
// processes that cannot link the log directly.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/virinco/watsclient/internal/config"
	apperrors "github.com/virinco/watsclient/internal/errors"
	"github.com/virinco/watsclient/internal/logging"
	"github.com/virinco/watsclient/internal/tracelistener"
)

// Server represents the status HTTP server. It wraps the standard
// http.Server and adds application-specific configuration and graceful
// shutdown.
type Server struct {
	cfg        config.AppConfig
	listener   *tracelistener.Listener
	httpServer *http.Server
	logger     logging.Logger
	metrics    *Metrics
	timeouts   Timeouts
}

// NewServer creates a new Server for the log configured in cfg. Entries
// posted to /entries are written through listener; a nil listener disables
// the intake.
//
// Parameters:
//   - cfg: The application configuration (log path, listen address).
//   - listener: The trace listener of the open log, or nil.
//   - opts: Optional functional options for customizing the server (e.g., WithLogger).
//
// Returns:
//   - *Server: A pointer to the initialized Server.
func NewServer(cfg config.AppConfig, listener *tracelistener.Listener, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		listener: listener,
		logger:   logging.NewLogger(os.Stdout, "server"),
		metrics:  NewMetrics(),
		timeouts: DefaultServerTimeouts(),
	}

	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.wrapWithMiddleware(s.handleHealth))
	mux.HandleFunc("/metrics", s.wrapWithMiddleware(s.handleMetrics))
	mux.HandleFunc("/header", s.wrapWithMiddleware(s.handleHeader))
	mux.HandleFunc("/tail", s.wrapWithMiddleware(s.handleTail))
	mux.HandleFunc("/follow", s.wrapWithMiddleware(s.handleFollow))
	mux.HandleFunc("/entries", s.wrapWithMiddleware(s.handleEntries))

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      mux,
		ReadTimeout:  s.timeouts.ReadTimeout,
		WriteTimeout: s.timeouts.WriteTimeout,
		IdleTimeout:  s.timeouts.IdleTimeout,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// wrapWithMiddleware applies the full middleware chain to a handler.
func (s *Server) wrapWithMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	// Applied in reverse order: Security -> Logging -> Metrics -> Handler
	wrapped := s.metricsMiddleware(handler)
	wrapped = s.loggingMiddleware(wrapped)
	wrapped = securityMiddleware(wrapped)
	return wrapped
}

// Start serves until ctx is done, then shuts down gracefully.
//
// Returns:
//   - error: A ServerError if the server fails to start or to shut down.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return apperrors.NewServerError("server failed to start", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", logging.String("addr", ln.Addr().String()), logging.String("log", s.cfg.LogPath))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested, draining connections")
	case err, ok := <-errCh:
		if ok {
			return apperrors.NewServerError("server stopped unexpectedly", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return apperrors.NewServerError("failed to gracefully shutdown server", err)
	}
	s.logger.Info("status server stopped")
	return nil
}
