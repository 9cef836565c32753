package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	apperrors "github.com/virinco/watsclient/internal/errors"
	"github.com/virinco/watsclient/internal/follow"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/tracelistener"
)

// Limits of the /tail and /entries endpoints.
const (
	DefaultTailLines = 100
	MaxTailLines     = 10_000
	maxEntryBytes    = 64 << 10
)

// handleHealth reports whether the log file can be examined, with its
// current size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Unix(),
		LogPath:   s.cfg.LogPath,
	}
	info, err := os.Stat(s.cfg.LogPath)
	switch {
	case err == nil:
		resp.LogSize = info.Size()
		resp.LogExists = true
	case errors.Is(err, os.ErrNotExist):
	default:
		resp.Status = "degraded"
		resp.Error = err.Error()
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

// handleHeader returns the current header fields in file order.
func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	h, _, err := rollinglog.ReadHeader(s.cfg.LogPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.writeErrorResponse(w, http.StatusNotFound, "log file does not exist yet")
		return
	case errors.Is(err, rollinglog.ErrMalformedHeader):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSONResponse(w, http.StatusOK, h)
}

// handleTail returns the last ?lines=N body lines as plain text.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	n, err := parseLines(r)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	lines, err := rollinglog.TailLines(s.cfg.LogPath, n)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// parseLines reads the "lines" query parameter.
func parseLines(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("lines")
	if raw == "" {
		return DefaultTailLines, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > MaxTailLines {
		return 0, apperrors.NewValidationError("lines", fmt.Sprintf("must be an integer between 1 and %d", MaxTailLines), raw)
	}
	return n, nil
}

// handleFollow streams appended body lines until the client goes away.
// Truncations and removals are reported as comment lines starting with '#'.
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeErrorResponse(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	f := follow.New(s.cfg.LogPath, follow.WithLogger(s.logger), follow.WithPollInterval(s.timeouts.FollowPoll))
	err := f.Run(r.Context(), true, func(e follow.Event) {
		switch e.Kind {
		case follow.Line:
			fmt.Fprintln(w, e.Text)
		default:
			fmt.Fprintf(w, "# %s size=%d\n", e.Kind, e.Size)
		}
		flusher.Flush()
	})
	if err != nil {
		s.logger.Error("follow stream ended", err)
	}
}

// handleEntries accepts one JSON entry and writes it through the trace
// listener. The level filter applies; a filtered entry is still accepted.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.listener == nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "entry intake disabled")
		return
	}

	var req EntryRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxEntryBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	level := tracelistener.Information
	if req.Level != "" {
		l, err := tracelistener.ParseLevel(req.Level)
		if err != nil || l == tracelistener.Off {
			s.writeErrorResponse(w, http.StatusBadRequest, apperrors.NewValidationError("level", "unknown level", req.Level).Error())
			return
		}
		level = l
	}
	if req.Message == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, apperrors.NewValidationError("message", "must not be empty", nil).Error())
		return
	}

	s.listener.TraceEvent(level, req.Category, &tracelistener.LogMessage{
		Level:   level,
		Source:  req.Source,
		Message: req.Message,
	})
	s.writeJSONResponse(w, http.StatusAccepted, EntryResponse{Accepted: true, Recorded: s.listener.Enabled(level)})
}

// writeJSONResponse writes data as JSON with the correct content type.
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Error encoding JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	errResp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	s.writeJSONResponse(w, statusCode, errResp)
}
