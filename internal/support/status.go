package support

import (
	"errors"
	"os"
	"time"

	"github.com/virinco/watsclient/internal/identity"
	"github.com/virinco/watsclient/internal/rollinglog"
)

// Status is the snapshot stored as status.json.
type Status struct {
	Generated time.Time         `json:"generated"`
	Process   string            `json:"process"`
	LogPath   string            `json:"logPath"`
	LogSize   int64             `json:"logSize"`
	Header    map[string]string `json:"header,omitempty"`
	HeaderErr string            `json:"headerError,omitempty"`
	Station   identity.Info     `json:"station"`
}

// Snapshot describes the log at logPath and the station as seen right now.
func Snapshot(logPath string, station identity.Info, now time.Time) Status {
	st := Status{
		Generated: now,
		Process:   identity.ProcessName(),
		LogPath:   logPath,
		Station:   station,
	}
	if info, err := os.Stat(logPath); err == nil {
		st.LogSize = info.Size()
	}
	h, _, err := rollinglog.ReadHeader(logPath)
	switch {
	case err == nil:
		st.Header = h.Map()
	case errors.Is(err, os.ErrNotExist):
	default:
		st.HeaderErr = err.Error()
	}
	return st
}
