//go:build !windows && !plan9 && !js && !wasip1

package rollinglog

import (
	"fmt"
	"log/syslog"
)

// SyslogFallback writes reports to the local system log under the "WATS" tag.
type SyslogFallback struct {
	w *syslog.Writer
}

// NewSyslogFallback connects to the local syslog daemon.
func NewSyslogFallback() (*SyslogFallback, error) {
	w, err := syslog.New(syslog.LOG_ERR|syslog.LOG_DAEMON, "WATS")
	if err != nil {
		return nil, err
	}
	return &SyslogFallback{w: w}, nil
}

// Report writes one error line to syslog. Failures are ignored.
func (s *SyslogFallback) Report(op string, err error) {
	_ = s.w.Err(fmt.Sprintf("Error writing to WATS Log File (%s): %v", op, err))
}

// Close releases the syslog connection.
func (s *SyslogFallback) Close() error { return s.w.Close() }
