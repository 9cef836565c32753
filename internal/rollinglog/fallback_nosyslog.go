//go:build windows || plan9 || js || wasip1

package rollinglog

import "errors"

// SyslogFallback is unavailable on this platform.
type SyslogFallback struct{}

// NewSyslogFallback always fails here.
func NewSyslogFallback() (*SyslogFallback, error) {
	return nil, errors.New("syslog is not available on this platform")
}

// Report does nothing.
func (*SyslogFallback) Report(string, error) {}

// Close does nothing.
func (*SyslogFallback) Close() error { return nil }
