//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package identity

func osVersion() string { return fallbackOSVersion() }
