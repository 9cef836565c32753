//go:build windows

package identity

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func osVersion() string {
	v := windows.RtlGetVersion()
	if v == nil {
		return fallbackOSVersion()
	}
	return fmt.Sprintf("Microsoft Windows NT %d.%d.%d", v.MajorVersion, v.MinorVersion, v.BuildNumber)
}
