package app

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
)

// Build-time variables set via -ldflags.
//
// Example build command:
//
//	go build -ldflags="-X github.com/virinco/watsclient/internal/app.Version=v1.2.3 -X github.com/virinco/watsclient/internal/app.Commit=abc123 -X github.com/virinco/watsclient/internal/app.BuildDate=2025-01-01T00:00:00Z" ./cmd/watslog
var (
	// Version is the client version stamped into the log header as "watsversion".
	Version = "dev"
	// Commit is the short Git commit hash (e.g., "abc123").
	Commit = "unknown"
	// BuildDate is the ISO 8601 timestamp of the build (e.g., "2025-01-01T00:00:00Z").
	BuildDate = "unknown"
)

// VersionData holds the build and runtime version details.
type VersionData struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetVersionInfo returns the current version information as a struct.
func GetVersionInfo() VersionData {
	return VersionData{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// PrintVersion outputs version information to the given writer, either as
// aligned text or as a JSON object.
//
// Parameters:
//   - out: The writer to output version information to.
//   - asJSON: Selects JSON output.
//
// Returns:
//   - error: An error if writing fails.
func PrintVersion(out io.Writer, asJSON bool) error {
	info := GetVersionInfo()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	_, err := fmt.Fprintf(out,
		"watslog %s\n  Commit:     %s\n  Built:      %s\n  Go version: %s\n  OS/Arch:    %s/%s\n",
		info.Version, info.Commit, info.BuildDate, info.GoVersion, info.OS, info.Arch)
	return err
}
