// Package ui provides theme and color support for the watslog terminal output.
// A theme maps the severity of a log entry and a few presentation roles to
// ANSI escape codes, so that tail output and status lines stay consistent.
//
// This package is a shared dependency for packages that need color output,
// keeping presentation concerns out of the log writer itself.
package ui

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Theme defines a color scheme for terminal output.
// Each field contains an ANSI escape code for the corresponding role.
type Theme struct {
	// Name is the identifier of the theme.
	Name string
	// Critical marks CRITICAL entries and fatal status lines.
	Critical string
	// Error marks ERROR entries and failures.
	Error string
	// Warning marks WARNING entries and recoverable conditions.
	Warning string
	// Info marks INFO entries.
	Info string
	// Verbose marks VERBOSE entries.
	Verbose string
	// Success marks completed operations.
	Success string
	// Muted is used for timestamps and other secondary text.
	Muted string
	// Bold is the escape code for bold text.
	Bold string
	// Reset clears all formatting.
	Reset string
}

var (
	// DarkTheme is optimized for dark terminal backgrounds.
	DarkTheme = Theme{
		Name:     "dark",
		Critical: "\033[1;38;5;196m", // Bold red
		Error:    "\033[38;5;196m",   // Red
		Warning:  "\033[38;5;220m",   // Yellow
		Info:     "\033[38;5;39m",    // Bright blue
		Verbose:  "\033[38;5;245m",   // Grey
		Success:  "\033[38;5;82m",    // Bright green
		Muted:    "\033[38;5;242m",   // Dark grey
		Bold:     "\033[1m",
		Reset:    "\033[0m",
	}

	// LightTheme is optimized for light terminal backgrounds.
	LightTheme = Theme{
		Name:     "light",
		Critical: "\033[1;38;5;124m",
		Error:    "\033[38;5;124m",
		Warning:  "\033[38;5;130m",
		Info:     "\033[38;5;27m",
		Verbose:  "\033[38;5;240m",
		Success:  "\033[38;5;28m",
		Muted:    "\033[38;5;244m",
		Bold:     "\033[1m",
		Reset:    "\033[0m",
	}

	// NoColorTheme disables all color output.
	// Used when NO_COLOR is set, --no-color is given, or output is not a terminal.
	NoColorTheme = Theme{Name: "none"}

	currentTheme = DarkTheme
	themeMutex   sync.RWMutex
)

// GetCurrentTheme returns the currently active theme in a thread-safe manner.
func GetCurrentTheme() Theme {
	themeMutex.RLock()
	defer themeMutex.RUnlock()
	return currentTheme
}

// SetCurrentTheme sets the currently active theme in a thread-safe manner.
// This is primarily used by tests to restore state.
func SetCurrentTheme(t Theme) {
	themeMutex.Lock()
	defer themeMutex.Unlock()
	currentTheme = t
}

// SetTheme changes the active theme by name.
// Valid names are "dark", "light" and "none"; anything else selects dark.
func SetTheme(name string) {
	switch name {
	case "light":
		SetCurrentTheme(LightTheme)
	case "none":
		SetCurrentTheme(NoColorTheme)
	default:
		SetCurrentTheme(DarkTheme)
	}
}

// InitTheme selects the theme for output written to w.
// Colors are disabled when noColor is true, when the NO_COLOR environment
// variable exists (https://no-color.org/), or when w is not a terminal.
// WATSLOG_THEME=light picks the light palette.
//
// Parameters:
//   - w: The writer the colored output goes to.
//   - noColor: If true, disables all color output regardless of environment.
func InitTheme(w io.Writer, noColor bool) {
	if noColor || !IsTerminal(w) {
		SetCurrentTheme(NoColorTheme)
		return
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		SetCurrentTheme(NoColorTheme)
		return
	}
	SetTheme(os.Getenv("WATSLOG_THEME"))
}

// IsTerminal reports whether w is a character device (or a Cygwin pty).
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
