package ui

import "strings"

// ColorReset returns the reset escape code from the current theme.
func ColorReset() string { return GetCurrentTheme().Reset }

// ColorRed returns the error color from the current theme.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorGreen returns the success color from the current theme.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow returns the warning color from the current theme.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBlue returns the info color from the current theme.
func ColorBlue() string { return GetCurrentTheme().Info }

// ColorGrey returns the muted color from the current theme.
func ColorGrey() string { return GetCurrentTheme().Muted }

// ColorBold returns the bold escape code from the current theme.
func ColorBold() string { return GetCurrentTheme().Bold }

// CategoryColor returns the color for an entry category such as "ERROR".
// Unknown categories (custom ones like "CONVERTER") are left uncolored.
func CategoryColor(category string) string {
	t := GetCurrentTheme()
	switch strings.ToUpper(category) {
	case "CRITICAL":
		return t.Critical
	case "ERROR":
		return t.Error
	case "WARNING":
		return t.Warning
	case "INFO", "INFORMATION":
		return t.Info
	case "VERBOSE":
		return t.Verbose
	default:
		return ""
	}
}
