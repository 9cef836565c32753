// Package testutil holds helpers shared by the CLI tests.
package testutil

import "regexp"

// ansiRegex matches the CSI sequences emitted by the ui themes.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripAnsiCodes removes color sequences so colored output can be compared
// with the plain log text it was rendered from.
func StripAnsiCodes(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
