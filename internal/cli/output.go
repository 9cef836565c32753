package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/virinco/watsclient/internal/follow"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/ui"
)

// OutputConfig holds configuration for command output.
type OutputConfig struct {
	// Quiet mode suppresses informational output.
	Quiet bool
	// JSON selects machine-readable output where a command supports it.
	JSON bool
}

// PrintHeader writes the header fields of a log file.
// JSON output keeps the file's field order; text output is one "key: value"
// line per field.
//
// Parameters:
//   - out: The destination writer.
//   - h: The decoded header.
//   - cfg: Output configuration.
//
// Returns:
//   - error: An error if JSON encoding fails.
func PrintHeader(out io.Writer, h rollinglog.Header, cfg OutputConfig) error {
	if cfg.JSON {
		data, err := json.MarshalIndent(h, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}
	width := 0
	for _, f := range h.Fields() {
		width = max(width, len(f.Key))
	}
	for _, f := range h.Fields() {
		fmt.Fprintf(out, "%s%-*s%s : %s\n", ui.ColorBold(), width, f.Key, ui.ColorReset(), f.Value)
	}
	return nil
}

// PrintEntries writes body lines, coloring the category of each entry.
func PrintEntries(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, FormatEntryLine(line))
	}
}

// FormatEntryLine colors a "timestamp;CATEGORY;message" line for the terminal.
// Lines that do not have that shape (continuation lines of a multi-line
// message) are returned unchanged.
func FormatEntryLine(line string) string {
	ts, rest, ok := strings.Cut(line, ";")
	if !ok {
		return line
	}
	category, msg, ok := strings.Cut(rest, ";")
	if !ok {
		return line
	}
	if _, err := time.Parse(rollinglog.TimestampLayout, ts); err != nil {
		return line
	}
	color := ui.CategoryColor(category)
	if color == "" && ui.ColorGrey() == "" {
		return line
	}
	return fmt.Sprintf("%s%s%s;%s%s%s;%s", ui.ColorGrey(), ts, ui.ColorReset(), color, category, ui.ColorReset(), msg)
}

// PrintFollowEvent renders one event of a followed log. Truncations and
// removals are reported as status lines.
func PrintFollowEvent(out io.Writer, e follow.Event) {
	switch e.Kind {
	case follow.Line:
		fmt.Fprintln(out, FormatEntryLine(e.Text))
	case follow.Truncated:
		fmt.Fprintf(out, "%s--- log truncated to %d bytes ---%s\n", ui.ColorYellow(), e.Size, ui.ColorReset())
	case follow.Removed:
		fmt.Fprintf(out, "%s--- log removed, waiting for it to reappear ---%s\n", ui.ColorYellow(), ui.ColorReset())
	}
}

// DisplayTruncateResult summarizes a completed truncation.
//
// Parameters:
//   - out: The destination writer.
//   - path: The log file path.
//   - before: File size before the truncation.
//   - after: File size after the truncation.
//   - duration: How long the truncation took, including waits on locks.
func DisplayTruncateResult(out io.Writer, path string, before, after int64, duration time.Duration) {
	fmt.Fprintf(out, "%s✓%s Truncated %s%s%s: %s → %s in %s\n",
		ui.ColorGreen(), ui.ColorReset(),
		ui.ColorBold(), path, ui.ColorReset(),
		FormatSize(before), FormatSize(after), FormatExecutionDuration(duration))
}

// DisplayBundleResult lists the entries written to a support bundle.
func DisplayBundleResult(out io.Writer, zipPath string, names []string, duration time.Duration) {
	fmt.Fprintf(out, "%s✓%s Support bundle written to %s%s%s in %s\n",
		ui.ColorGreen(), ui.ColorReset(),
		ui.ColorBold(), zipPath, ui.ColorReset(), FormatExecutionDuration(duration))
	for _, name := range names {
		fmt.Fprintf(out, "  - %s\n", name)
	}
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
