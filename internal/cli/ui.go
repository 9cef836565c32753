// The cli package provides the terminal presentation of the watslog commands.
// It renders log entries and headers, shows a spinner while a command waits on
// a locked log file, and generates shell completion scripts.
package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/virinco/watsclient/internal/ui"
)

// FormatExecutionDuration formats a time.Duration for display.
// It shows microseconds for durations less than a millisecond, milliseconds for
// durations less than a second, and the default string representation otherwise.
//
// Parameters:
//   - d: The duration to format.
//
// Returns:
//   - string: A formatted string representing the duration.
func FormatExecutionDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(time.Millisecond).String()
}

// SpinnerRefreshRate defines how often the spinner suffix is refreshed.
const SpinnerRefreshRate = 200 * time.Millisecond

// Spinner is an interface that abstracts the behavior of a terminal spinner.
// It decouples WithSpinner from a specific spinner implementation, which
// keeps it testable.
type Spinner interface {
	// Start begins the spinner animation.
	Start()
	// Stop halts the spinner animation.
	Stop()
	// UpdateSuffix sets the text that is displayed after the spinner.
	UpdateSuffix(suffix string)
}

// realSpinner adapts spinner.Spinner to the Spinner interface.
type realSpinner struct {
	s *spinner.Spinner
}

func (rs *realSpinner) Start() { rs.s.Start() }

func (rs *realSpinner) Stop() { rs.s.Stop() }

func (rs *realSpinner) UpdateSuffix(suffix string) {
	rs.s.Lock()
	rs.s.Suffix = suffix
	rs.s.Unlock()
}

var newSpinner = func(options ...spinner.Option) Spinner {
	s := spinner.New(spinner.CharSets[11], SpinnerRefreshRate, options...)
	return &realSpinner{s}
}

// WithSpinner runs fn while a spinner labelled with label animates on out.
// The suffix shows the elapsed time so a user waiting on a locked log can
// tell the command is still alive. In quiet mode fn runs without a spinner.
//
// Parameters:
//   - out: The writer the spinner is drawn on.
//   - quiet: Disables the spinner.
//   - label: Text shown after the spinner.
//   - fn: The blocking operation.
//
// Returns:
//   - time.Duration: How long fn ran.
//   - error: The error returned by fn.
func WithSpinner(out io.Writer, quiet bool, label string, fn func() error) (time.Duration, error) {
	start := time.Now()
	if quiet {
		err := fn()
		return time.Since(start), err
	}

	s := newSpinner(spinner.WithWriter(out))
	s.UpdateSuffix(" " + label)
	s.Start()

	done := make(chan error, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(SpinnerRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			s.Stop()
			return time.Since(start), err
		case <-ticker.C:
			s.UpdateSuffix(fmt.Sprintf(" %s %s(%s)%s", label, ui.ColorGrey(), FormatExecutionDuration(time.Since(start)), ui.ColorReset()))
		}
	}
}
