// Package app wires the watslog commands to the rolling log. It opens the log
// with the station identity and the configured fallback sink, runs each
// command under the process lifecycle, and maps failures to exit codes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/virinco/watsclient/internal/cli"
	"github.com/virinco/watsclient/internal/config"
	apperrors "github.com/virinco/watsclient/internal/errors"
	"github.com/virinco/watsclient/internal/follow"
	"github.com/virinco/watsclient/internal/identity"
	"github.com/virinco/watsclient/internal/logging"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/support"
	"github.com/virinco/watsclient/internal/tracelistener"
)

// Application represents one watslog invocation.
// It holds the resolved configuration and the writers the commands report to.
type Application struct {
	// Config holds the resolved application configuration.
	Config config.AppConfig
	// Out receives command output (typically os.Stdout).
	Out io.Writer
	// ErrWriter receives diagnostics and spinners (typically os.Stderr).
	ErrWriter io.Writer
	// Logger is the process logger. Failures the rolling log cannot record
	// in itself are reported here when the fallback is "stderr".
	Logger logging.Logger

	// flags is the parsed flag set, kept for settings reloads.
	flags    *pflag.FlagSet
	identity *identity.Provider
}

// New creates an Application over a resolved configuration.
//
// Parameters:
//   - cfg: The resolved configuration.
//   - flags: The parsed flag set, or nil.
//   - out: The writer for standard output.
//   - errWriter: The writer for error output.
//
// Returns:
//   - *Application: A new application instance.
func New(cfg config.AppConfig, flags *pflag.FlagSet, out, errWriter io.Writer) *Application {
	level := zerolog.InfoLevel
	if cfg.Quiet {
		level = zerolog.WarnLevel
	}
	return &Application{
		Config:    cfg,
		Out:       out,
		ErrWriter: errWriter,
		Logger:    logging.NewConsoleLogger(errWriter, "watslog", level, cfg.NoColor),
		flags:     flags,
		identity:  identity.NewProvider(cfg.Identity(Version)),
	}
}

// Identity returns the station facts the header is built from.
func (a *Application) Identity() identity.Info {
	return a.identity.Current()
}

// fallback builds the configured sink for failures the log cannot record.
// The returned close function releases the sink.
func (a *Application) fallback() (rollinglog.FallbackSink, func() error, error) {
	switch strings.ToLower(a.Config.Fallback) {
	case config.FallbackStderr:
		return rollinglog.LoggerFallback{Logger: a.Logger}, func() error { return nil }, nil
	case config.FallbackSyslog:
		s, err := rollinglog.NewSyslogFallback()
		if err != nil {
			return nil, nil, fmt.Errorf("connect to syslog: %w", err)
		}
		return s, s.Close, nil
	default:
		return rollinglog.NopFallback{}, func() error { return nil }, nil
	}
}

// OpenLog opens the configured rolling log with the station header and the
// fallback sink. extra options are applied last. The returned close function
// closes the log and then the fallback sink.
func (a *Application) OpenLog(ctx context.Context, extra ...rollinglog.Option) (*rollinglog.File, func() error, error) {
	sink, closeSink, err := a.fallback()
	if err != nil {
		return nil, nil, err
	}
	opts := append(a.Config.LogOptions(),
		rollinglog.WithHeaderSource(a.identity.HeaderSource()),
		rollinglog.WithFallback(sink),
	)
	opts = append(opts, extra...)

	f, err := rollinglog.OpenContext(ctx, a.Config.LogPath, opts...)
	if err != nil {
		_ = closeSink()
		return nil, nil, apperrors.NewLogFileError("open", a.Config.LogPath, err)
	}
	return f, func() error {
		return errors.Join(f.Close(), closeSink())
	}, nil
}

// NewListener creates a trace listener over f, filtered by the configured level.
func (a *Application) NewListener(f *rollinglog.File) *tracelistener.Listener {
	return tracelistener.New(f, tracelistener.WithLevel(a.Config.TraceLevel()))
}

// WriteEntry writes one message through the trace listener. An empty category
// uses the level's tag. Source, when set, prefixes the message. An entry the
// log had to drop is returned as an error so scripts see the failure.
func (a *Application) WriteEntry(ctx context.Context, level tracelistener.Level, category, source, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, closeLog, err := a.OpenLog(ctx)
	if err != nil {
		return err
	}
	out := &checkedAppender{out: f}
	l := tracelistener.New(out, tracelistener.WithLevel(a.Config.TraceLevel()))
	l.TraceEvent(level, category, &tracelistener.LogMessage{Level: level, Source: source, Message: message})
	if err := closeLog(); err != nil {
		return apperrors.NewLogFileError("close", a.Config.LogPath, err)
	}
	if out.err != nil {
		return apperrors.NewLogFileError("append", a.Config.LogPath, out.err)
	}
	if !l.Enabled(level) {
		a.Logger.Debug("entry filtered by level", logging.String("level", level.String()), logging.String("filter", l.Level().String()))
	}
	return nil
}

// checkedAppender remembers the last append error, which the listener
// otherwise discards.
type checkedAppender struct {
	out tracelistener.Appender
	err error
}

func (c *checkedAppender) Append(p []byte) error {
	c.err = c.out.Append(p)
	return c.err
}

// Truncate shrinks the log to its configured tail once it exceeds the maximum
// size, or with headerOnly rewrites just the header. It shows a spinner
// while it waits on locks.
func (a *Application) Truncate(ctx context.Context, headerOnly bool) error {
	before := fileSize(a.Config.LogPath)
	f, closeLog, err := a.OpenLog(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	label := "Truncating " + a.Config.LogPath
	if headerOnly {
		label = "Refreshing header of " + a.Config.LogPath
	}
	// Open schedules a background pass; wait for it instead of failing busy.
	duration, err := cli.WithSpinner(a.ErrWriter, a.Config.Quiet, label, func() error {
		for {
			err := f.Truncate(ctx, headerOnly)
			if !errors.Is(err, rollinglog.ErrTruncateBusy) {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(busyPoll):
			}
		}
	})
	if err != nil {
		return apperrors.NewLogFileError("truncate", a.Config.LogPath, err)
	}
	if !a.Config.Quiet {
		cli.DisplayTruncateResult(a.Out, a.Config.LogPath, before, f.Size(), duration)
	}
	return nil
}

// PrintHeader writes the header of the log file.
func (a *Application) PrintHeader(asJSON bool) error {
	h, _, err := rollinglog.ReadHeader(a.Config.LogPath)
	if err != nil {
		return apperrors.NewLogFileError("read header", a.Config.LogPath, err)
	}
	return cli.PrintHeader(a.Out, h, cli.OutputConfig{JSON: asJSON, Quiet: a.Config.Quiet})
}

// Tail prints the last n body lines. With followLog it keeps printing
// appended lines, truncations and removals until ctx is done.
func (a *Application) Tail(ctx context.Context, n int, followLog bool) error {
	lines, err := rollinglog.TailLines(a.Config.LogPath, n)
	if err != nil && !(followLog && errors.Is(err, os.ErrNotExist)) {
		return apperrors.NewLogFileError("tail", a.Config.LogPath, err)
	}
	cli.PrintEntries(a.Out, lines)
	if !followLog {
		return nil
	}
	fw := follow.New(a.Config.LogPath, follow.WithLogger(a.Logger))
	return fw.Run(ctx, true, func(e follow.Event) { cli.PrintFollowEvent(a.Out, e) })
}

// Bundle writes a support bundle with the log, the settings file and a status
// snapshot to zipPath.
func (a *Application) Bundle(ctx context.Context, zipPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := support.New(a.Config.LogPath).
		AddFile(a.Config.SettingsFile).
		AddJSON(support.StatusEntryName, support.Snapshot(a.Config.LogPath, a.Identity(), time.Now()))

	duration, err := cli.WithSpinner(a.ErrWriter, a.Config.Quiet, "Writing "+zipPath, func() error {
		return b.Create(zipPath)
	})
	if err != nil {
		return err
	}
	if !a.Config.Quiet {
		cli.DisplayBundleResult(a.Out, zipPath, b.Names(), duration)
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// busyPoll is how often Truncate retries while another truncation runs.
const busyPoll = 25 * time.Millisecond
