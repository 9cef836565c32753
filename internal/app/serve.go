package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/virinco/watsclient/internal/config"
	"github.com/virinco/watsclient/internal/follow"
	"github.com/virinco/watsclient/internal/identity"
	"github.com/virinco/watsclient/internal/logging"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/server"
	"github.com/virinco/watsclient/internal/tracelistener"
)

// Serve keeps the log open for a long-running station process. It runs the
// status server, reports truncations seen on disk, and reloads the settings
// file when it changes. It returns when ctx is done or any part fails.
//
// Process diagnostics of the server are written to the error writer and,
// subject to the level filter, to the rolling log itself.
func (a *Application) Serve(ctx context.Context, opts ...server.Option) error {
	f, closeLog, err := a.OpenLog(ctx, rollinglog.WithStartMarker(identity.ProcessName()))
	if err != nil {
		return err
	}
	defer closeLog()

	l := a.NewListener(f)
	logger := a.serverLogger(l)
	srv := server.NewServer(a.Config, l, append([]server.Option{server.WithLogger(logger)}, opts...)...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		fw := follow.New(a.Config.LogPath, follow.WithLogger(a.Logger))
		return fw.Run(gctx, true, func(e follow.Event) {
			if e.Kind != follow.Line {
				a.Logger.Info("log file "+e.Kind.String(), logging.String("path", a.Config.LogPath), logging.Int64("size", e.Size))
			}
		})
	})
	if a.Config.SettingsFile != "" {
		g.Go(func() error {
			return a.watchSettings(gctx, f, l)
		})
	}

	logger.Info("watslog serving", logging.String("listen", a.Config.Listen), logging.String("log", a.Config.LogPath))
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serverLogger tees the console logger into the rolling log. Fallback reports
// keep using a.Logger alone so a failing log never feeds itself.
func (a *Application) serverLogger(l *tracelistener.Listener) logging.Logger {
	console := zerolog.ConsoleWriter{Out: a.ErrWriter, NoColor: a.Config.NoColor, TimeFormat: "15:04:05"}
	zl := zerolog.New(zerolog.MultiLevelWriter(console, tracelistener.NewZerologWriter(l))).
		With().Str("component", "server").Timestamp().Logger()
	return logging.NewZerologAdapter(zl)
}

// watchSettings reloads the settings file on change: the level filter and the
// station facts take effect immediately and the header is rewritten.
func (a *Application) watchSettings(ctx context.Context, f *rollinglog.File, l *tracelistener.Listener) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path, err := filepath.Abs(a.Config.SettingsFile)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	cfg := a.Config
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.Warn("settings watch error", logging.String("error", err.Error()))
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			cfg = a.reloadSettings(ctx, cfg, f, l)
		}
	}
}

// reloadSettings applies the settings file on top of cfg and returns the
// configuration now in effect.
func (a *Application) reloadSettings(ctx context.Context, cfg config.AppConfig, f *rollinglog.File, l *tracelistener.Listener) config.AppConfig {
	next, err := cfg.Reload(a.flags)
	if err != nil {
		a.Logger.Error("settings reload rejected", err, logging.String("path", cfg.SettingsFile))
		return cfg
	}
	l.SetLevel(next.TraceLevel())
	a.identity.Update(next.Identity(Version))
	if err := f.Truncate(ctx, true); err != nil && !errors.Is(err, rollinglog.ErrTruncateBusy) {
		a.Logger.Error("header refresh failed", err)
	}
	a.Logger.Info("settings reloaded", logging.String("level", next.Level))
	return next
}
