// Package config provides the configuration management for the watslog tool.
// It defines the data structure for the configuration, binds the command-line
// flags, merges the settings file and environment, and validates the result.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"

	apperrors "github.com/virinco/watsclient/internal/errors"
	"github.com/virinco/watsclient/internal/identity"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/tracelistener"
)

const (
	// EnvPrefix is the prefix for all environment variables used by watslog.
	// Environment variables provide an alternative to CLI flags for configuration,
	// following the 12-Factor App methodology.
	EnvPrefix = "WATSLOG_"
)

// Default configuration values.
// These can be overridden via command-line flags, environment variables or
// the settings file.
const (
	// DefaultLogFile is the log file name used when no path is given.
	DefaultLogFile = "wats.log"
	// DefaultLevel is the trace level filter.
	DefaultLevel = "Information"
	// DefaultFallback is where dropped entries and failed truncations are reported.
	DefaultFallback = FallbackStderr
	// DefaultListen is the status server address.
	DefaultListen = ":8080"
	// DefaultTimeout bounds one command, including waits on a locked file.
	DefaultTimeout = 2 * time.Minute
	// DefaultTailLines is the number of lines printed by "tail".
	DefaultTailLines = 20
)

// Fallback sink names.
const (
	FallbackNone   = "none"
	FallbackStderr = "stderr"
	FallbackSyslog = "syslog"
)

// AppConfig aggregates the tool's configuration parameters.
type AppConfig struct {
	// LogPath is the rolling log file.
	LogPath string
	// MaxSize is the size in bytes above which the log is truncated.
	MaxSize int64
	// MinSize is the amount of tail kept by a truncation.
	MinSize int64
	// Retries is how often an append retries a locked file.
	Retries int
	// MinWait and WaitGrowth shape the wait between append retries.
	MinWait    time.Duration
	WaitGrowth time.Duration
	// Level is the trace level filter name ("Off" through "Verbose").
	Level string
	// Fallback names the sink for failures: none, stderr or syslog.
	Fallback string
	// SettingsFile is an optional JSON (with comments) or YAML settings file.
	SettingsFile string
	// Station facts for the header. Empty values are detected from the host.
	StationName string
	LicenseType string
	ServerURL   string
	// Listen is the status server address.
	Listen string
	// Timeout bounds one command.
	Timeout time.Duration
	// NoColor disables colored output. Also respects the NO_COLOR environment variable.
	NoColor bool
	// Quiet suppresses spinners and informational output.
	Quiet bool
}

// Default returns the configuration before flags, environment and settings
// are applied.
func Default() AppConfig {
	return AppConfig{
		LogPath:    DefaultLogFile,
		MaxSize:    rollinglog.DefaultMaxSize,
		MinSize:    rollinglog.DefaultMinSize,
		Retries:    rollinglog.DefaultRetries,
		MinWait:    rollinglog.DefaultMinWait,
		WaitGrowth: rollinglog.DefaultWaitGrowth,
		Level:      DefaultLevel,
		Fallback:   DefaultFallback,
		Listen:     DefaultListen,
		Timeout:    DefaultTimeout,
	}
}

// BindFlags registers the configuration flags on fs with c's current values as
// defaults. Call Resolve after fs has been parsed.
func BindFlags(fs *pflag.FlagSet, c *AppConfig) {
	fs.StringVar(&c.LogPath, "file", c.LogPath, "Path of the rolling log file.")
	fs.Int64Var(&c.MaxSize, "max-size", c.MaxSize, "Size in bytes above which the log is truncated.")
	fs.Int64Var(&c.MinSize, "min-size", c.MinSize, "Bytes of tail kept when the log is truncated.")
	fs.IntVar(&c.Retries, "retries", c.Retries, "Append retries while the file is locked.")
	fs.DurationVar(&c.MinWait, "min-wait", c.MinWait, "Base wait between append retries.")
	fs.DurationVar(&c.WaitGrowth, "wait-growth", c.WaitGrowth, "Wait added per append retry.")
	fs.StringVar(&c.Level, "level", c.Level, "Trace level filter: Off, Critical, Error, Warning, Information, Verbose.")
	fs.StringVar(&c.Fallback, "fallback", c.Fallback, "Where failures are reported: none, stderr, syslog.")
	fs.StringVar(&c.SettingsFile, "settings", c.SettingsFile, "Settings file (.json, .jsonc, .yaml, .yml).")
	fs.StringVar(&c.StationName, "station", c.StationName, "Station name written to the header (default: host name).")
	fs.StringVar(&c.LicenseType, "license", c.LicenseType, "License type written to the header.")
	fs.StringVar(&c.ServerURL, "server-url", c.ServerURL, "WATS server URL written to the header.")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Maximum run time of one command.")
	fs.BoolVar(&c.NoColor, "no-color", c.NoColor, "Disable colored output (also respects NO_COLOR env var).")
	fs.BoolVarP(&c.Quiet, "quiet", "q", c.Quiet, "Quiet mode - minimal output for scripts.")
}

// Resolve completes a parsed configuration: the settings file fills what no
// flag set, the environment overrides the settings file, and the result is
// validated. Priority: flags > environment > settings file > defaults.
func Resolve(fs *pflag.FlagSet, c *AppConfig) error {
	if !isFlagSet(fs, "settings") {
		c.SettingsFile = getEnvString("SETTINGS", c.SettingsFile)
	}
	if c.SettingsFile != "" {
		s, err := LoadSettings(c.SettingsFile)
		if err != nil {
			return apperrors.NewConfigError("settings file %s: %v", c.SettingsFile, err)
		}
		s.apply(c, fs)
	}
	applyEnvOverrides(c, fs)
	return c.Validate()
}

// Reload re-reads the settings file into a copy of c, keeping the priority of
// flags and environment. A value removed from the file keeps its previous
// value. On error c is returned unchanged.
func (c AppConfig) Reload(fs *pflag.FlagSet) (AppConfig, error) {
	if c.SettingsFile == "" {
		return c, nil
	}
	next := c
	s, err := LoadSettings(next.SettingsFile)
	if err != nil {
		return c, apperrors.NewConfigError("settings file %s: %v", c.SettingsFile, err)
	}
	s.apply(&next, fs)
	applyEnvOverrides(&next, fs)
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// Validate checks the semantic consistency of the configuration parameters.
//
// Returns:
//   - error: An error of type ConfigError if the configuration is invalid,
//     nil otherwise.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.LogPath) == "" {
		return apperrors.NewConfigError("log file path must not be empty")
	}
	if c.MinSize <= 0 {
		return apperrors.NewConfigError("min size must be strictly positive: %d", c.MinSize)
	}
	if c.MaxSize <= c.MinSize {
		return apperrors.NewConfigError("max size (%d) must be greater than min size (%d)", c.MaxSize, c.MinSize)
	}
	if c.Retries < 0 {
		return apperrors.NewConfigError("retries cannot be negative: %d", c.Retries)
	}
	if c.MinWait < 0 || c.WaitGrowth < 0 {
		return apperrors.NewConfigError("retry waits cannot be negative")
	}
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("timeout value must be strictly positive")
	}
	if _, err := tracelistener.ParseLevel(c.Level); err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	switch strings.ToLower(c.Fallback) {
	case FallbackNone, FallbackStderr, FallbackSyslog:
	default:
		return apperrors.NewConfigError("unrecognized fallback: '%s'. Valid values are: none, stderr, syslog", c.Fallback)
	}
	return nil
}

// TraceLevel returns the parsed level filter. Validate must have succeeded.
func (c AppConfig) TraceLevel() tracelistener.Level {
	l, _ := tracelistener.ParseLevel(c.Level)
	return l
}

// Identity returns the configured station facts.
func (c AppConfig) Identity(version string) identity.Info {
	return identity.Info{
		StationName: c.StationName,
		Version:     version,
		LicenseType: c.LicenseType,
		ServerURL:   c.ServerURL,
	}
}

// LogOptions converts the configuration into rolling log options. Header
// source and fallback sink are wired by the caller.
func (c AppConfig) LogOptions() []rollinglog.Option {
	return []rollinglog.Option{
		rollinglog.WithSizes(c.MaxSize, c.MinSize),
		rollinglog.WithLockRetry(c.Retries, c.MinWait, c.WaitGrowth),
	}
}
