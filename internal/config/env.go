// Package config provides the configuration management for the watslog tool.
// This file contains environment variable utilities for configuration override.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// getEnvString returns the value of the environment variable with the given key
// (prefixed with EnvPrefix), or the default value if not set.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt64 returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int64, or the default value if not set
// or invalid.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvInt returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int, or the default value if not set
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvBool returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as bool, or the default value if not set.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultVal
}

// getEnvDuration returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as time.Duration, or the default value if not
// set or invalid. Accepts formats like "5m", "30s", "1h30m".
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// isFlagSet checks if a flag was explicitly set on the command line.
// A nil flag set or an unknown flag counts as not set.
func isFlagSet(fs *pflag.FlagSet, name string) bool {
	if fs == nil {
		return false
	}
	f := fs.Lookup(name)
	return f != nil && f.Changed
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
//
// Supported environment variables:
//   - WATSLOG_FILE: Rolling log path (string)
//   - WATSLOG_MAX_SIZE, WATSLOG_MIN_SIZE: Truncation sizes in bytes (int64)
//   - WATSLOG_RETRIES: Append retries (int)
//   - WATSLOG_MIN_WAIT, WATSLOG_WAIT_GROWTH: Retry waits (duration: "20ms")
//   - WATSLOG_TIMEOUT: Command timeout (duration)
//   - WATSLOG_LEVEL: Trace level filter (string)
//   - WATSLOG_FALLBACK: Failure sink (string: none, stderr, syslog)
//   - WATSLOG_STATION, WATSLOG_LICENSE, WATSLOG_SERVER_URL: Header facts (string)
//   - WATSLOG_LISTEN: Status server address (string)
//   - WATSLOG_NO_COLOR, WATSLOG_QUIET: Output switches (bool)
func applyEnvOverrides(config *AppConfig, fs *pflag.FlagSet) {
	applyNumericOverrides(config, fs)
	applyDurationOverrides(config, fs)
	applyStringOverrides(config, fs)
	applyBooleanOverrides(config, fs)
}

func applyNumericOverrides(config *AppConfig, fs *pflag.FlagSet) {
	if !isFlagSet(fs, "max-size") {
		config.MaxSize = getEnvInt64("MAX_SIZE", config.MaxSize)
	}
	if !isFlagSet(fs, "min-size") {
		config.MinSize = getEnvInt64("MIN_SIZE", config.MinSize)
	}
	if !isFlagSet(fs, "retries") {
		config.Retries = getEnvInt("RETRIES", config.Retries)
	}
}

func applyDurationOverrides(config *AppConfig, fs *pflag.FlagSet) {
	if !isFlagSet(fs, "min-wait") {
		config.MinWait = getEnvDuration("MIN_WAIT", config.MinWait)
	}
	if !isFlagSet(fs, "wait-growth") {
		config.WaitGrowth = getEnvDuration("WAIT_GROWTH", config.WaitGrowth)
	}
	if !isFlagSet(fs, "timeout") {
		config.Timeout = getEnvDuration("TIMEOUT", config.Timeout)
	}
}

func applyStringOverrides(config *AppConfig, fs *pflag.FlagSet) {
	if !isFlagSet(fs, "file") {
		config.LogPath = getEnvString("FILE", config.LogPath)
	}
	if !isFlagSet(fs, "level") {
		config.Level = getEnvString("LEVEL", config.Level)
	}
	if !isFlagSet(fs, "fallback") {
		config.Fallback = getEnvString("FALLBACK", config.Fallback)
	}
	if !isFlagSet(fs, "station") {
		config.StationName = getEnvString("STATION", config.StationName)
	}
	if !isFlagSet(fs, "license") {
		config.LicenseType = getEnvString("LICENSE", config.LicenseType)
	}
	if !isFlagSet(fs, "server-url") {
		config.ServerURL = getEnvString("SERVER_URL", config.ServerURL)
	}
	if !isFlagSet(fs, "listen") {
		config.Listen = getEnvString("LISTEN", config.Listen)
	}
}

func applyBooleanOverrides(config *AppConfig, fs *pflag.FlagSet) {
	if !isFlagSet(fs, "no-color") {
		config.NoColor = getEnvBool("NO_COLOR", config.NoColor)
	}
	if !isFlagSet(fs, "quiet") {
		config.Quiet = getEnvBool("QUIET", config.Quiet)
	}
}
