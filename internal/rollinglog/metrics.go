package rollinglog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Truncation outcomes recorded in watslog_truncations_total.
const (
	outcomeTruncated = "truncated"
	outcomeRefreshed = "header_refreshed"
	outcomeSkipped   = "below_threshold"
	outcomeMissing   = "missing"
	outcomeAborted   = "aborted"
	outcomeFailed    = "failed"
	outcomeBusy      = "busy"
)

var (
	entriesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watslog_entries_written_total",
		Help: "Log entries appended to the rolling log file",
	})
	entriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watslog_entries_dropped_total",
		Help: "Log entries dropped because the file stayed locked or could not be opened",
	})
	lockRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watslog_lock_retries_total",
		Help: "Backoff waits while acquiring the exclusive append handle",
	})
	truncations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watslog_truncations_total",
		Help: "Truncation attempts by outcome",
	}, []string{"outcome"})
	fileSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watslog_file_size_bytes",
		Help: "Size of the rolling log file after the last write or truncation",
	})
)
