package rollinglog

import (
	"fmt"
	"time"
)

// Default thresholds and retry budgets.
const (
	// DefaultMaxSize is the high-water mark (512KB) above which the file is truncated.
	DefaultMaxSize int64 = 524288
	// DefaultMinSize is the tail (384KB) kept after truncation.
	DefaultMinSize int64 = 393216
	// DefaultRetries is how many times a locked file is retried before an entry is dropped.
	DefaultRetries = 10
	// DefaultMinWait is the base backoff between lock attempts.
	DefaultMinWait = 20 * time.Millisecond
	// DefaultWaitGrowth is added to the backoff for every further attempt.
	DefaultWaitGrowth = 50 * time.Millisecond
	// DefaultTruncateRetries bounds truncation retries (120 x 5s, about ten minutes).
	DefaultTruncateRetries = 120
	// DefaultTruncateRetryDelay is the pause between truncation attempts.
	DefaultTruncateRetryDelay = 5 * time.Second
)

// HeaderSource supplies the header fields written at the top of the file.
// It is called every time a header is (re)written, so values are fresh.
type HeaderSource func() Header

// Options controls a File. Use DefaultOptions and the With* functions rather
// than filling the struct by hand.
type Options struct {
	MaxSize            int64
	MinSize            int64
	Retries            int
	MinWait            time.Duration
	WaitGrowth         time.Duration
	TruncateRetries    int
	TruncateRetryDelay time.Duration

	// Header provides the non-timestamp header fields.
	Header HeaderSource
	// Fallback receives failures the log cannot record in itself.
	Fallback FallbackSink
	// StartedBy names the host process in the start marker written by Open.
	// An empty value skips the marker.
	StartedBy string
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// DefaultOptions returns the client's standard thresholds.
func DefaultOptions() Options {
	return Options{
		MaxSize:            DefaultMaxSize,
		MinSize:            DefaultMinSize,
		Retries:            DefaultRetries,
		MinWait:            DefaultMinWait,
		WaitGrowth:         DefaultWaitGrowth,
		TruncateRetries:    DefaultTruncateRetries,
		TruncateRetryDelay: DefaultTruncateRetryDelay,
		Header:             func() Header { return Header{} },
		Fallback:           NopFallback{},
		Now:                time.Now,
	}
}

// Validate checks that the thresholds describe a usable log.
func (o Options) Validate() error {
	if o.MinSize <= 0 {
		return fmt.Errorf("min size must be positive, got %d", o.MinSize)
	}
	if o.MaxSize <= o.MinSize {
		return fmt.Errorf("max size (%d) must be greater than min size (%d)", o.MaxSize, o.MinSize)
	}
	if o.Retries < 0 || o.TruncateRetries < 0 {
		return fmt.Errorf("retry counts cannot be negative")
	}
	if o.MinWait < 0 || o.WaitGrowth < 0 || o.TruncateRetryDelay < 0 {
		return fmt.Errorf("wait durations cannot be negative")
	}
	return nil
}

// Option defines a functional option for configuring a File.
type Option func(*Options)

// WithSizes sets the high-water mark and the retained tail size.
func WithSizes(maxSize, minSize int64) Option {
	return func(o *Options) {
		o.MaxSize = maxSize
		o.MinSize = minSize
	}
}

// WithLockRetry sets the append-handle retry budget: attempt i waits
// minWait + i*growth before trying again.
func WithLockRetry(retries int, minWait, growth time.Duration) Option {
	return func(o *Options) {
		o.Retries = retries
		o.MinWait = minWait
		o.WaitGrowth = growth
	}
}

// WithTruncateRetry sets how often and how far apart failed truncations are retried.
func WithTruncateRetry(retries int, delay time.Duration) Option {
	return func(o *Options) {
		o.TruncateRetries = retries
		o.TruncateRetryDelay = delay
	}
}

// WithHeaderSource sets the provider of header fields. nil is ignored.
func WithHeaderSource(src HeaderSource) Option {
	return func(o *Options) {
		if src != nil {
			o.Header = src
		}
	}
}

// WithFallback sets the sink for failures. nil is ignored.
func WithFallback(sink FallbackSink) Option {
	return func(o *Options) {
		if sink != nil {
			o.Fallback = sink
		}
	}
}

// WithStartMarker makes Open record that the named process started logging.
func WithStartMarker(process string) Option {
	return func(o *Options) {
		o.StartedBy = process
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
