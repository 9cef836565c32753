// Package tracelistener exposes the rolling WATS log through the write
// interface a host logging framework expects: plain or structured entries,
// with or without a line terminator, tagged with a category.
//
// Listener methods never return errors and never panic on I/O failure; an
// entry that cannot be written is dropped by the underlying log, which reports
// the failure to its fallback sink.
package tracelistener

import (
	"sync/atomic"
	"time"
)

// Appender is the write path of the rolling log.
type Appender interface {
	Append(p []byte) error
}

// Listener adapts an Appender to trace-listener style calls.
type Listener struct {
	out   Appender
	level atomic.Int32
	now   func() time.Time
}

// Option configures a Listener.
type Option func(*Listener)

// WithLevel sets the event filter used by TraceEvent.
func WithLevel(l Level) Option {
	return func(ls *Listener) { ls.level.Store(int32(l)) }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(ls *Listener) {
		if now != nil {
			ls.now = now
		}
	}
}

// New creates a Listener writing to out. The default filter is Information.
func New(out Appender, opts ...Option) *Listener {
	l := &Listener{out: out, now: time.Now}
	l.level.Store(int32(Information))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Level returns the current event filter.
func (l *Listener) Level() Level { return Level(l.level.Load()) }

// SetLevel changes the event filter; safe for concurrent use.
func (l *Listener) SetLevel(level Level) { l.level.Store(int32(level)) }

// Enabled reports whether events of level would be recorded.
func (l *Listener) Enabled(level Level) bool {
	threshold := l.Level()
	return threshold != Off && level != Off && level <= threshold
}

// Write records message without a trailing line terminator.
func (l *Listener) Write(message, category string) {
	l.emit(message, category, false)
}

// WriteLine records message as a complete line.
func (l *Listener) WriteLine(message, category string) {
	l.emit(message, category, true)
}

// WriteObject records a structured payload. LogItem and LogMessage values
// render themselves; errors are recorded as an exception chain; anything
// else is written with its default text form and no line terminator.
func (l *Listener) WriteObject(v any, category string) {
	l.emit(v, category, false)
}

// WriteObjectLine is WriteObject with a line terminator for plain values.
func (l *Listener) WriteObjectLine(v any, category string) {
	l.emit(v, category, true)
}

// TraceEvent records v as a line if level passes the filter. An empty
// category is replaced by the level's tag.
func (l *Listener) TraceEvent(level Level, category string, v any) {
	if !l.Enabled(level) {
		return
	}
	if category == "" {
		category = level.Category()
	}
	l.emit(v, category, true)
}

// emit renders and appends unless the listener is Off. Truncation is
// scheduled by the log after every successful append, whether or not the
// entry ended a line.
func (l *Listener) emit(v any, category string, line bool) {
	if l == nil || l.out == nil || l.Level() == Off {
		return
	}
	_ = l.out.Append([]byte(render(v, category, l.now(), line)))
}
