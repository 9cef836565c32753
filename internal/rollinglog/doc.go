// Package rollinglog implements the WATS client diagnostic log file: an
// append-only, size-bounded text log that carries a metadata header at its
// top and trims itself from the front when it grows too large.
//
// File layout
//
//	%BeginHeader:WatsLogFile%
//	{
//	  "created": "...",
//	  "machinename": "...",
//	  ...
//	}
//	%EndHeader:WatsLogFile%
//	<timestamp>;<category>;<message>
//	<timestamp>;<category>;<message>
//
// Writers take an exclusive OS lock on the file for the duration of one
// open/write/close transaction, so several processes on the same station can
// share one log. Within a process a File serializes appends and truncation
// with a single mutex.
//
// When the file reaches MaxSize, a background worker rewrites it as a fresh
// header followed by roughly the last MinSize bytes of the old body, cut on a
// line boundary. At most one truncation runs at a time; requests arriving
// while one is in flight are dropped.
//
// Logging never fails loudly. Lock contention that outlasts the retry budget
// drops the entry with ErrDropped, and truncation errors are retried and then
// reported to the configured FallbackSink.
package rollinglog
