package rollinglog

import (
	"bytes"
	"fmt"
	"os"
	"time"
)

// appendHandle is an exclusively locked, append-only handle on the log file.
type appendHandle struct {
	f *os.File
}

func (h *appendHandle) Close() error {
	_ = unlockFile(h.f)
	return h.f.Close()
}

// openAppend opens path for appending, creating it if needed, and takes the
// exclusive lock. On any failure the file is closed again.
func openAppend(path string) (*appendHandle, error) {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	if err := lockFile(fh); err != nil {
		fh.Close()
		return nil, err
	}
	return &appendHandle{f: fh}, nil
}

// acquire opens the append handle, retrying while the file is unavailable.
// Attempt i that fails waits minWait + i*growth before the next one; after
// retries failed retries the last error is returned wrapped in ErrDropped.
func (f *File) acquire(retries int, minWait, growth time.Duration) (*appendHandle, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		h, err := openAppend(f.path)
		if err == nil {
			return h, nil
		}
		lastErr = err
		if attempt >= retries {
			break
		}
		lockRetries.Inc()
		select {
		case <-f.ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrDropped, ErrClosed)
		case <-time.After(minWait + time.Duration(attempt)*growth):
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrDropped, lastErr)
}

// appendLocked performs one write transaction. f.mu must be held.
func (f *File) appendLocked(p []byte) error {
	h, err := f.acquire(f.opts.Retries, f.opts.MinWait, f.opts.WaitGrowth)
	if err != nil {
		return err
	}
	defer h.Close()

	info, err := h.f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDropped, err)
	}

	// Deciding on the header after the lock is held keeps two processes
	// racing on a missing file from both writing one.
	var buf bytes.Buffer
	if info.Size() == 0 {
		if err := EncodeHeader(&buf, f.freshHeader()); err != nil {
			return fmt.Errorf("%w: %w", ErrDropped, err)
		}
		buf.WriteString(FormatEntry(markerTime(f.opts.Now(), p), "INFO", "WATS logfile Created"))
		buf.WriteByte('\n')
	}
	buf.Write(p)

	n, err := h.f.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDropped, err)
	}
	fileSize.Set(float64(info.Size() + int64(n)))
	return nil
}

// markerTime returns now, or the timestamp of the first entry in p when that
// is earlier, so the creation marker never postdates the entry below it.
func markerTime(now time.Time, p []byte) time.Time {
	i := bytes.IndexByte(p, ';')
	if i < 0 {
		return now
	}
	ts, err := time.Parse(TimestampLayout, string(p[:i]))
	if err != nil || !ts.Before(now) {
		return now
	}
	return ts
}
