package rollinglog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/virinco/watsclient/internal/rollinglog")

// Truncate trims the log from the front.
//
// With headerOnly set the header block is rewritten with fresh values and the
// whole body is kept. Otherwise nothing happens until the file reaches
// MaxSize; then it is rewritten as a fresh header followed by at most MinSize
// bytes of the old tail, starting on a line boundary.
//
// A missing file is a successful no-op. I/O failures, including the file
// being locked by another process, are retried TruncateRetries times,
// TruncateRetryDelay apart, or until ctx is done; the final error is reported
// to the fallback sink and returned. A call made while another truncation is
// running returns ErrTruncateBusy immediately.
func (f *File) Truncate(ctx context.Context, headerOnly bool) error {
	if !f.truncating.TryLock() {
		truncations.WithLabelValues(outcomeBusy).Inc()
		return ErrTruncateBusy
	}
	defer f.truncating.Unlock()

	_, span := tracer.Start(ctx, "rollinglog.Truncate", trace.WithAttributes(
		attribute.String("log.path", f.path),
		attribute.Bool("log.header_only", headerOnly),
	))
	defer span.End()

	var err error
	for attempt := 0; ; attempt++ {
		var outcome string
		outcome, err = f.truncateOnce(headerOnly)
		if err == nil {
			truncations.WithLabelValues(outcome).Inc()
			span.SetAttributes(attribute.String("log.truncate_outcome", outcome))
			return nil
		}
		if attempt >= f.opts.TruncateRetries {
			break
		}
		if !sleepCtx(ctx, f.opts.TruncateRetryDelay) {
			err = errors.Join(err, ctx.Err())
			break
		}
	}

	truncations.WithLabelValues(outcomeFailed).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "truncation abandoned")
	f.opts.Fallback.Report("truncate", err)
	return err
}

// truncateOnce makes a single truncation attempt and names its outcome.
func (f *File) truncateOnce(headerOnly bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_RDWR, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return outcomeMissing, nil
	}
	if err != nil {
		return "", err
	}
	defer fh.Close()
	if err := lockFile(fh); err != nil {
		return "", err
	}
	defer unlockFile(fh)

	info, err := fh.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size == 0 || (!headerOnly && size < f.opts.MaxSize) {
		return outcomeSkipped, nil
	}

	headerEnd, err := headerLength(fh, size)
	if err != nil {
		return "", err
	}

	cut := headerEnd
	if !headerOnly {
		// Never cut inside the current header, or part of it would survive.
		cut = max(size-f.opts.MinSize, headerEnd)
	}
	if cut < 0 || cut > size || (!headerOnly && cut == 0) {
		return outcomeAborted, nil
	}

	tail := make([]byte, size-cut)
	if _, err := fh.ReadAt(tail, cut); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if !headerOnly {
		tail, err = alignToLine(fh, cut, tail)
		if err != nil {
			return "", err
		}
	}

	head, err := encodedHeader(f.freshHeader())
	if err != nil {
		return "", err
	}
	content := make([]byte, 0, len(head)+len(tail))
	content = append(content, head...)
	content = append(content, tail...)

	if _, err := fh.WriteAt(content, 0); err != nil {
		return "", fmt.Errorf("rewrite log: %w", err)
	}
	if err := fh.Truncate(int64(len(content))); err != nil {
		return "", fmt.Errorf("set log length: %w", err)
	}
	fileSize.Set(float64(len(content)))

	if headerOnly {
		return outcomeRefreshed, nil
	}
	return outcomeTruncated, nil
}

// headerLength returns the length of the header block at the start of r, or
// 0 when r does not begin with the header sentinel.
func headerLength(r io.ReaderAt, size int64) (int64, error) {
	prefix := make([]byte, len(HeaderBegin))
	n, err := r.ReadAt(prefix, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if string(prefix[:n]) != HeaderBegin {
		return 0, nil
	}
	_, end, err := DecodeHeader(io.NewSectionReader(r, 0, size))
	if err != nil && !errors.Is(err, ErrMalformedHeader) {
		return 0, err
	}
	return end, nil
}

// alignToLine drops the partial line at the start of tail unless the byte
// before cut already ends a line. A tail without any line break is dropped
// entirely.
func alignToLine(r io.ReaderAt, cut int64, tail []byte) ([]byte, error) {
	prev := make([]byte, 1)
	if _, err := r.ReadAt(prev, cut-1); err != nil {
		return nil, err
	}
	if prev[0] == '\n' {
		return tail, nil
	}
	i := bytes.IndexByte(tail, '\n')
	if i < 0 {
		return tail[:0], nil
	}
	return tail[i+1:], nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
