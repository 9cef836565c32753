// Package follow streams the entries appended to a rolling log as they
// arrive, the way "tail -f" does, and notices when the log was truncated or
// removed underneath the reader.
package follow

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/virinco/watsclient/internal/logging"
	"github.com/virinco/watsclient/internal/rollinglog"
)

// Kind classifies an Event.
type Kind int

const (
	// Line is a complete body line appended to the log.
	Line Kind = iota
	// Truncated means the file shrank; reading resumes at its new end.
	Truncated
	// Removed means the file disappeared; reading resumes when it is recreated.
	Removed
)

func (k Kind) String() string {
	switch k {
	case Line:
		return "line"
	case Truncated:
		return "truncated"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Event is one observation of the followed file.
type Event struct {
	Kind Kind
	Text string
	Size int64
}

// DefaultPollInterval is how often the size is checked even without a
// filesystem notification. Network shares do not always deliver them.
const DefaultPollInterval = time.Second

// Follower watches one log file.
type Follower struct {
	path   string
	logger logging.Logger
	poll   time.Duration

	offset  int64
	partial []byte
	// header is the raw header block the offset was measured against and
	// anchor the last body bytes read before the offset.
	header []byte
	anchor []byte
}

// anchorSize bounds the body bytes kept to recognise a header-only refresh.
const anchorSize = 128

// Option configures a Follower.
type Option func(*Follower)

// WithLogger sets the diagnostics logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithPollInterval sets the fallback polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.poll = d
		}
	}
}

// New creates a follower for path.
func New(path string, opts ...Option) *Follower {
	f := &Follower{path: path, logger: logging.Nop(), poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run emits events until ctx is done. With fromEnd set, only entries
// appended after Run starts are reported; otherwise the whole body is
// replayed first. Run returns nil when ctx is cancelled.
func (f *Follower) Run(ctx context.Context, fromEnd bool, emit func(Event)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Truncation rewrites in place and creation may happen later, so the
	// directory is watched rather than the file.
	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	f.logger.Debug("following log", logging.String("path", f.path))

	if err := f.start(fromEnd); err != nil {
		return err
	}
	f.drain(emit)

	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()

	name := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				f.removed(emit)
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				f.drain(emit)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watch error", logging.String("path", f.path), logging.Err(err))

		case <-ticker.C:
			f.drain(emit)
		}
	}
}

// start positions the reader at the body start or the current end.
func (f *Follower) start(fromEnd bool) error {
	fh, err := os.Open(f.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f.offset = 0
		return nil
	case err != nil:
		return err
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return err
	}
	block, err := headerBlock(fh, info.Size())
	if err != nil {
		return err
	}
	f.header = block
	f.offset = int64(len(block))
	if fromEnd {
		f.offset = info.Size()
		f.anchor = readAnchor(fh, int64(len(block)), f.offset)
	}
	return nil
}

func (f *Follower) removed(emit func(Event)) {
	if _, err := os.Stat(f.path); err == nil {
		return
	}
	f.reset(0, nil)
	emit(Event{Kind: Removed})
}

func (f *Follower) reset(offset int64, header []byte) {
	f.offset = offset
	f.header = header
	f.partial = nil
	f.anchor = nil
}

// drain reads what was appended since the last call.
//
// A changed header block means the log was rewritten. When the bytes last
// read still sit just before the same body position under the new header,
// only the header was refreshed and reading continues there. Otherwise the
// log was truncated: its new content is a fresh header plus a tail that was
// already reported, so reading continues at the new end. A file shorter than
// the read offset was truncated as well.
func (f *Follower) drain(emit func(Event)) {
	fh, err := os.Open(f.path)
	if err != nil {
		return
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return
	}
	size := info.Size()
	block, err := headerBlock(fh, size)
	if err != nil {
		return
	}

	switch {
	case f.offset == 0:
		// Created since the last read; skip its header.
		f.reset(int64(len(block)), block)
	case !bytes.Equal(block, f.header):
		if !f.resync(fh, size, block) {
			f.reset(size, block)
			f.anchor = readAnchor(fh, int64(len(block)), size)
			emit(Event{Kind: Truncated, Size: size})
			return
		}
	case size < f.offset:
		f.reset(size, block)
		f.anchor = readAnchor(fh, int64(len(block)), size)
		emit(Event{Kind: Truncated, Size: size})
		return
	}
	if size <= f.offset {
		return
	}

	data, err := io.ReadAll(io.NewSectionReader(fh, f.offset, size-f.offset))
	if err != nil {
		f.logger.Warn("read appended entries", logging.String("path", f.path), logging.Err(err))
		return
	}
	f.offset = size
	f.anchor = lastBytes(append(f.anchor, data...), anchorSize)

	buf := append(f.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		emit(Event{Kind: Line, Text: string(bytes.TrimSuffix(buf[:i], []byte("\r"))), Size: size})
		buf = buf[i+1:]
	}
	f.partial = append([]byte(nil), buf...)
}

// resync moves the offset onto a refreshed header of a different length and
// reports whether the body read so far is still in place.
func (f *Follower) resync(fh io.ReaderAt, size int64, block []byte) bool {
	consumed := f.offset - int64(len(f.header))
	offset := int64(len(block)) + consumed
	from := offset - int64(len(f.anchor))
	if consumed < int64(len(f.anchor)) || offset > size || from < int64(len(block)) {
		return false
	}
	got := make([]byte, len(f.anchor))
	if _, err := fh.ReadAt(got, from); err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	if !bytes.Equal(got, f.anchor) {
		return false
	}
	f.offset = offset
	f.header = block
	return true
}

// headerBlock returns the raw header block at the start of the file, or nil
// for a file without one.
func headerBlock(fh io.ReaderAt, size int64) ([]byte, error) {
	prefix := make([]byte, len(rollinglog.HeaderBegin))
	n, err := fh.ReadAt(prefix, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if string(prefix[:n]) != rollinglog.HeaderBegin {
		return nil, nil
	}
	_, end, err := rollinglog.DecodeHeader(io.NewSectionReader(fh, 0, size))
	if err != nil && !errors.Is(err, rollinglog.ErrMalformedHeader) {
		return nil, err
	}
	block := make([]byte, end)
	if _, err := fh.ReadAt(block, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return block, nil
}

// readAnchor returns up to anchorSize body bytes ending at offset.
func readAnchor(fh io.ReaderAt, bodyStart, offset int64) []byte {
	from := max(bodyStart, offset-anchorSize)
	if offset <= from {
		return nil
	}
	buf := make([]byte, offset-from)
	if _, err := fh.ReadAt(buf, from); err != nil && !errors.Is(err, io.EOF) {
		return nil
	}
	return buf
}

func lastBytes(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return append([]byte(nil), b[len(b)-n:]...)
}
