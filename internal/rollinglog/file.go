package rollinglog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimestampLayout is the entry timestamp format: ISO-8601 with seven
// fractional digits and the local offset.
const TimestampLayout = "2006-01-02T15:04:05.0000000Z07:00"

// Errors returned by File operations.
var (
	// ErrDropped means the entry was not written; the caller has nothing else to do.
	ErrDropped = errors.New("log entry dropped")
	// ErrLocked means another writer holds the file's exclusive lock.
	ErrLocked = errors.New("log file is locked")
	// ErrTruncateBusy means a truncation was already in flight and this request was dropped.
	ErrTruncateBusy = errors.New("truncation already in progress")
	// ErrClosed means the File was closed.
	ErrClosed = errors.New("log file closed")
)

// File is a rolling, header-tagged log file. It is safe for concurrent use.
type File struct {
	path string
	opts Options

	// mu serializes appends and truncation within this process.
	mu sync.Mutex
	// truncating guards against overlapping truncations; it is only ever TryLocked.
	truncating sync.Mutex

	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// Open prepares the log at path. It creates the parent directory, refreshes
// the header of an existing file without losing any of its body, writes the
// start marker if one was configured, and starts the background truncation
// worker. Open only fails on invalid options or an unusable directory; a file
// that cannot be locked right now is not an error.
//
// Parameters:
//   - path: Location of the log file.
//   - opts: Functional options applied over DefaultOptions.
//
// Returns:
//   - *File: The open log. Call Close to stop its worker.
//   - error: A validation or directory error.
func Open(path string, opts ...Option) (*File, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext is Open with a context bounding the initial header refresh.
// When ctx ends first the refresh is abandoned and the file is still returned.
func OpenContext(ctx context.Context, path string, opts ...Option) (*File, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	f := &File{
		path:   path,
		opts:   o,
		kick:   make(chan struct{}, 1),
		ctx:    workerCtx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go f.run()

	_ = f.Truncate(ctx, true)
	if o.StartedBy != "" {
		_ = f.Append([]byte(FormatEntry(o.Now(), "INFO", "Tracelistener started for "+o.StartedBy) + "\n"))
	}
	f.ScheduleTruncate()
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Options returns the effective options.
func (f *File) Options() Options { return f.opts }

// Size returns the current file length, or 0 if it does not exist.
func (f *File) Size() int64 {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close stops the truncation worker, cancelling a truncation that is waiting
// to retry, and waits for it to exit. Appends after Close return ErrClosed.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		f.cancel()
		<-f.done
	})
	return nil
}

// Append writes p as one exclusive open/lock/write/close transaction. If the
// file is empty or missing, the header and a creation marker are written
// first. After a successful write a truncation check is scheduled.
//
// Returns ErrDropped (wrapping the last open or lock error) when the file
// stays unavailable for the whole retry budget.
func (f *File) Append(p []byte) error {
	if f.ctx.Err() != nil {
		return ErrClosed
	}
	f.mu.Lock()
	err := f.appendLocked(p)
	f.mu.Unlock()
	if err != nil {
		entriesDropped.Inc()
		f.opts.Fallback.Report("append", err)
		return err
	}
	entriesWritten.Inc()
	f.ScheduleTruncate()
	return nil
}

// FormatEntry renders the standard "<timestamp>;<category>;<message>" record
// without a line terminator.
func FormatEntry(t time.Time, category, message string) string {
	return t.Format(TimestampLayout) + ";" + category + ";" + message
}

// freshHeader builds the header written at creation and on every truncation.
func (f *File) freshHeader() Header {
	h := NewHeader(KeyCreated, f.opts.Now().Format(TimestampLayout))
	for _, fld := range f.opts.Header().Fields() {
		if fld.Key == KeyCreated {
			continue
		}
		h.Set(fld.Key, fld.Value)
	}
	return h
}
