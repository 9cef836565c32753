package rollinglog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	firstClock  = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	secondClock = time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
)

// recordingFallback collects fallback reports.
type recordingFallback struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingFallback) Report(op string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recordingFallback) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func testOptions(now time.Time, extra ...Option) []Option {
	return append([]Option{
		WithClock(func() time.Time { return now }),
		WithHeaderSource(func() Header { return NewHeader(KeyMachineName, "st-1") }),
		WithTruncateRetry(0, 0),
		WithLockRetry(0, 0, 0),
	}, extra...)
}

// newTestFile builds a File without its background worker, so tests decide
// when truncation runs.
func newTestFile(t *testing.T, path string, opts ...Option) *File {
	t.Helper()
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	close(done)
	f := &File{path: path, opts: o, kick: make(chan struct{}, 1), ctx: ctx, cancel: cancel, done: done}
	t.Cleanup(func() { f.Close() })
	return f
}

func readBody(t *testing.T, path string) (Header, string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h, off, err := splitHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	return h, string(data[off:])
}

func TestFormatEntry(t *testing.T) {
	t.Parallel()
	got := FormatEntry(time.Date(2024, 5, 1, 10, 0, 0, 123456700, time.UTC), "ERROR", "disk full")
	if want := "2024-05-01T10:00:00.1234567Z;ERROR;disk full"; got != want {
		t.Errorf("FormatEntry() = %q, want %q", got, want)
	}
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		opt  Option
	}{
		{"max not above min", WithSizes(100, 100)},
		{"zero min", WithSizes(100, 0)},
		{"negative retries", WithLockRetry(-1, 0, 0)},
		{"negative wait", WithLockRetry(1, -time.Second, 0)},
		{"negative truncate delay", WithTruncateRetry(1, -time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(filepath.Join(t.TempDir(), "wats.log"), tt.opt); err == nil {
				t.Error("Open() accepted invalid options")
			}
		})
	}
}

func TestAppendCreatesHeader(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f := newTestFile(t, path, testOptions(firstClock)...)

	for _, msg := range []string{"one", "two", "three"} {
		if err := f.Append([]byte(FormatEntry(firstClock, "INFO", msg) + "\n")); err != nil {
			t.Fatalf("Append(%s) error = %v", msg, err)
		}
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), HeaderBegin) != 1 || !strings.HasPrefix(string(data), HeaderBegin) {
		t.Fatalf("header must appear once at offset 0:\n%s", data)
	}
	h, body := readBody(t, path)
	if got, _ := h.Get(KeyCreated); got != firstClock.Format(TimestampLayout) {
		t.Errorf("created = %q", got)
	}
	if got, _ := h.Get(KeyMachineName); got != "st-1" {
		t.Errorf("machinename = %q", got)
	}
	want := FormatEntry(firstClock, "INFO", "WATS logfile Created") + "\n" +
		FormatEntry(firstClock, "INFO", "one") + "\n" +
		FormatEntry(firstClock, "INFO", "two") + "\n" +
		FormatEntry(firstClock, "INFO", "three") + "\n"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestCreatedMarkerNotAfterFirstEntry(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f := newTestFile(t, path, testOptions(secondClock)...)

	entry := FormatEntry(firstClock, "ERROR", "rendered before the file existed")
	if err := f.Append([]byte(entry + "\n")); err != nil {
		t.Fatal(err)
	}
	_, body := readBody(t, path)
	want := FormatEntry(firstClock, "INFO", "WATS logfile Created") + "\n" + entry + "\n"
	if body != want {
		t.Errorf("body =\n%s\nwant\n%s", body, want)
	}
}

func TestMarkerTime(t *testing.T) {
	t.Parallel()
	early := []byte(FormatEntry(firstClock, "INFO", "x") + "\n")
	tests := []struct {
		name string
		p    []byte
		want time.Time
	}{
		{"earlier entry", early, firstClock},
		{"raw text", []byte("multi;line text\n"), secondClock},
		{"no separator", []byte("plain\n"), secondClock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := markerTime(secondClock, tt.p); !got.Equal(tt.want) {
				t.Errorf("markerTime() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := markerTime(firstClock, []byte(FormatEntry(secondClock, "INFO", "x"))); !got.Equal(firstClock) {
		t.Errorf("a later entry must not move the marker forward, got %v", got)
	}
}

func TestAppendAfterClose(t *testing.T) {
	t.Parallel()
	f, err := Open(filepath.Join(t.TempDir(), "wats.log"), testOptions(firstClock)...)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	f.Close()
	if err := f.Append([]byte("late\n")); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close = %v, want ErrClosed", err)
	}
}

func TestConcurrentAppendsKeepWholeLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f, err := Open(path, testOptions(firstClock, WithLockRetry(50, time.Millisecond, time.Millisecond))...)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				_ = f.Append([]byte(FormatEntry(firstClock, "INFO", fmt.Sprintf("w%d-%d", w, i)) + "\n"))
			}
		}()
	}
	wg.Wait()

	lines, err := TailLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	// The creation marker plus every entry.
	if len(lines) != writers*perWriter+1 {
		t.Fatalf("got %d lines, want %d", len(lines), writers*perWriter+1)
	}
	last := make(map[int]int)
	for _, line := range lines[1:] {
		var w, i int
		msg := line[strings.LastIndexByte(line, ';')+1:]
		if _, err := fmt.Sscanf(msg, "w%d-%d", &w, &i); err != nil {
			t.Fatalf("torn line %q", line)
		}
		if prev, ok := last[w]; ok && i != prev+1 {
			t.Errorf("writer %d: entry %d follows %d", w, i, prev)
		}
		last[w] = i
	}
}

func TestOpenRefreshesHeaderKeepsBody(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	first := newTestFile(t, path, testOptions(firstClock)...)
	for i := range 20 {
		if err := first.Append([]byte(FormatEntry(firstClock, "INFO", fmt.Sprintf("entry %d", i)) + "\n")); err != nil {
			t.Fatal(err)
		}
	}
	_, before := readBody(t, path)

	f, err := Open(path, testOptions(secondClock,
		WithHeaderSource(func() Header { return NewHeader(KeyMachineName, "st-2") }),
	)...)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	h, after := readBody(t, path)
	if after != before {
		t.Errorf("body changed by the header refresh:\n%s\nwant\n%s", after, before)
	}
	if got, _ := h.Get(KeyCreated); got != secondClock.Format(TimestampLayout) {
		t.Errorf("created = %q, want the refreshed time", got)
	}
	if got, _ := h.Get(KeyMachineName); got != "st-2" {
		t.Errorf("machinename = %q, want st-2", got)
	}
}

func TestOpenWritesStartMarker(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f, err := Open(path, testOptions(firstClock, WithStartMarker("converter"))...)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	lines, err := TailLines(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := FormatEntry(firstClock, "INFO", "Tracelistener started for converter"); len(lines) != 1 || lines[0] != want {
		t.Errorf("last line = %v, want %q", lines, want)
	}
}

func TestOpenContextBoundsRefresh(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	fb := &recordingFallback{}
	start := time.Now()
	f, err := OpenContext(ctx, path, WithTruncateRetry(DefaultTruncateRetries, time.Hour), WithFallback(fb))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("OpenContext() took %v after its context ended", elapsed)
	}
	if ops := fb.Ops(); len(ops) == 0 || ops[0] != "truncate" {
		t.Errorf("fallback reports = %v, want the abandoned refresh", ops)
	}
}

func TestTruncateBelowThreshold(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f := newTestFile(t, path, testOptions(firstClock, WithSizes(4096, 1024))...)
	if err := f.Append([]byte(FormatEntry(firstClock, "INFO", "small") + "\n")); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	f.opts.Now = func() time.Time { return secondClock }
	if err := f.Truncate(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	after, _ := os.ReadFile(path)
	if string(after) != string(before) {
		t.Error("a file below the maximum size must not be touched")
	}
}

func TestTruncateMissingFile(t *testing.T) {
	t.Parallel()
	f := newTestFile(t, filepath.Join(t.TempDir(), "absent.log"), testOptions(firstClock)...)
	if err := f.Truncate(context.Background(), false); err != nil {
		t.Errorf("Truncate() on a missing file = %v, want nil", err)
	}
	if err := f.Truncate(context.Background(), true); err != nil {
		t.Errorf("Truncate(headerOnly) on a missing file = %v, want nil", err)
	}
}

func TestTruncateSmallLog(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f := newTestFile(t, path, testOptions(firstClock, WithSizes(200, 100))...)

	// Grow the body itself past the maximum so the cut lands inside it.
	var last string
	for i := 0; ; i++ {
		last = FormatEntry(firstClock, "INFO", fmt.Sprintf("line %02d", i))
		if err := f.Append([]byte(last + "\n")); err != nil {
			t.Fatal(err)
		}
		if _, body := readBody(t, path); len(body) > 200 {
			break
		}
	}
	_, oldBody := readBody(t, path)

	f.opts.Now = func() time.Time { return secondClock }
	if err := f.Truncate(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	h, headerEnd, err := splitHeader(data)
	if err != nil {
		t.Fatal(err)
	}
	body := string(data[headerEnd:])
	if int64(len(data)) > 100+headerEnd {
		t.Errorf("size after truncation = %d, want <= %d", len(data), 100+headerEnd)
	}
	if !strings.HasSuffix(body, last+"\n") {
		t.Errorf("last entry %q lost:\n%s", last, body)
	}
	if body != oldBody && !strings.HasSuffix(oldBody, "\n"+body) {
		t.Errorf("tail %q is not whole lines of the old body", body)
	}
	if len(body) >= len(oldBody) || strings.Contains(body, "line 00") || strings.Contains(body, "WATS logfile Created") {
		t.Errorf("oldest entries must be dropped:\n%s", body)
	}
	if strings.Count(string(data), HeaderBegin) != 1 {
		t.Error("header must appear exactly once")
	}
	if got, _ := h.Get(KeyCreated); got != secondClock.Format(TimestampLayout) {
		t.Errorf("created = %q, want the truncation time", got)
	}
}

func TestTruncateHeaderOnlyOnHeaderlessFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	legacy := "legacy line one\nlegacy line two\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newTestFile(t, path, testOptions(firstClock)...)
	if err := f.Truncate(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	h, body := readBody(t, path)
	if h.Len() == 0 {
		t.Error("header refresh must add a header")
	}
	if body != legacy {
		t.Errorf("body = %q, want %q", body, legacy)
	}
}

func TestTruncateBusy(t *testing.T) {
	t.Parallel()
	f := newTestFile(t, filepath.Join(t.TempDir(), "wats.log"), testOptions(firstClock)...)
	f.truncating.Lock()
	defer f.truncating.Unlock()
	if err := f.Truncate(context.Background(), false); !errors.Is(err, ErrTruncateBusy) {
		t.Errorf("Truncate() during another truncation = %v, want ErrTruncateBusy", err)
	}
}

func TestTruncateFailureReachesFallback(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	fb := &recordingFallback{}
	f := newTestFile(t, path, testOptions(firstClock, WithTruncateRetry(2, time.Millisecond), WithFallback(fb))...)

	if err := f.Truncate(context.Background(), false); err == nil {
		t.Fatal("Truncate() on a directory must fail")
	}
	if ops := fb.Ops(); len(ops) != 1 || ops[0] != "truncate" {
		t.Errorf("fallback reports = %v, want one truncate report", ops)
	}

	if err := f.Append([]byte("lost\n")); !errors.Is(err, ErrDropped) {
		t.Errorf("Append() = %v, want ErrDropped", err)
	}
	if ops := fb.Ops(); len(ops) != 2 || ops[1] != "append" {
		t.Errorf("fallback reports = %v, want an append report", ops)
	}
}

func TestWorkerTruncatesAfterAppend(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f, err := Open(path, testOptions(firstClock, WithSizes(400, 200))...)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for i := range 40 {
		if err := f.Append([]byte(FormatEntry(firstClock, "INFO", fmt.Sprintf("entry %02d", i)) + "\n")); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.Size() < 400 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("size = %d, the worker never truncated", f.Size())
}

func TestTailLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	f := newTestFile(t, path, testOptions(firstClock)...)
	for _, msg := range []string{"a", "b", "c"} {
		if err := f.Append([]byte(FormatEntry(firstClock, "INFO", msg) + "\r\n")); err != nil {
			t.Fatal(err)
		}
	}

	lines, err := TailLines(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{FormatEntry(firstClock, "INFO", "b"), FormatEntry(firstClock, "INFO", "c")}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("TailLines(2) = %q, want %q", lines, want)
	}

	if _, err := TailLines(filepath.Join(t.TempDir(), "absent.log"), 2); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("TailLines() on a missing file = %v, want ErrNotExist", err)
	}
}
