package follow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/virinco/watsclient/internal/rollinglog"
)

const testHeader = rollinglog.HeaderBegin + "\n{\n  \"created\": \"x\"\n}\n" + rollinglog.HeaderEnd + "\n"

func appendString(t *testing.T, path, s string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fh.WriteString(s); err != nil {
		t.Fatal(err)
	}
	if err := fh.Close(); err != nil {
		t.Fatal(err)
	}
}

// rewriteInPlace replaces the content the way a truncation does, without
// passing through an empty file.
func rewriteInPlace(t *testing.T, path, content string) {
	t.Helper()
	fh, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if _, err := fh.WriteAt([]byte(content), 0); err != nil {
		t.Fatal(err)
	}
	if err := fh.Truncate(int64(len(content))); err != nil {
		t.Fatal(err)
	}
}

// startFollower runs a follower in the background and returns its event stream.
func startFollower(t *testing.T, path string, fromEnd bool) <-chan Event {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 64)
	done := make(chan error, 1)
	f := New(path, WithPollInterval(20*time.Millisecond))
	go func() { done <- f.Run(ctx, fromEnd, func(e Event) { events <- e }) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error: %v", err)
		}
	})
	return events
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestFollowerReplaysBody(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	appendString(t, path, testHeader+"a;INFO;one\nb;INFO;two\n")

	events := startFollower(t, path, false)
	for _, want := range []string{"a;INFO;one", "b;INFO;two"} {
		if e := next(t, events); e.Kind != Line || e.Text != want {
			t.Errorf("event = %+v, want line %q", e, want)
		}
	}
}

func TestFollowerReportsAppendsOnly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	appendString(t, path, testHeader+"old;INFO;before\n")

	events := startFollower(t, path, true)
	time.Sleep(50 * time.Millisecond)
	appendString(t, path, "new;INFO;par")
	appendString(t, path, "tial\n")

	e := next(t, events)
	if e.Kind != Line || e.Text != "new;INFO;partial" {
		t.Errorf("event = %+v, want the appended line joined", e)
	}
}

func TestFollowerDetectsTruncation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")
	appendString(t, path, testHeader+"1;INFO;aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n2;INFO;bbbb\n")

	events := startFollower(t, path, true)
	time.Sleep(50 * time.Millisecond)
	rewriteInPlace(t, path, testHeader+"2;INFO;bbbb\n")

	e := next(t, events)
	if e.Kind != Truncated {
		t.Fatalf("event = %+v, want truncated", e)
	}

	appendString(t, path, "3;INFO;after\n")
	e = next(t, events)
	if e.Kind != Line || e.Text != "3;INFO;after" {
		t.Errorf("event = %+v, want line after truncation", e)
	}
}

func TestFollowerSurvivesHeaderRefresh(t *testing.T) {
	t.Parallel()
	longer := rollinglog.HeaderBegin + "\n{\n  \"created\": \"y\",\n  \"machinename\": \"station-with-a-long-name\"\n}\n" + rollinglog.HeaderEnd + "\n"
	body := "1;INFO;one\n2;INFO;two\n"

	tests := []struct {
		name        string
		first, next string
	}{
		{"longer header", testHeader, longer},
		{"shorter header", longer, testHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "wats.log")
			appendString(t, path, tt.first+body)

			events := startFollower(t, path, true)
			time.Sleep(50 * time.Millisecond)
			rewriteInPlace(t, path, tt.next+body)
			time.Sleep(50 * time.Millisecond)
			appendString(t, path, "3;INFO;three\n")

			e := next(t, events)
			if e.Kind != Line || e.Text != "3;INFO;three" {
				t.Errorf("event = %+v, want only the appended line", e)
			}
		})
	}
}

func TestFollowerWaitsForCreation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "wats.log")

	events := startFollower(t, path, true)
	time.Sleep(50 * time.Millisecond)
	appendString(t, path, testHeader+"c;INFO;WATS logfile Created\n")

	e := next(t, events)
	if e.Kind != Line || e.Text != "c;INFO;WATS logfile Created" {
		t.Errorf("event = %+v, want first body line without header", e)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	tests := map[Kind]string{Line: "line", Truncated: "truncated", Removed: "removed", Kind(9): "unknown"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
