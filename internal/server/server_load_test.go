package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/virinco/watsclient/internal/logging"
	"github.com/virinco/watsclient/internal/rollinglog"
	"github.com/virinco/watsclient/internal/tracelistener"
)

// TestServerConcurrentRequests posts entries from many clients at once
// through a real rolling log and checks every one landed.
func TestServerConcurrentRequests(t *testing.T) {
	server, _ := createTestServer(t, "")
	f, err := rollinglog.Open(server.cfg.LogPath, rollinglog.WithFallback(rollinglog.NopFallback{}))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	srv := NewServer(server.cfg, tracelistener.New(f), WithLogger(logging.Nop()))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	const clients = 20
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"level":"error","message":"entry-%02d"}`, i)
			resp, err := http.Post(ts.URL+"/entries", "application/json", strings.NewReader(body))
			if err != nil {
				failures.Add(1)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Fatalf("%d requests failed", n)
	}
	data, err := os.ReadFile(server.cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < clients; i++ {
		if !strings.Contains(string(data), fmt.Sprintf("entry-%02d\n", i)) {
			t.Errorf("entry-%02d missing from log", i)
		}
	}
}

// TestServerSecurityHeaders tests that security headers are set correctly.
func TestServerSecurityHeaders(t *testing.T) {
	server, _ := createTestServer(t, "")
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for header, expected := range expectedHeaders {
		if actual := resp.Header.Get(header); actual != expected {
			t.Errorf("Header %s: expected %q, got %q", header, expected, actual)
		}
	}
}

// TestServerMetricsEndpoint checks that the log counters are exported.
func TestServerMetricsEndpoint(t *testing.T) {
	server, _ := createTestServer(t, "")
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("Metrics request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, name := range []string{"watslog_status_requests_total", "watslog_status_request_duration_seconds", "watslog_entries_written_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output lacks %s", name)
		}
	}
}

// TestServerFollowStream reads appended lines from /follow.
func TestServerFollowStream(t *testing.T) {
	server, _ := createTestServer(t, logContent(t, "old;INFO;before\n"))
	server.timeouts.FollowPoll = 10 * time.Millisecond
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/follow", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Follow request failed: %v", err)
	}
	defer resp.Body.Close()

	time.Sleep(50 * time.Millisecond)
	fh, err := os.OpenFile(server.cfg.LogPath, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	fh.WriteString("new;INFO;after\n")
	fh.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if line != "new;INFO;after\n" {
		t.Errorf("first streamed line = %q, want only the appended entry", line)
	}
}

func BenchmarkServerHealth(b *testing.B) {
	server, _ := createTestServer(b, "")
	req := httptest.NewRequest("GET", "/health", http.NoBody)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		server.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}
}
