package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics serves the process registry, which already holds the rollinglog
// counters, and records the status server's own requests.
type Metrics struct {
	handler http.Handler
}

var (
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watslog_status_active_requests",
		Help: "Status requests currently being served, /follow streams included",
	})
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watslog_status_requests_total",
		Help: "Status requests received, by path",
	}, []string{"path"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watslog_status_request_duration_seconds",
		Help:    "Time spent serving status requests, by path",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"path"})
)

// NewMetrics creates a Metrics over the default registry.
func NewMetrics() *Metrics {
	return &Metrics{handler: promhttp.Handler()}
}

// begin counts a request on path and returns the function that ends it.
func (m *Metrics) begin(path string) func() {
	start := time.Now()
	activeRequests.Inc()
	totalRequests.WithLabelValues(path).Inc()
	return func() {
		activeRequests.Dec()
		requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.metrics.handler.ServeHTTP(w, r)
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer s.metrics.begin(r.URL.Path)()
		next(w, r)
	}
}
