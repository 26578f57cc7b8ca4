// Package metrics exposes Prometheus collectors for the HTTP surface and the
// stat ledger.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hooptrack",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hooptrack",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hooptrack",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	statEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hooptrack",
			Subsystem: "ledger",
			Name:      "stat_events_total",
			Help:      "Total number of live stat events recorded.",
		},
		[]string{"kind"},
	)

	undoOperations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hooptrack",
			Subsystem: "ledger",
			Name:      "undo_operations_total",
			Help:      "Total number of undo operations applied.",
		},
	)

	revisionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hooptrack",
			Subsystem: "games",
			Name:      "revision_conflicts_total",
			Help:      "Total number of optimistic-concurrency retries on game updates.",
		},
	)

	liveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hooptrack",
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Current number of connected websocket subscribers.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		statEvents,
		undoOperations,
		revisionConflicts,
		liveSubscribers,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordStatEvent counts a recorded live stat by kind.
func RecordStatEvent(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	statEvents.WithLabelValues(kind).Inc()
}

// RecordUndo counts an undo operation.
func RecordUndo() {
	undoOperations.Inc()
}

// RecordRevisionConflict counts a lost optimistic-concurrency race.
func RecordRevisionConflict() {
	revisionConflicts.Inc()
}

// SetLiveSubscribers reports the current websocket subscriber count.
func SetLiveSubscribers(n int) {
	liveSubscribers.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so the path label stays low
// cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		// Even segments name collections; odd segments are ids, except
		// fixed sub-resources like /games/:id/stats.
		if i%2 == 1 && !knownSubResource(part) {
			out = append(out, ":id")
			continue
		}
		out = append(out, part)
	}
	return "/" + strings.Join(out, "/")
}

func knownSubResource(part string) bool {
	switch part {
	case "register", "login", "google", "me", "stats", "adjust", "undo",
		"shots", "media", "players", "summary", "live", "checkout",
		"webhook", "status", "upgrade", "describe":
		return true
	}
	return false
}
