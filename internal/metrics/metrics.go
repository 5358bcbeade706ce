// Package metrics provides Prometheus metrics for the backend API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taller",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taller",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// HTTPResponseSize measures HTTP response size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taller",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"method", "path"},
	)
)

var (
	// DBConnectionsOpen tracks open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taller",
			Subsystem: "db",
			Name:      "connections_open",
			Help:      "Number of open database connections",
		},
	)

	// DBConnectionsInUse tracks database connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taller",
			Subsystem: "db",
			Name:      "connections_in_use",
			Help:      "Number of database connections currently in use",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taller",
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	// DBConnectionsMaxOpen tracks maximum open database connections
	DBConnectionsMaxOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taller",
			Subsystem: "db",
			Name:      "connections_max_open",
			Help:      "Maximum number of open database connections",
		},
	)

	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taller",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

var (
	// LoginsTotal counts login attempts by outcome
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// SessionsSwept counts expired sessions and remember tokens removed
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "auth",
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions and remember tokens removed",
		},
	)
)

var (
	// OrdersCreated counts created work orders
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Total number of work orders created",
		},
	)

	// OrdersDeleted counts deleted work orders
	OrdersDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "orders",
			Name:      "deleted_total",
			Help:      "Total number of work orders deleted",
		},
	)

	// ImagesUploaded counts stored evidence images
	ImagesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "images",
			Name:      "uploaded_total",
			Help:      "Total number of images stored",
		},
	)

	// ImagesDeleted counts removed evidence images
	ImagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "images",
			Name:      "deleted_total",
			Help:      "Total number of images removed",
		},
	)

	// OrphanFilesRemoved counts files removed by the orphan sweep
	OrphanFilesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taller",
			Subsystem: "images",
			Name:      "orphan_files_removed_total",
			Help:      "Total number of orphaned files removed from storage",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

// newResponseWriter creates a new responseWriter
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Middleware returns a chi middleware that records HTTP metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()

		// Route pattern keeps label cardinality bounded.
		path := getRoutePattern(r)

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.size))
	})
}

// getRoutePattern returns the route pattern from chi context
// Falls back to URL path if pattern not available
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
