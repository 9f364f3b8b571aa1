package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests by route and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hearth_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration tracks request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hearth_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ActiveRequests tracks currently in-flight requests.
	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hearth_http_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"route"},
	)

	// RowsImported counts transactions accepted by the import pipeline.
	RowsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_import_rows_imported_total",
		Help: "Transactions accepted by the import pipeline",
	})

	// RowsDropped counts rows silently dropped for missing required fields.
	RowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_import_rows_dropped_total",
		Help: "Rows dropped for missing required fields",
	})

	// DuplicatesDetected counts rows rejected as duplicates.
	DuplicatesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_import_duplicates_total",
		Help: "Rows rejected as duplicates of stored transactions",
	})

	// FileFailures counts files the detector could not resolve.
	FileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_import_file_failures_total",
		Help: "Files rejected for undetectable column structure",
	})

	// PatternMatches counts classification suggestions served.
	PatternMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_pattern_matches_total",
		Help: "Classification suggestions produced by the matcher",
	})

	// PatternsLearned counts patterns created or reinforced from feedback.
	PatternsLearned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hearth_patterns_learned_total",
		Help: "Patterns created or reinforced from user classifications",
	})
)

// statusRecorder captures the response code for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts, durations, and in-flight gauges
// per route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path

		ActiveRequests.WithLabelValues(route).Inc()
		defer ActiveRequests.WithLabelValues(route).Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
