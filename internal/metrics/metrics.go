// Package metrics provides Prometheus metrics collection for the cabinet calculator.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
)

// Restore outcomes.
const (
	RestoreRestored  = "restored"
	RestoreEmpty     = "empty"
	RestoreMalformed = "malformed"
	RestoreError     = "error"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, route pattern, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cabinet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, route pattern, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// AggregationsTotal counts aggregation passes by outcome.
	AggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_aggregations_total",
			Help: "Total number of aggregation passes",
		},
		[]string{"result"},
	)

	// FitViolationRows is the number of rows currently exceeding the container.
	FitViolationRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_fit_violation_rows",
			Help: "Rows whose equipment does not fit the container",
		},
	)

	// ContainersNeeded is the latest measurable container count.
	ContainersNeeded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_containers_needed",
			Help: "Containers needed for the last measurable aggregate",
		},
	)

	// TotalVolume is the latest measurable total volume in cubic millimetres.
	TotalVolume = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_total_volume_cubic_millimetres",
			Help: "Total equipment volume of the last measurable aggregate",
		},
	)

	// SnapshotsTotal counts snapshot writes by status.
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_snapshots_total",
			Help: "Total number of snapshot writes",
		},
		[]string{"status"},
	)

	// SnapshotBytes is the size of the last snapshot written.
	SnapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cabinet_snapshot_bytes",
			Help: "Size of the last snapshot written",
		},
	)

	// RestoresTotal counts startup restores by outcome.
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cabinet_restores_total",
			Help: "Total number of snapshot restores",
		},
		[]string{"status"},
	)

	// RateLimitedTotal counts requests rejected by the API rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cabinet_http_rate_limited_total",
			Help: "Requests rejected with 429 by the rate limiter",
		},
	)
)

// RecordAggregation records the outcome of an aggregation pass.
func RecordAggregation(result calculator.AggregateResult) {
	FitViolationRows.Set(float64(len(result.Errors)))
	if !result.Valid {
		AggregationsTotal.WithLabelValues("unmeasurable").Inc()
		return
	}
	AggregationsTotal.WithLabelValues("valid").Inc()
	ContainersNeeded.Set(float64(result.Containers))
	TotalVolume.Set(result.Volume.InexactFloat64())
}

// RecordSnapshot records a snapshot write attempt.
func RecordSnapshot(size int, err error) {
	if err != nil {
		SnapshotsTotal.WithLabelValues("error").Inc()
		return
	}
	SnapshotsTotal.WithLabelValues("ok").Inc()
	SnapshotBytes.Set(float64(size))
}

// RecordRestore records a restore outcome.
func RecordRestore(status string) {
	RestoresTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration. It must wrap the ServeMux directly so
// the matched route pattern is visible after the request is served.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(rec.status)
		HTTPRequestDuration.WithLabelValues(r.Method, path, statusCode).Observe(time.Since(start).Seconds())
		HTTPRequestTotal.WithLabelValues(r.Method, path, statusCode).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
