package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthcheck_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	targetInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_target_invocations_total",
			Help: "Total number of health check target invocations",
		},
		[]string{"function", "status"},
	)

	targetDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthcheck_target_duration_seconds",
			Help:    "Health check target invocation latency in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"function"},
	)

	runsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healthcheck_runs_total",
			Help: "Total number of health check runs",
		},
	)

	runFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthcheck_run_failures",
			Help: "Number of failed targets in the most recent run",
		},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "healthcheck_run_duration_seconds",
			Help:    "Duration of a complete health check run in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	prechecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_prechecks_total",
			Help: "Total number of post-deploy prechecks",
		},
		[]string{"function", "status"},
	)

	archiveUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthcheck_archive_uploads_total",
			Help: "Total number of archived artifact files",
		},
		[]string{"status"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func status(ok bool) string {
	if ok {
		return StatusOK
	}
	return StatusFailed
}

func RecordTargetInvocation(function string, ok bool, duration time.Duration) {
	targetInvocations.WithLabelValues(function, status(ok)).Inc()
	targetDuration.WithLabelValues(function).Observe(duration.Seconds())
}

func RecordRun(failures int, duration time.Duration) {
	runsTotal.Inc()
	runFailures.Set(float64(failures))
	runDuration.Observe(duration.Seconds())
}

func RecordPrecheck(function string, ok bool) {
	prechecksTotal.WithLabelValues(function, status(ok)).Inc()
}

func RecordArchiveUpload(ok bool) {
	archiveUploads.WithLabelValues(status(ok)).Inc()
}
