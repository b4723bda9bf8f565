// Package prometheus provides the Prometheus implementations of the
// pkg/metrics interfaces. Importing it (usually blank) links them in.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/gfs/pkg/metrics"
)

func init() {
	metrics.RegisterFSMetricsConstructor(NewFSMetrics)
	metrics.RegisterHTTPMetricsConstructor(NewHTTPMetrics)
}

// fsMetrics is the Prometheus implementation of metrics.FSMetrics.
type fsMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
}

// NewFSMetrics registers filesystem metrics on the active registry.
// Returns nil if metrics are not enabled.
func NewFSMetrics() metrics.FSMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &fsMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfs_operations_total",
				Help: "Total number of filesystem operations by mount, operation and status",
			},
			[]string{"mount", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gfs_operation_duration_milliseconds",
				Help: "Duration of filesystem operations in milliseconds",
				Buckets: []float64{
					0.1, // in-memory hits
					0.5,
					1,
					5, // embedded KV
					10,
					50, // SQL round trips
					100,
					500, // object store
					1000,
					5000,
				},
			},
			[]string{"mount", "operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfs_content_bytes_total",
				Help: "Total content bytes read from or written to mounts",
			},
			[]string{"mount", "direction"},
		),
	}
}

func (m *fsMetrics) ObserveOperation(mount, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(mount, operation, metrics.StatusOf(err)).Inc()
	m.operationDuration.WithLabelValues(mount, operation).Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *fsMetrics) RecordBytes(mount, direction string, n int) {
	if m == nil {
		return
	}
	m.bytesTotal.WithLabelValues(mount, direction).Add(float64(n))
}

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers API request metrics on the active registry.
// Returns nil if metrics are not enabled.
func NewHTTPMetrics() metrics.HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfs_http_requests_total",
				Help: "Total number of API requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gfs_http_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

func (m *httpMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
