package lintas

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle,
// the request registry and NDJSON streams. It is safe for concurrent use and
// every method is a no-op on a nil receiver.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	errorsTotal        *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec

	registeredRequests prometheus.Gauge

	streamLinesTotal *prometheus.CounterVec
	streamBytesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetricsCollector registers the collectors on prometheus.DefaultRegisterer.
// Calling it twice in one process panics; share the result instead.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry registers the collectors on registerer.
func NewMetricsCollectorWithRegistry(registerer prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		requestsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lintas_requests_total",
				Help: "HTTP responses received, by method, status code and endpoint",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registerer).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lintas_request_duration_seconds",
				Help:    "Time from dispatch until the response is read, in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registerer).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lintas_requests_in_flight",
				Help: "Requests between registration and settlement",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lintas_errors_total",
				Help: "Total number of classified errors",
			},
			[]string{"type", "method", "endpoint"},
		),
		cancellationsTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lintas_cancellations_total",
				Help: "Total number of registry cancellations by scope (exact, prefix, all, preempt)",
			},
			[]string{"scope"},
		),
		registeredRequests: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "lintas_registered_requests",
				Help: "Number of request ids holding a live cancellation handle",
			},
		),
		streamLinesTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lintas_stream_lines_total",
				Help: "Total number of NDJSON lines read, by outcome (dispatched, malformed)",
			},
			[]string{"endpoint", "outcome"},
		),
		streamBytesTotal: promauto.With(registerer).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lintas_stream_bytes_total",
				Help: "Total number of bytes read from NDJSON streams",
			},
			[]string{"endpoint"},
		),
	}
	if reg, ok := registerer.(*prometheus.Registry); ok {
		mc.registry = reg
	}

	return mc
}

// RecordRequest counts a response that arrived, whatever its status.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	code := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, code, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, code, endpoint).Observe(duration.Seconds())
}

// RecordRequestStart and RecordRequestEnd bracket a call.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordError counts a classified failure, cancellations included.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// RecordCancellation increments the cancellation counter for scope.
func (mc *MetricsCollector) RecordCancellation(scope string) {
	if mc == nil {
		return
	}

	mc.cancellationsTotal.WithLabelValues(scope).Inc()
}

// RecordRegisteredRequests sets the live handle gauge.
func (mc *MetricsCollector) RecordRegisteredRequests(n int) {
	if mc == nil {
		return
	}

	mc.registeredRequests.Set(float64(n))
}

// RecordStream adds the outcome of one read loop.
func (mc *MetricsCollector) RecordStream(endpoint string, stats StreamStats) {
	if mc == nil {
		return
	}

	mc.streamLinesTotal.WithLabelValues(endpoint, "dispatched").Add(float64(stats.Dispatched))
	mc.streamLinesTotal.WithLabelValues(endpoint, "malformed").Add(float64(stats.Malformed))
	mc.streamBytesTotal.WithLabelValues(endpoint).Add(float64(stats.Bytes))
}

// GetRegistry exposes the underlying prometheus registry, nil when the
// collector was built on a plain Registerer.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	return mc.registry
}
