// Package system provides system-level services for monitoring and health checks.
package system

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"norelock.dev/listenify/gateway/internal/utils"
)

const namespace = "gateway"

// MetricsService provides application metrics collection functionality.
// Each instance owns its registry so that tests can build as many as they
// need.
type MetricsService struct {
	logger   *utils.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	httpRequestsInProgress *prometheus.GaugeVec

	// WebSocket metrics
	wsConnectionsTotal   prometheus.Counter
	wsConnectionsActive  prometheus.Gauge
	wsMessagesTotal      *prometheus.CounterVec
	wsMessageSizeBytes   prometheus.Histogram
	wsConnectionDuration prometheus.Histogram

	// Upstream metrics
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	upstreamRateLimited     prometheus.Counter
	upstreamFailures        *prometheus.CounterVec

	// Bridge metrics
	bridgeInvocationsTotal   *prometheus.CounterVec
	bridgeInvocationDuration *prometheus.HistogramVec
	bridgeInFlight           prometheus.Gauge
}

// NewMetricsService creates a new metrics service.
func NewMetricsService(logger *utils.Logger) *MetricsService {
	if logger == nil {
		logger = utils.GetLogger()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		logger:   logger.Named("metrics_service"),
		registry: reg,
	}

	factory := promauto.With(reg)
	m.initHTTPMetrics(factory)
	m.initWebSocketMetrics(factory)
	m.initUpstreamMetrics(factory)
	m.initBridgeMetrics(factory)

	return m
}

// Handler returns an HTTP handler for exposing metrics.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: promLogger{m.logger},
	})
}

// Registry returns the registry backing this service.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// initHTTPMetrics initializes HTTP-related metrics.
func (m *MetricsService) initHTTPMetrics(f promauto.Factory) {
	m.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.httpRequestsInProgress = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_progress",
			Help:      "Number of HTTP requests currently in progress",
		},
		[]string{"method"},
	)
}

// initWebSocketMetrics initializes WebSocket-related metrics.
func (m *MetricsService) initWebSocketMetrics(f promauto.Factory) {
	m.wsConnectionsTotal = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_connections_total",
			Help:      "Total number of WebSocket connections",
		},
	)

	m.wsConnectionsActive = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	m.wsMessagesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)

	m.wsMessageSizeBytes = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ws_message_size_bytes",
			Help:      "Size of WebSocket messages in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		},
	)

	m.wsConnectionDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ws_connection_duration_seconds",
			Help:      "Duration of WebSocket connections in seconds",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		},
	)
}

// initUpstreamMetrics initializes metrics for requests made to extraction backends.
func (m *MetricsService) initUpstreamMetrics(f promauto.Factory) {
	m.upstreamRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream HTTP requests by status class",
		},
		[]string{"method", "status"},
	)

	m.upstreamRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Round-trip duration of upstream HTTP requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	m.upstreamRateLimited = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Total number of upstream responses with status 429",
		},
	)

	m.upstreamFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_failures_total",
			Help:      "Total number of upstream requests that produced no response",
		},
		[]string{"method"},
	)
}

// initBridgeMetrics initializes metrics for background operation invocations.
func (m *MetricsService) initBridgeMetrics(f promauto.Factory) {
	m.bridgeInvocationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_invocations_total",
			Help:      "Total number of bridge invocations by operation and result",
		},
		[]string{"operation", "result"},
	)

	m.bridgeInvocationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bridge_invocation_duration_seconds",
			Help:      "Duration of bridge invocations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	m.bridgeInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_in_flight",
			Help:      "Number of bridge invocations currently running",
		},
	)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncHTTPRequestsInProgress increments the in-progress HTTP requests gauge.
func (m *MetricsService) IncHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Inc()
}

// DecHTTPRequestsInProgress decrements the in-progress HTTP requests gauge.
func (m *MetricsService) DecHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Dec()
}

// ObserveWSConnection records metrics for a closed WebSocket connection.
func (m *MetricsService) ObserveWSConnection(duration time.Duration) {
	m.wsConnectionsTotal.Inc()
	m.wsConnectionDuration.Observe(duration.Seconds())
}

// IncWSConnectionsActive increments the active WebSocket connections gauge.
func (m *MetricsService) IncWSConnectionsActive() {
	m.wsConnectionsActive.Inc()
}

// DecWSConnectionsActive decrements the active WebSocket connections gauge.
func (m *MetricsService) DecWSConnectionsActive() {
	m.wsConnectionsActive.Dec()
}

// ObserveWSMessage records metrics for a WebSocket message.
func (m *MetricsService) ObserveWSMessage(direction, msgType string, size int) {
	m.wsMessagesTotal.WithLabelValues(direction, msgType).Inc()
	m.wsMessageSizeBytes.Observe(float64(size))
}

// ObserveUpstreamRequest records an upstream exchange that produced a response.
func (m *MetricsService) ObserveUpstreamRequest(method string, status int, duration time.Duration) {
	m.upstreamRequestsTotal.WithLabelValues(method, statusClass(status)).Inc()
	m.upstreamRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncUpstreamRateLimited counts an upstream 429.
func (m *MetricsService) IncUpstreamRateLimited() {
	m.upstreamRateLimited.Inc()
}

// IncUpstreamFailures counts an upstream exchange that failed before a response.
func (m *MetricsService) IncUpstreamFailures(method string) {
	m.upstreamFailures.WithLabelValues(method).Inc()
}

// ObserveInvocation records one finished bridge invocation.
func (m *MetricsService) ObserveInvocation(op, result string, duration time.Duration) {
	m.bridgeInvocationsTotal.WithLabelValues(op, result).Inc()
	m.bridgeInvocationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetBridgeInFlight sets the number of running bridge invocations.
func (m *MetricsService) SetBridgeInFlight(n int) {
	m.bridgeInFlight.Set(float64(n))
}

// statusClass folds a status code into "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// promLogger routes promhttp errors into the application logger.
type promLogger struct {
	logger *utils.Logger
}

func (l promLogger) Println(v ...any) {
	l.logger.Warn("Metrics handler error", "detail", v)
}
