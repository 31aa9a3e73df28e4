package system

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"norelock.dev/mediagrab/backend/internal/utils"
)

const metricsNamespace = "mediagrab"

// MetricsService provides application metrics collection functionality.
// Metrics live in a private registry so several instances can coexist.
type MetricsService struct {
	logger   *utils.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDuration    *prometheus.HistogramVec
	httpRequestsInProgress *prometheus.GaugeVec
	rateLimitedTotal       *prometheus.CounterVec

	// Resolution metrics
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	stagesTotal        *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec

	// Search metrics
	searchesTotal *prometheus.CounterVec
	searchHits    prometheus.Histogram
}

// NewMetricsService creates a new metrics service with Go and process collectors.
func NewMetricsService(logger *utils.Logger) *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &MetricsService{
		logger:   logger.Named("metrics_service"),
		registry: registry,
	}

	factory := promauto.With(registry)
	m.initHTTPMetrics(factory)
	m.initResolutionMetrics(factory)
	m.initSearchMetrics(factory)

	return m
}

// Handler returns an HTTP handler for exposing metrics.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry holding the service metrics.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// initHTTPMetrics initializes HTTP-related metrics.
func (m *MetricsService) initHTTPMetrics(factory promauto.Factory) {
	m.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.httpRequestsInProgress = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_progress",
			Help:      "Number of HTTP requests currently in progress",
		},
		[]string{"method"},
	)

	m.rateLimitedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
}

// initResolutionMetrics initializes converter pipeline metrics.
func (m *MetricsService) initResolutionMetrics(factory promauto.Factory) {
	m.resolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolutions_total",
			Help:      "Total number of resolutions by outcome",
		},
		[]string{"outcome"},
	)

	m.resolutionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "resolution_duration_seconds",
			Help:      "Duration of a full three stage resolution in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	m.stagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "converter_stages_total",
			Help:      "Total number of converter stage round trips by outcome",
		},
		[]string{"stage", "outcome"},
	)

	m.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "converter_stage_duration_seconds",
			Help:      "Duration of one converter stage in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 9),
		},
		[]string{"stage"},
	)
}

// initSearchMetrics initializes catalog search metrics.
func (m *MetricsService) initSearchMetrics(factory promauto.Factory) {
	m.searchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "searches_total",
			Help:      "Total number of catalog searches by outcome",
		},
		[]string{"catalog", "outcome"},
	)

	m.searchHits = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "search_hits",
			Help:      "Number of hits returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50},
		},
	)
}

// ObserveHTTPRequest records metrics for an HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncHTTPRequestsInProgress increments the in-progress HTTP requests counter.
func (m *MetricsService) IncHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Inc()
}

// DecHTTPRequestsInProgress decrements the in-progress HTTP requests counter.
func (m *MetricsService) DecHTTPRequestsInProgress(method string) {
	m.httpRequestsInProgress.WithLabelValues(method).Dec()
}

// IncRateLimited counts a request rejected by the limiter for scope.
func (m *MetricsService) IncRateLimited(scope string) {
	m.rateLimitedTotal.WithLabelValues(scope).Inc()
}

// ObserveStage records one converter round trip.
func (m *MetricsService) ObserveStage(stage, outcome string, duration time.Duration) {
	m.stagesTotal.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveResolution records a finished resolution.
func (m *MetricsService) ObserveResolution(outcome string, duration time.Duration) {
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
	m.resolutionDuration.Observe(duration.Seconds())
}

// ObserveSearch records a finished catalog search.
func (m *MetricsService) ObserveSearch(catalog, outcome string, hits int) {
	m.searchesTotal.WithLabelValues(catalog, outcome).Inc()
	if outcome == "ok" {
		m.searchHits.Observe(float64(hits))
	}
}
