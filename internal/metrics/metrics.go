// Package metrics holds the Prometheus instruments for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seedwatch/internal/domain"
)

const (
	// Namespace is the namespace for all seedwatch metrics
	Namespace = "seedwatch"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter

	// Classification metrics
	Classifications        *prometheus.CounterVec
	ClassificationDuration *prometheus.HistogramVec
	TierFailures           *prometheus.CounterVec
	BatchSize              prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheEvicts prometheus.Counter

	// Analysis metrics
	AnalysesStored prometheus.Gauge
	SourceFetches  *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.initHTTPMetrics(factory)
	m.initClassificationMetrics(factory)
	m.initCacheMetrics(factory)
	m.initAnalysisMetrics(factory)

	return m
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
		},
		[]string{"method", "route"},
	)

	m.RateLimited = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
	)
}

func (m *Metrics) initClassificationMetrics(factory promauto.Factory) {
	m.Classifications = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Comments classified, by tier and label",
		},
		[]string{"tier", "label"},
	)

	m.ClassificationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "classifier",
			Name:      "classification_duration_seconds",
			Help:      "Time to classify one comment",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"tier"},
	)

	m.TierFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "classifier",
			Name:      "tier_failures_total",
			Help:      "Tier attempts that failed and fell through to the next tier",
		},
		[]string{"tier"},
	)

	m.BatchSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "classifier",
			Name:      "batch_size",
			Help:      "Number of texts per batch prediction",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		},
	)
}

func (m *Metrics) initCacheMetrics(factory promauto.Factory) {
	m.CacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Result cache hits",
		},
	)

	m.CacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Result cache misses",
		},
	)

	m.CacheEvicts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "expired_evictions_total",
			Help:      "Expired entries removed by the janitor",
		},
	)
}

func (m *Metrics) initAnalysisMetrics(factory promauto.Factory) {
	m.AnalysesStored = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "analysis",
			Name:      "stored",
			Help:      "Analyses currently held in memory",
		},
	)

	m.SourceFetches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Comment source fetches by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RateLimitRejected counts a request denied by the rate limiter
func (m *Metrics) RateLimitRejected() {
	m.RateLimited.Inc()
}

// ObserveClassification counts one classified comment
func (m *Metrics) ObserveClassification(tier string, label domain.Label, elapsed time.Duration) {
	m.Classifications.WithLabelValues(tier, label.String()).Inc()
	m.ClassificationDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
}

// ObserveTierFailure counts a tier that failed and fell through
func (m *Metrics) ObserveTierFailure(tier string) {
	m.TierFailures.WithLabelValues(tier).Inc()
}

// ObserveBatch records the size of a batch prediction
func (m *Metrics) ObserveBatch(size int) {
	m.BatchSize.Observe(float64(size))
}

// CacheHit implements cache.Observer
func (m *Metrics) CacheHit() {
	m.CacheHits.Inc()
}

// CacheMiss implements cache.Observer
func (m *Metrics) CacheMiss() {
	m.CacheMisses.Inc()
}

// CacheExpired records entries removed by a cleanup run
func (m *Metrics) CacheExpired(n int) {
	m.CacheEvicts.Add(float64(n))
}

// SetAnalysesStored sets the stored analysis gauge
func (m *Metrics) SetAnalysesStored(n int) {
	m.AnalysesStored.Set(float64(n))
}

// ObserveSourceFetch counts a comment source fetch
func (m *Metrics) ObserveSourceFetch(platform string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.SourceFetches.WithLabelValues(platform, outcome).Inc()
}
