package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for invocation latency (in seconds).
var defaultBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5,
}

type promMetrics struct {
	hits             *prometheus.CounterVec
	misses           *prometheus.CounterVec
	puts             *prometheus.CounterVec
	evictions        *prometheus.CounterVec
	clears           *prometheus.CounterVec
	invocations      *prometheus.HistogramVec
	invocationErrors *prometheus.CounterVec
}

// NewPrometheus registers the interceptor collectors on reg.
func NewPrometheus(reg prometheus.Registerer) Metrics {
	m := &promMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_hits_total",
			Help: "Total number of cache lookups that found an entry",
		}, []string{"site", "cache"}),

		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_misses_total",
			Help: "Total number of cache lookups that found nothing",
		}, []string{"site", "cache"}),

		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_puts_total",
			Help: "Total number of values stored",
		}, []string{"cache"}),

		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_evictions_total",
			Help: "Total number of single key evictions",
		}, []string{"cache"}),

		clears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_clears_total",
			Help: "Total number of all-entries evictions",
		}, []string{"cache"}),

		invocations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_intercept_invocation_duration_seconds",
			Help:    "Latency of guarded target invocations in seconds",
			Buckets: defaultBuckets,
		}, []string{"site"}),

		invocationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_intercept_invocation_errors_total",
			Help: "Total number of guarded target invocations that failed",
		}, []string{"site"}),
	}

	reg.MustRegister(
		m.hits,
		m.misses,
		m.puts,
		m.evictions,
		m.clears,
		m.invocations,
		m.invocationErrors,
	)

	return m
}

func (m *promMetrics) Hit(site, cache string) {
	m.hits.WithLabelValues(site, cache).Inc()
}

func (m *promMetrics) Miss(site, cache string) {
	m.misses.WithLabelValues(site, cache).Inc()
}

func (m *promMetrics) Put(cache string) {
	m.puts.WithLabelValues(cache).Inc()
}

func (m *promMetrics) Evict(cache string) {
	m.evictions.WithLabelValues(cache).Inc()
}

func (m *promMetrics) Clear(cache string) {
	m.clears.WithLabelValues(cache).Inc()
}

func (m *promMetrics) InvocationDuration(site string) Timer {
	return &timer{h: m.invocations.WithLabelValues(site), start: time.Now()}
}

func (m *promMetrics) InvocationError(site string) {
	m.invocationErrors.WithLabelValues(site).Inc()
}
