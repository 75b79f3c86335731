package lang

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Render outcomes recorded by [Metrics].
const (
	OutcomeOK       = "ok"
	OutcomeParse    = "parse_error"
	OutcomeUnsafe   = "unsafe_value"
	OutcomeCallable = "callable_error"
	OutcomeCanceled = "canceled"
)

// Metrics holds the Prometheus collectors updated by an [Engine] and its
// [Cache]. A nil *Metrics records nothing.
type Metrics struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge
	renders        *prometheus.CounterVec
	renderSeconds  prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagtmpl",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Template cache lookups served from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagtmpl",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Template cache lookups that required a parse.",
		}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagtmpl",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Templates evicted from the cache.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tagtmpl",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Templates currently held by the cache.",
		}),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tagtmpl",
				Name:      "renders_total",
				Help:      "Render calls by outcome.",
			},
			[]string{"outcome"},
		),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tagtmpl",
			Name:      "render_duration_seconds",
			Help:      "Duration of render calls.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}

	return m
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.cacheEvictions,
		m.cacheEntries,
		m.renders,
		m.renderSeconds,
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) evict() {
	if m != nil {
		m.cacheEvictions.Inc()
	}
}

func (m *Metrics) entries(n int) {
	if m != nil {
		m.cacheEntries.Set(float64(n))
	}
}

func (m *Metrics) render(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.renders.WithLabelValues(outcome).Inc()
	m.renderSeconds.Observe(elapsed.Seconds())
}
