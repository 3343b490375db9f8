package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports cache activity to Prometheus, labeled by cache name.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	expirations *prometheus.CounterVec
	size        *prometheus.GaugeVec
}

// NewMetrics registers the cache collectors on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the cache collectors on reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autobind_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		misses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autobind_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),
		evictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autobind_cache_evictions_total",
				Help: "Total number of entries evicted by policy",
			},
			[]string{"cache"},
		),
		expirations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autobind_cache_expirations_total",
				Help: "Total number of entries removed after their TTL elapsed",
			},
			[]string{"cache"},
		),
		size: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autobind_cache_size",
				Help: "Current number of entries in cache",
			},
			[]string{"cache"},
		),
	}
}

func (m *Metrics) recordHit(name string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(name).Inc()
}

func (m *Metrics) recordMiss(name string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(name).Inc()
}

func (m *Metrics) recordEviction(name string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(name).Inc()
}

func (m *Metrics) recordExpiration(name string) {
	if m == nil {
		return
	}
	m.expirations.WithLabelValues(name).Inc()
}

func (m *Metrics) setSize(name string, size int) {
	if m == nil {
		return
	}
	m.size.WithLabelValues(name).Set(float64(size))
}
