package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// cacheMetrics exports cache statistics. A nil *cacheMetrics records
// nothing.
type cacheMetrics struct {
	registry *metric.MetricsRegistry
	owner    string

	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	evictions *prometheus.CounterVec // by reason: capacity, expired
	size      prometheus.Gauge
}

func newCacheMetrics(registry *metric.MetricsRegistry, owner, component string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"component": component}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "cache", Name: name, Help: help, ConstLabels: labels,
		})
	}
	m := &cacheMetrics{
		registry: registry,
		owner:    owner,
		hits:     counter("hits_total", "Total number of cache hits"),
		misses:   counter("misses_total", "Total number of cache misses"),
		sets:     counter("sets_total", "Total number of cache set operations"),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "cache", Name: "evictions_total",
			Help: "Total number of cache evictions", ConstLabels: labels,
		}, []string{"reason"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ols", Subsystem: "cache", Name: "size",
			Help: "Current number of entries in cache", ConstLabels: labels,
		}),
	}

	register := []func() error{
		func() error { return registry.RegisterCounter(owner, "cache_hits", m.hits) },
		func() error { return registry.RegisterCounter(owner, "cache_misses", m.misses) },
		func() error { return registry.RegisterCounter(owner, "cache_sets", m.sets) },
		func() error { return registry.RegisterCounterVec(owner, "cache_evictions", m.evictions) },
		func() error { return registry.RegisterGauge(owner, "cache_size", m.size) },
	}
	for _, fn := range register {
		if err := fn(); err != nil {
			m.unregister()
			return nil, err
		}
	}
	return m, nil
}

func (m *cacheMetrics) unregister() {
	if m == nil {
		return
	}
	m.registry.UnregisterOwner(m.owner)
}

func (m *cacheMetrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *cacheMetrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *cacheMetrics) recordSet() {
	if m != nil {
		m.sets.Inc()
	}
}

func (m *cacheMetrics) recordEviction(reason string) {
	if m != nil {
		m.evictions.WithLabelValues(reason).Inc()
	}
}

func (m *cacheMetrics) updateSize(size int) {
	if m != nil {
		m.size.Set(float64(size))
	}
}
