package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// bufferMetrics exports buffer statistics with an element label
type bufferMetrics struct {
	registry *metric.MetricsRegistry
	owner    string

	writes    prometheus.Counter
	reads     prometheus.Counter
	overflows prometheus.Counter
	drops     prometheus.Counter
	size      prometheus.Gauge
	fill      prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, label string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"element": label}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "buffer", Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ols", Subsystem: "buffer", Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &bufferMetrics{
		registry:  registry,
		owner:     "buffer:" + label,
		writes:    counter("writes_total", "Total number of items written"),
		reads:     counter("reads_total", "Total number of items read"),
		overflows: counter("overflows_total", "Total number of writes into a full buffer"),
		drops:     counter("drops_total", "Total number of items dropped"),
		size:      gauge("size", "Current number of buffered items"),
		fill:      gauge("utilization", "Buffered items as a fraction of capacity"),
	}

	var registered []string
	rollback := func(err error) (*bufferMetrics, error) {
		for _, name := range registered {
			registry.Unregister(m.owner, name)
		}
		return nil, err
	}
	for name, c := range map[string]prometheus.Counter{
		"writes": m.writes, "reads": m.reads, "overflows": m.overflows, "drops": m.drops,
	} {
		if err := registry.RegisterCounter(m.owner, name, c); err != nil {
			return rollback(err)
		}
		registered = append(registered, name)
	}
	for name, g := range map[string]prometheus.Gauge{"size": m.size, "utilization": m.fill} {
		if err := registry.RegisterGauge(m.owner, name, g); err != nil {
			return rollback(err)
		}
		registered = append(registered, name)
	}
	return m, nil
}

func (m *bufferMetrics) recordWrite(size, capacity int) {
	m.writes.Inc()
	m.updateSize(size, capacity)
}

func (m *bufferMetrics) recordRead(size, capacity int) {
	m.reads.Inc()
	m.updateSize(size, capacity)
}

func (m *bufferMetrics) recordOverflow() { m.overflows.Inc() }

func (m *bufferMetrics) recordDrop() { m.drops.Inc() }

func (m *bufferMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.fill.Set(float64(size) / float64(capacity))
}

func (m *bufferMetrics) unregister() {
	m.registry.UnregisterOwner(m.owner)
}
