package jsonfilter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// filterMetrics holds Prometheus metrics for one json_filter element.
// A nil *filterMetrics records nothing.
type filterMetrics struct {
	registry *metric.MetricsRegistry
	owner    string

	messagesTotal      *prometheus.CounterVec // by status: matched, rejected, error
	errors             *prometheus.CounterVec // by error_type
	evaluationDuration prometheus.Histogram
	matchRate          prometheus.Gauge
}

// newFilterMetrics creates and registers the metrics; a nil registry disables them
func newFilterMetrics(registry *metric.MetricsRegistry, name string) (*filterMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"element": name}
	m := &filterMetrics{
		registry: registry,
		owner:    "json_filter:" + name,
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "json_filter",
			Name:        "messages_total",
			Help:        "Total number of buffers evaluated by the filter",
			ConstLabels: labels,
		}, []string{"status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "json_filter",
			Name:        "errors_total",
			Help:        "Total number of filter evaluation errors",
			ConstLabels: labels,
		}, []string{"error_type"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "ols",
			Subsystem:   "json_filter",
			Name:        "evaluation_duration_seconds",
			Help:        "Filter evaluation duration in seconds",
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			ConstLabels: labels,
		}),
		matchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ols",
			Subsystem:   "json_filter",
			Name:        "match_rate",
			Help:        "Current filter match rate (matched / total buffers)",
			ConstLabels: labels,
		}),
	}

	if err := registry.RegisterCounterVec(m.owner, "messages_total", m.messagesTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(m.owner, "errors", m.errors); err != nil {
		m.unregister()
		return nil, err
	}
	if err := registry.RegisterHistogram(m.owner, "evaluation_duration", m.evaluationDuration); err != nil {
		m.unregister()
		return nil, err
	}
	if err := registry.RegisterGauge(m.owner, "match_rate", m.matchRate); err != nil {
		m.unregister()
		return nil, err
	}
	return m, nil
}

func (m *filterMetrics) unregister() {
	if m == nil {
		return
	}
	m.registry.UnregisterOwner(m.owner)
}

// recordEvaluation records one rule evaluation
func (m *filterMetrics) recordEvaluation(matched bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "rejected"
	if matched {
		status = "matched"
	}
	m.messagesTotal.WithLabelValues(status).Inc()
	m.evaluationDuration.Observe(duration.Seconds())
}

// recordError records a processing error
func (m *filterMetrics) recordError(errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errorType).Inc()
	m.messagesTotal.WithLabelValues("error").Inc()
}

// updateMatchRate updates the filter effectiveness gauge
func (m *filterMetrics) updateMatchRate(matched, total int64) {
	if m == nil || total == 0 {
		return
	}
	m.matchRate.Set(float64(matched) / float64(total))
}
