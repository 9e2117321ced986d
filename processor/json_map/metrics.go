package jsonmapprocessor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// mapMetrics holds Prometheus metrics for one json_map element.
// A nil *mapMetrics records nothing.
type mapMetrics struct {
	registry *metric.MetricsRegistry
	owner    string

	transformationsTotal   prometheus.Counter
	extractionErrors       *prometheus.CounterVec
	errors                 *prometheus.CounterVec
	transformationDuration prometheus.Histogram
	outputSize             prometheus.Histogram
	fieldsAdded            prometheus.Counter
	fieldsRemoved          prometheus.Counter
	fieldsMapped           prometheus.Counter
}

// newMapMetrics creates and registers the metrics; a nil registry disables them
func newMapMetrics(registry *metric.MetricsRegistry, name string) (*mapMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"element": name}
	counter := func(metricName, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "json_map", Name: metricName, Help: help, ConstLabels: labels,
		})
	}
	m := &mapMetrics{
		registry:             registry,
		owner:                "json_map:" + name,
		transformationsTotal: counter("transformations_total", "Total number of payloads transformed"),
		extractionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "json_map", Name: "extraction_errors_total",
			Help: "Mappings whose source field was missing", ConstLabels: labels,
		}, []string{"error_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "json_map", Name: "errors_total",
			Help: "Total number of transformation errors", ConstLabels: labels,
		}, []string{"error_type"}),
		transformationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ols", Subsystem: "json_map", Name: "transformation_duration_seconds",
			Help:        "Transformation duration in seconds",
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			ConstLabels: labels,
		}),
		outputSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ols", Subsystem: "json_map", Name: "output_size_bytes",
			Help:        "Size of transformed payloads",
			Buckets:     prometheus.ExponentialBuckets(100, 2, 10),
			ConstLabels: labels,
		}),
		fieldsAdded:   counter("fields_added_total", "Static fields added"),
		fieldsRemoved: counter("fields_removed_total", "Fields removed"),
		fieldsMapped:  counter("fields_mapped_total", "Fields mapped"),
	}

	register := []func() error{
		func() error { return registry.RegisterCounter(m.owner, "transformations", m.transformationsTotal) },
		func() error { return registry.RegisterCounterVec(m.owner, "extraction_errors", m.extractionErrors) },
		func() error { return registry.RegisterCounterVec(m.owner, "errors", m.errors) },
		func() error { return registry.RegisterHistogram(m.owner, "transformation_duration", m.transformationDuration) },
		func() error { return registry.RegisterHistogram(m.owner, "output_size", m.outputSize) },
		func() error { return registry.RegisterCounter(m.owner, "fields_added", m.fieldsAdded) },
		func() error { return registry.RegisterCounter(m.owner, "fields_removed", m.fieldsRemoved) },
		func() error { return registry.RegisterCounter(m.owner, "fields_mapped", m.fieldsMapped) },
	}
	for _, fn := range register {
		if err := fn(); err != nil {
			m.unregister()
			return nil, err
		}
	}
	return m, nil
}

func (m *mapMetrics) unregister() {
	if m == nil {
		return
	}
	m.registry.UnregisterOwner(m.owner)
}

func (m *mapMetrics) recordTransformation(duration time.Duration, outputSizeBytes int) {
	if m == nil {
		return
	}
	m.transformationsTotal.Inc()
	m.transformationDuration.Observe(duration.Seconds())
	m.outputSize.Observe(float64(outputSizeBytes))
}

func (m *mapMetrics) recordExtractionError(errorType string) {
	if m == nil {
		return
	}
	m.extractionErrors.WithLabelValues(errorType).Inc()
}

func (m *mapMetrics) recordError(errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(errorType).Inc()
}

func (m *mapMetrics) recordFieldOperations(added, removed, mapped int) {
	if m == nil {
		return
	}
	m.fieldsAdded.Add(float64(added))
	m.fieldsRemoved.Add(float64(removed))
	m.fieldsMapped.Add(float64(mapped))
}
