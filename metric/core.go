package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ols"

// Metrics contains the runtime-level metrics shared by every element
type Metrics struct {
	// Element lifecycle
	ElementsAlive     *prometheus.GaugeVec
	ElementsCreated   *prometheus.CounterVec
	ElementsDestroyed *prometheus.CounterVec
	TasksRunning      prometheus.Gauge

	// Dataflow
	BuffersPushed  *prometheus.CounterVec
	BuffersDropped *prometheus.CounterVec
	BytesWritten   *prometheus.CounterVec
	WriteDuration  *prometheus.HistogramVec
	ErrorsTotal    *prometheus.CounterVec

	// NATS
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates the runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ElementsAlive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "elements",
				Name:      "alive",
				Help:      "Number of live elements by type",
			},
			[]string{"type"},
		),

		ElementsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "elements",
				Name:      "created_total",
				Help:      "Total number of elements instantiated",
			},
			[]string{"type"},
		),

		ElementsDestroyed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "elements",
				Name:      "destroyed_total",
				Help:      "Total number of elements disposed",
			},
			[]string{"type"},
		),

		TasksRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "tasks",
				Name:      "running",
				Help:      "Number of live task goroutines",
			},
		),

		BuffersPushed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffers",
				Name:      "pushed_total",
				Help:      "Buffers pushed out of source pads by flow return",
			},
			[]string{"element", "flow"},
		),

		BuffersDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "buffers",
				Name:      "dropped_total",
				Help:      "Buffers dropped by elements",
			},
			[]string{"element", "reason"},
		),

		BytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "bytes_total",
				Help:      "Payload bytes delivered by outputs",
			},
			[]string{"element"},
		),

		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "write_duration_seconds",
				Help:      "Time outputs spend delivering one buffer",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"element"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"element", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ElementsAlive,
		m.ElementsCreated,
		m.ElementsDestroyed,
		m.TasksRunning,
		m.BuffersPushed,
		m.BuffersDropped,
		m.BytesWritten,
		m.WriteDuration,
		m.ErrorsTotal,
		m.NATSConnected,
		m.NATSReconnects,
	}
}

// RecordElementCreated counts a new element of typeID
func (m *Metrics) RecordElementCreated(typeID string) {
	m.ElementsCreated.WithLabelValues(typeID).Inc()
	m.ElementsAlive.WithLabelValues(typeID).Inc()
}

// RecordElementDestroyed counts a disposed element of typeID
func (m *Metrics) RecordElementDestroyed(typeID string) {
	m.ElementsDestroyed.WithLabelValues(typeID).Inc()
	m.ElementsAlive.WithLabelValues(typeID).Dec()
}

// RecordPush counts a buffer pushed by element with the given flow return
func (m *Metrics) RecordPush(element, flow string) {
	m.BuffersPushed.WithLabelValues(element, flow).Inc()
}

// RecordDrop counts a buffer dropped by element
func (m *Metrics) RecordDrop(element, reason string) {
	m.BuffersDropped.WithLabelValues(element, reason).Inc()
}

// RecordWrite records one delivered buffer of size bytes
func (m *Metrics) RecordWrite(element string, size int, d time.Duration) {
	m.BytesWritten.WithLabelValues(element).Add(float64(size))
	m.WriteDuration.WithLabelValues(element).Observe(d.Seconds())
}

// RecordError counts an error of the given class raised by element
func (m *Metrics) RecordError(element, class string) {
	m.ErrorsTotal.WithLabelValues(element, class).Inc()
}

// RecordNATSStatus records the NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	if connected {
		m.NATSConnected.Set(1)
		return
	}
	m.NATSConnected.Set(0)
}

// RecordNATSReconnect counts a NATS reconnection
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
