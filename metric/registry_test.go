package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

func gatheredNames(t *testing.T, r *MetricsRegistry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestMetricsRegistry_RegisterKinds(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "c"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "h"})
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "cv"}, []string{"l"})
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "gv"}, []string{"l"})
	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "hv"}, []string{"l"})

	require.NoError(t, registry.RegisterCounter("el", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("el", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogram("el", "test_histogram", histogram))
	require.NoError(t, registry.RegisterCounterVec("el", "test_counter_vec", counterVec))
	require.NoError(t, registry.RegisterGaugeVec("el", "test_gauge_vec", gaugeVec))
	require.NoError(t, registry.RegisterHistogramVec("el", "test_histogram_vec", histogramVec))

	counter.Inc()
	gauge.Set(3)
	histogram.Observe(0.1)
	counterVec.WithLabelValues("a").Inc()
	gaugeVec.WithLabelValues("a").Set(1)
	histogramVec.WithLabelValues("a").Observe(0.2)

	names := gatheredNames(t, registry)
	for _, name := range []string{"test_counter", "test_gauge", "test_histogram", "test_counter_vec", "test_gauge_vec", "test_histogram_vec"} {
		assert.Contains(t, names, name)
	}
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "c"})
	require.NoError(t, registry.RegisterCounter("el", "dup_counter", counter))

	err := registry.RegisterCounter("el", "dup_counter", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "c"})
	err = registry.RegisterCounter("other", "dup_counter", other)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "c"})
	require.NoError(t, registry.RegisterCounter("el", "gone_counter", counter))
	counter.Inc()

	assert.True(t, registry.Unregister("el", "gone_counter"))
	assert.False(t, registry.Unregister("el", "gone_counter"))
	assert.NotContains(t, gatheredNames(t, registry), "gone_counter")

	require.NoError(t, registry.RegisterCounter("el", "gone_counter", counter))
}

func TestMetricsRegistry_UnregisterOwner(t *testing.T) {
	registry := NewMetricsRegistry()
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("owned_%d", i)
		c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "c"})
		require.NoError(t, registry.RegisterCounter("http", name, c))
	}
	keep := prometheus.NewCounter(prometheus.CounterOpts{Name: "kept", Help: "c"})
	require.NoError(t, registry.RegisterCounter("http_2", "kept", keep))

	assert.Equal(t, 3, registry.UnregisterOwner("http"))
	assert.Equal(t, 0, registry.UnregisterOwner("http"))
	assert.True(t, registry.Unregister("http_2", "kept"))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_%d", i)
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "c"})
			errs <- registry.RegisterCounter("el", name, c)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	var registrar MetricsRegistrar = NewMetricsRegistry()
	assert.NotNil(t, registrar)
}

func TestCoreMetrics_Record(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordElementCreated("counter_source")
	m.RecordElementCreated("counter_source")
	m.RecordElementDestroyed("counter_source")
	m.TasksRunning.Inc()
	m.RecordPush("counter", "ok")
	m.RecordPush("counter", "ok")
	m.RecordPush("counter", "not-linked")
	m.RecordDrop("queue", "drop_oldest")
	m.RecordWrite("file", 128, 5*time.Millisecond)
	m.RecordError("http", "transient")
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ElementsAlive.WithLabelValues("counter_source")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ElementsCreated.WithLabelValues("counter_source")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BuffersPushed.WithLabelValues("counter", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BuffersPushed.WithLabelValues("counter", "not-linked")))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.BytesWritten.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))

	m.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))

	names := gatheredNames(t, registry)
	for _, name := range []string{
		"ols_elements_alive",
		"ols_elements_created_total",
		"ols_elements_destroyed_total",
		"ols_tasks_running",
		"ols_buffers_pushed_total",
		"ols_buffers_dropped_total",
		"ols_output_bytes_total",
		"ols_output_write_duration_seconds",
		"ols_errors_total",
		"ols_nats_connected",
		"ols_nats_reconnects_total",
		"go_goroutines",
	} {
		assert.Contains(t, names, name)
	}
}
