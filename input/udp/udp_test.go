package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

func newListener(t *testing.T, rt *element.Runtime, values map[string]any) (*element.Element, *testutil.Recorder) {
	t.Helper()
	if values == nil {
		values = map[string]any{}
	}
	if _, ok := values["bind"]; !ok {
		values["bind"] = "127.0.0.1:0"
	}
	s, err := settings.FromMap(values)
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "syslog", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	rec := testutil.NewRecorder()
	require.Equal(t, pad.LinkOK, pad.Link(el.Pad("src"), rec.Pad()))
	return el, rec
}

func newRuntime(t *testing.T, opts ...element.Option) *element.Runtime {
	t.Helper()
	rt := element.NewRuntime(opts...)
	require.NoError(t, Register(rt))
	return rt
}

func send(t *testing.T, addr net.Addr, payloads ...string) {
	t.Helper()
	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	for _, p := range payloads {
		_, err := conn.Write([]byte(p))
		require.NoError(t, err)
	}
}

func TestUDPSource_ReceivesDatagrams(t *testing.T) {
	el, rec := newListener(t, newRuntime(t), nil)

	require.NoError(t, el.Start(context.Background()))
	defer el.Stop()

	src := el.Instance().(*Source)
	addr := src.LocalAddr()
	require.NotNil(t, addr)

	send(t, addr, testutil.SampleLogLines[:3]...)
	rec.WaitForCount(t, 3, 2*time.Second)
	assert.Equal(t, testutil.SampleLogLines[:3], rec.Strings())

	remote := rec.Buffers()[0].Metadata().GetString("remote_addr")
	assert.Contains(t, remote, "127.0.0.1:")
}

func TestUDPSource_StopClosesSocket(t *testing.T) {
	el, _ := newListener(t, newRuntime(t), map[string]any{"read_timeout_ms": 20})

	require.NoError(t, el.Start(context.Background()))
	src := el.Instance().(*Source)
	addr := src.LocalAddr().String()

	done := make(chan struct{})
	go func() {
		el.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Nil(t, src.LocalAddr())

	// The port is free again.
	conn, err := net.ListenPacket("udp", addr)
	require.NoError(t, err)
	conn.Close()
}

func TestUDPSource_BindConflict(t *testing.T) {
	taken, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	el, _ := newListener(t, newRuntime(t), map[string]any{"bind": taken.LocalAddr().String()})
	src := el.Instance().(*Source)
	src.retryConfig.InitialDelay = time.Millisecond
	src.retryConfig.MaxDelay = 5 * time.Millisecond

	err = el.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, el.Running())
}

func TestUDPSource_InvalidBind(t *testing.T) {
	rt := newRuntime(t)
	s := settings.New()
	s.SetString("bind", "")
	_, err := rt.Instantiate(TypeID, "bad", s)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConstructionFailed)
}

func TestUDPSource_TruncatesToBufferSize(t *testing.T) {
	el, rec := newListener(t, newRuntime(t), map[string]any{"buffer_size": 512})

	require.NoError(t, el.Start(context.Background()))
	defer el.Stop()

	big := make([]byte, 600)
	for i := range big {
		big[i] = 'x'
	}
	send(t, el.Instance().(*Source).LocalAddr(), string(big))
	rec.WaitForCount(t, 1, 2*time.Second)
	assert.Equal(t, 512, rec.Buffers()[0].Size())
}

func TestUDPSource_MetricsRegistered(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	rt := newRuntime(t, element.WithMetrics(registry))
	el, rec := newListener(t, rt, nil)

	require.NoError(t, el.Start(context.Background()))
	src := el.Instance().(*Source)
	require.NotNil(t, src.metrics)

	send(t, src.LocalAddr(), "a", "bc")
	rec.WaitForCount(t, 2, 2*time.Second)
	el.Stop()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				values[f.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["ols_udp_packets_received_total"])
	assert.Equal(t, 3.0, values["ols_udp_bytes_received_total"])
}

func TestUDPSource_MetricsUnregisteredOnDestroy(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	rt := newRuntime(t, element.WithMetrics(registry))

	s := settings.New()
	s.SetString("bind", "127.0.0.1:0")
	el, err := rt.Instantiate(TypeID, "temp", s)
	require.NoError(t, err)
	el.Release()

	// Registering the same owner again succeeds once the first is gone.
	m, err := newMetrics(registry, "temp")
	require.NoError(t, err)
	m.unregister()
}
