package websocket

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	mock "github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

func newServer(t *testing.T, values map[string]any, opts ...element.Option) (*element.Element, *Output, *mock.Feeder) {
	t.Helper()
	rt := element.NewRuntime(opts...)
	require.NoError(t, Register(rt))

	if _, ok := values["listen"]; !ok {
		values["listen"] = "127.0.0.1:0"
	}
	s, err := settings.FromMap(values)
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "ws", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := mock.NewFeeder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	require.NoError(t, el.Start(context.Background()))
	t.Cleanup(el.Stop)
	return el, el.Instance().(*Output), feeder
}

func dial(t *testing.T, out *Output, path string) *websocket.Conn {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: out.Addr().String(), Path: path}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return out.Clients() > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestWebSocketOutput_BroadcastsRecords(t *testing.T) {
	_, out, feeder := newServer(t, map[string]any{})
	a := dial(t, out, "/ws")
	b := dial(t, out, "/ws")
	require.Eventually(t, func() bool { return out.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, pad.FlowOK, feeder.PushString(`{"level":"error"}`))

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, kind)

		rec, err := message.Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, "ws", rec.Source)
		assert.JSONEq(t, `{"level":"error"}`, string(rec.Data))
	}

	require.Eventually(t, func() bool {
		sent, _, _ := out.Stats()
		return sent == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketOutput_RawFormatSendsBinary(t *testing.T) {
	_, out, feeder := newServer(t, map[string]any{"format": "raw", "path": "/logs"})
	conn := dial(t, out, "/logs")

	require.Equal(t, pad.FlowOK, feeder.PushString("plain line"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, "plain line", string(data))
}

func TestWebSocketOutput_NoClients(t *testing.T) {
	_, out, feeder := newServer(t, map[string]any{})
	assert.Equal(t, pad.FlowOK, feeder.PushString("nobody listens"))

	sent, _, dropped := out.Stats()
	assert.Zero(t, sent)
	assert.Zero(t, dropped)
}

func TestWebSocketOutput_SlowClientDrops(t *testing.T) {
	_, out, _ := newServer(t, map[string]any{"send_buffer": 1})

	// A registered client with no writer leaves its queue full after one message
	stalled := &clientInfo{send: make(chan []byte, 1), done: make(chan struct{})}
	out.clientMu.Lock()
	out.clients[nil] = stalled
	out.clientMu.Unlock()
	t.Cleanup(func() {
		out.clientMu.Lock()
		delete(out.clients, nil)
		out.clientMu.Unlock()
	})

	out.broadcast([]byte("one"))
	out.broadcast([]byte("two"))
	out.broadcast([]byte("three"))

	_, _, dropped := out.Stats()
	assert.EqualValues(t, 2, dropped)
	assert.Equal(t, "one", string(<-stalled.send))
}

func TestWebSocketOutput_ClientDisconnect(t *testing.T) {
	_, out, _ := newServer(t, map[string]any{})
	conn := dial(t, out, "/ws")

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return out.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketOutput_StopClosesClients(t *testing.T) {
	el, out, feeder := newServer(t, map[string]any{})
	conn := dial(t, out, "/ws")

	el.Stop()
	assert.Nil(t, out.Addr())
	assert.Zero(t, out.Clients())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, pad.FlowFlushing, feeder.PushString("late"))
}

func TestWebSocketOutput_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	el, out, feeder := newServer(t, map[string]any{}, element.WithMetrics(registry))
	conn := dial(t, out, "/ws")

	require.Equal(t, pad.FlowOK, feeder.PushString("counted"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.NoError(t, err)

	m := out.metrics
	require.NotNil(t, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.clientsConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionTotal))
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.messagesSent) == 1 }, 2*time.Second, 10*time.Millisecond)

	// a second cycle registers the same metric names again
	el.Stop()
	require.NoError(t, el.Start(context.Background()))
	assert.NotNil(t, out.metrics)
}

func TestWebSocketOutput_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"relative path", map[string]any{"path": "ws"}},
		{"empty send buffer", map[string]any{"send_buffer": 0}},
		{"unknown format", map[string]any{"format": "csv"}},
		{"negative ping", map[string]any{"ping_interval_ms": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := element.NewRuntime()
			require.NoError(t, Register(rt))
			s, err := settings.FromMap(tt.values)
			require.NoError(t, err)
			_, err = rt.Instantiate(TypeID, "ws", s)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestWebSocketOutput_ListenConflict(t *testing.T) {
	_, first, _ := newServer(t, map[string]any{})

	rt := element.NewRuntime()
	require.NoError(t, Register(rt))
	s, err := settings.FromMap(map[string]any{"listen": first.Addr().String()})
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "second", s)
	require.NoError(t, err)
	defer el.Release()

	err = el.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
