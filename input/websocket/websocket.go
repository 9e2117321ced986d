package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/timestamp"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/tlsutil"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "websocket_source"

// Config holds the client settings
type Config struct {
	URL              string               `json:"url"`
	BearerTokenEnv   string               `json:"bearer_token_env"`
	Envelope         bool                 `json:"envelope"`
	Reconnect        bool                 `json:"reconnect"`
	MaxRetries       int                  `json:"max_retries"`
	InitialInterval  time.Duration        `json:"initial_interval"`
	MaxInterval      time.Duration        `json:"max_interval"`
	HandshakeTimeout time.Duration        `json:"handshake_timeout"`
	QueueSize        int                  `json:"queue_size"`
	TLS              tlsutil.ClientConfig `json:"tls"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: url", errors.ErrMissingConfig), "Config", "Validate", "url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", fmt.Sprintf("url %q is not a ws:// or wss:// address", c.URL))
	}
	if c.MaxRetries < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "max_retries must not be negative")
	}
	return nil
}

// Envelope wraps a message when envelope mode is on
type Envelope struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Metrics holds Prometheus metrics for one websocket_source element
type Metrics struct {
	registry          *metric.MetricsRegistry
	owner             string
	messagesReceived  *prometheus.CounterVec
	connectionsActive prometheus.Gauge
	reconnects        prometheus.Counter
	errors            *prometheus.CounterVec
}

func newMetrics(registry *metric.MetricsRegistry, name string) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}
	labels := prometheus.Labels{"element": name}
	m := &Metrics{
		registry: registry,
		owner:    "websocket_source:" + name,
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "websocket_source", Name: "messages_received_total",
			Help: "Total messages received", ConstLabels: labels,
		}, []string{"type"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ols", Subsystem: "websocket_source", Name: "connection_active",
			Help: "1 while the WebSocket connection is open", ConstLabels: labels,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "websocket_source", Name: "reconnect_attempts_total",
			Help: "Total reconnection attempts", ConstLabels: labels,
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "websocket_source", Name: "errors_total",
			Help: "Errors by type", ConstLabels: labels,
		}, []string{"error_type"}),
	}

	register := []func() error{
		func() error { return registry.RegisterCounterVec(m.owner, "messages_received", m.messagesReceived) },
		func() error { return registry.RegisterGauge(m.owner, "connection_active", m.connectionsActive) },
		func() error { return registry.RegisterCounter(m.owner, "reconnects", m.reconnects) },
		func() error { return registry.RegisterCounterVec(m.owner, "errors", m.errors) },
	}
	for _, fn := range register {
		if err := fn(); err != nil {
			m.unregister()
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) unregister() {
	if m != nil {
		m.registry.UnregisterOwner(m.owner)
	}
}

// Source is the websocket_source instance
type Source struct {
	el      *element.Element
	metrics *Metrics

	mu     sync.Mutex
	cfg    Config
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// messages is replaced on every Start and closed by the reader
	messages chan *pad.Buffer

	received   atomic.Int64
	ignored    atomic.Int64
	reconnects atomic.Int64
}

// Type returns the websocket_source descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindSource,
		Name:     "WebSocket Client",
		New:      newSource,
		Fill: func(s *settings.Data) {
			s.SetDefaultBool("reconnect", true)
			s.SetDefaultInt("max_retries", 10)
			s.SetDefaultString("initial_interval", "1s")
			s.SetDefaultString("max_interval", "1m")
			s.SetDefaultString("handshake_timeout", "45s")
			s.SetDefaultInt("queue_size", 1024)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("url", "WebSocket URL (ws:// or wss://)", properties.TextDefault)
			props.AddText("bearer_token_env", "Environment variable holding a bearer token", properties.TextDefault)
			props.AddBool("envelope", "Expect JSON envelopes and acknowledge data messages")
			props.AddBool("reconnect", "Reconnect when the connection drops")
			props.AddInt("max_retries", "Consecutive reconnect failures before giving up (0: no limit)", 0, 1000, 1)
			props.AddInt("queue_size", "Messages buffered ahead of the pipeline", 1, 65536, 1)
			return props
		},
	}
}

// Register adds websocket_source to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newSource(s *settings.Data, el *element.Element) (element.Instance, error) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "WebSocketSource", "New", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics, err := newMetrics(el.Runtime().MetricsRegistry(), el.Name())
	if err != nil {
		return nil, errors.WrapTransient(err, "WebSocketSource", "New", "metrics registration")
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		metrics.unregister()
		return nil, err
	}
	return &Source{el: el, metrics: metrics, cfg: cfg}, nil
}

// Update applies new settings on the next Start
func (w *Source) Update(s *settings.Data) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		w.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		w.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
}

// Start dials the endpoint and starts the background reader
func (w *Source) Start(ctx context.Context) error {
	w.mu.Lock()
	cfg := w.cfg
	w.mu.Unlock()

	conn, err := retry.DoWithResult(ctx, retry.Connect(), func() (*websocket.Conn, error) {
		return w.dial(ctx, cfg)
	})
	if err != nil {
		return errors.WrapTransient(err, "WebSocketSource", "Start", "connect to "+cfg.URL)
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = 1024
	}
	readCtx, cancel := context.WithCancel(context.Background())
	messages := make(chan *pad.Buffer, size)

	w.mu.Lock()
	w.conn = conn
	w.cancel = cancel
	w.messages = messages
	w.mu.Unlock()
	w.setConnected(true)

	w.wg.Add(1)
	go w.run(readCtx, cfg, conn, messages)
	w.el.Logger().Info("Connected to WebSocket endpoint", "url", cfg.URL)
	return nil
}

func (w *Source) dial(ctx context.Context, cfg Config) (*websocket.Conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	if cfg.TLS.Enabled() {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.TLS)
		if err != nil {
			return nil, retry.NonRetryable(err)
		}
		dialer.TLSClientConfig = tlsConfig
	}
	header := http.Header{}
	if cfg.BearerTokenEnv != "" {
		token := os.Getenv(cfg.BearerTokenEnv)
		if token == "" {
			return nil, retry.NonRetryable(fmt.Errorf("%w: environment variable %s is empty", errors.ErrMissingConfig, cfg.BearerTokenEnv))
		}
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		w.recordError("connect")
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, retry.NonRetryable(fmt.Errorf("handshake rejected with %s: %w", resp.Status, err))
		}
		return nil, err
	}
	return conn, nil
}

// run reads until ctx is cancelled or the connection is gone for good,
// then closes messages
func (w *Source) run(ctx context.Context, cfg Config, conn *websocket.Conn, messages chan<- *pad.Buffer) {
	defer w.wg.Done()
	defer close(messages)

	for {
		// Closing the connection is what unblocks a pending read.
		release := context.AfterFunc(ctx, func() { _ = conn.Close() })
		w.readLoop(ctx, cfg, conn, messages)
		release()
		w.setConnected(false)
		_ = conn.Close()
		if ctx.Err() != nil || !cfg.Reconnect {
			return
		}

		next, ok := w.reconnect(ctx, cfg)
		if !ok {
			return
		}
		conn = next
		w.mu.Lock()
		w.conn = conn
		w.mu.Unlock()
		w.setConnected(true)
	}
}

// reconnect dials with exponential backoff until it succeeds, ctx ends or
// the retries run out
func (w *Source) reconnect(ctx context.Context, cfg Config) (*websocket.Conn, bool) {
	delay := cfg.InitialInterval
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 1; cfg.MaxRetries == 0 || attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}

		w.reconnects.Add(1)
		if w.metrics != nil {
			w.metrics.reconnects.Inc()
		}
		conn, err := w.dial(ctx, cfg)
		if err == nil {
			w.el.Logger().Info("Reconnected to WebSocket endpoint", "url", cfg.URL, "attempt", attempt)
			return conn, true
		}
		if retry.IsNonRetryable(err) {
			w.el.Logger().Error("Giving up on WebSocket endpoint", "url", cfg.URL, "error", err)
			return nil, false
		}
		w.el.Logger().Warn("Reconnect failed", "url", cfg.URL, "attempt", attempt, "error", err)

		delay *= 2
		if cfg.MaxInterval > 0 && delay > cfg.MaxInterval {
			delay = cfg.MaxInterval
		}
	}
	w.el.Logger().Error("Reconnect attempts exhausted", "url", cfg.URL, "max_retries", cfg.MaxRetries)
	return nil, false
}

func (w *Source) readLoop(ctx context.Context, cfg Config, conn *websocket.Conn, messages chan<- *pad.Buffer) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.el.Logger().Info("WebSocket endpoint closed the connection")
				} else {
					w.recordError("read")
					w.el.Logger().Warn("WebSocket read failed", "error", err)
				}
			}
			return
		}

		buf := w.toBuffer(cfg, conn, data)
		if buf == nil {
			continue
		}
		select {
		case messages <- buf:
		case <-ctx.Done():
			buf.Release()
			return
		}
	}
}

// toBuffer converts one message; nil means nothing to forward
func (w *Source) toBuffer(cfg Config, conn *websocket.Conn, data []byte) *pad.Buffer {
	if !cfg.Envelope {
		w.countReceived("raw")
		buf := pad.NewBuffer(data)
		buf.Metadata().SetString("remote_url", cfg.URL)
		return buf
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		w.recordError("parse")
		w.el.Runtime().Metrics().RecordDrop(w.el.Name(), "invalid")
		return nil
	}
	w.countReceived(env.Type)
	if env.Type != "data" {
		w.ignored.Add(1)
		return nil
	}

	buf := pad.NewBuffer([]byte(env.Payload))
	if env.Timestamp > 0 {
		buf.Timestamp = timestamp.FromUnixMs(env.Timestamp)
	}
	meta := buf.Metadata()
	meta.SetString("remote_url", cfg.URL)
	if env.ID != "" {
		meta.SetString("message_id", env.ID)
		w.ack(conn, env.ID)
	}
	return buf
}

// ack runs on the reader goroutine, the only writer on conn
func (w *Source) ack(conn *websocket.Conn, id string) {
	reply, _ := json.Marshal(Envelope{Type: "ack", ID: id, Timestamp: timestamp.Now()})
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
		w.recordError("ack")
		w.el.Logger().Debug("Failed to acknowledge message", "id", id, "error", err)
	}
}

// Produce returns the next received message. A closed reader is end of
// stream.
func (w *Source) Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn) {
	w.mu.Lock()
	messages := w.messages
	w.mu.Unlock()
	if messages == nil {
		return nil, pad.FlowFlushing
	}

	select {
	case buf, ok := <-messages:
		if !ok {
			if ctx.Err() != nil {
				return nil, pad.FlowFlushing
			}
			return nil, pad.FlowEOS
		}
		return buf, pad.FlowOK
	case <-ctx.Done():
		return nil, pad.FlowFlushing
	}
}

// Stop closes the connection and waits for the reader
func (w *Source) Stop() {
	w.mu.Lock()
	cancel, conn := w.cancel, w.conn
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	w.conn = nil
	for buf := range w.messages {
		buf.Release()
	}
	w.messages = nil
	w.mu.Unlock()
}

// Stats returns received messages, ignored envelopes and reconnect
// attempts
func (w *Source) Stats() (received, ignored, reconnects int64) {
	return w.received.Load(), w.ignored.Load(), w.reconnects.Load()
}

// Destroy stops the reader and unregisters the metrics
func (w *Source) Destroy() {
	w.Stop()
	w.metrics.unregister()
}

func (w *Source) countReceived(kind string) {
	w.received.Add(1)
	if w.metrics != nil {
		w.metrics.messagesReceived.WithLabelValues(kind).Inc()
	}
}

func (w *Source) setConnected(up bool) {
	if w.metrics == nil {
		return
	}
	if up {
		w.metrics.connectionsActive.Set(1)
	} else {
		w.metrics.connectionsActive.Set(0)
	}
}

func (w *Source) recordError(kind string) {
	if w.metrics != nil {
		w.metrics.errors.WithLabelValues(kind).Inc()
	}
	w.el.Runtime().Metrics().RecordError(w.el.Name(), kind)
}
