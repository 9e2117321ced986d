package websocket

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/tlsutil"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "websocket_output"

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config holds configuration for the WebSocket server
type Config struct {
	Listen         string               `json:"listen"`
	Path           string               `json:"path"`
	Format         string               `json:"format"`
	SendBuffer     int                  `json:"send_buffer"`
	PingIntervalMS int                  `json:"ping_interval_ms"`
	TLS            tlsutil.ServerConfig `json:"tls"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: listen", errors.ErrMissingConfig), "Config", "Validate", "listen is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "path must start with /")
	}
	if c.SendBuffer <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "send_buffer must be positive")
	}
	if c.PingIntervalMS < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "ping_interval_ms cannot be negative")
	}
	if _, err := message.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}

// Output serves a WebSocket endpoint and broadcasts every buffer to the
// connected clients
type Output struct {
	el *element.Element

	cfgMu  sync.RWMutex
	cfg    Config
	format message.Format

	// WebSocket server
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*clientInfo
	clientMu sync.RWMutex

	// Lifecycle management
	lifecycleMu sync.Mutex
	running     atomic.Bool
	shutdown    chan struct{}
	wg          sync.WaitGroup

	messagesSent atomic.Int64
	bytesSent    atomic.Int64
	dropped      atomic.Int64

	metrics *Metrics
}

// clientInfo holds the state of one connected client
type clientInfo struct {
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	lastPong    atomic.Value // time.Time
	closeOnce   sync.Once
	done        chan struct{}
}

// Metrics holds Prometheus metrics for one websocket_output element
type Metrics struct {
	owner              string
	clientsConnected   prometheus.Gauge
	connectionTotal    prometheus.Counter
	disconnectionTotal *prometheus.CounterVec
	messagesSent       prometheus.Counter
	slowClientDrops    prometheus.Counter
}

// newMetrics creates and registers the server metrics; nil registry means no metrics
func newMetrics(registry *metric.MetricsRegistry, name string) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"element": name}
	m := &Metrics{
		owner: "websocket_output:" + name,
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ols",
			Subsystem:   "websocket",
			Name:        "clients_connected",
			Help:        "Number of currently connected clients",
			ConstLabels: labels,
		}),
		connectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "websocket",
			Name:        "client_connections_total",
			Help:        "Total client connections (including disconnected)",
			ConstLabels: labels,
		}),
		disconnectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "websocket",
			Name:        "client_disconnections_total",
			Help:        "Total client disconnections",
			ConstLabels: labels,
		}, []string{"disconnect_reason"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "websocket",
			Name:        "messages_sent_total",
			Help:        "Total messages written to clients",
			ConstLabels: labels,
		}),
		slowClientDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "websocket",
			Name:        "slow_client_drops_total",
			Help:        "Messages dropped because a client send buffer was full",
			ConstLabels: labels,
		}),
	}

	register := []func() error{
		func() error { return registry.RegisterGauge(m.owner, "clients_connected", m.clientsConnected) },
		func() error { return registry.RegisterCounter(m.owner, "client_connections", m.connectionTotal) },
		func() error { return registry.RegisterCounterVec(m.owner, "client_disconnections", m.disconnectionTotal) },
		func() error { return registry.RegisterCounter(m.owner, "messages_sent", m.messagesSent) },
		func() error { return registry.RegisterCounter(m.owner, "slow_client_drops", m.slowClientDrops) },
	}
	for _, fn := range register {
		if err := fn(); err != nil {
			registry.UnregisterOwner(m.owner)
			return nil, err
		}
	}
	return m, nil
}

// Type returns the websocket_output descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "WebSocket Server",
		New:      newOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("listen", "127.0.0.1:8090")
			s.SetDefaultString("path", "/ws")
			s.SetDefaultString("format", string(message.FormatRecord))
			s.SetDefaultInt("send_buffer", 64)
			s.SetDefaultInt("ping_interval_ms", 30000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("listen", "Listen address", properties.TextDefault)
			props.AddText("path", "Endpoint path", properties.TextDefault)
			formats := props.AddList("format", "Message format", properties.ComboList, properties.ComboFormatString)
			for _, f := range message.Formats {
				formats.AddItemString(string(f), string(f))
			}
			props.AddInt("send_buffer", "Messages queued per client", 1, 65536, 1)
			props.AddInt("ping_interval_ms", "Ping interval, 0 disables", 0, 3600000, 1000).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds websocket_output to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newOutput(s *settings.Data, el *element.Element) (element.Instance, error) {
	w := &Output{
		el:      el,
		clients: make(map[*websocket.Conn]*clientInfo),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if err := w.apply(s); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(w.chain))); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "WebSocketOutput", "apply", "decode settings")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	format, _ := message.ParseFormat(cfg.Format)
	w.cfgMu.Lock()
	w.cfg, w.format = cfg, format
	w.cfgMu.Unlock()
	return nil
}

// Update applies new settings. The format applies immediately; the server
// settings on the next Start.
func (w *Output) Update(s *settings.Data) {
	if err := w.apply(s); err != nil {
		w.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

func (w *Output) config() (Config, message.Format) {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.cfg, w.format
}

// Start binds the listener and serves the endpoint
func (w *Output) Start(_ context.Context) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return nil
	}
	cfg, _ := w.config()

	tlsConfig, err := tlsutil.LoadServerTLSConfig(cfg.TLS)
	if err != nil {
		return errors.WrapFatal(err, "WebSocketOutput", "Start", "load TLS config")
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.WrapTransient(err, "WebSocketOutput", "Start", "listen on "+cfg.Listen)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	metrics, err := newMetrics(w.el.Runtime().MetricsRegistry(), w.el.Name())
	if err != nil {
		_ = ln.Close()
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, w.handleWebSocket)
	w.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	w.listener = ln
	w.metrics = metrics
	w.shutdown = make(chan struct{})
	w.running.Store(true)

	w.wg.Add(1)
	go w.runServer(w.server, ln)
	if cfg.PingIntervalMS > 0 {
		w.wg.Add(1)
		go w.maintainClients(time.Duration(cfg.PingIntervalMS) * time.Millisecond)
	}

	w.el.Logger().Info("WebSocket server listening", "addr", ln.Addr().String(), "path", cfg.Path, "tls", tlsConfig != nil)
	return nil
}

// Stop shuts the server down and disconnects every client
func (w *Output) Stop() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running.Swap(false) {
		return
	}
	close(w.shutdown)

	// Shutdown does not track hijacked connections; clients are closed below
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := w.server.Shutdown(ctx); err != nil {
		w.el.Logger().Warn("HTTP server shutdown error", "error", err)
	}
	cancel()

	w.closeAllClients("shutdown")
	w.wg.Wait()

	if w.metrics != nil {
		w.el.Runtime().MetricsRegistry().UnregisterOwner(w.metrics.owner)
		w.metrics = nil
	}
	w.server, w.listener = nil, nil
}

// Addr returns the bound listen address, or nil when stopped
func (w *Output) Addr() net.Addr {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()
	if w.listener == nil {
		return nil
	}
	return w.listener.Addr()
}

// Clients returns the number of connected clients
func (w *Output) Clients() int {
	w.clientMu.RLock()
	defer w.clientMu.RUnlock()
	return len(w.clients)
}

// Stats returns sent message, sent byte and dropped message counts
func (w *Output) Stats() (sent, bytes, dropped int64) {
	return w.messagesSent.Load(), w.bytesSent.Load(), w.dropped.Load()
}

// Destroy implements element.Instance
func (w *Output) Destroy() { w.Stop() }

func (w *Output) runServer(server *http.Server, ln net.Listener) {
	defer w.wg.Done()
	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		w.el.Logger().Error("HTTP server failed", "error", err)
		w.el.Runtime().Metrics().RecordError(w.el.Name(), errors.ErrorTransient.String())
	}
}

// handleWebSocket upgrades a request and registers the client
func (w *Output) handleWebSocket(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.el.Logger().Debug("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	cfg, _ := w.config()
	info := &clientInfo{
		conn:        conn,
		send:        make(chan []byte, cfg.SendBuffer),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
	info.lastPong.Store(time.Now())

	w.clientMu.Lock()
	if !w.running.Load() {
		w.clientMu.Unlock()
		_ = conn.Close()
		return
	}
	w.clients[conn] = info
	count := len(w.clients)
	m := w.metrics
	w.wg.Add(2)
	w.clientMu.Unlock()

	if m != nil {
		m.connectionTotal.Inc()
		m.clientsConnected.Set(float64(count))
	}
	w.el.Logger().Debug("Client connected", "remote", conn.RemoteAddr().String(), "clients", count)

	go w.writePump(info)
	go w.readPump(info)
}

// readPump consumes control frames until the client goes away
func (w *Output) readPump(info *clientInfo) {
	defer w.wg.Done()
	info.conn.SetPongHandler(func(string) error {
		info.lastPong.Store(time.Now())
		return nil
	})
	for {
		if _, _, err := info.conn.ReadMessage(); err != nil {
			w.removeClient(info, "client_closed")
			return
		}
	}
}

// writePump is the only writer of data frames for a client
func (w *Output) writePump(info *clientInfo) {
	defer w.wg.Done()
	for {
		select {
		case <-info.done:
			return
		case data := <-info.send:
			_ = info.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := info.conn.WriteMessage(w.messageType(), data); err != nil {
				w.removeClient(info, "write_error")
				return
			}
			w.messagesSent.Add(1)
			w.bytesSent.Add(int64(len(data)))
			if m := w.metrics; m != nil {
				m.messagesSent.Inc()
			}
		}
	}
}

func (w *Output) messageType() int {
	if _, format := w.config(); format == message.FormatRaw {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (w *Output) removeClient(info *clientInfo, reason string) {
	info.closeOnce.Do(func() {
		close(info.done)

		w.clientMu.Lock()
		delete(w.clients, info.conn)
		count := len(w.clients)
		w.clientMu.Unlock()

		if m := w.metrics; m != nil {
			if reason == "client_closed" && time.Since(info.connectedAt) < 5*time.Second {
				reason = "early_disconnect"
			}
			m.disconnectionTotal.WithLabelValues(reason).Inc()
			m.clientsConnected.Set(float64(count))
		}
		_ = info.conn.Close()
	})
}

func (w *Output) closeAllClients(reason string) {
	w.clientMu.RLock()
	infos := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		infos = append(infos, info)
	}
	w.clientMu.RUnlock()

	for _, info := range infos {
		_ = info.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
			time.Now().Add(time.Second))
		w.removeClient(info, reason)
	}
}

// broadcast queues data on every client without blocking; clients whose
// queue is full lose the message
func (w *Output) broadcast(data []byte) {
	w.clientMu.RLock()
	defer w.clientMu.RUnlock()

	for _, info := range w.clients {
		select {
		case info.send <- data:
		default:
			w.dropped.Add(1)
			w.el.Runtime().Metrics().RecordDrop(w.el.Name(), "slow_client")
			if m := w.metrics; m != nil {
				m.slowClientDrops.Inc()
			}
		}
	}
}

// maintainClients pings clients and disconnects those that stopped answering
func (w *Output) maintainClients(interval time.Duration) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.pingClients(interval)
		}
	}
}

func (w *Output) pingClients(interval time.Duration) {
	w.clientMu.RLock()
	infos := make([]*clientInfo, 0, len(w.clients))
	for _, info := range w.clients {
		infos = append(infos, info)
	}
	w.clientMu.RUnlock()

	for _, info := range infos {
		if last, ok := info.lastPong.Load().(time.Time); ok && time.Since(last) > 3*interval {
			w.removeClient(info, "ping_timeout")
			continue
		}
		// WriteControl is safe alongside the write pump
		if err := info.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
			w.removeClient(info, "ping_error")
		}
	}
}

func (w *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	if !w.running.Load() {
		return pad.FlowFlushing
	}
	_, format := w.config()

	start := time.Now()
	data, err := message.Encode(format, w.el.Name(), buf)
	if err != nil {
		w.el.Logger().Error("Failed to encode buffer", "error", err)
		return pad.FlowError
	}
	w.broadcast(data)
	w.el.Runtime().Metrics().RecordWrite(w.el.Name(), len(data), time.Since(start))
	return pad.FlowOK
}
