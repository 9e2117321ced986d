package udp

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "udp_source"

// socketBufferSize is the OS receive buffer requested for the socket
const socketBufferSize = 2 * 1024 * 1024

// Config holds the listener settings
type Config struct {
	Bind          string `json:"bind"`
	BufferSize    int    `json:"buffer_size"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`
}

// Metrics holds Prometheus metrics for one udp_source element
type Metrics struct {
	registry        *metric.MetricsRegistry
	owner           string
	packetsReceived prometheus.Counter
	bytesReceived   prometheus.Counter
	socketErrors    prometheus.Counter
}

// newMetrics creates and registers the element metrics. A nil registry
// yields nil metrics.
func newMetrics(registry *metric.MetricsRegistry, name string) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}
	labels := prometheus.Labels{"element": name}
	m := &Metrics{
		registry: registry,
		owner:    "udp_source:" + name,
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "udp",
			Name:        "packets_received_total",
			Help:        "Total UDP datagrams received",
			ConstLabels: labels,
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "udp",
			Name:        "bytes_received_total",
			Help:        "Total bytes received from UDP",
			ConstLabels: labels,
		}),
		socketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ols",
			Subsystem:   "udp",
			Name:        "socket_errors_total",
			Help:        "Socket read errors other than timeouts",
			ConstLabels: labels,
		}),
	}

	if err := registry.RegisterCounter(m.owner, "packets_received_total", m.packetsReceived); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(m.owner, "bytes_received_total", m.bytesReceived); err != nil {
		registry.Unregister(m.owner, "packets_received_total")
		return nil, err
	}
	if err := registry.RegisterCounter(m.owner, "socket_errors_total", m.socketErrors); err != nil {
		registry.Unregister(m.owner, "packets_received_total")
		registry.Unregister(m.owner, "bytes_received_total")
		return nil, err
	}
	return m, nil
}

func (m *Metrics) unregister() {
	if m != nil {
		m.registry.UnregisterOwner(m.owner)
	}
}

// Source is the udp_source instance
type Source struct {
	el      *element.Element
	metrics *Metrics

	mu          sync.Mutex
	cfg         Config
	conn        *net.UDPConn
	retryConfig retry.Config

	// read buffer, owned by the production task
	buf []byte
}

// Type returns the udp_source descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindSource,
		Name:     "UDP Listener",
		New:      newSource,
		Fill: func(s *settings.Data) {
			s.SetDefaultString("bind", "0.0.0.0:5140")
			s.SetDefaultInt("buffer_size", 65536)
			s.SetDefaultInt("read_timeout_ms", 100)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("bind", "Listen address (host:port)", properties.TextDefault)
			props.AddInt("buffer_size", "Maximum datagram size", 512, 65536, 512).SetSuffix(" bytes")
			props.AddInt("read_timeout_ms", "Read deadline per iteration", 10, math.MaxInt16, 10).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds udp_source to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newSource(s *settings.Data, el *element.Element) (element.Instance, error) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "UDPSource", "New", "decode settings")
	}
	if cfg.Bind == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: bind", errors.ErrMissingConfig), "UDPSource", "New", "validate settings")
	}

	metrics, err := newMetrics(el.Runtime().MetricsRegistry(), el.Name())
	if err != nil {
		return nil, errors.WrapTransient(err, "UDPSource", "New", "metrics registration")
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		metrics.unregister()
		return nil, err
	}

	return &Source{
		el:      el,
		metrics: metrics,
		cfg:     cfg,
		retryConfig: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
	}, nil
}

// Update applies new settings. The bind address takes effect on the next
// Start.
func (u *Source) Update(s *settings.Data) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		u.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	u.mu.Lock()
	u.cfg = cfg
	u.mu.Unlock()
}

// Start binds the socket, retrying transient failures
func (u *Source) Start(ctx context.Context) error {
	u.mu.Lock()
	cfg := u.cfg
	u.mu.Unlock()

	conn, err := retry.DoWithResult(ctx, u.retryConfig, func() (*net.UDPConn, error) {
		return u.bindSocket(cfg.Bind)
	})
	if err != nil {
		return errors.WrapTransient(err, "UDPSource", "Start", "socket binding")
	}

	size := cfg.BufferSize
	if size <= 0 || size > 65536 {
		size = 65536
	}
	u.mu.Lock()
	u.conn = conn
	u.mu.Unlock()
	u.buf = make([]byte, size)
	u.el.Logger().Info("Listening for datagrams", "addr", conn.LocalAddr().String())
	return nil
}

// bindSocket creates and binds the UDP socket
func (u *Source) bindSocket(bind string) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", bind)
	if err != nil {
		return nil, retry.NonRetryable(fmt.Errorf("resolve UDP address %s: %w", bind, err))
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", bind, err)
	}

	// Some systems cap the buffer size; the default still works.
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		u.el.Logger().Warn("Could not set UDP buffer size", "buffer_size", socketBufferSize, "error", err)
	}
	return conn, nil
}

// Stop closes the socket
func (u *Source) Stop() {
	u.mu.Lock()
	conn := u.conn
	u.conn = nil
	u.mu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			u.el.Logger().Warn("Failed to close UDP socket", "error", err)
		}
	}
}

// LocalAddr returns the bound address while the element runs, or nil
func (u *Source) LocalAddr() net.Addr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Produce reads one datagram. A read timeout produces nothing so the
// production loop can observe Stop.
func (u *Source) Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn) {
	u.mu.Lock()
	conn, timeout := u.conn, time.Duration(u.cfg.ReadTimeoutMS)*time.Millisecond
	u.mu.Unlock()
	if conn == nil {
		return nil, pad.FlowFlushing
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	n, remote, err := conn.ReadFromUDP(u.buf)
	if err != nil {
		var netErr net.Error
		if stderrors.As(err, &netErr) && netErr.Timeout() {
			return nil, pad.FlowOK
		}
		if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
			return nil, pad.FlowFlushing
		}
		if u.metrics != nil {
			u.metrics.socketErrors.Inc()
		}
		u.el.Runtime().Metrics().RecordError(u.el.Name(), errors.Classify(err).String())
		if !errors.IsTransient(err) {
			u.el.Logger().Error("UDP read failed, stopping", "error", err)
			return nil, pad.FlowFlushing
		}
		u.el.Logger().Warn("UDP read failed", "error", err)
		return nil, pad.FlowOK
	}

	if u.metrics != nil {
		u.metrics.packetsReceived.Inc()
		u.metrics.bytesReceived.Add(float64(n))
	}

	buf := pad.NewBuffer(append([]byte(nil), u.buf[:n]...))
	if remote != nil {
		buf.Metadata().SetString("remote_addr", remote.String())
	}
	return buf, pad.FlowOK
}

// Destroy closes the socket and unregisters the metrics
func (u *Source) Destroy() {
	u.Stop()
	u.metrics.unregister()
}
