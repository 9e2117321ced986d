package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error values returned by the client
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
	ErrClosed       = stderrors.New("client is closed")
)

// Client manages one NATS connection with a circuit breaker
type Client struct {
	urls    string
	logger  *slog.Logger
	metrics *metric.Metrics

	status          atomic.Int32
	failures        atomic.Int32
	circuitFailures atomic.Int32
	backoff         atomic.Int64
	closed          atomic.Bool

	circuitThreshold int32
	maxBackoff       time.Duration
	connectRetry     retry.Config

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	username   string
	password   string
	token      string
	credsFile  string
	clientName string

	onDisconnect func(error)
	onReconnect  func()

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription
}

// NewClient creates a disconnected client. urls may be a comma separated
// list of servers.
func NewClient(urls string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(urls) == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "validate server urls")
	}

	c := &Client{
		urls:             urls,
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     10 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
		connectRetry:     retry.Connect(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	c.backoff.Store(int64(time.Second))
	c.setStatus(StatusDisconnected)

	return c, nil
}

// URL returns the configured server list
func (c *Client) URL() string {
	return c.urls
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(s == StatusConnected)
	}
}

// IsHealthy reports whether the connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the failure count since the last success
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

// Backoff returns the delay applied the next time the circuit opens
func (c *Client) Backoff() time.Duration {
	return time.Duration(c.backoff.Load())
}

func (c *Client) recordFailure() {
	c.failures.Add(1)
	if c.circuitFailures.Add(1) < c.circuitThreshold {
		return
	}

	current := c.Status()
	if current == StatusCircuitOpen {
		return
	}
	if !c.status.CompareAndSwap(int32(current), int32(StatusCircuitOpen)) {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
	}

	wait := c.Backoff()
	next := wait * 2
	if next > c.maxBackoff {
		next = c.maxBackoff
	}
	c.backoff.Store(int64(next))
	c.circuitFailures.Store(0)

	c.logger.Warn("NATS circuit breaker opened", "failures", c.failures.Load(), "backoff", wait)
	time.AfterFunc(wait, c.halfOpen)
}

func (c *Client) halfOpen() {
	if c.status.CompareAndSwap(int32(StatusCircuitOpen), int32(StatusDisconnected)) {
		c.logger.Debug("NATS circuit breaker half-open")
	}
}

func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.circuitFailures.Store(0)
	c.backoff.Store(int64(time.Second))
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.username != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.credsFile != "" {
		opts = append(opts, nats.UserCredentials(c.credsFile))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	return opts
}

// Closed reports whether Close has been called
func (c *Client) Closed() bool { return c.closed.Load() }

// Connect dials the servers, retrying with backoff until ctx ends or the
// attempts run out.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapInvalid(ErrClosed, "Client", "Connect", "check client state")
	}
	if c.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}
	if c.IsHealthy() {
		return nil
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "urls", c.urls)

	conn, err := retry.DoWithResult(ctx, c.connectRetry, func() (*nats.Conn, error) {
		if c.Status() == StatusCircuitOpen {
			return nil, retry.NonRetryable(ErrCircuitOpen)
		}
		conn, err := nats.Connect(c.urls, c.connectionOptions()...)
		if err != nil {
			c.recordFailure()
			c.logger.Debug("NATS connect attempt failed", "error", err)
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		if c.Status() == StatusConnecting {
			c.setStatus(StatusDisconnected)
		}
		if stderrors.Is(err, ErrCircuitOpen) {
			return ErrCircuitOpen
		}
		return errors.WrapTransient(err, "Client", "Connect", "establish connection")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		c.logger.Warn("JetStream unavailable", "error", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.js = js
	c.mu.Unlock()

	c.resetCircuit()
	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "server", conn.ConnectedUrlRedacted())
	return nil
}

// Close drains the connection, bounded by ctx and the drain timeout.
// Calling it more than once is a no-op.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	conn := c.conn
	subs := c.subs
	c.conn = nil
	c.js = nil
	c.subs = nil
	c.password = ""
	c.token = ""
	c.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
		}
	}

	if conn != nil {
		drained := make(chan error, 1)
		go func() { drained <- conn.Drain() }()

		timer := time.NewTimer(c.drainTimeout)
		defer timer.Stop()

		select {
		case err := <-drained:
			if err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
			}
		case <-timer.C:
			errs = append(errs, errors.WrapTransient(errors.ErrConnectionTimeout, "Client", "Close", "drain connection"))
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "drain connection"))
		}
		conn.Close()
	}

	c.setStatus(StatusDisconnected)
	return stderrors.Join(errs...)
}

func (c *Client) connection() (*nats.Conn, error) {
	if c.Status() == StatusCircuitOpen {
		return nil, ErrCircuitOpen
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// RTT returns the round-trip time to the server
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.connection()
	if err != nil {
		return 0, err
	}
	return conn.RTT()
}

// Publish sends data on subject using core NATS
func (c *Client) Publish(subject string, data []byte) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := conn.Publish(subject, data); err != nil {
		c.recordFailure()
		return errors.WrapTransient(err, "Client", "Publish", "publish message")
	}
	return nil
}

// Subscribe registers handler for subject. A non-empty queue joins a queue
// group. The returned function unsubscribes.
func (c *Client) Subscribe(subject, queue string, handler nats.MsgHandler) (func() error, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	var sub *nats.Subscription
	if queue != "" {
		sub, err = conn.QueueSubscribe(subject, queue, handler)
	} else {
		sub, err = conn.Subscribe(subject, handler)
	}
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Subscribe", "subscribe to "+subject)
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	return func() error {
		c.mu.Lock()
		for i, s := range c.subs {
			if s == sub {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			return err
		}
		return nil
	}, nil
}

// JetStream returns the JetStream context of the current connection
func (c *Client) JetStream() (jetstream.JetStream, error) {
	if _, err := c.connection(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "Client", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

// EnsureStream creates the stream named name covering subjects, or returns
// the existing one.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects ...string) (jetstream.Stream, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
	})
	if err != nil {
		if isAlreadyExistsError(err) {
			return js.Stream(ctx, name)
		}
		c.recordFailure()
		return nil, errors.WrapTransient(err, "Client", "EnsureStream", "create stream "+name)
	}
	return stream, nil
}

// PublishToStream publishes to a JetStream subject and waits for the ack
func (c *Client) PublishToStream(ctx context.Context, subject string, data []byte) error {
	js, err := c.JetStream()
	if err != nil {
		return err
	}
	if _, err := js.Publish(ctx, subject, data); err != nil {
		c.recordFailure()
		return errors.WrapTransient(err, "Client", "PublishToStream", "publish to "+subject)
	}
	c.circuitFailures.Store(0)
	return nil
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("NATS disconnected", "error", err)
	if c.onDisconnect != nil {
		go c.onDisconnect(err)
	}
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.resetCircuit()
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}
	c.logger.Info("NATS reconnected", "server", conn.ConnectedUrlRedacted())
	if c.onReconnect != nil {
		go c.onReconnect()
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
}

func (c *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub != nil {
		c.logger.Error("NATS subscription error", "subject", sub.Subject, "error", err)
		return
	}
	c.logger.Error("NATS error", "error", err)
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "already in use") || strings.Contains(msg, "already exists")
}
