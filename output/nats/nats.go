// Package nats provides the nats_output element, which publishes every
// buffer to a NATS subject.
//
// With jetstream enabled buffers are published to JetStream and the push
// waits for the server ack; a stream covering the subject is created on
// Start when the stream setting is given. Like nats_source, the element
// uses a shared connection when one is supplied at registration and
// otherwise manages its own.
package nats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/message"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "nats_output"

// newClient builds the element's own connection when none is shared
var newClient = natsclient.NewClient

// Publisher is the part of natsclient.Client the output needs
type Publisher interface {
	Publish(subject string, data []byte) error
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// StreamCreator is implemented by publishers able to create JetStream
// streams
type StreamCreator interface {
	EnsureStream(ctx context.Context, name string, subjects ...string) (jetstream.Stream, error)
}

// Config holds the publish settings
type Config struct {
	URL          string `json:"url"`
	Subject      string `json:"subject"`
	Format       string `json:"format"`
	JetStream    bool   `json:"jetstream"`
	Stream       string `json:"stream"`
	AckTimeoutMS int    `json:"ack_timeout_ms"`
}

// Option configures the registered type
type Option func(*options)

type options struct {
	client Publisher
}

// WithClient shares an existing connection between all nats_output
// elements
func WithClient(c Publisher) Option {
	return func(o *options) { o.client = c }
}

// Output is the nats_output instance
type Output struct {
	el     *element.Element
	shared Publisher

	mu      sync.RWMutex
	cfg     Config
	format  message.Format
	pub     Publisher
	own     *natsclient.Client
	ctx     context.Context
	running bool

	published atomic.Int64
	failed    atomic.Int64
}

// Type returns the nats_output descriptor
func Type(opts ...Option) *element.Type {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "NATS Publisher",
		New: func(s *settings.Data, el *element.Element) (element.Instance, error) {
			return newOutput(s, el, o.client)
		},
		Fill: func(s *settings.Data) {
			s.SetDefaultString("url", gonats.DefaultURL)
			s.SetDefaultString("subject", "")
			s.SetDefaultString("format", string(message.FormatRaw))
			s.SetDefaultBool("jetstream", false)
			s.SetDefaultString("stream", "")
			s.SetDefaultInt("ack_timeout_ms", 5000)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("url", "Server URL, used without a shared connection", properties.TextDefault)
			props.AddText("subject", "Subject to publish to", properties.TextDefault)
			formats := props.AddList("format", "Message format", properties.ComboList, properties.ComboFormatString)
			for _, f := range message.Formats {
				formats.AddItemString(string(f), string(f))
			}
			props.AddBool("jetstream", "Publish to JetStream and wait for acks")
			props.AddText("stream", "Stream to create for the subject", properties.TextDefault)
			props.AddInt("ack_timeout_ms", "JetStream ack timeout", 1, 300000, 100).SetSuffix(" ms")
			return props
		},
	}
}

// Register adds nats_output to rt
func Register(rt *element.Runtime, opts ...Option) error {
	return rt.RegisterType(Type(opts...))
}

func newOutput(s *settings.Data, el *element.Element, shared Publisher) (element.Instance, error) {
	n := &Output{el: el, shared: shared}
	if err := n.apply(s); err != nil {
		return nil, err
	}
	if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(pad.ChainFunc(n.chain))); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Output) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "NATSOutput", "apply", "decode settings")
	}
	if cfg.Subject == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: subject", errors.ErrMissingConfig), "NATSOutput", "apply", "validate settings")
	}
	format, err := message.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	if cfg.AckTimeoutMS <= 0 {
		cfg.AckTimeoutMS = 5000
	}
	n.mu.Lock()
	n.cfg, n.format = cfg, format
	n.mu.Unlock()
	return nil
}

// Update applies new settings. The subject and format apply immediately;
// the connection settings on the next Start.
func (n *Output) Update(s *settings.Data) {
	if err := n.apply(s); err != nil {
		n.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start connects when no shared connection exists and creates the
// configured stream
func (n *Output) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	pub := n.shared
	if pub == nil {
		own, err := newClient(n.cfg.URL,
			natsclient.WithLogger(n.el.Logger()),
			natsclient.WithMetrics(n.el.Runtime().Metrics()),
			natsclient.WithName(n.el.Name()),
		)
		if err != nil {
			return err
		}
		if err := own.Connect(ctx); err != nil {
			if cerr := own.Close(context.Background()); cerr != nil {
				n.el.Logger().Warn("Failed to close NATS connection", "error", cerr)
			}
			return err
		}
		n.own, pub = own, own
	}

	if n.cfg.JetStream && n.cfg.Stream != "" {
		sc, ok := pub.(StreamCreator)
		if !ok {
			n.closeOwnLocked()
			return errors.WrapInvalid(errors.ErrInvalidConfig, "NATSOutput", "Start", "connection cannot create streams")
		}
		if _, err := sc.EnsureStream(ctx, n.cfg.Stream, n.cfg.Subject); err != nil {
			n.closeOwnLocked()
			return errors.WrapTransient(err, "NATSOutput", "Start", "ensure stream "+n.cfg.Stream)
		}
	}

	n.pub, n.ctx, n.running = pub, ctx, true
	n.el.Logger().Info("Publishing", "subject", n.cfg.Subject, "jetstream", n.cfg.JetStream)
	return nil
}

// Stop closes an owned connection
func (n *Output) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.running = false
	n.pub = nil
	n.closeOwnLocked()
}

func (n *Output) closeOwnLocked() {
	if n.own == nil {
		return
	}
	if err := n.own.Close(context.Background()); err != nil {
		n.el.Logger().Warn("Failed to close NATS connection", "error", err)
	}
	n.own = nil
}

func (n *Output) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	n.mu.RLock()
	running, pub, cfg, format, ctx := n.running, n.pub, n.cfg, n.format, n.ctx
	n.mu.RUnlock()
	if !running {
		return pad.FlowFlushing
	}

	data, err := message.Encode(format, n.el.Name(), buf)
	if err != nil {
		n.el.Logger().Error("Failed to encode buffer", "error", err)
		return pad.FlowError
	}

	start := time.Now()
	if cfg.JetStream {
		ackCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.AckTimeoutMS)*time.Millisecond)
		err = pub.PublishToStream(ackCtx, cfg.Subject, data)
		cancel()
	} else {
		err = pub.Publish(cfg.Subject, data)
	}
	if err != nil {
		if ctx.Err() != nil {
			return pad.FlowFlushing
		}
		n.failed.Add(1)
		n.el.Runtime().Metrics().RecordError(n.el.Name(), errors.Classify(err).String())
		n.el.Logger().Error("Publish failed", "subject", cfg.Subject, "error", err)
		return pad.FlowError
	}
	n.published.Add(1)
	n.el.Runtime().Metrics().RecordWrite(n.el.Name(), len(data), time.Since(start))
	return pad.FlowOK
}

// Stats returns published and failed message counts
func (n *Output) Stats() (published, failed int64) {
	return n.published.Load(), n.failed.Load()
}

// Destroy implements element.Instance
func (n *Output) Destroy() { n.Stop() }
