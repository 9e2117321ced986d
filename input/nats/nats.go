// Package nats provides the nats_source element, which subscribes to a
// NATS subject and pushes one buffer per message.
//
// Messages arrive on the NATS client's goroutines and wait in a bounded
// queue until the production loop pushes them; when the queue is full the
// oldest message is dropped. The element uses a shared connection when one
// is supplied at registration, otherwise it connects to its url setting on
// Start and disconnects on Stop.
package nats

import (
	"context"
	"fmt"
	"math"
	"sync"

	gonats "github.com/nats-io/nats.go"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/natsclient"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/buffer"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "nats_source"

// newClient builds the element's own connection when none is shared
var newClient = natsclient.NewClient

// Subscriber is the part of natsclient.Client the source needs
type Subscriber interface {
	Subscribe(subject, queue string, handler gonats.MsgHandler) (func() error, error)
}

// Config holds the subscription settings
type Config struct {
	URL        string `json:"url"`
	Subject    string `json:"subject"`
	QueueGroup string `json:"queue_group"`
	BufferSize int    `json:"buffer_size"`
}

// Option configures the registered type
type Option func(*options)

type options struct {
	client Subscriber
}

// WithClient shares an existing connection between all nats_source
// elements
func WithClient(c Subscriber) Option {
	return func(o *options) { o.client = c }
}

// Source is the nats_source instance
type Source struct {
	el     *element.Element
	shared Subscriber

	mu          sync.Mutex
	cfg         Config
	own         *natsclient.Client
	unsubscribe func() error
	queue       buffer.Buffer[*gonats.Msg]
}

// Type returns the nats_source descriptor
func Type(opts ...Option) *element.Type {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindSource,
		Name:     "NATS Subscriber",
		New: func(s *settings.Data, el *element.Element) (element.Instance, error) {
			return newSource(s, el, o.client)
		},
		Fill: func(s *settings.Data) {
			s.SetDefaultString("url", gonats.DefaultURL)
			s.SetDefaultString("subject", "")
			s.SetDefaultString("queue_group", "")
			s.SetDefaultInt("buffer_size", 1024)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddText("url", "Server URL, used without a shared connection", properties.TextDefault)
			props.AddText("subject", "Subject to subscribe to", properties.TextDefault)
			props.AddText("queue_group", "Queue group, empty for a plain subscription", properties.TextDefault)
			props.AddInt("buffer_size", "Messages held between deliveries", 1, math.MaxInt32, 1)
			return props
		},
	}
}

// Register adds nats_source to rt
func Register(rt *element.Runtime, opts ...Option) error {
	return rt.RegisterType(Type(opts...))
}

func newSource(s *settings.Data, el *element.Element, shared Subscriber) (element.Instance, error) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "NATSSource", "New", "decode settings")
	}
	if cfg.Subject == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: subject", errors.ErrMissingConfig), "NATSSource", "New", "validate settings")
	}
	if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
		return nil, err
	}
	return &Source{el: el, shared: shared, cfg: cfg}, nil
}

// Update applies new settings. They take effect on the next Start.
func (n *Source) Update(s *settings.Data) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil || cfg.Subject == "" {
		n.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	n.mu.Lock()
	n.cfg = cfg
	n.mu.Unlock()
}

// Start connects when no shared connection exists and subscribes
func (n *Source) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	queue, err := buffer.NewCircularBuffer[*gonats.Msg](n.cfg.BufferSize,
		buffer.WithOverflowPolicy[*gonats.Msg](buffer.DropOldest),
		buffer.WithDropCallback[*gonats.Msg](func(*gonats.Msg) {
			n.el.Runtime().Metrics().RecordDrop(n.el.Name(), "overflow")
		}),
	)
	if err != nil {
		return err
	}

	sub := n.shared
	if sub == nil {
		own, err := newClient(n.cfg.URL,
			natsclient.WithLogger(n.el.Logger()),
			natsclient.WithMetrics(n.el.Runtime().Metrics()),
			natsclient.WithName(n.el.Name()),
		)
		if err != nil {
			_ = queue.Close()
			return err
		}
		if err := own.Connect(ctx); err != nil {
			_ = queue.Close()
			if cerr := own.Close(context.Background()); cerr != nil {
				n.el.Logger().Warn("Failed to close NATS connection", "error", cerr)
			}
			return err
		}
		n.own, sub = own, own
	}

	unsub, err := sub.Subscribe(n.cfg.Subject, n.cfg.QueueGroup, func(msg *gonats.Msg) {
		// Drop-oldest writes never wait.
		_ = queue.Write(context.Background(), msg)
	})
	if err != nil {
		_ = queue.Close()
		n.closeOwnLocked()
		return errors.WrapTransient(err, "NATSSource", "Start", "subscribe to "+n.cfg.Subject)
	}
	n.queue, n.unsubscribe = queue, unsub
	n.el.Logger().Info("Subscribed", "subject", n.cfg.Subject, "queue_group", n.cfg.QueueGroup)
	return nil
}

// Stop unsubscribes and drops undelivered messages
func (n *Source) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.unsubscribe != nil {
		if err := n.unsubscribe(); err != nil {
			n.el.Logger().Warn("Failed to unsubscribe", "error", err)
		}
		n.unsubscribe = nil
	}
	if n.queue != nil {
		_ = n.queue.Close()
		n.queue = nil
	}
	n.closeOwnLocked()
}

func (n *Source) closeOwnLocked() {
	if n.own == nil {
		return
	}
	if err := n.own.Close(context.Background()); err != nil {
		n.el.Logger().Warn("Failed to close NATS connection", "error", err)
	}
	n.own = nil
}

// Produce waits for the next message
func (n *Source) Produce(ctx context.Context) (*pad.Buffer, pad.FlowReturn) {
	n.mu.Lock()
	queue := n.queue
	n.mu.Unlock()
	if queue == nil {
		return nil, pad.FlowFlushing
	}

	msg, err := queue.ReadWait(ctx)
	if err != nil {
		return nil, pad.FlowFlushing
	}
	buf := pad.NewBuffer(msg.Data)
	buf.Metadata().SetString("subject", msg.Subject)
	if msg.Reply != "" {
		buf.Metadata().SetString("reply", msg.Reply)
	}
	return buf, pad.FlowOK
}

// Pending returns the number of undelivered messages
func (n *Source) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.queue == nil {
		return 0
	}
	return n.queue.Size()
}

// Destroy implements element.Instance
func (n *Source) Destroy() { n.Stop() }
