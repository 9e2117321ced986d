// Package collect provides the collect_sink element, which keeps the
// buffers it receives in memory.
//
// The sink holds a reference to each stored buffer. With max_items set it
// keeps only the newest max_items buffers and counts the evicted ones as
// drops. EOS is recorded and re-emitted as the element's eos signal.
package collect

import (
	"math"
	"sync"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
)

// TypeID identifies the element type
const TypeID = "collect_sink"

// Config holds the sink settings
type Config struct {
	MaxItems int `json:"max_items"`
}

// Sink is the collect_sink instance
type Sink struct {
	el *element.Element

	mu      sync.Mutex
	max     int
	items   []*pad.Buffer
	dropped int64
	eos     chan struct{}
}

// Type returns the collect_sink descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindOutput,
		Name:     "Collector",
		New:      newSink,
		Fill: func(s *settings.Data) {
			s.SetDefaultInt("max_items", 0)
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddInt("max_items", "Buffers kept, 0 for no limit", 0, math.MaxInt32, 1)
			return props
		},
	}
}

// Register adds collect_sink to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newSink(s *settings.Data, el *element.Element) (element.Instance, error) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "CollectSink", "New", "decode settings")
	}
	c := &Sink{el: el, max: cfg.MaxItems, eos: make(chan struct{})}
	_, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(c.chain)),
		pad.WithEvent(pad.EventFunc(c.event)),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Sink) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	c.mu.Lock()
	c.items = append(c.items, buf.Retain())
	var evicted []*pad.Buffer
	if c.max > 0 && len(c.items) > c.max {
		n := len(c.items) - c.max
		evicted = append(evicted, c.items[:n]...)
		c.items = append([]*pad.Buffer(nil), c.items[n:]...)
		c.dropped += int64(n)
	}
	c.mu.Unlock()

	for _, b := range evicted {
		b.Release()
		c.el.Runtime().Metrics().RecordDrop(c.el.Name(), "max_items")
	}
	return pad.FlowOK
}

func (c *Sink) event(_ *pad.Pad, ev pad.Event) bool {
	switch ev.Type {
	case pad.EventEOS:
		c.mu.Lock()
		select {
		case <-c.eos:
		default:
			close(c.eos)
		}
		c.mu.Unlock()
		c.el.Signals().Emit(element.SignalEOS, signal.NewCallData().Set("element", c.el))
	case pad.EventStreamStart:
		c.mu.Lock()
		select {
		case <-c.eos:
			c.eos = make(chan struct{})
		default:
		}
		c.mu.Unlock()
	}
	return true
}

// Update applies a new max_items. Shrinking evicts the oldest buffers on
// the next push.
func (c *Sink) Update(s *settings.Data) {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		c.el.Logger().Warn("Ignoring invalid settings", "error", err)
		return
	}
	c.mu.Lock()
	c.max = cfg.MaxItems
	c.mu.Unlock()
}

// Buffers returns the stored buffers. The sink keeps its references.
func (c *Sink) Buffers() []*pad.Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*pad.Buffer(nil), c.items...)
}

// Strings returns the payloads of the stored buffers
func (c *Sink) Strings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.items))
	for i, b := range c.items {
		out[i] = string(b.Data)
	}
	return out
}

// Len returns the number of stored buffers
func (c *Sink) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dropped returns how many buffers max_items evicted
func (c *Sink) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// EOS is closed once an EOS event arrives. A new stream re-arms it.
func (c *Sink) EOS() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eos
}

// Reset releases every stored buffer
func (c *Sink) Reset() {
	c.mu.Lock()
	items := c.items
	c.items = nil
	c.mu.Unlock()
	for _, b := range items {
		b.Release()
	}
}

// Destroy releases the stored buffers
func (c *Sink) Destroy() { c.Reset() }
