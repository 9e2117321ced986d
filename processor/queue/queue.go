// Package queue provides the queue element, a bounded buffer that decouples
// its upstream from its downstream with a task of its own.
//
// Buffers pushed into the sink pad are stored in a circular buffer and
// pushed out of the src pad by the element's task. The overflow policy
// decides what a push into a full queue does:
//
//	block        the pusher waits for free space (default)
//	drop_oldest  the oldest queued buffer is discarded
//	drop_newest  the pushed buffer is discarded
//
// EOS is forwarded after every queued buffer has been pushed.
package queue

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/buffer"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/task"
)

// TypeID identifies the element type
const TypeID = "queue"

// Config holds the queue settings
type Config struct {
	Capacity int    `json:"capacity"`
	Policy   string `json:"policy"`
}

// Queue is the queue instance
type Queue struct {
	el  *element.Element
	src *pad.Pad

	mu     sync.Mutex
	cfg    Config
	policy buffer.OverflowPolicy
	buf    buffer.Buffer[*pad.Buffer]
	stats  *buffer.Statistics
	ctx    context.Context
	eos    atomic.Bool
}

// Type returns the queue descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "Queue",
		New:      newQueue,
		Fill: func(s *settings.Data) {
			s.SetDefaultInt("capacity", 1000)
			s.SetDefaultString("policy", buffer.Block.String())
		},
		Props: func() *properties.Properties {
			props := properties.New()
			props.AddInt("capacity", "Maximum queued buffers", 1, math.MaxInt32, 1)
			policy := props.AddList("policy", "Behavior when full", properties.ComboList, properties.ComboFormatString)
			policy.AddItemString("Block upstream", buffer.Block.String())
			policy.AddItemString("Drop oldest", buffer.DropOldest.String())
			policy.AddItemString("Drop newest", buffer.DropNewest.String())
			return props
		},
	}
}

// Register adds queue to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newQueue(s *settings.Data, el *element.Element) (element.Instance, error) {
	q := &Queue{el: el, ctx: context.Background()}
	if err := q.apply(s); err != nil {
		return nil, err
	}

	if _, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(q.chain)),
		pad.WithEvent(pad.EventFunc(q.event)),
	); err != nil {
		return nil, err
	}
	src, err := el.NewPad("src", pad.DirectionSrc)
	if err != nil {
		return nil, err
	}
	q.src = src
	el.NewTask(task.RunnerFunc(q.loop))
	return q, nil
}

func (q *Queue) apply(s *settings.Data) error {
	var cfg Config
	if err := s.Decode(&cfg); err != nil {
		return errors.Wrap(err, "Queue", "apply", "decode settings")
	}
	policy, err := buffer.ParsePolicy(cfg.Policy)
	if err != nil {
		return err
	}
	q.mu.Lock()
	q.cfg, q.policy = cfg, policy
	q.mu.Unlock()
	return nil
}

// Update applies new settings. Capacity and policy take effect on the next
// Start.
func (q *Queue) Update(s *settings.Data) {
	if err := q.apply(s); err != nil {
		q.el.Logger().Warn("Ignoring invalid settings", "error", err)
	}
}

// Start creates an empty queue for the run
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	opts := []buffer.Option[*pad.Buffer]{
		buffer.WithOverflowPolicy[*pad.Buffer](q.policy),
		buffer.WithDropCallback[*pad.Buffer](q.dropped),
	}
	if reg := q.el.Runtime().MetricsRegistry(); reg != nil {
		opts = append(opts, buffer.WithMetrics[*pad.Buffer](reg, q.el.Name()))
	}
	buf, err := buffer.NewCircularBuffer(q.cfg.Capacity, opts...)
	if err != nil {
		return err
	}
	q.buf, q.stats, q.ctx = buf, buf.Stats(), ctx
	q.eos.Store(false)
	return nil
}

// Stop discards whatever is still queued
func (q *Queue) Stop() {
	q.mu.Lock()
	buf := q.buf
	q.buf = nil
	q.mu.Unlock()
	if buf != nil {
		_ = buf.Close()
		buf.Clear()
	}
}

// Activate lets pushes through again
func (q *Queue) Activate() {
	if buf := q.buffer(); buf != nil {
		buf.SetFlushing(false)
	}
}

// Deactivate wakes every pusher and the task; pushes return FLUSHING
func (q *Queue) Deactivate() {
	if buf := q.buffer(); buf != nil {
		buf.SetFlushing(true)
	}
}

func (q *Queue) buffer() buffer.Buffer[*pad.Buffer] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf
}

func (q *Queue) dropped(b *pad.Buffer) {
	b.Release()
	q.el.Runtime().Metrics().RecordDrop(q.el.Name(), "overflow")
}

func (q *Queue) chain(_ *pad.Pad, b *pad.Buffer) pad.FlowReturn {
	buf := q.buffer()
	if buf == nil {
		return pad.FlowFlushing
	}
	if q.eos.Load() {
		return pad.FlowEOS
	}
	if err := buf.Write(context.Background(), b.Retain()); err != nil {
		b.Release()
		return pad.FlowFlushing
	}
	return pad.FlowOK
}

func (q *Queue) event(_ *pad.Pad, ev pad.Event) bool {
	switch ev.Type {
	case pad.EventEOS:
		// Closing lets the task drain what is queued before it sees EOS.
		q.eos.Store(true)
		if buf := q.buffer(); buf != nil {
			_ = buf.Close()
		}
		return true
	case pad.EventFlushStart:
		if buf := q.buffer(); buf != nil {
			buf.SetFlushing(true)
			buf.Clear()
		}
	case pad.EventFlushStop:
		if buf := q.buffer(); buf != nil {
			buf.SetFlushing(false)
		}
	case pad.EventStreamStart:
		return true
	}
	return q.src.PushEvent(ev)
}

// loop is one task iteration: wait for a buffer and push it downstream
func (q *Queue) loop() {
	q.mu.Lock()
	buf, ctx := q.buf, q.ctx
	q.mu.Unlock()
	if buf == nil {
		q.el.HandleFlow(pad.FlowFlushing)
		return
	}

	b, err := buf.ReadWait(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Stopping; the task is joined next.
		case q.eos.Load() && buf.IsEmpty():
			q.el.HandleFlow(pad.FlowEOS)
		default:
			q.el.HandleFlow(pad.FlowFlushing)
		}
		return
	}

	ret := q.el.PushAll(b)
	b.Release()
	q.el.HandleFlow(ret)
}

// Len returns the number of queued buffers
func (q *Queue) Len() int {
	if buf := q.buffer(); buf != nil {
		return buf.Size()
	}
	return 0
}

// Stats returns the statistics of the current or last run
func (q *Queue) Stats() buffer.StatsSummary {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stats == nil {
		return buffer.StatsSummary{}
	}
	return q.stats.Summary()
}

// Destroy discards whatever is still queued
func (q *Queue) Destroy() { q.Stop() }
