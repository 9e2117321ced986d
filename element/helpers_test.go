package element

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

type counter struct {
	el             *Element
	next           int64
	limit          int64
	destroyed      atomic.Bool
	runningAtDeath atomic.Bool
}

func (c *counter) Produce(_ context.Context) (*pad.Buffer, pad.FlowReturn) {
	if c.limit > 0 && c.next >= c.limit {
		return nil, pad.FlowEOS
	}
	c.next++
	return pad.NewValueBuffer(c.next, []byte(strconv.FormatInt(c.next, 10))), pad.FlowOK
}

func (c *counter) Destroy() {
	for _, t := range c.el.Tasks() {
		if t.Running() {
			c.runningAtDeath.Store(true)
		}
	}
	c.destroyed.Store(true)
}

func counterType(instances *[]*counter) *Type {
	return &Type{
		TypeID:   "counter_source",
		TypeKind: object.KindSource,
		Name:     "Counter",
		Fill: func(s *settings.Data) {
			s.SetDefaultInt("limit", 0)
		},
		Props: func() *properties.Properties {
			ps := properties.New()
			ps.AddInt("limit", "Limit", 0, 1<<31, 1)
			return ps
		},
		New: func(s *settings.Data, el *Element) (Instance, error) {
			if _, err := el.NewPad("src", pad.DirectionSrc); err != nil {
				return nil, err
			}
			c := &counter{el: el, limit: s.GetInt("limit")}
			if instances != nil {
				*instances = append(*instances, c)
			}
			return c, nil
		},
	}
}

type collector struct {
	mu        sync.Mutex
	values    []int64
	updates   atomic.Int32
	inUpdate  atomic.Int32
	overlap   atomic.Bool
	lastLimit atomic.Int64
}

func (c *collector) Chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	v, ok := buf.Value.(int64)
	if !ok {
		return pad.FlowError
	}
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
	return pad.FlowOK
}

func (c *collector) got() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.values...)
}

func (c *collector) Update(s *settings.Data) {
	if c.inUpdate.Add(1) > 1 {
		c.overlap.Store(true)
	}
	c.lastLimit.Store(s.GetInt("max_items"))
	c.updates.Add(1)
	c.inUpdate.Add(-1)
}

func (c *collector) Destroy() {}

func collectType(out **collector) *Type {
	return &Type{
		TypeID:   "collect_sink",
		TypeKind: object.KindOutput,
		Fill: func(s *settings.Data) {
			s.SetDefaultInt("max_items", 100)
		},
		New: func(_ *settings.Data, el *Element) (Instance, error) {
			c := &collector{}
			if _, err := el.NewPad("sink", pad.DirectionSink, pad.WithChain(c)); err != nil {
				return nil, err
			}
			if out != nil {
				*out = c
			}
			return c, nil
		},
	}
}

// fanout requests src pads by name
type fanout struct {
	el *Element
}

func (f *fanout) RequestPad(name string, dir pad.Direction, caps *pad.Caps) (*pad.Pad, error) {
	return f.el.NewPad(name, dir, pad.WithCaps(caps))
}

func (f *fanout) Destroy() {}

func fanoutType() *Type {
	return &Type{
		TypeID:   "fanout",
		TypeKind: object.KindProcess,
		New: func(_ *settings.Data, el *Element) (Instance, error) {
			return &fanout{el: el}, nil
		},
	}
}

func seq(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}
