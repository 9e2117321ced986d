package pad

import (
	"sync"
	"sync/atomic"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
)

// Pad is a directional dataflow endpoint. Pads are Core Objects; the owning
// element holds the reference returned by New.
type Pad struct {
	*object.Object

	direction Direction
	parent    *object.Object

	mu        sync.RWMutex
	peer      *Pad
	flags     Flags
	caps      *Caps
	link      LinkHandler
	unlink    UnlinkHandler
	chain     ChainHandler
	chainList ChainListHandler
	event     EventHandler
	userData  any

	pushed [len(flowNames)]atomic.Uint64
}

// Option configures a pad at construction
type Option func(*Pad)

// WithParent sets the owning element's object
func WithParent(parent *object.Object) Option {
	return func(p *Pad) { p.parent = parent }
}

// WithCaps sets the pad caps. Pads without caps accept anything.
func WithCaps(caps *Caps) Option {
	return func(p *Pad) { p.caps = caps }
}

// WithChain sets the chain handler of a sink pad
func WithChain(h ChainHandler) Option {
	return func(p *Pad) { p.chain = h }
}

// WithChainList sets the list chain handler of a sink pad
func WithChainList(h ChainListHandler) Option {
	return func(p *Pad) { p.chainList = h }
}

// WithEvent sets the event handler of a sink pad
func WithEvent(h EventHandler) Option {
	return func(p *Pad) { p.event = h }
}

// WithLink sets the link handler
func WithLink(h LinkHandler) Option {
	return func(p *Pad) { p.link = h }
}

// WithUnlink sets the unlink handler
func WithUnlink(h UnlinkHandler) Option {
	return func(p *Pad) { p.unlink = h }
}

// WithUserData attaches element-private data to the pad
func WithUserData(v any) Option {
	return func(p *Pad) { p.userData = v }
}

// New creates an unlinked pad
func New(name string, dir Direction, opts ...Option) *Pad {
	p := &Pad{direction: dir}
	p.Object = object.New(object.KindPad, name, object.WithOwner(p))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispose unlinks the pad once its last reference is released
func (p *Pad) Dispose() {
	p.UnlinkPeer()
}

// Direction returns the pad direction
func (p *Pad) Direction() Direction { return p.direction }

// Parent returns the owning element's object, or nil
func (p *Pad) Parent() *object.Object {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.parent
}

// SetParent attaches the pad to an element. It fails when the pad already
// belongs to a different element.
func (p *Pad) SetParent(parent *object.Object) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parent != nil && p.parent != parent {
		return false
	}
	p.parent = parent
	return true
}

// UserData returns the data attached with WithUserData
func (p *Pad) UserData() any { return p.userData }

// Peer returns the linked pad, or nil
func (p *Pad) Peer() *Pad {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.peer
}

// IsLinked reports whether the pad has a peer
func (p *Pad) IsLinked() bool { return p.Peer() != nil }

// Caps returns the pad caps
func (p *Pad) Caps() *Caps {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.caps
}

// SetCaps replaces the pad caps. Existing links are kept.
func (p *Pad) SetCaps(caps *Caps) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps = caps
}

// SetChainHandler replaces the chain handler
func (p *Pad) SetChainHandler(h ChainHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chain = h
}

// SetEventHandler replaces the event handler
func (p *Pad) SetEventHandler(h EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.event = h
}

// Flags returns the current flags
func (p *Pad) Flags() Flags {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.flags
}

// IsFlushing reports whether FlagFlushing is set
func (p *Pad) IsFlushing() bool { return p.Flags()&FlagFlushing != 0 }

// IsEOS reports whether FlagEOS is set
func (p *Pad) IsEOS() bool { return p.Flags()&FlagEOS != 0 }

// SetFlushing sets or clears FlagFlushing. Leaving flushing also clears EOS.
func (p *Pad) SetFlushing(flushing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if flushing {
		p.flags |= FlagFlushing
		return
	}
	p.flags &^= FlagFlushing | FlagEOS
}

// SetActive activates or deactivates the pad. Inactive pads are flushing.
func (p *Pad) SetActive(active bool) { p.SetFlushing(!active) }

// Pushed returns how many pushes through this pad ended with ret
func (p *Pad) Pushed(ret FlowReturn) uint64 {
	if ret < 0 || int(ret) >= len(p.pushed) {
		return 0
	}
	return p.pushed[ret].Load()
}

func (p *Pad) count(ret FlowReturn) FlowReturn {
	if ret >= 0 && int(ret) < len(p.pushed) {
		p.pushed[ret].Add(1)
	}
	return ret
}

// Link connects src to sink. On LinkOK both pads record each other as
// peer; on any other result neither pad changes.
func Link(src, sink *Pad) LinkReturn {
	if src == nil || sink == nil || src.direction != DirectionSrc || sink.direction != DirectionSink {
		return LinkWrongDirection
	}
	if parent := src.Parent(); parent != nil && parent == sink.Parent() {
		return LinkWrongHierarchy
	}

	// Source before sink everywhere, so two links never lock in opposite order.
	src.mu.Lock()
	sink.mu.Lock()
	if src.peer != nil || sink.peer != nil {
		sink.mu.Unlock()
		src.mu.Unlock()
		return LinkWasLinked
	}
	if !src.caps.Intersects(sink.caps) {
		sink.mu.Unlock()
		src.mu.Unlock()
		return LinkNoFormat
	}
	src.peer = sink
	sink.peer = src
	handler := src.link
	if handler == nil {
		handler = sink.link
	}
	sink.mu.Unlock()
	src.mu.Unlock()

	if handler == nil {
		return LinkOK
	}
	if ret := handler.Link(src, sink); ret != LinkOK {
		src.mu.Lock()
		sink.mu.Lock()
		if src.peer == sink && sink.peer == src {
			src.peer = nil
			sink.peer = nil
		}
		sink.mu.Unlock()
		src.mu.Unlock()
		return ret
	}
	return LinkOK
}

// Unlink disconnects src from sink. It returns false when they are not
// linked to each other.
func Unlink(src, sink *Pad) bool {
	if src == nil || sink == nil {
		return false
	}

	src.mu.Lock()
	sink.mu.Lock()
	if src.peer != sink || sink.peer != src {
		sink.mu.Unlock()
		src.mu.Unlock()
		return false
	}
	src.peer = nil
	sink.peer = nil
	srcHandler, sinkHandler := src.unlink, sink.unlink
	sink.mu.Unlock()
	src.mu.Unlock()

	if srcHandler != nil {
		srcHandler.Unlink(src)
	}
	if sinkHandler != nil {
		sinkHandler.Unlink(sink)
	}
	return true
}

// UnlinkPeer disconnects p from whatever it is linked to
func (p *Pad) UnlinkPeer() bool {
	peer := p.Peer()
	if peer == nil {
		return false
	}
	if p.direction == DirectionSrc {
		return Unlink(p, peer)
	}
	return Unlink(peer, p)
}

// checkFlow returns FlowOK when a buffer may pass from src into sink
func checkFlow(src, sink *Pad) FlowReturn {
	if f := src.Flags(); f&FlagFlushing != 0 {
		return FlowFlushing
	} else if f&FlagEOS != 0 {
		return FlowEOS
	}
	if f := sink.Flags(); f&FlagFlushing != 0 {
		return FlowFlushing
	} else if f&FlagEOS != 0 {
		return FlowEOS
	}
	return FlowOK
}

// Push delivers buf to the peer's chain handler and returns its result.
// An unlinked pad returns FlowNotLinked without touching buf. The caller
// keeps its reference to buf.
func (p *Pad) Push(buf *Buffer) FlowReturn {
	peer := p.Peer()
	if peer == nil {
		return p.count(FlowNotLinked)
	}
	if ret := checkFlow(p, peer); ret != FlowOK {
		return p.count(ret)
	}

	peer.mu.RLock()
	chain := peer.chain
	peer.mu.RUnlock()
	if chain == nil {
		return p.count(FlowError)
	}
	return p.count(chain.Chain(peer, buf))
}

// PushList delivers a buffer list. Sinks without a ChainListHandler
// receive the buffers one by one until a push returns anything but FlowOK.
func (p *Pad) PushList(list *BufferList) FlowReturn {
	peer := p.Peer()
	if peer == nil {
		return p.count(FlowNotLinked)
	}
	if ret := checkFlow(p, peer); ret != FlowOK {
		return p.count(ret)
	}

	peer.mu.RLock()
	chainList, chain := peer.chainList, peer.chain
	peer.mu.RUnlock()

	if chainList != nil {
		return p.count(chainList.ChainList(peer, list))
	}
	if chain == nil {
		return p.count(FlowError)
	}

	ret := FlowOK
	list.Each(func(_ int, b *Buffer) bool {
		ret = chain.Chain(peer, b)
		return ret == FlowOK
	})
	return p.count(ret)
}

// applyEvent updates flags for the flow-affecting events
func (p *Pad) applyEvent(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.Type {
	case EventFlushStart:
		p.flags |= FlagFlushing
	case EventFlushStop:
		p.flags &^= FlagFlushing | FlagEOS
	case EventStreamStart:
		p.flags &^= FlagEOS
	case EventEOS:
		p.flags |= FlagEOS
	case EventCaps:
		if ev.Caps != nil {
			p.caps = ev.Caps
		}
	}
}

// PushEvent sends ev downstream. The flags of p are updated even when it
// is unlinked; the return value reports whether the peer handled the event.
func (p *Pad) PushEvent(ev Event) bool {
	if ev.Type != EventCaps {
		p.applyEvent(ev)
	}
	peer := p.Peer()
	if peer == nil {
		return false
	}
	return peer.SendEvent(ev)
}

// SendEvent delivers ev to this sink pad as if its peer had pushed it
func (p *Pad) SendEvent(ev Event) bool {
	p.applyEvent(ev)

	p.mu.RLock()
	h := p.event
	p.mu.RUnlock()
	if h == nil {
		return true
	}
	return h.Event(p, ev)
}
