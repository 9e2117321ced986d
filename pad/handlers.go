package pad

// LinkHandler accepts or refuses a link. Both peers are already set when
// it runs; any result other than LinkOK rolls them back.
type LinkHandler interface {
	Link(src, sink *Pad) LinkReturn
}

// UnlinkHandler is notified after a pad lost its peer
type UnlinkHandler interface {
	Unlink(p *Pad)
}

// ChainHandler receives buffers on a sink pad
type ChainHandler interface {
	Chain(p *Pad, buf *Buffer) FlowReturn
}

// ChainListHandler receives buffer lists on a sink pad
type ChainListHandler interface {
	ChainList(p *Pad, list *BufferList) FlowReturn
}

// EventHandler receives events on a sink pad after the default flag
// handling ran. It reports whether the event was handled.
type EventHandler interface {
	Event(p *Pad, ev Event) bool
}

// LinkFunc adapts a function to LinkHandler
type LinkFunc func(src, sink *Pad) LinkReturn

// Link calls f
func (f LinkFunc) Link(src, sink *Pad) LinkReturn { return f(src, sink) }

// UnlinkFunc adapts a function to UnlinkHandler
type UnlinkFunc func(p *Pad)

// Unlink calls f
func (f UnlinkFunc) Unlink(p *Pad) { f(p) }

// ChainFunc adapts a function to ChainHandler
type ChainFunc func(p *Pad, buf *Buffer) FlowReturn

// Chain calls f
func (f ChainFunc) Chain(p *Pad, buf *Buffer) FlowReturn { return f(p, buf) }

// ChainListFunc adapts a function to ChainListHandler
type ChainListFunc func(p *Pad, list *BufferList) FlowReturn

// ChainList calls f
func (f ChainListFunc) ChainList(p *Pad, list *BufferList) FlowReturn { return f(p, list) }

// EventFunc adapts a function to EventHandler
type EventFunc func(p *Pad, ev Event) bool

// Event calls f
func (f EventFunc) Event(p *Pad, ev Event) bool { return f(p, ev) }
