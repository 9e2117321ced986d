package element

import (
	"fmt"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
)

// NewPad creates a pad owned by the element and adds it
func (el *Element) NewPad(name string, dir pad.Direction, opts ...pad.Option) (*pad.Pad, error) {
	opts = append(opts, pad.WithParent(el.Object))
	p := pad.New(name, dir, opts...)
	if err := el.AddPad(p); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// AddPad adds p to the element, which takes over the caller's reference.
// Pad names are unique per element.
func (el *Element) AddPad(p *pad.Pad) error {
	if !p.SetParent(el.Object) {
		return errors.WrapInvalid(errors.ErrLinkFailed, "Element", "AddPad",
			fmt.Sprintf("adopt pad %q owned by another element", p.Name()))
	}

	el.padsMu.Lock()
	for _, existing := range el.pads {
		if existing.Name() == p.Name() {
			el.padsMu.Unlock()
			return errors.WrapInvalid(errors.ErrDuplicateName, "Element", "AddPad",
				fmt.Sprintf("add pad %q to %q", p.Name(), el.Name()))
		}
	}
	el.pads = append(el.pads, p)
	el.padsMu.Unlock()

	el.Signals().Emit(SignalPadAdded, signal.NewCallData().Set("element", el).Set("pad", p))
	return nil
}

// RemovePad unlinks the named pad, removes it and drops the element's
// reference. It reports whether the pad existed.
func (el *Element) RemovePad(name string) bool {
	el.padsMu.Lock()
	var removed *pad.Pad
	for i, p := range el.pads {
		if p.Name() == name {
			removed = p
			el.pads = append(el.pads[:i], el.pads[i+1:]...)
			break
		}
	}
	el.padsMu.Unlock()
	if removed == nil {
		return false
	}

	removed.UnlinkPeer()
	el.Signals().Emit(SignalPadRemoved, signal.NewCallData().Set("element", el).Set("pad", removed))
	removed.Release()
	return true
}

// Pad returns the named pad, or nil. The element keeps ownership.
func (el *Element) Pad(name string) *pad.Pad {
	el.padsMu.RLock()
	defer el.padsMu.RUnlock()
	for _, p := range el.pads {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Pads returns every pad in creation order
func (el *Element) Pads() []*pad.Pad {
	el.padsMu.RLock()
	defer el.padsMu.RUnlock()
	return append([]*pad.Pad(nil), el.pads...)
}

func (el *Element) padsOf(dir pad.Direction) []*pad.Pad {
	el.padsMu.RLock()
	defer el.padsMu.RUnlock()
	var out []*pad.Pad
	for _, p := range el.pads {
		if p.Direction() == dir {
			out = append(out, p)
		}
	}
	return out
}

// SrcPads returns the source pads in creation order
func (el *Element) SrcPads() []*pad.Pad { return el.padsOf(pad.DirectionSrc) }

// SinkPads returns the sink pads in creation order
func (el *Element) SinkPads() []*pad.Pad { return el.padsOf(pad.DirectionSink) }

// RequestPad asks the instance for a new pad. It fails for types without
// request pads.
func (el *Element) RequestPad(name string, dir pad.Direction, caps *pad.Caps) (*pad.Pad, error) {
	if err := el.checkAlive("RequestPad"); err != nil {
		return nil, err
	}
	pr, ok := el.inst.(PadRequester)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrPadNotFound, "Element", "RequestPad",
			fmt.Sprintf("request %s pad %q on %q", dir, name, el.Name()))
	}
	p, err := pr.RequestPad(name, dir, caps)
	if err != nil {
		return nil, errors.Wrap(err, "Element", "RequestPad", fmt.Sprintf("request %s pad %q", dir, name))
	}
	if p == nil || p.Direction() != dir {
		return nil, errors.WrapInvalid(errors.ErrPadNotFound, "Element", "RequestPad",
			fmt.Sprintf("request %s pad %q on %q", dir, name, el.Name()))
	}
	if el.Pad(p.Name()) != p {
		if err := el.AddPad(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// findPad resolves a pad for linking: the named pad, else the first
// unlinked pad of dir, else a requested one
func (el *Element) findPad(name string, dir pad.Direction) (*pad.Pad, error) {
	if name != "" {
		if p := el.Pad(name); p != nil {
			if p.Direction() != dir {
				return nil, errors.WrapInvalid(errors.ErrPadNotFound, "Element", "findPad",
					fmt.Sprintf("pad %q of %q is not a %s pad", name, el.Name(), dir))
			}
			return p, nil
		}
		return el.RequestPad(name, dir, nil)
	}

	existing := el.padsOf(dir)
	for _, p := range existing {
		if !p.IsLinked() {
			return p, nil
		}
	}
	if _, ok := el.inst.(PadRequester); !ok {
		return nil, errors.WrapInvalid(errors.ErrPadNotFound, "Element", "findPad",
			fmt.Sprintf("find free %s pad on %q", dir, el.Name()))
	}
	return el.RequestPad(fmt.Sprintf("%s_%d", dir, len(existing)), dir, nil)
}

// LinkPads links a source pad of el to a sink pad of sink. Empty names
// pick the first unlinked pad, requesting one when all are taken.
func (el *Element) LinkPads(srcPad string, sink *Element, sinkPad string) error {
	src, err := el.findPad(srcPad, pad.DirectionSrc)
	if err != nil {
		return err
	}
	dst, err := sink.findPad(sinkPad, pad.DirectionSink)
	if err != nil {
		return err
	}
	if ret := pad.Link(src, dst); ret != pad.LinkOK {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrLinkFailed, ret), "Element", "LinkPads",
			fmt.Sprintf("link %s.%s to %s.%s", el.Name(), src.Name(), sink.Name(), dst.Name()))
	}
	el.Logger().Debug("Linked pads", "src_pad", src.Name(), "sink", sink.Name(), "sink_pad", dst.Name())
	return nil
}

// Link links the first free source pad of el to the first free sink pad
// of sink
func (el *Element) Link(sink *Element) error {
	return el.LinkPads("", sink, "")
}

// Unlink removes every link from el to sink and returns how many were
// removed
func (el *Element) Unlink(sink *Element) int {
	n := 0
	for _, p := range el.SrcPads() {
		peer := p.Peer()
		if peer != nil && peer.Parent() == sink.Object && pad.Unlink(p, peer) {
			n++
		}
	}
	return n
}
