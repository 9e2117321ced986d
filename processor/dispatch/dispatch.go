// Package dispatch provides the dispatch element, which fans every buffer
// out to all of its linked src pads.
//
// Src pads are created on request, typically by linking. The flow returned
// upstream is the combination of the per-pad results, so one slow or
// failing branch is reported without hiding the others. Events other than
// STREAM_START are forwarded to every src pad.
package dispatch

import (
	"fmt"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// TypeID identifies the element type
const TypeID = "dispatch"

// Dispatch is the dispatch instance
type Dispatch struct {
	el *element.Element
}

// Type returns the dispatch descriptor
func Type() *element.Type {
	return &element.Type{
		TypeID:   TypeID,
		TypeKind: object.KindProcess,
		Name:     "Dispatch",
		New:      newDispatch,
	}
}

// Register adds dispatch to rt
func Register(rt *element.Runtime) error {
	return rt.RegisterType(Type())
}

func newDispatch(_ *settings.Data, el *element.Element) (element.Instance, error) {
	d := &Dispatch{el: el}
	if _, err := el.NewPad("sink", pad.DirectionSink,
		pad.WithChain(pad.ChainFunc(d.chain)),
		pad.WithChainList(pad.ChainListFunc(d.chainList)),
		pad.WithEvent(pad.EventFunc(d.event)),
	); err != nil {
		return nil, err
	}
	return d, nil
}

// RequestPad creates a src pad. Sink pads cannot be requested.
func (d *Dispatch) RequestPad(name string, dir pad.Direction, caps *pad.Caps) (*pad.Pad, error) {
	if dir != pad.DirectionSrc {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: dispatch has a single sink pad", errors.ErrPadNotFound),
			"Dispatch", "RequestPad", "request "+name)
	}
	return d.el.NewPad(name, dir, pad.WithCaps(caps))
}

func (d *Dispatch) chain(_ *pad.Pad, buf *pad.Buffer) pad.FlowReturn {
	return d.el.PushAll(buf)
}

func (d *Dispatch) chainList(_ *pad.Pad, list *pad.BufferList) pad.FlowReturn {
	srcs := d.el.SrcPads()
	rets := make([]pad.FlowReturn, 0, len(srcs))
	for _, p := range srcs {
		rets = append(rets, p.PushList(list))
	}
	return pad.CombineFlows(rets...)
}

func (d *Dispatch) event(_ *pad.Pad, ev pad.Event) bool {
	if ev.Type == pad.EventStreamStart {
		return true
	}
	handled := false
	for _, p := range d.el.SrcPads() {
		if p.PushEvent(ev) {
			handled = true
		}
	}
	return handled
}

// Destroy implements element.Instance
func (d *Dispatch) Destroy() {}
