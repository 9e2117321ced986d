package element

import (
	"context"
	"fmt"
	"sync"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/task"
)

// Activate clears flushing on every pad and notifies the instance
func (el *Element) Activate() {
	for _, p := range el.Pads() {
		p.SetActive(true)
	}
	if !el.active.CompareAndSwap(false, true) {
		return
	}
	if a, ok := el.inst.(Activator); ok {
		a.Activate()
	}
	el.Signals().Emit(SignalActivate, signal.NewCallData().Set("element", el))
}

// Deactivate sets flushing on every pad, so pushes through the element
// return FLUSHING, and notifies the instance
func (el *Element) Deactivate() {
	for _, p := range el.Pads() {
		p.SetActive(false)
	}
	if !el.active.CompareAndSwap(true, false) {
		return
	}
	if a, ok := el.inst.(Activator); ok {
		a.Deactivate()
	}
	el.Signals().Emit(SignalDeactivate, signal.NewCallData().Set("element", el))
}

// Active reports whether the element is activated
func (el *Element) Active() bool { return el.active.Load() }

// Start activates the element, starts the instance and runs its tasks.
// Producers get a task running the production loop. Starting a running
// element is a no-op.
func (el *Element) Start(ctx context.Context) error {
	if err := el.checkAlive("Start"); err != nil {
		return err
	}
	started, err := el.start(ctx)
	if err != nil {
		return err
	}
	if started {
		el.Signals().Emit(SignalStart, signal.NewCallData().Set("element", el))
	}
	return nil
}

func (el *Element) start(ctx context.Context) (bool, error) {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	if el.running {
		return false, nil
	}

	el.ctx, el.cancel = context.WithCancel(ctx)
	el.done = make(chan struct{})
	el.doneOnce = new(sync.Once)
	el.notLinkedLogged.Store(false)

	el.Activate()
	if s, ok := el.inst.(Starter); ok {
		if err := s.Start(el.ctx); err != nil {
			el.cancel()
			el.Deactivate()
			el.rt.metrics.RecordError(el.Name(), errors.Classify(err).String())
			return false, errors.Wrap(err, "Element", "Start", fmt.Sprintf("start %q", el.Name()))
		}
	}

	streamID := el.ID().String()
	for _, p := range el.SrcPads() {
		p.PushEvent(pad.NewStreamStartEvent(streamID))
	}

	if _, ok := el.inst.(Producer); ok && el.producer == nil {
		el.producer = el.NewTask(task.RunnerFunc(el.produce))
	}

	// The running element keeps itself alive until Stop.
	el.Retain()
	el.running = true
	for _, t := range el.Tasks() {
		if err := t.Start(); err != nil {
			el.Logger().Error("Failed to start task", "task", t.Name(), "error", err)
		}
	}
	el.Logger().Info("Element started")
	return true, nil
}

// Stop cancels the element context, joins its tasks, deactivates the pads
// and stops the instance. Stopping a stopped element is a no-op.
func (el *Element) Stop() {
	if el.stop() {
		el.Signals().Emit(SignalStop, signal.NewCallData().Set("element", el))
		el.Release()
	}
}

// stop returns true when the element was running and now holds one
// reference fewer to drop
func (el *Element) stop() bool {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	if !el.running {
		return false
	}

	// Tasks finish their current iteration before the pads start flushing,
	// so a produced buffer is never lost to the stop itself.
	el.cancel()
	el.joinTasks()
	el.Deactivate()
	if s, ok := el.inst.(Starter); ok {
		s.Stop()
	}
	el.finish()
	el.running = false
	el.Logger().Info("Element stopped")
	return true
}

func (el *Element) joinTasks() {
	for _, t := range el.Tasks() {
		_ = t.Stop()
		if err := t.Join(); err != nil {
			// Stop was called from one of the element's own tasks; the task
			// exits at the top of its next iteration.
			el.Logger().Error("Cannot join task from itself", "task", t.Name(), "error", err)
		}
	}
}

// Running reports whether the element was started and not stopped
func (el *Element) Running() bool {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	return el.running
}

// Done is closed when the element's production loop ends on its own (EOS,
// no linked pads, flushing downstream) or when the element is stopped
func (el *Element) Done() <-chan struct{} {
	el.lifeMu.Lock()
	defer el.lifeMu.Unlock()
	return el.done
}

func (el *Element) finish() {
	el.doneOnce.Do(func() { close(el.done) })
}

// PushAll pushes buf out of every source pad and returns the combined
// flow. The caller keeps its reference to buf.
func (el *Element) PushAll(buf *pad.Buffer) pad.FlowReturn {
	srcs := el.SrcPads()
	rets := make([]pad.FlowReturn, 0, len(srcs))
	for _, p := range srcs {
		rets = append(rets, p.Push(buf))
	}
	ret := pad.CombineFlows(rets...)
	el.rt.metrics.RecordPush(el.Name(), ret.String())
	return ret
}

// SendEOS marks every source pad EOS, forwards EOS downstream and emits
// the eos signal
func (el *Element) SendEOS() {
	ev := pad.NewEvent(pad.EventEOS)
	for _, p := range el.SrcPads() {
		p.PushEvent(ev)
	}
	el.Signals().Emit(SignalEOS, signal.NewCallData().Set("element", el))
}

// produce is one iteration of the production loop
func (el *Element) produce() {
	prod := el.inst.(Producer)
	buf, ret := prod.Produce(el.ctx)
	if ret == pad.FlowOK {
		if buf == nil {
			return
		}
		ret = el.PushAll(buf)
	}
	if buf != nil {
		buf.Release()
	}
	el.HandleFlow(ret)
}

// HandleFlow applies the production-loop policy to a push result. Elements
// driving their own tasks use it for the same behavior.
func (el *Element) HandleFlow(ret pad.FlowReturn) {
	switch ret {
	case pad.FlowOK:
		return
	case pad.FlowNotLinked:
		if el.notLinkedLogged.CompareAndSwap(false, true) {
			el.Logger().Warn("No linked source pads, stopping production")
		}
	case pad.FlowFlushing:
		el.Logger().Debug("Downstream flushing, stopping production")
	case pad.FlowEOS:
		el.Logger().Info("End of stream")
		el.SendEOS()
	case pad.FlowError:
		el.Logger().Warn("Buffer rejected downstream")
		el.rt.metrics.RecordError(el.Name(), "flow")
		return
	}
	el.stopTasks()
	el.finish()
}

// stopTasks asks every task to stop without joining; it runs on a task
// goroutine
func (el *Element) stopTasks() {
	for _, t := range el.Tasks() {
		_ = t.Stop()
	}
}
