package element

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/task"
)

// Signals emitted by every element
const (
	SignalDestroy    = "destroy"
	SignalRemove     = "remove"
	SignalRename     = "rename"
	SignalUpdate     = "update"
	SignalActivate   = "activate"
	SignalDeactivate = "deactivate"
	SignalEOS        = "eos"
	SignalPadAdded   = "pad_added"
	SignalPadRemoved = "pad_removed"
	SignalStart      = "start"
	SignalStop       = "stop"
	SignalSave       = "save"
	SignalLoad       = "load"
)

var elementSignals = []string{
	SignalDestroy, SignalRemove, SignalRename, SignalUpdate, SignalActivate,
	SignalDeactivate, SignalEOS, SignalPadAdded, SignalPadRemoved,
	SignalStart, SignalStop, SignalSave, SignalLoad,
}

// Element is a Core Object created from a Descriptor. It owns its pads and
// tasks. The handle returned by Runtime.Instantiate holds one strong
// reference; the element is disposed when the last reference is released.
type Element struct {
	*object.Object

	rt   *Runtime
	desc Descriptor
	inst Instance

	updateMu sync.Mutex

	padsMu sync.RWMutex
	pads   []*pad.Pad

	streamLock sync.Mutex
	tasksMu    sync.Mutex
	tasks      []*task.Task
	producer   *task.Task

	lifeMu   sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce *sync.Once

	constructed     bool
	active          atomic.Bool
	removed         atomic.Bool
	disposed        atomic.Bool
	notLinkedLogged atomic.Bool
}

func newElement(rt *Runtime, desc Descriptor, name string, s *settings.Data, opts ...object.Option) *Element {
	el := &Element{
		rt:       rt,
		desc:     desc,
		ctx:      context.Background(),
		done:     make(chan struct{}),
		doneOnce: new(sync.Once),
	}
	opts = append([]object.Option{
		object.WithOwner(el),
		object.WithSettings(s),
		object.WithSignals(elementSignals...),
	}, opts...)
	el.Object = object.New(desc.Kind(), name, opts...)
	return el
}

// TypeID returns the id of the element's type
func (el *Element) TypeID() string { return el.desc.ID() }

// Descriptor returns the element's type descriptor
func (el *Element) Descriptor() Descriptor { return el.desc }

// Instance returns the type-private instance
func (el *Element) Instance() Instance { return el.inst }

// Runtime returns the runtime that created the element
func (el *Element) Runtime() *Runtime { return el.rt }

// Logger returns the runtime logger annotated with the element
func (el *Element) Logger() *slog.Logger {
	return el.rt.logger.With("element", el.Name(), "type", el.desc.ID())
}

// SetName renames the element. Names are unique within the runtime.
func (el *Element) SetName(name string) error {
	prev, err := el.rt.rename(el, name)
	if err != nil {
		return err
	}
	if prev != name {
		el.Signals().Emit(SignalRename, signal.NewCallData().
			Set("element", el).Set("prev_name", prev).Set("new_name", name))
	}
	return nil
}

// Update merges s into the element settings and hands them to the
// instance. Concurrent calls are serialized.
func (el *Element) Update(s *settings.Data) {
	el.updateMu.Lock()
	defer el.updateMu.Unlock()

	el.Settings().Apply(s)
	el.applyUpdate()
}

// ResetSettings drops every user value, restores the type defaults, merges
// s and updates the instance
func (el *Element) ResetSettings(s *settings.Data) {
	el.updateMu.Lock()
	defer el.updateMu.Unlock()

	st := el.Settings()
	st.Clear()
	if dp, ok := el.desc.(DefaultsProvider); ok {
		dp.Defaults(st)
	}
	st.Apply(s)
	el.applyUpdate()
}

func (el *Element) applyUpdate() {
	if u, ok := el.inst.(Updater); ok {
		u.Update(el.Settings())
	}
	el.Signals().Emit(SignalUpdate, signal.NewCallData().Set("element", el).Set("settings", el.Settings()))
}

// Defaults returns a fresh container holding the type defaults
func (el *Element) Defaults() *settings.Data {
	return el.rt.TypeDefaults(el.desc.ID())
}

// Properties describes the element settings. Instance properties take
// precedence over type properties; nil means the type describes nothing.
func (el *Element) Properties() *properties.Properties {
	if pp, ok := el.inst.(PropertiesProvider); ok {
		if props := pp.Properties(); props != nil {
			return props
		}
	}
	if tp, ok := el.desc.(TypePropertiesProvider); ok {
		return tp.TypeProperties()
	}
	return nil
}

// NewTask creates a task bound to the element's stream lock. Tasks are
// started by Start and joined by Stop.
func (el *Element) NewTask(r task.Runner) *task.Task {
	el.tasksMu.Lock()
	defer el.tasksMu.Unlock()

	t := task.New(r,
		task.WithName(fmt.Sprintf("%s/%d", el.Name(), len(el.tasks))),
		task.WithLogger(el.Logger()),
		task.WithRunningGauge(el.rt.metrics.TasksRunning),
	)
	// A new task never runs, so SetLock cannot fail here.
	_ = t.SetLock(&el.streamLock)
	el.tasks = append(el.tasks, t)
	return t
}

// Tasks returns the element's tasks
func (el *Element) Tasks() []*task.Task {
	el.tasksMu.Lock()
	defer el.tasksMu.Unlock()
	return append([]*task.Task(nil), el.tasks...)
}

// StreamLock returns the lock held by the element's tasks while they run
func (el *Element) StreamLock() sync.Locker { return &el.streamLock }

// Save writes the element into a settings container holding id, name,
// uuid and settings
func (el *Element) Save() *settings.Data {
	st := el.Settings().Clone()
	if sv, ok := el.inst.(Saver); ok {
		sv.Save(st)
	}
	out := settings.New()
	out.SetString("id", el.desc.ID())
	out.SetString("name", el.Name())
	out.SetString("uuid", el.ID().String())
	out.SetObj("settings", st)
	el.Signals().Emit(SignalSave, signal.NewCallData().Set("element", el).Set("data", out))
	return out
}

// Remove stops the element, unlinks its pads and removes it from the
// runtime. The caller's reference is not released. Repeated calls are
// no-ops.
func (el *Element) Remove() {
	if !el.removed.CompareAndSwap(false, true) {
		return
	}
	el.Signals().Emit(SignalRemove, signal.NewCallData().Set("element", el))
	el.Stop()
	for _, p := range el.Pads() {
		p.UnlinkPeer()
	}
	el.rt.forget(el)
	el.rt.emit(SignalElementRemove, el)
}

// Removed reports whether Remove has run
func (el *Element) Removed() bool { return el.removed.Load() }

// Dispose runs once, when the last strong reference is released
func (el *Element) Dispose() {
	if !el.disposed.CompareAndSwap(false, true) {
		return
	}
	if el.constructed {
		el.Signals().Emit(SignalDestroy, signal.NewCallData().Set("element", el))
	}
	el.stop()
	el.joinTasks()
	if el.inst != nil {
		el.inst.Destroy()
	}

	el.padsMu.Lock()
	pads := el.pads
	el.pads = nil
	el.padsMu.Unlock()
	for _, p := range pads {
		p.Release()
	}

	el.rt.forget(el)
	if el.constructed {
		el.rt.metrics.RecordElementDestroyed(el.desc.ID())
		el.rt.emit(SignalElementDestroy, el)
		el.Logger().Debug("Element destroyed")
	}
}

// checkAlive returns ErrAlreadyDestroyed once the element was removed
func (el *Element) checkAlive(method string) error {
	if el.removed.Load() || el.disposed.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyDestroyed, "Element", method,
			fmt.Sprintf("use element %q", el.Name()))
	}
	return nil
}
