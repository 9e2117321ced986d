package element

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/properties"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
)

// Signals emitted by the runtime
const (
	SignalElementCreate  = "element_create"
	SignalElementRemove  = "element_remove"
	SignalElementDestroy = "element_destroy"
	SignalElementRename  = "element_rename"
)

// Runtime holds registered element types and tracks live elements. It is
// constructed explicitly and passed to whatever creates elements.
type Runtime struct {
	mu       sync.RWMutex
	types    map[string]Descriptor
	elements map[string]*object.Weak
	order    []string

	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	signals  *signal.Handler
}

// Option configures a Runtime
type Option func(*Runtime)

// WithLogger sets the logger used by the runtime and its elements
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithMetrics records runtime metrics into the registry's core metrics
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(rt *Runtime) { rt.registry = registry }
}

// NewRuntime creates a runtime with no registered types
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		types:    make(map[string]Descriptor),
		elements: make(map[string]*object.Weak),
		logger:   slog.Default(),
		signals: signal.NewHandler(
			SignalElementCreate, SignalElementRemove, SignalElementDestroy, SignalElementRename),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.registry != nil {
		rt.metrics = rt.registry.CoreMetrics()
	} else {
		// Unregistered collectors still count, they are just not exported.
		rt.metrics = metric.NewMetrics()
	}
	return rt
}

// Logger returns the runtime logger
func (rt *Runtime) Logger() *slog.Logger { return rt.logger }

// Metrics returns the runtime metrics
func (rt *Runtime) Metrics() *metric.Metrics { return rt.metrics }

// MetricsRegistry returns the registry passed with WithMetrics, or nil
func (rt *Runtime) MetricsRegistry() *metric.MetricsRegistry { return rt.registry }

// Signals returns the runtime signal handler
func (rt *Runtime) Signals() *signal.Handler { return rt.signals }

func (rt *Runtime) emit(name string, el *Element) {
	rt.signals.Emit(name, signal.NewCallData().Set("element", el))
}

// RegisterType adds d. A descriptor with the same id is replaced.
func (rt *Runtime) RegisterType(d Descriptor) error {
	if d == nil || d.ID() == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Runtime", "RegisterType", "register type without id")
	}
	rt.mu.Lock()
	_, replaced := rt.types[d.ID()]
	rt.types[d.ID()] = d
	rt.mu.Unlock()

	if replaced {
		rt.logger.Debug("Element type replaced", "type", d.ID())
	}
	return nil
}

// UnregisterType removes the type. Live elements of the type keep working.
func (rt *Runtime) UnregisterType(id string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, ok := rt.types[id]; !ok {
		return false
	}
	delete(rt.types, id)
	return true
}

func (rt *Runtime) descriptor(id string) (Descriptor, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	d, ok := rt.types[id]
	return d, ok
}

// Types returns the registered type ids, sorted
func (rt *Runtime) Types() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	ids := make([]string, 0, len(rt.types))
	for id := range rt.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TypeInfo returns the introspection record of a type
func (rt *Runtime) TypeInfo(id string) (TypeInfo, bool) {
	d, ok := rt.descriptor(id)
	if !ok {
		return TypeInfo{}, false
	}
	return infoOf(d), true
}

// TypeDefaults returns a container holding the defaults of a type. Unknown
// types yield an empty container.
func (rt *Runtime) TypeDefaults(id string) *settings.Data {
	s := settings.New()
	if d, ok := rt.descriptor(id); ok {
		if dp, ok := d.(DefaultsProvider); ok {
			dp.Defaults(s)
		}
	}
	return s
}

// TypeProperties describes the settings of a type, or returns nil
func (rt *Runtime) TypeProperties(id string) *properties.Properties {
	d, ok := rt.descriptor(id)
	if !ok {
		return nil
	}
	if tp, ok := d.(TypePropertiesProvider); ok {
		return tp.TypeProperties()
	}
	return nil
}

// Instantiate creates an element of type typeID. The merged settings
// (type defaults overlaid by s) are passed to the descriptor. A taken name
// gets a numeric suffix. The returned element holds one reference owned
// by the caller.
func (rt *Runtime) Instantiate(typeID, name string, s *settings.Data) (*Element, error) {
	return rt.instantiate(typeID, name, s, uuid.Nil)
}

func (rt *Runtime) instantiate(typeID, name string, s *settings.Data, id uuid.UUID) (*Element, error) {
	d, ok := rt.descriptor(typeID)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownType, typeID),
			"Runtime", "Instantiate", "look up element type")
	}
	if name == "" {
		name = typeID
	}

	merged := rt.TypeDefaults(typeID)
	merged.Apply(s)

	el := newElement(rt, d, name, merged, object.WithID(id))
	inst, err := d.Create(merged, el)
	if err == nil && inst == nil {
		err = fmt.Errorf("%s returned no instance", typeID)
	}
	if err != nil {
		// Releases any pads the factory created; nothing was registered.
		el.Release()
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrConstructionFailed, err),
			"Runtime", "Instantiate", fmt.Sprintf("create %q", typeID))
	}
	el.inst = inst
	el.constructed = true

	rt.mu.Lock()
	unique := rt.uniqueNameLocked(name)
	el.Object.SetName(unique)
	rt.elements[unique] = el.WeakRef()
	rt.order = append(rt.order, unique)
	rt.mu.Unlock()

	rt.metrics.RecordElementCreated(typeID)
	rt.emit(SignalElementCreate, el)
	el.Logger().Debug("Element created")
	return el, nil
}

// uniqueNameLocked returns name, or "name N" with the lowest free N >= 2
func (rt *Runtime) uniqueNameLocked(name string) string {
	if !rt.nameTakenLocked(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := name + " " + strconv.Itoa(i)
		if !rt.nameTakenLocked(candidate) {
			return candidate
		}
	}
}

func (rt *Runtime) nameTakenLocked(name string) bool {
	w, ok := rt.elements[name]
	return ok && !w.Expired()
}

func (rt *Runtime) rename(el *Element, name string) (string, error) {
	rt.mu.Lock()
	prev := el.Name()
	if prev == name {
		rt.mu.Unlock()
		return prev, nil
	}
	if w, ok := rt.elements[name]; ok && !w.Expired() && !w.References(el.Object) {
		rt.mu.Unlock()
		return prev, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrDuplicateName, name),
			"Element", "SetName", fmt.Sprintf("rename %q", prev))
	}
	if w, ok := rt.elements[prev]; ok && w.References(el.Object) {
		delete(rt.elements, prev)
		rt.elements[name] = w
		for i, n := range rt.order {
			if n == prev {
				rt.order[i] = name
			}
		}
	}
	el.Object.SetName(name)
	rt.mu.Unlock()

	rt.signals.Emit(SignalElementRename, signal.NewCallData().
		Set("element", el).Set("prev_name", prev).Set("new_name", name))
	return prev, nil
}

// forget drops the runtime's weak handle to el
func (rt *Runtime) forget(el *Element) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	name := el.Name()
	w, ok := rt.elements[name]
	if !ok || !w.References(el.Object) {
		return
	}
	delete(rt.elements, name)
	w.Release()
	for i, n := range rt.order {
		if n == name {
			rt.order = append(rt.order[:i], rt.order[i+1:]...)
			break
		}
	}
}

// Destroy removes el from the runtime: it is stopped, unlinked and no
// longer found by name. The caller still releases its own reference.
func (rt *Runtime) Destroy(el *Element) {
	if el != nil {
		el.Remove()
	}
}

// Element returns the named element with a new reference the caller must
// release, or false when no live element has that name
func (rt *Runtime) Element(name string) (*Element, bool) {
	rt.mu.RLock()
	w, ok := rt.elements[name]
	rt.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return object.UpgradeAs[*Element](w)
}

// Names returns the names of live elements in creation order
func (rt *Runtime) Names() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]string, 0, len(rt.order))
	for _, n := range rt.order {
		if !rt.elements[n].Expired() {
			out = append(out, n)
		}
	}
	return out
}

// EachElement calls fn for every live element in creation order until fn
// returns false. The element is only referenced for the duration of fn.
func (rt *Runtime) EachElement(fn func(el *Element) bool) {
	for _, name := range rt.Names() {
		el, ok := rt.Element(name)
		if !ok {
			continue
		}
		cont := fn(el)
		el.Release()
		if !cont {
			return
		}
	}
}

// Load recreates an element from the output of Element.Save
func (rt *Runtime) Load(saved *settings.Data) (*Element, error) {
	if saved == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Runtime", "Load", "load element")
	}
	typeID := saved.GetString("id")
	if typeID == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: id", errors.ErrMissingConfig), "Runtime", "Load", "load element")
	}
	id := uuid.Nil
	if raw := saved.GetString("uuid"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: uuid: %w", errors.ErrInvalidConfig, err),
				"Runtime", "Load", "parse element uuid")
		}
		id = parsed
	}

	s := saved.GetObj("settings")
	el, err := rt.instantiate(typeID, saved.GetString("name"), s, id)
	if err != nil {
		return nil, err
	}
	if l, ok := el.inst.(Loader); ok && s != nil {
		l.Load(s)
	}
	el.Signals().Emit(SignalLoad, signal.NewCallData().Set("element", el).Set("data", saved))
	return el, nil
}

// Shutdown removes every live element. Elements are disposed once their
// holders release them.
func (rt *Runtime) Shutdown() {
	rt.EachElement(func(el *Element) bool {
		el.Remove()
		return true
	})
	rt.logger.Debug("Runtime shut down")
}
