package object

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
)

// Kind tags the entity an Object belongs to
type Kind int

const (
	// KindSource is an element that produces buffers
	KindSource Kind = iota
	// KindProcess is an element that transforms or routes buffers
	KindProcess
	// KindOutput is an element that consumes buffers
	KindOutput
	// KindPad is a dataflow endpoint
	KindPad
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindProcess:
		return "process"
	case KindOutput:
		return "output"
	case KindPad:
		return "pad"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Disposer is implemented by the entity embedding an Object. Dispose runs
// once, after the last strong reference is released. It must not Retain the
// object.
type Disposer interface {
	Dispose()
}

// weakBlock is allocated by the first WeakRef and shared by every weak
// handle. target is cleared once disposal completes; the block itself lives
// as long as a handle references it.
type weakBlock struct {
	weakRefs atomic.Int64
	target   atomic.Pointer[Object]
}

// Object is the reference-counted core of every runtime entity
type Object struct {
	refs     atomic.Int64
	weak     atomic.Pointer[weakBlock]
	id       uuid.UUID
	kind     Kind
	owner    Disposer
	settings *settings.Data
	signals  *signal.Handler
	procs    *signal.ProcHandler

	mu   sync.RWMutex
	name string
}

// Option configures an Object at construction
type Option func(*Object)

// WithOwner sets the entity whose Dispose runs on final release
func WithOwner(owner Disposer) Option {
	return func(o *Object) { o.owner = owner }
}

// WithSettings sets the settings container. A nil container is replaced by
// an empty one.
func WithSettings(s *settings.Data) Option {
	return func(o *Object) {
		if s != nil {
			o.settings = s
		}
	}
}

// WithSignals declares signals on the object's handler
func WithSignals(names ...string) Option {
	return func(o *Object) { o.signals.Declare(names...) }
}

// WithID sets the object's identity, used when restoring saved elements
func WithID(id uuid.UUID) Option {
	return func(o *Object) {
		if id != uuid.Nil {
			o.id = id
		}
	}
}

// New creates an Object holding one strong reference
func New(kind Kind, name string, opts ...Option) *Object {
	o := &Object{
		id:       uuid.New(),
		kind:     kind,
		name:     name,
		settings: settings.New(),
		signals:  signal.NewHandler(),
		procs:    signal.NewProcHandler(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.refs.Store(1)
	return o
}

// Retain takes an additional strong reference and returns the receiver
func (o *Object) Retain() *Object {
	for {
		n := o.refs.Load()
		if n <= 0 {
			panic(fmt.Errorf("object %q: %w", o.Name(), errors.ErrRetainDisposed))
		}
		if o.refs.CompareAndSwap(n, n+1) {
			return o
		}
	}
}

// Release drops a strong reference. The release that brings the count to
// zero disposes the object on the calling goroutine.
func (o *Object) Release() {
	n := o.refs.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		panic(fmt.Errorf("object %q: %w", o.Name(), errors.ErrOverRelease))
	}

	if o.owner != nil {
		o.owner.Dispose()
	}
	if wb := o.weak.Load(); wb != nil {
		wb.target.Store(nil)
	}
}

// WeakRef returns a new weak handle to the object. The caller must hold a
// strong reference.
func (o *Object) WeakRef() *Weak {
	wb := o.weak.Load()
	if wb == nil {
		fresh := &weakBlock{}
		fresh.target.Store(o)
		if o.weak.CompareAndSwap(nil, fresh) {
			wb = fresh
		} else {
			wb = o.weak.Load()
		}
	}
	wb.weakRefs.Add(1)
	return &Weak{block: wb}
}

// RefCount returns the current strong count
func (o *Object) RefCount() int64 { return o.refs.Load() }

// WeakCount returns the number of live weak handles
func (o *Object) WeakCount() int64 {
	if wb := o.weak.Load(); wb != nil {
		return wb.weakRefs.Load()
	}
	return 0
}

// Alive reports whether the object still holds strong references
func (o *Object) Alive() bool { return o.refs.Load() > 0 }

// ID returns the object's UUID
func (o *Object) ID() uuid.UUID { return o.id }

// Kind returns the object's type tag
func (o *Object) Kind() Kind { return o.kind }

// Owner returns the embedding entity, if any
func (o *Object) Owner() Disposer { return o.owner }

// Settings returns the object's settings container
func (o *Object) Settings() *settings.Data { return o.settings }

// Signals returns the object's signal handler
func (o *Object) Signals() *signal.Handler { return o.signals }

// Procs returns the object's procedure handler
func (o *Object) Procs() *signal.ProcHandler { return o.procs }

// Name returns the current name
func (o *Object) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name
}

// SetName changes the name and returns the previous one
func (o *Object) SetName(name string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.name
	o.name = name
	return prev
}
