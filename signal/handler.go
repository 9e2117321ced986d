package signal

import (
	"sort"
	"sync"
)

// Callback receives the parameters of an emitted signal
type Callback func(cd *CallData)

// ConnectionID identifies a single connected callback
type ConnectionID uint64

type connection struct {
	id ConnectionID
	fn Callback
}

// Handler dispatches named signals to connected callbacks
type Handler struct {
	mu       sync.RWMutex
	signals  map[string][]connection
	bySignal map[ConnectionID]string
	nextID   ConnectionID
}

// NewHandler creates a handler with the given signals declared
func NewHandler(signals ...string) *Handler {
	h := &Handler{
		signals:  make(map[string][]connection),
		bySignal: make(map[ConnectionID]string),
	}
	for _, name := range signals {
		h.signals[name] = nil
	}
	return h
}

// Declare adds signals to the handler. Redeclaring a signal keeps its
// existing connections.
func (h *Handler) Declare(signals ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, name := range signals {
		if _, ok := h.signals[name]; !ok {
			h.signals[name] = nil
		}
	}
}

// Declared reports whether name is a declared signal
func (h *Handler) Declared(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.signals[name]
	return ok
}

// Signals lists the declared signal names in sorted order
func (h *Handler) Signals() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.signals))
	for name := range h.signals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect attaches fn to a declared signal. It returns 0 and false when the
// signal is unknown or fn is nil.
func (h *Handler) Connect(name string, fn Callback) (ConnectionID, bool) {
	if fn == nil {
		return 0, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.signals[name]
	if !ok {
		return 0, false
	}
	h.nextID++
	id := h.nextID
	h.signals[name] = append(conns, connection{id: id, fn: fn})
	h.bySignal[id] = name
	return id, true
}

// Disconnect removes a connected callback. Unknown ids are ignored.
func (h *Handler) Disconnect(id ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	name, ok := h.bySignal[id]
	if !ok {
		return
	}
	delete(h.bySignal, id)

	conns := h.signals[name]
	for i, c := range conns {
		if c.id == id {
			// Copy so a concurrent Emit iterating the old slice is unaffected.
			next := make([]connection, 0, len(conns)-1)
			next = append(next, conns[:i]...)
			h.signals[name] = append(next, conns[i+1:]...)
			break
		}
	}
}

// Emit invokes every callback connected to name, in connection order,
// outside the handler lock. It reports whether the signal is declared.
func (h *Handler) Emit(name string, cd *CallData) bool {
	h.mu.RLock()
	conns, ok := h.signals[name]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if cd == nil {
		cd = NewCallData()
	}
	for _, c := range conns {
		c.fn(cd)
	}
	return true
}

// Connections returns the number of callbacks connected to name
func (h *Handler) Connections(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.signals[name])
}
