package settings

import "sync"

// Array is an ordered list of nested containers. It is safe for concurrent use.
type Array struct {
	mu    sync.RWMutex
	items []*Data
}

// NewArray creates an array holding items
func NewArray(items ...*Data) *Array {
	a := &Array{}
	for _, it := range items {
		if it != nil {
			a.items = append(a.items, it)
		}
	}
	return a
}

// Len returns the number of items
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Item returns the item at idx, or nil when out of range
func (a *Array) Item(idx int) *Data {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if idx < 0 || idx >= len(a.items) {
		return nil
	}
	return a.items[idx]
}

// Items returns a snapshot of the items
func (a *Array) Items() []*Data {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Data, len(a.items))
	copy(out, a.items)
	return out
}

// Push appends an item and returns its index
func (a *Array) Push(d *Data) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d == nil {
		return -1
	}
	a.items = append(a.items, d)
	return len(a.items) - 1
}

// Insert places d at idx, clamping idx to the valid range
func (a *Array) Insert(idx int, d *Data) {
	if d == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(a.items) {
		a.items = append(a.items, d)
		return
	}
	a.items = append(a.items[:idx+1], a.items[idx:]...)
	a.items[idx] = d
}

// Erase removes the item at idx
func (a *Array) Erase(idx int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx < 0 || idx >= len(a.items) {
		return
	}
	a.items = append(a.items[:idx], a.items[idx+1:]...)
}

// Swap exchanges two items
func (a *Array) Swap(i, j int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || j < 0 || i >= len(a.items) || j >= len(a.items) {
		return
	}
	a.items[i], a.items[j] = a.items[j], a.items[i]
}

// Clone returns a deep copy
func (a *Array) Clone() *Array {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := &Array{items: make([]*Data, 0, len(a.items))}
	for _, it := range a.items {
		out.items = append(out.items, it.Clone())
	}
	return out
}
