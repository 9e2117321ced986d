package object

import "sync/atomic"

// Weak is a non-owning handle to an Object
type Weak struct {
	block    *weakBlock
	released atomic.Bool
}

// Upgrade returns the object with a new strong reference, or nil once the
// object's strong count has reached zero. The caller must Release the
// returned object.
func (w *Weak) Upgrade() *Object {
	if w == nil || w.released.Load() {
		return nil
	}
	o := w.block.target.Load()
	if o == nil {
		return nil
	}
	// The strong count is the only arbiter: once it reached zero the
	// object is disposing even if target is not cleared yet.
	for {
		n := o.refs.Load()
		if n <= 0 {
			return nil
		}
		if o.refs.CompareAndSwap(n, n+1) {
			return o
		}
	}
}

// Release drops the weak handle. Further calls are no-ops.
func (w *Weak) Release() {
	if w == nil {
		return
	}
	if w.released.CompareAndSwap(false, true) {
		w.block.weakRefs.Add(-1)
	}
}

// Expired reports whether the object can no longer be upgraded
func (w *Weak) Expired() bool {
	if w == nil || w.released.Load() {
		return true
	}
	o := w.block.target.Load()
	return o == nil || o.refs.Load() <= 0
}

// References reports whether w points at o
func (w *Weak) References(o *Object) bool {
	return w != nil && o != nil && w.block == o.weak.Load()
}

// UpgradeAs upgrades w and returns the object's owner as T. When the owner
// is not a T the reference is dropped again and ok is false.
func UpgradeAs[T any](w *Weak) (T, bool) {
	var zero T
	obj := w.Upgrade()
	if obj == nil {
		return zero, false
	}
	t, ok := obj.owner.(T)
	if !ok {
		obj.Release()
		return zero, false
	}
	return t, true
}
