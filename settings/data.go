package settings

import (
	"sync"
)

// Type identifies the kind of value stored under a key
type Type int

const (
	// TypeNull means no value is set on any layer
	TypeNull Type = iota
	// TypeBool is a boolean value
	TypeBool
	// TypeInt is a 64-bit integer value
	TypeInt
	// TypeFloat is a 64-bit floating point value
	TypeFloat
	// TypeString is a string value
	TypeString
	// TypeObject is a nested *Data
	TypeObject
	// TypeArray is an *Array of nested *Data
	TypeArray
)

// String returns a string representation of the value type
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	default:
		return "unknown"
	}
}

type layer int

const (
	layerUser layer = iota
	layerDefault
	layerAutoselect
	layerCount
)

type item struct {
	values [layerCount]any
}

func (it *item) empty() bool {
	for _, v := range it.values {
		if v != nil {
			return false
		}
	}
	return true
}

// Data is an ordered, layered key/value container. The zero value is not
// usable; create one with New. Data is safe for concurrent use.
type Data struct {
	mu    sync.RWMutex
	keys  []string
	items map[string]*item
}

// New creates an empty container
func New() *Data {
	return &Data{items: make(map[string]*item)}
}

func typeOf(v any) Type {
	switch v.(type) {
	case bool:
		return TypeBool
	case int64:
		return TypeInt
	case float64:
		return TypeFloat
	case string:
		return TypeString
	case *Data:
		return TypeObject
	case *Array:
		return TypeArray
	default:
		return TypeNull
	}
}

func (d *Data) set(l layer, key string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, ok := d.items[key]
	if !ok {
		it = &item{}
		d.items[key] = it
		d.keys = append(d.keys, key)
	}
	it.values[l] = v
}

func (d *Data) unset(l layer, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, ok := d.items[key]
	if !ok {
		return
	}
	it.values[l] = nil
	if it.empty() {
		d.removeLocked(key)
	}
}

func (d *Data) removeLocked(key string) {
	delete(d.items, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			return
		}
	}
}

func (d *Data) layerValue(l layer, key string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if it, ok := d.items[key]; ok {
		return it.values[l]
	}
	return nil
}

// effective returns the user value, falling back to the default
func (d *Data) effective(key string) any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	it, ok := d.items[key]
	if !ok {
		return nil
	}
	if v := it.values[layerUser]; v != nil {
		return v
	}
	return it.values[layerDefault]
}

// Keys returns the keys in insertion order
func (d *Data) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of keys holding a value on any layer
func (d *Data) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.keys)
}

// Type returns the type of the effective value under key
func (d *Data) Type(key string) Type {
	return typeOf(d.effective(key))
}

// Erase removes key from every layer
func (d *Data) Erase(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[key]; ok {
		d.removeLocked(key)
	}
}

// Clear drops every user value and keeps defaults and autoselect values
func (d *Data) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := d.keys[:0:0]
	for _, k := range d.keys {
		it := d.items[k]
		it.values[layerUser] = nil
		if it.empty() {
			delete(d.items, k)
			continue
		}
		keys = append(keys, k)
	}
	d.keys = keys
}

// HasUserValue reports whether key has an explicitly set value
func (d *Data) HasUserValue(key string) bool { return d.layerValue(layerUser, key) != nil }

// HasDefaultValue reports whether key has a registered default
func (d *Data) HasDefaultValue(key string) bool { return d.layerValue(layerDefault, key) != nil }

// HasAutoselectValue reports whether key has an autoselect value
func (d *Data) HasAutoselectValue(key string) bool {
	return d.layerValue(layerAutoselect, key) != nil
}

// Unset removes the user value of key
func (d *Data) Unset(key string) { d.unset(layerUser, key) }

// UnsetDefault removes the default value of key
func (d *Data) UnsetDefault(key string) { d.unset(layerDefault, key) }

// UnsetAutoselect removes the autoselect value of key
func (d *Data) UnsetAutoselect(key string) { d.unset(layerAutoselect, key) }

// Apply merges the user values of other over d. Nested objects present on
// both sides are merged recursively, everything else is replaced by a copy.
func (d *Data) Apply(other *Data) {
	if other == nil || other == d {
		return
	}

	other.mu.RLock()
	keys := make([]string, 0, len(other.keys))
	vals := make([]any, 0, len(other.keys))
	for _, k := range other.keys {
		if v := other.items[k].values[layerUser]; v != nil {
			keys = append(keys, k)
			vals = append(vals, v)
		}
	}
	other.mu.RUnlock()

	for i, k := range keys {
		if src, ok := vals[i].(*Data); ok {
			if dst, ok := d.layerValue(layerUser, k).(*Data); ok && dst != src {
				dst.Apply(src)
				continue
			}
		}
		d.set(layerUser, k, cloneValue(vals[i]))
	}
}

// Defaults returns a new container whose user values are the defaults of d
func (d *Data) Defaults() *Data {
	out := New()
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, k := range d.keys {
		if v := d.items[k].values[layerDefault]; v != nil {
			out.set(layerUser, k, cloneValue(v))
		}
	}
	return out
}

// Clone returns a deep copy of every layer
func (d *Data) Clone() *Data {
	out := New()
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, k := range d.keys {
		src := d.items[k]
		it := &item{}
		for l := range src.values {
			it.values[l] = cloneValue(src.values[l])
		}
		out.items[k] = it
		out.keys = append(out.keys, k)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Data:
		return t.Clone()
	case *Array:
		return t.Clone()
	default:
		return v
	}
}
