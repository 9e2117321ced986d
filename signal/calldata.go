package signal

import "sync"

// CallData is the parameter bag passed to signal callbacks and procedures.
// It is safe for concurrent use.
type CallData struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewCallData creates an empty parameter bag
func NewCallData() *CallData {
	return &CallData{values: make(map[string]any)}
}

// Set stores a value under key and returns the receiver for chaining
func (cd *CallData) Set(key string, value any) *CallData {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	if cd.values == nil {
		cd.values = make(map[string]any)
	}
	cd.values[key] = value
	return cd
}

// Get returns the raw value stored under key
func (cd *CallData) Get(key string) (any, bool) {
	if cd == nil {
		return nil, false
	}
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	v, ok := cd.values[key]
	return v, ok
}

// String returns the string under key, or "" when absent or of another type
func (cd *CallData) String(key string) string {
	v, _ := cd.Get(key)
	s, _ := v.(string)
	return s
}

// Int returns the integer under key. Any Go integer type is accepted.
func (cd *CallData) Int(key string) int64 {
	v, _ := cd.Get(key)
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

// Bool returns the boolean under key
func (cd *CallData) Bool(key string) bool {
	v, _ := cd.Get(key)
	b, _ := v.(bool)
	return b
}

// Ptr returns the value under key, typically a pointer to a runtime object
func (cd *CallData) Ptr(key string) any {
	v, _ := cd.Get(key)
	return v
}
