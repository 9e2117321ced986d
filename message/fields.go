package message

import (
	"encoding/json"
	"strings"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
)

// Object returns the JSON object carried by buf. A map[string]any Value is
// used as is; otherwise Data is parsed. Non-object payloads fail with
// ErrInvalidData.
func Object(buf *pad.Buffer) (map[string]any, error) {
	if m, ok := buf.Value.(map[string]any); ok {
		return m, nil
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Data, &m); err != nil || m == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "message", "Object", "parse JSON object")
	}
	return m, nil
}

// Lookup returns the value at a dot separated path. A key containing dots
// is matched before descending.
func Lookup(data map[string]any, path string) (any, bool) {
	if v, ok := data[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	child, ok := data[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return Lookup(child, rest)
}

// SetPath stores v at a dot separated path, creating intermediate objects.
// A non-object value on the way is replaced.
func SetPath(data map[string]any, path string, v any) {
	head, rest, found := strings.Cut(path, ".")
	if !found {
		data[path] = v
		return
	}
	child, ok := data[head].(map[string]any)
	if !ok {
		child = make(map[string]any)
		data[head] = child
	}
	SetPath(child, rest, v)
}

// DeletePath removes the value at a dot separated path and reports whether
// it existed
func DeletePath(data map[string]any, path string) bool {
	if _, ok := data[path]; ok {
		delete(data, path)
		return true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return false
	}
	child, ok := data[head].(map[string]any)
	if !ok {
		return false
	}
	return DeletePath(child, rest)
}
