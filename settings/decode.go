package settings

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// Map returns the effective values (user over default) as plain Go values.
// Nested objects become map[string]any and arrays []any.
func (d *Data) Map() map[string]any {
	d.mu.RLock()
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	d.mu.RUnlock()

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v := d.effective(k); v != nil {
			out[k] = plainValue(v)
		}
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Data:
		return t.Map()
	case *Array:
		items := t.Items()
		out := make([]any, 0, len(items))
		for _, it := range items {
			out = append(out, it.Map())
		}
		return out
	default:
		return v
	}
}

// FromMap builds a container from plain Go values. Map keys are added in
// sorted order since Go maps carry none.
func FromMap(m map[string]any) (*Data, error) {
	d := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := fromPlain(m[k])
		if err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("key %q: %w", k, err), "Settings", "FromMap", "convert value")
		}
		if v != nil {
			d.set(layerUser, k, v)
		}
	}
	return d, nil
}

func fromPlain(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string:
		return t, nil
	case *Data:
		return t.Clone(), nil
	case map[string]any:
		return FromMap(t)
	case []any:
		a := NewArray()
		for _, it := range t {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			obj, err := FromMap(m)
			if err != nil {
				return nil, err
			}
			a.Push(obj)
		}
		return a, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

// Decode copies the effective values into out, a pointer to a struct or map.
// Field names come from json tags and input is weakly typed, so "10s"
// decodes into a time.Duration and 1 into a bool.
func (d *Data) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.WrapFatal(err, "Settings", "Decode", "create decoder")
	}
	if err := dec.Decode(d.Map()); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidSetting, err), "Settings", "Decode", "decode values")
	}
	return nil
}
