package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

const maxJSONDepth = 100

// FromJSON parses the canonical JSON form. Keys keep document order,
// integral numbers become int64 and everything else float64. Nulls are
// skipped, as are non-object array items.
func FromJSON(text string) (*Data, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Settings", "FromJSON", "read document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Settings", "FromJSON", "expect top-level object")
	}

	d, err := decodeObject(dec, 1)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Settings", "FromJSON", "decode object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Settings", "FromJSON", "trailing data")
	}
	return d, nil
}

// decodeObject consumes an object whose opening brace was already read
func decodeObject(dec *json.Decoder, depth int) (*Data, error) {
	if depth > maxJSONDepth {
		return nil, fmt.Errorf("nesting depth exceeds %d", maxJSONDepth)
	}

	d := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}

		v, err := decodeValue(dec, depth)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if v != nil {
			d.set(layerUser, key, v)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return d, nil
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeArray(dec *json.Decoder, depth int) (*Array, error) {
	if depth > maxJSONDepth {
		return nil, fmt.Errorf("nesting depth exceeds %d", maxJSONDepth)
	}

	a := NewArray()
	for dec.More() {
		v, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}
		if obj, ok := v.(*Data); ok {
			a.Push(obj)
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return a, nil
}

// JSON returns the compact canonical form holding user values only
func (d *Data) JSON() (string, error) {
	var buf bytes.Buffer
	if err := d.writeJSON(&buf); err != nil {
		return "", errors.Wrap(err, "Settings", "JSON", "encode")
	}
	return buf.String(), nil
}

// PrettyJSON returns the canonical form indented by four spaces
func (d *Data) PrettyJSON() (string, error) {
	compact, err := d.JSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(compact), "", "    "); err != nil {
		return "", errors.Wrap(err, "Settings", "PrettyJSON", "indent")
	}
	return buf.String(), nil
}

// MarshalJSON implements json.Marshaler with the canonical form
func (d *Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Existing content is replaced.
func (d *Data) UnmarshalJSON(b []byte) error {
	parsed, err := FromJSON(string(b))
	if err != nil {
		return err
	}
	parsed.mu.RLock()
	defer parsed.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = parsed.keys
	d.items = parsed.items
	return nil
}

func (d *Data) writeJSON(buf *bytes.Buffer) error {
	d.mu.RLock()
	keys := make([]string, 0, len(d.keys))
	vals := make([]any, 0, len(d.keys))
	for _, k := range d.keys {
		if v := d.items[k].values[layerUser]; v != nil {
			keys = append(keys, k)
			vals = append(vals, v)
		}
	}
	d.mu.RUnlock()

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := writeJSONValue(buf, vals[i]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case *Data:
		return t.writeJSON(buf)
	case *Array:
		buf.WriteByte('[')
		for i, it := range t.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := it.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case float64:
		// Keep floats distinguishable from integers on the way back in.
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, '.', '0')
		}
		buf.Write(b)
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
