package jsonmapprocessor

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	mock "github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

func newMapElement(t *testing.T, values map[string]any, opts ...element.Option) (*Processor, *mock.Feeder, *mock.Recorder) {
	t.Helper()
	rt := element.NewRuntime(opts...)
	require.NoError(t, Register(rt))

	s, err := settings.FromMap(values)
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "mapper", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := mock.NewFeeder()
	rec := mock.NewRecorder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	require.Equal(t, pad.LinkOK, pad.Link(el.Pad("src"), rec.Pad()))
	return el.Instance().(*Processor), feeder, rec
}

func decoded(t *testing.T, buf *pad.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Data, &out))
	return out
}

func TestJSONMap_TimestampTransforms(t *testing.T) {
	_, feeder, rec := newMapElement(t, map[string]any{"mappings": []any{
		map[string]any{"source_field": "time", "target_field": "ts", "transform": "unix_ms"},
		map[string]any{"source_field": "epoch", "target_field": "at", "transform": "rfc3339"},
		map[string]any{"source_field": "bad", "target_field": "bad", "transform": "unix_ms"},
	}})

	require.Equal(t, pad.FlowOK, feeder.PushString(`{"time":"2023-01-15T12:30:45Z","epoch":1673785845,"bad":"soon"}`))
	bufs := rec.Buffers()
	require.Len(t, bufs, 1)

	out := bufs[0].Value.(map[string]any)
	assert.Equal(t, int64(1673785845000), out["ts"])
	assert.Equal(t, "2023-01-15T12:30:45Z", out["at"])
	assert.Equal(t, "soon", out["bad"])
}

func TestJSONMap_TransformMessage(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]any
		input    string
		expected map[string]any
	}{
		{
			name: "rename",
			values: map[string]any{"mappings": []any{
				map[string]any{"source_field": "temp", "target_field": "temperature"},
			}},
			input:    `{"temp":21.5,"unit":"C"}`,
			expected: map[string]any{"temperature": 21.5, "unit": "C"},
		},
		{
			name: "transforms",
			values: map[string]any{"mappings": []any{
				map[string]any{"source_field": "lvl", "target_field": "level", "transform": "lowercase"},
				map[string]any{"source_field": "host", "target_field": "host", "transform": "trim"},
				map[string]any{"source_field": "svc", "target_field": "svc", "transform": "uppercase"},
			}},
			input:    `{"lvl":"ERROR","host":"  db1 ","svc":"api"}`,
			expected: map[string]any{"level": "error", "host": "db1", "svc": "API"},
		},
		{
			name: "nested paths",
			values: map[string]any{"mappings": []any{
				map[string]any{"source_field": "req.path", "target_field": "http.path"},
			}},
			input:    `{"req":{"path":"/x","method":"GET"}}`,
			expected: map[string]any{"req": map[string]any{"method": "GET"}, "http": map[string]any{"path": "/x"}},
		},
		{
			name:     "remove and add",
			values:   map[string]any{"remove_fields": "password, token", "add_fields": map[string]any{"env": "prod"}},
			input:    `{"user":"bob","password":"x","token":"y"}`,
			expected: map[string]any{"user": "bob", "env": "prod"},
		},
		{
			name: "missing source",
			values: map[string]any{"mappings": []any{
				map[string]any{"source_field": "absent", "target_field": "present"},
			}},
			input:    `{"a":1}`,
			expected: map[string]any{"a": 1.0},
		},
		{
			name: "transform ignores numbers",
			values: map[string]any{"mappings": []any{
				map[string]any{"source_field": "n", "target_field": "n", "transform": "uppercase"},
			}},
			input:    `{"n":3}`,
			expected: map[string]any{"n": 3.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, feeder, rec := newMapElement(t, tt.values)
			require.Equal(t, pad.FlowOK, feeder.PushString(tt.input))
			bufs := rec.Buffers()
			require.Len(t, bufs, 1)
			assert.Equal(t, tt.expected, decoded(t, bufs[0]))
			assert.Equal(t, tt.expected, bufs[0].Value)
		})
	}
}

func TestJSONMap_DoesNotMutateInput(t *testing.T) {
	_, feeder, rec := newMapElement(t, map[string]any{
		"remove_fields": "req.secret",
		"mappings": []any{
			map[string]any{"source_field": "req.path", "target_field": "path", "transform": "uppercase"},
		},
	})
	in := map[string]any{"req": map[string]any{"path": "/a", "secret": "s"}}
	require.Equal(t, pad.FlowOK, feeder.PushValue(in, nil))

	assert.Equal(t, map[string]any{"req": map[string]any{"path": "/a", "secret": "s"}}, in)
	require.Equal(t, 1, rec.Count())
	assert.Equal(t, map[string]any{"req": map[string]any{}, "path": "/A"}, rec.Values()[0])
}

func TestJSONMap_CarriesBufferFields(t *testing.T) {
	_, feeder, rec := newMapElement(t, map[string]any{"add_fields": map[string]any{"x": true}})

	buf := pad.NewBuffer([]byte(`{}`))
	buf.Offset = 42
	buf.Metadata().SetString("source", "syslog")
	require.Equal(t, pad.FlowOK, feeder.Pad().Push(buf))
	buf.Release()

	out := rec.Buffers()[0]
	assert.EqualValues(t, 42, out.Offset)
	assert.Equal(t, buf.Timestamp, out.Timestamp)
	assert.Equal(t, "syslog", out.Metadata().GetString("source"))
}

func TestJSONMap_InvalidPayload(t *testing.T) {
	m, feeder, rec := newMapElement(t, map[string]any{})
	assert.Equal(t, pad.FlowOK, feeder.PushString("plain text"))
	assert.Zero(t, rec.Count())
	_, _, errs := m.Stats()
	assert.EqualValues(t, 1, errs)

	_, feeder, rec = newMapElement(t, map[string]any{"on_invalid": "pass"})
	feeder.PushString("plain text")
	assert.Equal(t, []string{"plain text"}, rec.Strings())
}

func TestJSONMap_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing target", map[string]any{"mappings": []any{map[string]any{"source_field": "a"}}}},
		{"unknown transform", map[string]any{"mappings": []any{
			map[string]any{"source_field": "a", "target_field": "b", "transform": "reverse"},
		}}},
		{"unknown on_invalid", map[string]any{"on_invalid": "keep"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := element.NewRuntime()
			require.NoError(t, Register(rt))
			s, err := settings.FromMap(tt.values)
			require.NoError(t, err)
			_, err = rt.Instantiate(TypeID, "mapper", s)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestJSONMap_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m, feeder, _ := newMapElement(t, map[string]any{
		"remove_fields": "a",
		"mappings": []any{
			map[string]any{"source_field": "b", "target_field": "c"},
			map[string]any{"source_field": "missing", "target_field": "d"},
		},
	}, element.WithMetrics(registry))

	feeder.PushString(`{"a":1,"b":2}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.transformationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.fieldsRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.fieldsMapped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.extractionErrors.WithLabelValues("missing_field")))

	m.Destroy()
	assert.Zero(t, registry.UnregisterOwner("json_map:mapper"))
}
