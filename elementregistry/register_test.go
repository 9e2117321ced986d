package elementregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/object"
)

func TestRegister_AllTypes(t *testing.T) {
	rt := element.NewRuntime()
	require.NoError(t, Register(rt, Dependencies{}))

	expected := map[string]object.Kind{
		"counter_source":   object.KindSource,
		"text_file_source": object.KindSource,
		"udp_source":       object.KindSource,
		"nats_source":      object.KindSource,
		"websocket_source": object.KindSource,
		"queue":            object.KindProcess,
		"dispatch":         object.KindProcess,
		"parse":            object.KindProcess,
		"json_filter":      object.KindProcess,
		"json_map":         object.KindProcess,
		"dedup":            object.KindProcess,
		"collect_sink":     object.KindOutput,
		"file_output":      object.KindOutput,
		"xml_output":       object.KindOutput,
		"http_output":      object.KindOutput,
		"nats_output":      object.KindOutput,
		"redis_output":     object.KindOutput,
		"websocket_output": object.KindOutput,
	}
	assert.ElementsMatch(t, keys(expected), rt.Types())
	for id, kind := range expected {
		info, ok := rt.TypeInfo(id)
		require.True(t, ok, id)
		assert.Equal(t, kind, info.Kind, id)
		assert.NotEmpty(t, info.DisplayName, id)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	rt := element.NewRuntime()
	require.NoError(t, Register(rt, Dependencies{}))
	require.NoError(t, Register(rt, Dependencies{}))
	assert.Len(t, rt.Types(), 18)
}

func TestRegister_NilRuntime(t *testing.T) {
	err := Register(nil, Dependencies{})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func keys(m map[string]object.Kind) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
