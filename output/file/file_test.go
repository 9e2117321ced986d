package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

type fixture struct {
	el     *element.Element
	out    *Output
	feeder *testutil.Feeder
	path   string
}

func newFixture(t *testing.T, values map[string]any) *fixture {
	t.Helper()
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))

	path := filepath.Join(t.TempDir(), "nested", "out.log")
	if _, ok := values["path"]; !ok {
		values["path"] = path
	} else {
		path = values["path"].(string)
	}
	s, err := settings.FromMap(values)
	require.NoError(t, err)

	el, err := rt.Instantiate(TypeID, "writer", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := testutil.NewFeeder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	return &fixture{el: el, out: el.Instance().(*Output), feeder: feeder, path: path}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.el.Start(context.Background()))
	t.Cleanup(f.el.Stop)
}

func TestFileOutput_WritesLines(t *testing.T) {
	f := newFixture(t, map[string]any{"buffer_size": 1})
	f.start(t)

	for _, line := range testutil.SampleLogLines {
		require.Equal(t, pad.FlowOK, f.feeder.PushString(line))
	}
	assert.Equal(t, testutil.SampleLogLines, testutil.ReadLines(t, f.path))

	messages, _, errs := f.out.Stats()
	assert.Equal(t, int64(len(testutil.SampleLogLines)), messages)
	assert.Zero(t, errs)
}

func TestFileOutput_BuffersUntilEOS(t *testing.T) {
	f := newFixture(t, map[string]any{"buffer_size": 100, "flush_interval_ms": 0})
	f.start(t)

	require.Equal(t, pad.FlowOK, f.feeder.PushString("one"))
	require.Equal(t, pad.FlowOK, f.feeder.PushString("two"))
	assert.Equal(t, 2, f.out.Pending())

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Empty(t, data)

	f.feeder.EOS()
	assert.Zero(t, f.out.Pending())
	assert.Equal(t, []string{"one", "two"}, testutil.ReadLines(t, f.path))
}

func TestFileOutput_PeriodicFlush(t *testing.T) {
	f := newFixture(t, map[string]any{"buffer_size": 100, "flush_interval_ms": 20})
	f.start(t)

	require.Equal(t, pad.FlowOK, f.feeder.PushString("tick"))
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(f.path)
		return err == nil && string(data) == "tick\n"
	}, time.Second, 10*time.Millisecond)
}

func TestFileOutput_StopFlushes(t *testing.T) {
	f := newFixture(t, map[string]any{"buffer_size": 100, "flush_interval_ms": 0})
	require.NoError(t, f.el.Start(context.Background()))

	require.Equal(t, pad.FlowOK, f.feeder.PushString("last words"))
	f.el.Stop()

	assert.Equal(t, []string{"last words"}, testutil.ReadLines(t, f.path))
	assert.Equal(t, pad.FlowFlushing, f.feeder.PushString("too late"))
}

func TestFileOutput_JSONL(t *testing.T) {
	f := newFixture(t, map[string]any{"format": "jsonl", "buffer_size": 1})
	f.start(t)

	for _, line := range testutil.SampleJSONLines {
		require.Equal(t, pad.FlowOK, f.feeder.PushString(line))
	}
	require.Equal(t, pad.FlowOK, f.feeder.PushString("plain text"))

	lines := testutil.ReadLines(t, f.path)
	require.Len(t, lines, len(testutil.SampleJSONLines)+1)
	for _, l := range lines {
		assert.True(t, json.Valid([]byte(l)), l)
	}

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &rec))
	assert.Equal(t, "plain text", rec["data"])
	assert.Equal(t, "writer", rec["source"])
}

func TestFileOutput_AppendAndTruncate(t *testing.T) {
	path := testutil.WriteLines(t, "existing.log", []string{"old"})

	f := newFixture(t, map[string]any{"path": path, "buffer_size": 1})
	f.start(t)
	require.Equal(t, pad.FlowOK, f.feeder.PushString("new"))
	assert.Equal(t, []string{"old", "new"}, testutil.ReadLines(t, path))
	f.el.Stop()

	s := settings.New()
	s.SetBool("append", false)
	f.el.Update(s)
	require.NoError(t, f.el.Start(context.Background()))
	require.Equal(t, pad.FlowOK, f.feeder.PushString("fresh"))
	assert.Equal(t, []string{"fresh"}, testutil.ReadLines(t, path))
}

func TestFileOutput_RawFormat(t *testing.T) {
	f := newFixture(t, map[string]any{"format": "raw", "buffer_size": 1})
	f.start(t)

	require.Equal(t, pad.FlowOK, f.feeder.PushString("a"))
	require.Equal(t, pad.FlowOK, f.feeder.PushString("b"))
	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
}

func TestFileOutput_Invalid(t *testing.T) {
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))

	s := settings.New()
	s.SetString("format", "csv")
	_, err := rt.Instantiate(TypeID, "", s)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	el, err := rt.Instantiate(TypeID, "", nil)
	require.NoError(t, err)
	defer el.Release()
	err = el.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.True(t, strings.Contains(err.Error(), "path"))
}
