package textfile

import (
	"context"
	"path/filepath"
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

func newReader(t *testing.T, values map[string]any) (*element.Element, *testutil.Recorder) {
	t.Helper()
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))

	s, err := settings.FromMap(values)
	require.NoError(t, err)
	el, err := rt.Instantiate(TypeID, "reader", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	rec := testutil.NewRecorder()
	require.Equal(t, pad.LinkOK, pad.Link(el.Pad("src"), rec.Pad()))
	return el, rec
}

func TestTextFile_ReadsLinesThenEOS(t *testing.T) {
	path := testutil.WriteLines(t, "app.log", testutil.SampleLogLines)
	el, rec := newReader(t, map[string]any{"file": path})

	require.NoError(t, el.Start(context.Background()))
	defer el.Stop()

	rec.WaitForEOS(t, 2*time.Second)
	assert.Equal(t, testutil.SampleLogLines, rec.Strings())
	assert.Equal(t, uint64(1), rec.Buffers()[0].Offset)
}

func TestTextFile_SkipEmpty(t *testing.T) {
	lines := []string{"first", "", "second", "", "", "third"}
	path := testutil.WriteLines(t, "gaps.log", lines)

	t.Run("skip", func(t *testing.T) {
		el, rec := newReader(t, map[string]any{"file": path})
		require.NoError(t, el.Start(context.Background()))
		defer el.Stop()
		rec.WaitForEOS(t, 2*time.Second)
		assert.Equal(t, []string{"first", "second", "third"}, rec.Strings())
	})

	t.Run("keep", func(t *testing.T) {
		el, rec := newReader(t, map[string]any{"file": path, "skip_empty": false})
		require.NoError(t, el.Start(context.Background()))
		defer el.Stop()
		rec.WaitForEOS(t, 2*time.Second)
		assert.Equal(t, lines, rec.Strings())
	})
}

func TestTextFile_RestartReadsAgain(t *testing.T) {
	path := testutil.WriteLines(t, "short.log", []string{"a", "b"})
	el, rec := newReader(t, map[string]any{"file": path})

	require.NoError(t, el.Start(context.Background()))
	rec.WaitForEOS(t, 2*time.Second)
	el.Stop()

	require.NoError(t, el.Start(context.Background()))
	defer el.Stop()
	rec.WaitForCount(t, 4, 2*time.Second)
	assert.Equal(t, []string{"a", "b", "a", "b"}, rec.Strings())
}

func TestTextFile_StartErrors(t *testing.T) {
	t.Run("missing setting", func(t *testing.T) {
		el, _ := newReader(t, map[string]any{})
		err := el.Start(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingConfig)
		assert.False(t, el.Running())
	})

	t.Run("missing file", func(t *testing.T) {
		el, _ := newReader(t, map[string]any{"file": filepath.Join(t.TempDir(), "absent.log")})
		err := el.Start(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})
}
