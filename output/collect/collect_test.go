package collect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/element"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pad"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/signal"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/testutil"
)

func newSinkElement(t *testing.T, maxItems int64) (*element.Element, *Sink, *testutil.Feeder) {
	t.Helper()
	rt := element.NewRuntime()
	require.NoError(t, Register(rt))

	s := settings.New()
	s.SetInt("max_items", maxItems)
	el, err := rt.Instantiate(TypeID, "", s)
	require.NoError(t, err)
	t.Cleanup(el.Release)

	feeder := testutil.NewFeeder()
	require.Equal(t, pad.LinkOK, pad.Link(feeder.Pad(), el.Pad("sink")))
	return el, el.Instance().(*Sink), feeder
}

func TestCollect_StoresBuffers(t *testing.T) {
	_, sink, feeder := newSinkElement(t, 0)

	for _, line := range testutil.SampleLogLines {
		require.Equal(t, pad.FlowOK, feeder.PushString(line))
	}
	assert.Equal(t, testutil.SampleLogLines, sink.Strings())
	assert.Equal(t, len(testutil.SampleLogLines), sink.Len())

	for _, b := range sink.Buffers() {
		assert.Equal(t, int32(1), b.RefCount(), "sink holds the only reference")
	}
}

func TestCollect_MaxItemsKeepsNewest(t *testing.T) {
	_, sink, feeder := newSinkElement(t, 2)

	for _, s := range []string{"a", "b", "c", "d"} {
		require.Equal(t, pad.FlowOK, feeder.PushString(s))
	}
	assert.Equal(t, []string{"c", "d"}, sink.Strings())
	assert.Equal(t, int64(2), sink.Dropped())
}

func TestCollect_EOS(t *testing.T) {
	el, sink, feeder := newSinkElement(t, 0)

	var signalled bool
	el.Signals().Connect(element.SignalEOS, func(*signal.CallData) { signalled = true })

	require.Equal(t, pad.FlowOK, feeder.PushString("last"))
	assert.True(t, feeder.EOS())

	select {
	case <-sink.EOS():
	case <-time.After(time.Second):
		t.Fatal("EOS not recorded")
	}
	assert.True(t, signalled)
	assert.Equal(t, pad.FlowEOS, feeder.PushString("after"), "sink pad refuses buffers after EOS")
}

func TestCollect_UpdateAndReset(t *testing.T) {
	el, sink, feeder := newSinkElement(t, 0)

	update := settings.New()
	update.SetInt("max_items", 1)
	el.Update(update)

	feeder.PushString("x")
	feeder.PushString("y")
	assert.Equal(t, []string{"y"}, sink.Strings())

	sink.Reset()
	assert.Equal(t, 0, sink.Len())
}
