package signal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ConnectEmit(t *testing.T) {
	h := NewHandler("rename")

	var got []string
	_, ok := h.Connect("rename", func(cd *CallData) {
		got = append(got, cd.String("prev_name")+"->"+cd.String("new_name"))
	})
	require.True(t, ok)

	emitted := h.Emit("rename", NewCallData().Set("prev_name", "a").Set("new_name", "b"))
	assert.True(t, emitted)
	assert.Equal(t, []string{"a->b"}, got)
}

func TestHandler_UndeclaredSignal(t *testing.T) {
	h := NewHandler("destroy")

	_, ok := h.Connect("missing", func(*CallData) {})
	assert.False(t, ok)
	assert.False(t, h.Emit("missing", nil))
}

func TestHandler_EmitOrderAndDisconnect(t *testing.T) {
	h := NewHandler()
	h.Declare("update")

	var order []int
	id1, _ := h.Connect("update", func(*CallData) { order = append(order, 1) })
	_, _ = h.Connect("update", func(*CallData) { order = append(order, 2) })
	assert.Equal(t, 2, h.Connections("update"))

	h.Emit("update", nil)
	h.Disconnect(id1)
	h.Disconnect(id1)
	h.Emit("update", nil)

	assert.Equal(t, []int{1, 2, 2}, order)
	assert.Equal(t, 1, h.Connections("update"))
}

func TestHandler_ConcurrentEmitAndConnect(t *testing.T) {
	h := NewHandler("eos")

	var mu sync.Mutex
	count := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id, _ := h.Connect("eos", func(*CallData) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			h.Disconnect(id)
		}()
		go func() {
			defer wg.Done()
			h.Emit("eos", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Connections("eos"))
}

func TestCallData_TypedAccessors(t *testing.T) {
	obj := &struct{ n int }{n: 7}
	cd := NewCallData().
		Set("name", "source").
		Set("count", 42).
		Set("big", int64(1<<40)).
		Set("enabled", true).
		Set("object", obj)

	assert.Equal(t, "source", cd.String("name"))
	assert.Equal(t, int64(42), cd.Int("count"))
	assert.Equal(t, int64(1<<40), cd.Int("big"))
	assert.True(t, cd.Bool("enabled"))
	assert.Same(t, obj, cd.Ptr("object"))

	assert.Equal(t, "", cd.String("count"))
	assert.Equal(t, int64(0), cd.Int("name"))
	assert.Nil(t, cd.Ptr("missing"))
}

func TestProcHandler(t *testing.T) {
	p := NewProcHandler()
	p.Add("get_count", func(cd *CallData) { cd.Set("count", 3) })

	cd := NewCallData()
	assert.True(t, p.Call("get_count", cd))
	assert.Equal(t, int64(3), cd.Int("count"))

	p.Remove("get_count")
	assert.False(t, p.Call("get_count", cd))
}
