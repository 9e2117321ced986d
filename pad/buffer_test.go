package pad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaps(t *testing.T) {
	var nilCaps *Caps
	text := NewCaps("text/plain", "text/plain", "application/json")

	assert.True(t, nilCaps.IsAny())
	assert.Equal(t, "ANY", AnyCaps().String())
	assert.Equal(t, "text/plain; application/json", text.String())
	assert.Equal(t, []string{"text/plain", "application/json"}, text.Types())
	assert.Nil(t, AnyCaps().Types())

	assert.True(t, nilCaps.Intersects(text))
	assert.True(t, text.Intersects(AnyCaps()))
	assert.False(t, text.Intersects(NewCaps("image/png")))
	assert.Equal(t, "EMPTY", text.Intersect(NewCaps("image/png")).String())
	assert.Equal(t, []string{"application/json"}, text.Intersect(NewCaps("application/json", "x")).Types())
}

func TestBuffer_RefCounting(t *testing.T) {
	b := NewValueBuffer(int64(7), []byte("7"))
	assert.Equal(t, int64(7), b.Value)
	assert.Equal(t, 1, b.Size())

	b.Retain()
	assert.Equal(t, int32(2), b.RefCount())
	b.Release()
	b.Release()
	assert.Equal(t, int32(0), b.RefCount())

	assert.Panics(t, func() { b.Release() })
}

func TestBuffer_RetainAfterReleaseLeavesCountAtZero(t *testing.T) {
	pool := NewBufferPool(1, 8)
	b := pool.Get()
	b.Release()

	assert.Panics(t, func() { b.Retain() })
	assert.Equal(t, int32(0), b.RefCount())
	assert.Panics(t, func() { b.Retain() }, "a failed retain must not resurrect the buffer")
	assert.Equal(t, int32(0), b.RefCount())

	again := pool.Get()
	assert.Same(t, b, again)
	assert.Equal(t, int32(1), again.RefCount())
}

func TestBuffer_Metadata(t *testing.T) {
	b := NewBuffer([]byte("line"))
	assert.Nil(t, b.Meta)
	b.Metadata().SetString("source", "udp")
	assert.Equal(t, "udp", b.Meta.GetString("source"))
}

func TestBufferPool_Recycles(t *testing.T) {
	pool := NewBufferPool(2, 16)

	b := pool.Get()
	require.Equal(t, int32(1), b.RefCount())
	b.Data = append(b.Data, "hello"...)
	b.Value = "hello"
	b.Metadata().SetInt("n", 1)
	b.Release()

	again := pool.Get()
	assert.Same(t, b, again)
	assert.Empty(t, again.Data)
	assert.Nil(t, again.Value)
	assert.Nil(t, again.Meta)
	assert.Equal(t, 16, cap(again.Data))

	created, reused := pool.Stats()
	assert.Equal(t, int64(1), created)
	assert.Equal(t, int64(1), reused)
}

func TestBufferPool_DropsWhenFull(t *testing.T) {
	pool := NewBufferPool(1, 0)
	a, b := pool.Get(), pool.Get()
	a.Release()
	b.Release()

	assert.Same(t, a, pool.Get())
	assert.NotSame(t, b, pool.Get())
}
