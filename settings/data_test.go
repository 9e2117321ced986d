package settings

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestData_LayerPrecedence(t *testing.T) {
	d := New()
	d.SetDefaultInt("port", 514)
	assert.Equal(t, int64(514), d.GetInt("port"))
	assert.False(t, d.HasUserValue("port"))

	d.SetInt("port", 5140)
	assert.Equal(t, int64(5140), d.GetInt("port"))
	assert.Equal(t, int64(514), d.GetDefaultInt("port"))

	d.Unset("port")
	assert.Equal(t, int64(514), d.GetInt("port"))

	assert.Equal(t, "", d.GetString("missing"))
	assert.Equal(t, TypeNull, d.Type("missing"))
}

func TestData_ClearKeepsDefaults(t *testing.T) {
	d := New()
	d.SetDefaultString("format", "lines")
	d.SetString("format", "jsonl")
	d.SetBool("append", true)

	d.Clear()

	assert.Equal(t, "lines", d.GetString("format"))
	assert.False(t, d.HasUserValue("format"))
	assert.False(t, d.HasUserValue("append"))
	assert.Equal(t, []string{"format"}, d.Keys())
}

func TestData_KeysKeepInsertionOrder(t *testing.T) {
	d := New()
	d.SetString("zeta", "z")
	d.SetString("alpha", "a")
	d.SetString("mid", "m")
	d.SetString("alpha", "again")

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, d.Keys())

	d.Erase("alpha")
	assert.Equal(t, []string{"zeta", "mid"}, d.Keys())
}

func TestData_NumericConversion(t *testing.T) {
	d := New()
	d.SetInt("count", 3)
	d.SetDouble("ratio", 2.75)

	assert.Equal(t, 3.0, d.GetDouble("count"))
	assert.Equal(t, int64(2), d.GetInt("ratio"))
	assert.Equal(t, TypeInt, d.Type("count"))
	assert.Equal(t, TypeFloat, d.Type("ratio"))
}

func TestData_ApplyMergesNested(t *testing.T) {
	base := New()
	base.SetString("name", "src")
	headers := New()
	headers.SetString("Accept", "text/plain")
	headers.SetString("X-Trace", "1")
	base.SetObj("headers", headers)

	over := New()
	over.SetString("name", "renamed")
	overHeaders := New()
	overHeaders.SetString("X-Trace", "2")
	over.SetObj("headers", overHeaders)
	over.SetDefaultString("ignored", "default only")

	base.Apply(over)

	assert.Equal(t, "renamed", base.GetString("name"))
	h := base.GetObj("headers")
	require.NotNil(t, h)
	assert.Equal(t, "text/plain", h.GetString("Accept"))
	assert.Equal(t, "2", h.GetString("X-Trace"))
	assert.False(t, base.HasUserValue("ignored"))
}

func TestData_ApplyCopiesValues(t *testing.T) {
	src := New()
	nested := New()
	nested.SetInt("n", 1)
	src.SetObj("nested", nested)

	dst := New()
	dst.Apply(src)
	nested.SetInt("n", 2)

	assert.Equal(t, int64(1), dst.GetObj("nested").GetInt("n"))
}

func TestData_DefaultsAndClone(t *testing.T) {
	d := New()
	d.SetDefaultInt("limit", 10)
	d.SetDefaultBool("skip_empty", true)
	d.SetInt("limit", 99)
	d.SetAutoselectString("device", "eth0")

	defs := d.Defaults()
	assert.Equal(t, int64(10), defs.GetInt("limit"))
	assert.True(t, defs.HasUserValue("skip_empty"))
	assert.False(t, defs.HasUserValue("device"))

	clone := d.Clone()
	d.SetInt("limit", 1)
	assert.Equal(t, int64(99), clone.GetInt("limit"))
	assert.Equal(t, "eth0", clone.GetAutoselectString("device"))
	assert.True(t, clone.HasAutoselectValue("device"))
}

func TestArray_Operations(t *testing.T) {
	mk := func(n int64) *Data {
		d := New()
		d.SetInt("n", n)
		return d
	}
	a := NewArray(mk(1), mk(3))
	a.Insert(1, mk(2))
	a.Push(mk(4))
	require.Equal(t, 4, a.Len())

	var got []int64
	for _, it := range a.Items() {
		got = append(got, it.GetInt("n"))
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, got)

	a.Swap(0, 3)
	assert.Equal(t, int64(4), a.Item(0).GetInt("n"))
	a.Erase(0)
	assert.Equal(t, 3, a.Len())
	assert.Nil(t, a.Item(10))
}

func TestData_ConcurrentAccess(t *testing.T) {
	d := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			d.SetInt("counter", int64(i))
			d.SetDefaultInt("counter", 0)
		}(i)
		go func() {
			defer wg.Done()
			_ = d.GetInt("counter")
			_, _ = d.JSON()
			_ = d.Clone()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"counter"}, d.Keys())
}
