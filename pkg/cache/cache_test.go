package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// fakeClock lets tests move time without sleeping
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache[V any](t *testing.T, maxSize int, ttl time.Duration, opts ...Option[V]) (*Cache[V], *fakeClock) {
	t.Helper()
	c, err := New[V](maxSize, ttl, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c.now = clock.Now
	return c, clock
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New[string](0, 0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = New[string](10, -time.Second)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestCache_BasicOperations(t *testing.T) {
	c, _ := newTestCache[string](t, 10, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)

	isNew, err := c.Set("a", "one")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = c.Set("a", "uno")
	require.NoError(t, err)
	assert.False(t, isNew)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "uno", v)
	assert.True(t, c.Contains("a"))
	assert.Equal(t, 1, c.Len())

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Zero(t, c.Len())

	_, err = c.Set("", "x")
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, _ := newTestCache[int](t, 3, 0, WithEvictionCallback[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))

	for i, k := range []string{"a", "b", "c"} {
		_, err := c.Set(k, i)
		require.NoError(t, err)
	}
	_, ok := c.Get("a")
	require.True(t, ok)

	_, err := c.Set("d", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"d", "a", "c"}, c.Keys())
	assert.Equal(t, int64(1), c.Stats().Evictions())
	assert.Equal(t, int64(3), c.Stats().PeakSize())
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache[string](t, 10, time.Minute)

	_, err := c.Set("a", "x")
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	_, err = c.Set("b", "y")
	require.NoError(t, err)

	clock.Advance(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok, "a expired after a minute")
	assert.False(t, c.Contains("a"))
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "y", v)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.Len(), "b stays until swept or read")
	assert.Equal(t, 1, c.Purge())
	assert.Zero(t, c.Len())
	assert.Equal(t, int64(2), c.Stats().Evictions())
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache[string](t, 10, time.Minute)

	_, err := c.Set("a", "x")
	require.NoError(t, err)
	clock.Advance(50 * time.Second)
	_, err = c.Set("a", "x")
	require.NoError(t, err)
	clock.Advance(50 * time.Second)

	assert.True(t, c.Contains("a"))
}

func TestCache_BackgroundSweep(t *testing.T) {
	c, err := New[string](10, 20*time.Millisecond, WithCleanupInterval[string](5*time.Millisecond))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Set("a", "x")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache[string](t, 10, 0)

	_, _ = c.Set("a", "x")
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Delete("a")

	s := c.Stats().Summary()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, int64(1), s.Deletes)
	assert.Zero(t, s.CurrentSize)
	assert.InDelta(t, 2.0/3.0, s.HitRatio, 1e-9)
}

func TestCache_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	c, err := New[string](2, 0, WithMetrics[string](registry, "dedup:test", "dedup"))
	require.NoError(t, err)

	_, _ = c.Set("a", "x")
	_, _ = c.Set("b", "x")
	_, _ = c.Set("c", "x")
	c.Get("c")
	c.Get("a")

	require.NotNil(t, c.metrics)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.metrics.sets))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.evictions.WithLabelValues(reasonCapacity)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.size))

	c.Close()
	c.Close()
	assert.Zero(t, registry.UnregisterOwner("dedup:test"), "Close unregisters")

	again, err := New[string](2, 0, WithMetrics[string](registry, "dedup:test", "dedup"))
	require.NoError(t, err, "metrics can be registered again after Close")
	again.Close()
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, err := New[int](100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*500+i)%150)
				_, _ = c.Set(key, i)
				c.Get(key)
				if i%7 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 100)
}
