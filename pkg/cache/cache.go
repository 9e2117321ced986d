package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// EvictCallback is called with the key and value of an evicted entry.
// It runs with the cache lock held and must not call back into the cache.
type EvictCallback[V any] func(key string, value V)

// Eviction reasons reported to metrics
const (
	reasonCapacity = "capacity"
	reasonExpired  = "expired"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is a concurrency-safe LRU cache with optional per-entry expiry
type Cache[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List

	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
	now     func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New creates a cache holding at most maxSize entries. A positive ttl
// expires entries that long after their last Set; zero keeps them until
// evicted by capacity.
func New[V any](maxSize int, ttl time.Duration, opts ...Option[V]) (*Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New", fmt.Sprintf("max size must be positive, got %d", maxSize))
	}
	if ttl < 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "cache", "New", fmt.Sprintf("ttl must not be negative, got %s", ttl))
	}

	o := cacheOptions[V]{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		evictFn: o.evictCallback,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if o.registry != nil {
		m, err := newCacheMetrics(o.registry, o.owner, o.component)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "New", "metrics registration")
		}
		c.metrics = m
	}

	if ttl > 0 {
		interval := o.cleanupInterval
		if interval <= 0 {
			interval = ttl / 2
		}
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		go c.sweep(ctx, interval)
	} else {
		close(c.done)
	}
	return c, nil
}

// Get returns the value for key and marks it most recently used
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.miss()
		return zero, false
	}
	e := el.Value.(*entry[V])
	if e.expired(c.now()) {
		c.evict(el, reasonExpired)
		c.miss()
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hit()
	c.metrics.recordHit()
	return e.value, true
}

// Contains reports whether a live entry exists without touching its
// recency
func (c *Cache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	return ok && !el.Value.(*entry[V]).expired(c.now())
}

// Set stores value under key and reports whether the key was new. Storing
// into a full cache evicts the least recently used entry.
func (c *Cache[V]) Set(key string, value V) (bool, error) {
	if key == "" {
		return false, errors.WrapInvalid(errors.ErrInvalidData, "cache", "Set", "empty key")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Set()
	c.metrics.recordSet()
	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return false, nil
	}

	for len(c.items) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.evict(oldest, reasonCapacity)
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.sizeChanged()
	return true, nil
}

// Delete removes key and reports whether it was present
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(el)
	c.stats.Delete()
	c.sizeChanged()
	return true
}

// Clear removes every entry without calling the eviction callback
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.sizeChanged()
}

// Len returns the number of stored entries, including expired ones not
// yet swept
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the keys from most to least recently used
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns the cache statistics
func (c *Cache[V]) Stats() *Statistics { return c.stats }

// Close stops the expiry sweep and unregisters metrics. It is safe to call
// more than once.
func (c *Cache[V]) Close() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
		c.metrics.unregister()
	})
}

// Purge drops every expired entry and returns how many were removed
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*entry[V]).expired(now) {
			c.evict(el, reasonExpired)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *Cache[V]) sweep(ctx context.Context, interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

// evict removes el and notifies the callback; callers hold mu
func (c *Cache[V]) evict(el *list.Element, reason string) {
	e := c.remove(el)
	c.stats.Eviction()
	c.metrics.recordEviction(reason)
	c.sizeChanged()
	if c.evictFn != nil {
		c.evictFn(e.key, e.value)
	}
}

func (c *Cache[V]) remove(el *list.Element) *entry[V] {
	e := c.order.Remove(el).(*entry[V])
	delete(c.items, e.key)
	return e
}

func (c *Cache[V]) miss() {
	c.stats.Miss()
	c.metrics.recordMiss()
}

func (c *Cache[V]) sizeChanged() {
	c.stats.UpdateSize(int64(len(c.items)))
	c.metrics.updateSize(len(c.items))
}
