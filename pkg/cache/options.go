package cache

import (
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// Option configures a cache
type Option[V any] func(*cacheOptions[V])

type cacheOptions[V any] struct {
	registry        *metric.MetricsRegistry
	owner           string
	component       string
	evictCallback   EvictCallback[V]
	cleanupInterval time.Duration
}

// WithMetrics exports the cache statistics. owner scopes registration so
// the metrics are removed on Close; component becomes the "component"
// label. A nil registry is ignored.
func WithMetrics[V any](registry *metric.MetricsRegistry, owner, component string) Option[V] {
	return func(o *cacheOptions[V]) {
		if registry != nil && owner != "" {
			o.registry = registry
			o.owner = owner
			o.component = component
		}
	}
}

// WithEvictionCallback sets a function called for every evicted entry
func WithEvictionCallback[V any](callback EvictCallback[V]) Option[V] {
	return func(o *cacheOptions[V]) {
		o.evictCallback = callback
	}
}

// WithCleanupInterval sets how often expired entries are swept. It
// defaults to half the TTL.
func WithCleanupInterval[V any](interval time.Duration) Option[V] {
	return func(o *cacheOptions[V]) {
		if interval > 0 {
			o.cleanupInterval = interval
		}
	}
}
