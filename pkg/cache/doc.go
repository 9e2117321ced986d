// Package cache provides a bounded in-memory cache with least recently used
// eviction and optional expiry.
//
// Entries are evicted when the cache is full (oldest use first) or when
// their TTL elapses, whichever comes first. Expired entries are dropped
// lazily on access and by a background sweep that runs until Close.
//
// Statistics are always collected. WithMetrics additionally exposes them
// through a metric.MetricsRegistry:
//
//	c, err := cache.New[string](10000, time.Minute,
//	    cache.WithMetrics[string](registry, "dedup", "errors"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	if _, seen := c.Get(key); !seen {
//	    c.Set(key, "")
//	}
package cache
