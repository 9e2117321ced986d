package cache

import (
	"sync/atomic"
	"time"
)

// Statistics tracks cache activity. All methods are safe for concurrent
// use.
type Statistics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64
	peak      atomic.Int64
	startTime time.Time
}

// NewStatistics creates a zeroed tracker
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Hit records a cache hit
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a cache miss
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a set operation
func (s *Statistics) Set() { s.sets.Add(1) }

// Delete records an explicit delete
func (s *Statistics) Delete() { s.deletes.Add(1) }

// Eviction records an eviction
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// UpdateSize records the current entry count and tracks the peak
func (s *Statistics) UpdateSize(size int64) {
	s.size.Store(size)
	for {
		peak := s.peak.Load()
		if size <= peak || s.peak.CompareAndSwap(peak, size) {
			return
		}
	}
}

// Hits returns the number of hits
func (s *Statistics) Hits() int64 { return s.hits.Load() }

// Misses returns the number of misses
func (s *Statistics) Misses() int64 { return s.misses.Load() }

// Sets returns the number of set operations
func (s *Statistics) Sets() int64 { return s.sets.Load() }

// Deletes returns the number of explicit deletes
func (s *Statistics) Deletes() int64 { return s.deletes.Load() }

// Evictions returns the number of evictions
func (s *Statistics) Evictions() int64 { return s.evictions.Load() }

// CurrentSize returns the last recorded entry count
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// PeakSize returns the largest entry count seen
func (s *Statistics) PeakSize() int64 { return s.peak.Load() }

// HitRatio returns hits / (hits + misses), or 0 before any lookup
func (s *Statistics) HitRatio() float64 {
	hits, misses := s.Hits(), s.Misses()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// StatsSummary is a point-in-time copy of the statistics
type StatsSummary struct {
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	Sets        int64         `json:"sets"`
	Deletes     int64         `json:"deletes"`
	Evictions   int64         `json:"evictions"`
	CurrentSize int64         `json:"current_size"`
	PeakSize    int64         `json:"peak_size"`
	HitRatio    float64       `json:"hit_ratio"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Hits:        s.Hits(),
		Misses:      s.Misses(),
		Sets:        s.Sets(),
		Deletes:     s.Deletes(),
		Evictions:   s.Evictions(),
		CurrentSize: s.CurrentSize(),
		PeakSize:    s.PeakSize(),
		HitRatio:    s.HitRatio(),
		Uptime:      time.Since(s.startTime),
	}
}
