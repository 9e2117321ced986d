package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics counts buffer operations. All methods are safe for
// concurrent use.
type Statistics struct {
	writes    atomic.Int64
	reads     atomic.Int64
	overflows atomic.Int64
	drops     atomic.Int64
	size      atomic.Int64
	maxSize   atomic.Int64
	started   time.Time
}

// NewStatistics creates zeroed statistics
func NewStatistics() *Statistics {
	return &Statistics{started: time.Now()}
}

// Write records a write that left size items buffered
func (s *Statistics) Write(size int64) {
	s.writes.Add(1)
	s.Resize(size)
}

// Read records a read that left size items buffered
func (s *Statistics) Read(size int64) {
	s.reads.Add(1)
	s.Resize(size)
}

// Overflow records a write into a full buffer
func (s *Statistics) Overflow() { s.overflows.Add(1) }

// Drop records a discarded item
func (s *Statistics) Drop() { s.drops.Add(1) }

// Resize records the current size and tracks the high-water mark
func (s *Statistics) Resize(size int64) {
	s.size.Store(size)
	for {
		peak := s.maxSize.Load()
		if size <= peak || s.maxSize.CompareAndSwap(peak, size) {
			return
		}
	}
}

// Writes returns the number of accepted writes
func (s *Statistics) Writes() int64 { return s.writes.Load() }

// Reads returns the number of items read
func (s *Statistics) Reads() int64 { return s.reads.Load() }

// Overflows returns the number of writes into a full buffer
func (s *Statistics) Overflows() int64 { return s.overflows.Load() }

// Drops returns the number of discarded items
func (s *Statistics) Drops() int64 { return s.drops.Load() }

// CurrentSize returns the last recorded size
func (s *Statistics) CurrentSize() int64 { return s.size.Load() }

// MaxSize returns the largest recorded size
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// DropRate returns drops as a fraction of everything offered
func (s *Statistics) DropRate() float64 {
	offered := s.Writes() + s.Drops()
	if offered == 0 {
		return 0
	}
	return float64(s.Drops()) / float64(offered)
}

// Utilization returns the current size as a fraction of capacity
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity <= 0 {
		return 0
	}
	return float64(s.CurrentSize()) / float64(capacity)
}

// Throughput returns accepted writes per second since creation
func (s *Statistics) Throughput() float64 {
	elapsed := time.Since(s.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Writes()) / elapsed
}

// StatsSummary is a point-in-time copy of the statistics
type StatsSummary struct {
	Writes      int64   `json:"writes"`
	Reads       int64   `json:"reads"`
	Overflows   int64   `json:"overflows"`
	Drops       int64   `json:"drops"`
	CurrentSize int64   `json:"current_size"`
	MaxSize     int64   `json:"max_size"`
	DropRate    float64 `json:"drop_rate"`
	Throughput  float64 `json:"throughput"`
}

// Summary returns a copy of every counter
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:      s.Writes(),
		Reads:       s.Reads(),
		Overflows:   s.Overflows(),
		Drops:       s.Drops(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		DropRate:    s.DropRate(),
		Throughput:  s.Throughput(),
	}
}
