package pad

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/settings"
)

// Buffer is a unit of payload exchanged across a link. It must not be
// modified once pushed. Buffers are reference counted so pooled storage can
// be recycled when the last holder releases it.
type Buffer struct {
	Data      []byte
	Value     any
	Timestamp time.Time
	Offset    uint64
	Meta      *settings.Data

	refs atomic.Int32
	pool *BufferPool
}

// NewBuffer creates a buffer holding data with one reference
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{Data: data, Timestamp: time.Now()}
	b.refs.Store(1)
	return b
}

// NewValueBuffer creates a buffer carrying a typed value alongside its
// byte form
func NewValueBuffer(value any, data []byte) *Buffer {
	b := NewBuffer(data)
	b.Value = value
	return b
}

// Retain takes another reference. A released buffer stays at zero and
// Retain panics.
func (b *Buffer) Retain() *Buffer {
	for {
		n := b.refs.Load()
		if n <= 0 {
			panic(fmt.Errorf("buffer: %w", errors.ErrRetainDisposed))
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return b
		}
	}
}

// Release drops a reference. The last release returns pooled buffers to
// their pool.
func (b *Buffer) Release() {
	n := b.refs.Add(-1)
	switch {
	case n > 0:
		return
	case n < 0:
		panic(fmt.Errorf("buffer: %w", errors.ErrOverRelease))
	}
	if b.pool != nil {
		b.pool.recycle(b)
	}
}

// RefCount returns the current reference count
func (b *Buffer) RefCount() int32 { return b.refs.Load() }

// Size returns the payload length in bytes
func (b *Buffer) Size() int { return len(b.Data) }

// Metadata returns the buffer metadata, creating it on first use
func (b *Buffer) Metadata() *settings.Data {
	if b.Meta == nil {
		b.Meta = settings.New()
	}
	return b.Meta
}

// String returns the payload as text
func (b *Buffer) String() string { return string(b.Data) }

func (b *Buffer) reset() {
	b.Data = b.Data[:0]
	b.Value = nil
	b.Timestamp = time.Time{}
	b.Offset = 0
	b.Meta = nil
}

// BufferPool recycles buffers through a bounded channel. Buffers released
// while the pool is full are left to the garbage collector.
type BufferPool struct {
	recycled chan *Buffer
	capacity int
	created  atomic.Int64
	reused   atomic.Int64
}

// NewBufferPool creates a pool keeping up to size idle buffers whose
// payload slices start with capacity bytes
func NewBufferPool(size, capacity int) *BufferPool {
	if size <= 0 {
		size = 64
	}
	return &BufferPool{
		recycled: make(chan *Buffer, size),
		capacity: capacity,
	}
}

// Get returns an empty buffer with one reference
func (p *BufferPool) Get() *Buffer {
	var b *Buffer
	select {
	case b = <-p.recycled:
		p.reused.Add(1)
	default:
		b = &Buffer{Data: make([]byte, 0, p.capacity), pool: p}
		p.created.Add(1)
	}
	b.Timestamp = time.Now()
	b.refs.Store(1)
	return b
}

// Stats returns how many buffers were allocated and how many were reused
func (p *BufferPool) Stats() (created, reused int64) {
	return p.created.Load(), p.reused.Load()
}

func (p *BufferPool) recycle(b *Buffer) {
	b.reset()
	select {
	case p.recycled <- b:
	default:
	}
}

// BufferList is an ordered group of buffers pushed in one call
type BufferList struct {
	buffers []*Buffer
}

// NewBufferList creates a list holding bufs. The list takes over the
// callers' references.
func NewBufferList(bufs ...*Buffer) *BufferList {
	return &BufferList{buffers: bufs}
}

// Add appends a buffer, taking over the caller's reference
func (l *BufferList) Add(b *Buffer) { l.buffers = append(l.buffers, b) }

// Len returns the number of buffers
func (l *BufferList) Len() int { return len(l.buffers) }

// Get returns the buffer at idx
func (l *BufferList) Get(idx int) *Buffer {
	if idx < 0 || idx >= len(l.buffers) {
		return nil
	}
	return l.buffers[idx]
}

// Each calls fn for every buffer until fn returns false
func (l *BufferList) Each(fn func(idx int, b *Buffer) bool) {
	for i, b := range l.buffers {
		if !fn(i, b) {
			return
		}
	}
}

// Release releases every buffer in the list
func (l *BufferList) Release() {
	for _, b := range l.buffers {
		b.Release()
	}
	l.buffers = nil
}
