package buffer

import (
	"context"
	"sync"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// circularBuffer is a ring of fixed capacity guarded by one mutex
type circularBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	flushing bool
	closed   bool

	notEmpty *sync.Cond
	notFull  *sync.Cond

	stats   *Statistics
	metrics *bufferMetrics
	opts    *bufferOptions[T]
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsLabel)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	cb := &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}
	cb.notEmpty = sync.NewCond(&cb.mu)
	cb.notFull = sync.NewCond(&cb.mu)
	return cb, nil
}

func (cb *circularBuffer[T]) pushLocked(item T) {
	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % cb.capacity
	cb.size++
	cb.stats.Write(int64(cb.size))
	if cb.metrics != nil {
		cb.metrics.recordWrite(cb.size, cb.capacity)
	}
	cb.notEmpty.Signal()
}

func (cb *circularBuffer[T]) popLocked() T {
	var zero T
	item := cb.items[cb.tail]
	cb.items[cb.tail] = zero
	cb.tail = (cb.tail + 1) % cb.capacity
	cb.size--
	cb.notFull.Signal()
	return item
}

func (cb *circularBuffer[T]) recordReadLocked() {
	cb.stats.Read(int64(cb.size))
	if cb.metrics != nil {
		cb.metrics.recordRead(cb.size, cb.capacity)
	}
}

func (cb *circularBuffer[T]) recordDropLocked() {
	cb.stats.Drop()
	if cb.metrics != nil {
		cb.metrics.recordDrop()
	}
}

// interruptedLocked reports why a waiter must give up, or nil
func (cb *circularBuffer[T]) interruptedLocked(ctx context.Context, method string) error {
	switch {
	case cb.closed:
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", method, "buffer closed")
	case cb.flushing:
		return errors.WrapTransient(errors.ErrShuttingDown, "Buffer", method, "buffer flushing")
	}
	return ctx.Err()
}

// waitLocked waits on cond until ready holds or the wait is interrupted.
// Context cancellation wakes the waiter through a broadcast.
func (cb *circularBuffer[T]) waitLocked(ctx context.Context, cond *sync.Cond, method string, ready func() bool) error {
	stop := context.AfterFunc(ctx, func() {
		cb.mu.Lock()
		cond.Broadcast()
		cb.mu.Unlock()
	})
	defer stop()

	for !ready() {
		if err := cb.interruptedLocked(ctx, method); err != nil {
			return err
		}
		cond.Wait()
	}
	return nil
}

// Write adds an item according to the overflow policy
func (cb *circularBuffer[T]) Write(ctx context.Context, item T) error {
	cb.mu.Lock()
	if err := cb.interruptedLocked(context.Background(), "Write"); err != nil {
		cb.mu.Unlock()
		return err
	}

	var (
		dropped    T
		hasDropped bool
	)
	if cb.size == cb.capacity {
		cb.stats.Overflow()
		if cb.metrics != nil {
			cb.metrics.recordOverflow()
		}

		switch cb.opts.overflowPolicy {
		case DropOldest:
			dropped, hasDropped = cb.popLocked(), true
			cb.recordDropLocked()
		case DropNewest:
			cb.recordDropLocked()
			cb.mu.Unlock()
			if cb.opts.dropCallback != nil {
				cb.opts.dropCallback(item)
			}
			return nil
		default:
			err := cb.waitLocked(ctx, cb.notFull, "Write", func() bool { return cb.size < cb.capacity })
			if err != nil {
				cb.mu.Unlock()
				return err
			}
		}
	}

	cb.pushLocked(item)
	cb.mu.Unlock()

	if hasDropped && cb.opts.dropCallback != nil {
		cb.opts.dropCallback(dropped)
	}
	return nil
}

// Read removes the oldest item without waiting
func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	item := cb.popLocked()
	cb.recordReadLocked()
	return item, true
}

// ReadWait removes the oldest item, waiting for one to arrive
func (cb *circularBuffer[T]) ReadWait(ctx context.Context) (T, error) {
	var zero T

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.flushing {
		return zero, cb.interruptedLocked(ctx, "ReadWait")
	}
	if err := cb.waitLocked(ctx, cb.notEmpty, "ReadWait", func() bool { return cb.size > 0 }); err != nil {
		return zero, err
	}
	item := cb.popLocked()
	cb.recordReadLocked()
	return item, nil
}

// ReadBatch removes up to max items without waiting
func (cb *circularBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	n := min(max, cb.size)
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	for i := range out {
		out[i] = cb.popLocked()
		cb.recordReadLocked()
	}
	return out
}

// Peek returns the oldest item without removing it
func (cb *circularBuffer[T]) Peek() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}
	return cb.items[cb.tail], true
}

// Size returns the number of buffered items
func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size
}

// Capacity returns the maximum number of items
func (cb *circularBuffer[T]) Capacity() int { return cb.capacity }

// IsFull reports whether the buffer is at capacity
func (cb *circularBuffer[T]) IsFull() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size == cb.capacity
}

// IsEmpty reports whether the buffer holds no items
func (cb *circularBuffer[T]) IsEmpty() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size == 0
}

// Clear drops every item, passing each to the drop callback
func (cb *circularBuffer[T]) Clear() {
	cb.mu.Lock()
	drained := make([]T, 0, cb.size)
	for cb.size > 0 {
		drained = append(drained, cb.popLocked())
		cb.recordDropLocked()
	}
	cb.head, cb.tail = 0, 0
	cb.stats.Resize(0)
	if cb.metrics != nil {
		cb.metrics.updateSize(0, cb.capacity)
	}
	cb.notFull.Broadcast()
	cb.mu.Unlock()

	if cb.opts.dropCallback != nil {
		for _, item := range drained {
			cb.opts.dropCallback(item)
		}
	}
}

// SetFlushing interrupts every waiter while flushing is set
func (cb *circularBuffer[T]) SetFlushing(flushing bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.flushing = flushing
	if flushing {
		cb.notEmpty.Broadcast()
		cb.notFull.Broadcast()
	}
}

// Stats returns the buffer statistics
func (cb *circularBuffer[T]) Stats() *Statistics { return cb.stats }

// Close rejects further writes and wakes every waiter. Buffered items stay
// readable.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return nil
	}
	cb.closed = true
	cb.notEmpty.Broadcast()
	cb.notFull.Broadcast()
	if cb.metrics != nil {
		cb.metrics.unregister()
	}
	return nil
}
