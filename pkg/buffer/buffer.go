package buffer

import (
	"context"
	"fmt"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// Buffer is a bounded FIFO of items of type T
type Buffer[T any] interface {
	// Write adds an item according to the overflow policy. Only the Block
	// policy waits, and it honors ctx.
	Write(ctx context.Context, item T) error

	// Read removes the oldest item without waiting
	Read() (T, bool)

	// ReadWait removes the oldest item, waiting until one is available, ctx
	// ends, or the buffer flushes or closes
	ReadWait(ctx context.Context) (T, error)

	// ReadBatch removes up to max items without waiting
	ReadBatch(max int) []T

	// Peek returns the oldest item without removing it
	Peek() (T, bool)

	Size() int
	Capacity() int
	IsFull() bool
	IsEmpty() bool

	// Clear drops every item through the drop callback
	Clear()

	// SetFlushing interrupts waiters while set
	SetFlushing(flushing bool)

	// Stats returns the always-on statistics
	Stats() *Statistics

	// Close wakes every waiter and rejects further writes
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity
type OverflowPolicy int

const (
	// Block makes Write wait for free space
	Block OverflowPolicy = iota
	// DropOldest evicts the oldest item to make room
	DropOldest
	// DropNewest discards the item being written
	DropNewest
)

// String returns the configuration name of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration name to a policy. The empty string
// selects Block.
func ParsePolicy(name string) (OverflowPolicy, error) {
	switch name {
	case "", "block":
		return Block, nil
	case "drop_oldest":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	}
	return Block, errors.WrapInvalid(fmt.Errorf("%w: overflow policy %q", errors.ErrInvalidConfig, name),
		"buffer", "ParsePolicy", "parse overflow policy")
}

// DropCallback receives items dropped by the overflow policy or by Clear
type DropCallback[T any] func(item T)

// NewCircularBuffer creates a buffer holding at most capacity items.
// Capacities below one are raised to one. It fails only when metrics
// registration fails.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newCircularBuffer(capacity, opts)
}
