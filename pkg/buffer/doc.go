// Package buffer provides a bounded, thread-safe circular buffer with
// configurable overflow policies, always-on statistics and optional
// Prometheus metrics.
//
// # Quick Start
//
//	buf, err := buffer.NewCircularBuffer[*pad.Buffer](1024,
//		buffer.WithOverflowPolicy[*pad.Buffer](buffer.Block),
//		buffer.WithDropCallback[*pad.Buffer](func(b *pad.Buffer) { b.Release() }),
//	)
//	if err != nil {
//		return err
//	}
//
//	// producer side
//	err = buf.Write(ctx, item)
//
//	// consumer side, waits until an item arrives
//	item, err := buf.ReadWait(ctx)
//
// # Overflow Policies
//
// When the buffer is full:
//
//   - Block (default): Write waits for space, for the context to end, or for
//     the buffer to flush or close
//   - DropOldest: the oldest item is evicted to make room
//   - DropNewest: the new item is discarded
//
// Dropped items are passed to the drop callback so owners can release
// them, and are counted in Statistics and metrics. ParsePolicy maps the
// configuration names "block", "drop_oldest" and "drop_newest".
//
// # Flushing
//
// SetFlushing(true) wakes every blocked reader and writer; until it is
// cleared, writes fail with ErrShuttingDown and waits return immediately.
// Elements use it when their pads are deactivated so a blocked upstream
// push unwinds with FLUSHING.
//
// # Observability
//
// Statistics are always collected and available through Stats(). When
// WithMetrics is given a registry and a label, the same counters are
// exported under the ols_buffer_* metric family.
package buffer
