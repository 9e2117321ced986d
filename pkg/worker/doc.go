// Package worker provides a generic, bounded worker pool.
//
// A Pool runs a fixed number of goroutines that take work items of type T
// from a bounded queue and hand them to a processor function. Submit never
// blocks: when the queue is full it fails with ErrQueueFull, which output
// elements turn into a FlowError for the buffer they could not enqueue.
//
//	pool, err := worker.NewPool(4, 256,
//		func(ctx context.Context, b *pad.Buffer) error {
//			defer b.Release()
//			return post(ctx, b)
//		},
//		worker.WithDiscard[*pad.Buffer](func(b *pad.Buffer) { b.Release() }),
//		worker.WithMetricsRegistry[*pad.Buffer](registry, "http_out"),
//	)
//	if err != nil {
//		return err
//	}
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	defer pool.Stop(5 * time.Second)
//
// # Shutdown
//
// Stop closes the queue; workers drain what is left and exit. When the
// Start context is cancelled first, workers exit immediately and every
// item still queued is passed to the discard function, so items that own
// resources are never leaked.
//
// # Observability
//
// Stats are always tracked with atomics. WithMetricsRegistry additionally
// exports them as ols_worker_pool_* metrics labelled with the element.
package worker
