package buffer

import (
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// Option configures a buffer
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]

	metricsReg   *metric.MetricsRegistry
	metricsLabel string
}

// WithOverflowPolicy sets the overflow behavior. Defaults to Block.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithMetrics exports the buffer statistics to registry, labelled with
// label (usually the owning element name). It is ignored when either is
// empty.
func WithMetrics[T any](registry *metric.MetricsRegistry, label string) Option[T] {
	return func(opts *bufferOptions[T]) {
		if registry != nil && label != "" {
			opts.metricsReg = registry
			opts.metricsLabel = label
		}
	}
}

// WithDropCallback sets the function receiving dropped items. It runs
// outside the buffer lock.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.dropCallback = callback
	}
}

func applyOptions[T any](options ...Option[T]) *bufferOptions[T] {
	opts := &bufferOptions[T]{overflowPolicy: Block}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
