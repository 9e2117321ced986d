package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
)

// Pool processes work items of type T on a fixed set of goroutines
type Pool[T any] struct {
	workers   int
	queueSize int
	processor func(context.Context, T) error
	discard   func(T)

	workChan chan T
	wg       sync.WaitGroup
	metrics  *poolMetrics

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	discarded atomic.Int64

	metricsRegistry *metric.MetricsRegistry
	metricsLabel    string
}

type poolMetrics struct {
	owner          string
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	dropped        prometheus.Counter
	processingTime *prometheus.HistogramVec
}

// Option configures a pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry exports pool statistics labelled with label
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry, label string) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
		p.metricsLabel = label
	}
}

// WithDiscard sets the function receiving items that were queued but never
// processed because the pool's context ended
func WithDiscard[T any](fn func(T)) Option[T] {
	return func(p *Pool[T]) { p.discard = fn }
}

// NewPool creates a stopped pool. Non-positive sizes select 10 workers and
// a queue of 1000.
func NewPool[T any](workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T]) (*Pool[T], error) {
	if processor == nil {
		return nil, errors.WrapFatal(ErrNilProcessor, "Pool", "NewPool", "create worker pool")
	}
	if workers <= 0 {
		workers = 10
	}
	if queueSize <= 0 {
		queueSize = 1000
	}

	p := &Pool[T]{
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.metricsRegistry != nil && p.metricsLabel != "" {
		m, err := newPoolMetrics(p.metricsRegistry, p.metricsLabel)
		if err != nil {
			return nil, errors.WrapTransient(err, "Pool", "NewPool", "metrics registration")
		}
		p.metrics = m
	}
	return p, nil
}

func newPoolMetrics(registry *metric.MetricsRegistry, label string) (*poolMetrics, error) {
	labels := prometheus.Labels{"element": label}
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: "ols", Subsystem: "worker_pool", Name: name, Help: help, ConstLabels: labels,
		}
	}
	m := &poolMetrics{
		owner: "worker_pool:" + label,
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ols", Subsystem: "worker_pool", Name: "queue_depth",
			Help: "Current worker pool queue depth", ConstLabels: labels,
		}),
		submitted: prometheus.NewCounter(opts("submitted_total", "Total work items submitted")),
		processed: prometheus.NewCounter(opts("processed_total", "Total work items processed")),
		failed:    prometheus.NewCounter(opts("failed_total", "Total work items that failed processing")),
		dropped:   prometheus.NewCounter(opts("dropped_total", "Total work items rejected by a full queue")),
		processingTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ols", Subsystem: "worker_pool", Name: "processing_duration_seconds",
			Help:        "Time spent processing work items",
			Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			ConstLabels: labels,
		}, []string{"status"}),
	}

	register := []struct {
		name string
		fn   func(owner, name string) error
	}{
		{"queue_depth", func(o, n string) error { return registry.RegisterGauge(o, n, m.queueDepth) }},
		{"submitted", func(o, n string) error { return registry.RegisterCounter(o, n, m.submitted) }},
		{"processed", func(o, n string) error { return registry.RegisterCounter(o, n, m.processed) }},
		{"failed", func(o, n string) error { return registry.RegisterCounter(o, n, m.failed) }},
		{"dropped", func(o, n string) error { return registry.RegisterCounter(o, n, m.dropped) }},
		{"processing_duration", func(o, n string) error { return registry.RegisterHistogramVec(o, n, m.processingTime) }},
	}
	for i, r := range register {
		if err := r.fn(m.owner, r.name); err != nil {
			// only roll back what this call registered; the owner may belong to another pool
			for _, done := range register[:i] {
				registry.Unregister(m.owner, done.name)
			}
			return nil, err
		}
	}
	return m, nil
}

// Submit queues work without blocking. It fails with ErrQueueFull when the
// queue is at capacity; the caller keeps ownership of rejected work.
func (p *Pool[T]) Submit(work T) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started {
		return ErrPoolNotStarted
	}
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		p.submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.workChan)))
		}
		return nil
	default:
		p.dropped.Add(1)
		if p.metrics != nil {
			p.metrics.dropped.Inc()
		}
		return ErrQueueFull
	}
}

// Start launches the workers. They exit when ctx ends or after Stop.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started {
		return ErrPoolAlreadyStarted
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.started = true
	return nil
}

// Stop closes the queue and waits up to timeout for the workers to drain
// it. Items left behind by cancelled workers are discarded.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started || p.stopped {
		return nil
	}
	p.stopped = true
	close(p.workChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return ErrStopTimeout
	}

	for work := range p.workChan {
		p.drop(work)
	}
	if p.metrics != nil {
		p.metricsRegistry.UnregisterOwner(p.metrics.owner)
	}
	return nil
}

func (p *Pool[T]) drop(work T) {
	p.discarded.Add(1)
	if p.discard != nil {
		p.discard(work)
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
		Discarded:  p.discarded.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Discarded  int64 `json:"discarded"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-p.workChan:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				p.drop(work)
				return
			}

			start := time.Now()
			err := p.processor(ctx, work)
			p.processed.Add(1)
			if err != nil {
				p.failed.Add(1)
			}

			if p.metrics != nil {
				status := "success"
				p.metrics.processed.Inc()
				if err != nil {
					p.metrics.failed.Inc()
					status = "error"
				}
				p.metrics.processingTime.WithLabelValues(status).Observe(time.Since(start).Seconds())
				p.metrics.queueDepth.Set(float64(len(p.workChan)))
			}
		}
	}
}
