package task

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// State is the state of a Task
type State int

const (
	// StateStopped means no goroutine runs, or the running one is exiting
	StateStopped State = iota
	// StateStarted means the runner is invoked repeatedly
	StateStarted
	// StatePaused means the goroutine is parked with the stream lock released
	StatePaused
)

// String returns a string representation of the task state
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarted:
		return "started"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Runner is the unit of work a Task repeats
type Runner interface {
	Run()
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func()

// Run calls f
func (f RunnerFunc) Run() { f() }

// Task is a controllable goroutine that invokes a Runner under a stream lock
type Task struct {
	runner Runner
	name   string
	logger *slog.Logger
	gauge  prometheus.Gauge

	onStateChange func(prev, next State)

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	running bool
	lock    sync.Locker

	gid        atomic.Uint64
	iterations atomic.Uint64
}

// Option configures a Task
type Option func(*Task)

// WithName names the task in logs
func WithName(name string) Option {
	return func(t *Task) { t.name = name }
}

// WithLogger sets the task logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *Task) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithStateObserver registers fn to be called after every state change,
// outside the task lock
func WithStateObserver(fn func(prev, next State)) Option {
	return func(t *Task) { t.onStateChange = fn }
}

// WithRunningGauge tracks the number of live task goroutines in g
func WithRunningGauge(g prometheus.Gauge) Option {
	return func(t *Task) { t.gauge = g }
}

// New creates a stopped task. It panics when r is nil.
func New(r Runner, opts ...Option) *Task {
	if r == nil {
		panic("task: nil runner")
	}
	t := &Task{
		runner: r,
		name:   "task",
		logger: slog.Default(),
	}
	t.cond = sync.NewCond(&t.mu)
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("task", t.name)
	return t
}

// Name returns the task name
func (t *Task) Name() string { return t.name }

// SetLock installs the stream lock. It fails while the task goroutine is
// alive.
func (t *Task) SetLock(l sync.Locker) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return errors.WrapFatal(errors.ErrTaskRunning, "Task", "SetLock", fmt.Sprintf("replace stream lock of %s", t.name))
	}
	t.lock = l
	return nil
}

// State returns the current state
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the task goroutine is alive
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Iterations returns how many times the runner has completed
func (t *Task) Iterations() uint64 { return t.iterations.Load() }

// Start moves the task to STARTED
func (t *Task) Start() error { return t.SetState(StateStarted) }

// Pause moves the task to PAUSED
func (t *Task) Pause() error { return t.SetState(StatePaused) }

// Stop moves the task to STOPPED without waiting for the goroutine to exit
func (t *Task) Stop() error { return t.SetState(StateStopped) }

// SetState changes the task state. Leaving STOPPED requires a stream lock;
// without one the call fails and the state is unchanged. A goroutine is
// spawned when the new state is not STOPPED and none is alive.
func (t *Task) SetState(s State) error {
	t.mu.Lock()

	if s != StateStopped && t.lock == nil {
		t.mu.Unlock()
		return errors.WrapFatal(errors.ErrNoStreamLock, "Task", "SetState", fmt.Sprintf("move %s to %s", t.name, s))
	}

	prev := t.state
	if prev == s {
		t.mu.Unlock()
		return nil
	}
	t.state = s

	if s != StateStopped && !t.running {
		t.running = true
		if t.gauge != nil {
			t.gauge.Inc()
		}
		go t.loop(t.lock)
	}
	t.cond.Broadcast()
	t.mu.Unlock()

	t.logger.Debug("Task state changed", "from", prev, "to", s)
	if t.onStateChange != nil {
		t.onStateChange(prev, s)
	}
	return nil
}

// Join stops the task and blocks until its goroutine has exited. Calling it
// from the runner returns ErrJoinFromTask instead of deadlocking.
func (t *Task) Join() error {
	if id := t.gid.Load(); id != 0 && id == goid() {
		return errors.WrapFatal(errors.ErrJoinFromTask, "Task", "Join", fmt.Sprintf("join %s", t.name))
	}

	t.mu.Lock()
	prev := t.state
	t.state = StateStopped
	t.cond.Broadcast()
	for t.running {
		t.cond.Wait()
	}
	t.mu.Unlock()

	if prev != StateStopped {
		t.logger.Debug("Task state changed", "from", prev, "to", StateStopped)
		if t.onStateChange != nil {
			t.onStateChange(prev, StateStopped)
		}
	}
	return nil
}

func (t *Task) loop(lock sync.Locker) {
	t.gid.Store(goid())
	lock.Lock()

	defer func() {
		r := recover()
		lock.Unlock()
		t.gid.Store(0)

		t.mu.Lock()
		if r != nil {
			t.state = StateStopped
		}
		// A Start that landed while this goroutine was exiting found
		// running still set and spawned nothing.
		if t.state != StateStopped {
			go t.loop(t.lock)
			t.mu.Unlock()
			return
		}
		t.running = false
		t.cond.Broadcast()
		t.mu.Unlock()

		if t.gauge != nil {
			t.gauge.Dec()
		}
		if r != nil {
			t.logger.Error("Task runner panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	for {
		t.mu.Lock()
		switch t.state {
		case StateStopped:
			t.mu.Unlock()
			return
		case StatePaused:
			lock.Unlock()
			for t.state == StatePaused {
				t.cond.Wait()
			}
			t.mu.Unlock()
			lock.Lock()
			continue
		}
		t.mu.Unlock()

		t.runner.Run()
		t.iterations.Add(1)
	}
}
