package task

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

func spinRunner(counter *atomic.Int64) Runner {
	return RunnerFunc(func() {
		counter.Add(1)
		time.Sleep(time.Millisecond)
	})
}

func newLockedTask(t *testing.T, r Runner, opts ...Option) (*Task, *sync.Mutex) {
	t.Helper()
	var lock sync.Mutex
	tk := New(r, opts...)
	require.NoError(t, tk.SetLock(&lock))
	return tk, &lock
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "stopped"},
		{StateStarted, "started"},
		{StatePaused, "paused"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestNew_NilRunnerPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestTask_SetStateWithoutLock(t *testing.T) {
	var n atomic.Int64
	tk := New(spinRunner(&n))

	err := tk.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoStreamLock)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, StateStopped, tk.State())
	assert.False(t, tk.Running())

	require.Error(t, tk.Pause())
	assert.Equal(t, StateStopped, tk.State())

	assert.NoError(t, tk.Stop())
	assert.NoError(t, tk.Join())
}

func TestTask_PauseStartStopJoin(t *testing.T) {
	var n atomic.Int64
	tk, _ := newLockedTask(t, spinRunner(&n))

	require.NoError(t, tk.Pause())
	assert.Equal(t, StatePaused, tk.State())
	require.NoError(t, tk.Start())
	assert.Eventually(t, func() bool { return n.Load() > 0 }, time.Second, time.Millisecond)
	require.NoError(t, tk.Stop())
	require.NoError(t, tk.Join())

	assert.False(t, tk.Running())
	assert.Equal(t, StateStopped, tk.State())
}

func TestTask_StartTwiceSpawnsOnce(t *testing.T) {
	var n atomic.Int64
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_tasks_running"})
	tk, _ := newLockedTask(t, spinRunner(&n), WithRunningGauge(gauge))

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Start())
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))

	require.NoError(t, tk.Join())
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestTask_PauseReleasesStreamLock(t *testing.T) {
	var n atomic.Int64
	tk, lock := newLockedTask(t, spinRunner(&n))

	require.NoError(t, tk.Start())
	assert.Eventually(t, func() bool { return n.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, tk.Pause())
	// The runner holds the lock for each iteration, so acquiring it proves
	// the task parked in the pause branch.
	lock.Lock()
	frozen := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, n.Load())
	assert.True(t, tk.Running())
	lock.Unlock()

	require.NoError(t, tk.Start())
	assert.Eventually(t, func() bool { return n.Load() > frozen }, time.Second, time.Millisecond)
	require.NoError(t, tk.Join())
}

// exitLock parks the Unlock that follows arm until release is closed
type exitLock struct {
	sync.Mutex
	armed   atomic.Bool
	parked  chan struct{}
	release chan struct{}
}

func newExitLock() *exitLock {
	return &exitLock{parked: make(chan struct{}), release: make(chan struct{})}
}

func (l *exitLock) Unlock() {
	if l.armed.CompareAndSwap(true, false) {
		close(l.parked)
		<-l.release
	}
	l.Mutex.Unlock()
}

func TestTask_StartWhileGoroutineExits(t *testing.T) {
	var n atomic.Int64
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_tasks_restarted"})
	tk := New(spinRunner(&n), WithRunningGauge(gauge))
	lock := newExitLock()
	require.NoError(t, tk.SetLock(lock))

	require.NoError(t, tk.Start())
	assert.Eventually(t, func() bool { return n.Load() > 0 }, time.Second, time.Millisecond)

	lock.armed.Store(true)
	require.NoError(t, tk.Stop())
	select {
	case <-lock.parked:
	case <-time.After(time.Second):
		t.Fatal("task goroutine did not reach its final unlock")
	}

	require.NoError(t, tk.Start())
	before := n.Load()
	close(lock.release)

	assert.Eventually(t, func() bool { return n.Load() > before }, time.Second, time.Millisecond)
	assert.Equal(t, StateStarted, tk.State())
	assert.True(t, tk.Running())
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))

	require.NoError(t, tk.Join())
	assert.False(t, tk.Running())
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestTask_JoinFromRunner(t *testing.T) {
	var tk *Task
	joinErr := make(chan error, 1)
	var once sync.Once
	tk, _ = newLockedTask(t, RunnerFunc(func() {
		once.Do(func() { joinErr <- tk.Join() })
		time.Sleep(time.Millisecond)
	}))

	require.NoError(t, tk.Start())
	select {
	case err := <-joinErr:
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrJoinFromTask)
		assert.True(t, errors.IsFatal(err))
	case <-time.After(time.Second):
		t.Fatal("join from runner did not return")
	}
	require.NoError(t, tk.Join())
}

func TestTask_SetLockWhileRunning(t *testing.T) {
	var n atomic.Int64
	tk, _ := newLockedTask(t, spinRunner(&n))
	require.NoError(t, tk.Start())

	var other sync.Mutex
	err := tk.SetLock(&other)
	assert.ErrorIs(t, err, errors.ErrTaskRunning)

	require.NoError(t, tk.Join())
	assert.NoError(t, tk.SetLock(&other))
}

func TestTask_StateObserver(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	observer := func(prev, next State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, prev.String()+"->"+next.String())
	}

	var n atomic.Int64
	tk, _ := newLockedTask(t, spinRunner(&n), WithName("observed"), WithStateObserver(observer))
	assert.Equal(t, "observed", tk.Name())

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Pause())
	require.NoError(t, tk.Join())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"stopped->started", "started->paused", "paused->stopped"}, transitions)
}

func TestTask_RunnerPanicStopsTask(t *testing.T) {
	tk, lock := newLockedTask(t, RunnerFunc(func() { panic("boom") }))

	require.NoError(t, tk.Start())
	assert.Eventually(t, func() bool { return !tk.Running() }, time.Second, time.Millisecond)
	assert.Equal(t, StateStopped, tk.State())

	assert.True(t, lock.TryLock(), "stream lock must be released after a panic")
	lock.Unlock()
}

func TestTask_JoinTerminatesUnderChurn(t *testing.T) {
	var n atomic.Int64
	tk, _ := newLockedTask(t, spinRunner(&n))

	for i := 0; i < 50; i++ {
		require.NoError(t, tk.Start())
		require.NoError(t, tk.Pause())
		require.NoError(t, tk.Start())
		require.NoError(t, tk.Stop())
	}

	done := make(chan struct{})
	go func() {
		_ = tk.Join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("join did not terminate")
	}
	assert.False(t, tk.Running())
	assert.Equal(t, uint64(n.Load()), tk.Iterations())
}

func TestGoid(t *testing.T) {
	main := goid()
	assert.NotZero(t, main)

	other := make(chan uint64)
	go func() { other <- goid() }()
	assert.NotEqual(t, main, <-other)
}
