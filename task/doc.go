// Package task runs a function repeatedly on a dedicated goroutine under a
// caller-owned stream lock.
//
// A Task moves between three states. STOPPED is the initial and terminal
// state and no goroutine exists in it. Start spawns the goroutine when none
// is alive; Pause parks it between iterations with the stream lock released;
// Stop asks it to exit after the current iteration. Join stops the task and
// waits for the goroutine to exit.
//
//	var streamLock sync.Mutex
//	t := task.New(task.RunnerFunc(produceOne), task.WithName("counter"))
//	_ = t.SetLock(&streamLock)
//	_ = t.Start()
//	...
//	_ = t.Join()
//
// The runner is invoked with the stream lock held and must not take it
// itself. Code outside the task must not hold the stream lock while calling
// Join, and Join must not be called from the runner.
package task
