// Package errors provides standardized error handling for the log-stream runtime.
//
// # Overview
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input or configuration, do not retry) and Fatal (programming errors and
// unrecoverable states). Classification lets elements decide whether to retry
// a delivery, reject a configuration or stop.
//
// Dataflow failures never travel through this package. Across a pad link the
// only failure channel is a pad.FlowReturn value; errors are for construction,
// configuration and lifecycle misuse.
//
// # Wrapping Pattern
//
// All wrapping follows the format "Component.Method: action failed: cause":
//
//	if err := inst.Update(s); err != nil {
//	    return errors.WrapInvalid(err, "Element", "Update", "apply settings")
//	}
//
// # Lifecycle Violations
//
// Misuse of the core (joining a task from its own goroutine, starting a task
// without a stream lock) is reported with WrapFatal around ErrJoinFromTask or
// ErrNoStreamLock so callers can tell it apart from ordinary failures:
//
//	if err := t.Join(); errors.IsFatal(err) {
//	    panic(err)
//	}
//
// Retaining an object whose dispose has already started cannot be reported as
// a return value and panics with ErrRetainDisposed instead.
package errors
