package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
)

// ErrorClass tells a caller what to do with an error: retry it, reject the
// input that caused it, or give up
type ErrorClass int

const (
	// ErrorTransient may succeed when tried again
	ErrorTransient ErrorClass = iota
	// ErrorInvalid is caused by settings, config or payloads
	ErrorInvalid
	// ErrorFatal marks misuse of the core
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinels shared by the runtime, elements and the CLI
var (
	// element and runtime lifecycle
	ErrAlreadyStarted   = errors.New("already started")
	ErrAlreadyStopped   = errors.New("already stopped")
	ErrShuttingDown     = errors.New("shutting down")
	ErrAlreadyDestroyed = errors.New("already destroyed")

	// reference counting
	ErrRetainDisposed = errors.New("retain on a disposed object")
	ErrOverRelease    = errors.New("release without matching retain")

	// task
	ErrNoStreamLock = errors.New("task has no stream lock")
	ErrJoinFromTask = errors.New("join called from the task's own goroutine")
	ErrTaskRunning  = errors.New("task is running")

	// type registry
	ErrUnknownType        = errors.New("unknown element type")
	ErrConstructionFailed = errors.New("element construction failed")
	ErrDuplicateName      = errors.New("duplicate name")

	// pads
	ErrPadNotFound = errors.New("pad not found")
	ErrLinkFailed  = errors.New("link failed")
	ErrNotLinked   = errors.New("not linked")

	// network elements
	ErrNoConnection      = errors.New("no connection available")
	ErrConnectionLost    = errors.New("connection lost")
	ErrConnectionTimeout = errors.New("connection timeout")

	// payloads and settings
	ErrInvalidData    = errors.New("invalid data format")
	ErrParsingFailed  = errors.New("parsing failed")
	ErrInvalidSetting = errors.New("invalid settings")

	// daemon configuration
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrConfigNotFound = errors.New("configuration not found")
)

// Unclassified errors are matched against these before falling back to
// message patterns
var (
	transientCauses = []error{
		ErrConnectionTimeout, ErrConnectionLost, ErrNoConnection,
		context.DeadlineExceeded, context.Canceled,
	}
	fatalCauses = []error{
		ErrNoStreamLock, ErrJoinFromTask, ErrRetainDisposed, ErrOverRelease,
	}
	invalidCauses = []error{
		ErrInvalidData, ErrParsingFailed, ErrInvalidConfig, ErrInvalidSetting, ErrUnknownType,
	}
	transientWords = []string{"timeout", "connection", "temporary", "unavailable", "busy"}
)

// ClassifiedError carries an explicit class and the place it was raised
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

func explicitClass(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

func matchesAny(err error, causes []error) bool {
	for _, cause := range causes {
		if errors.Is(err, cause) {
			return true
		}
	}
	return false
}

// IsTransient reports whether retrying err may help. Unclassified errors
// mentioning timeouts or connections count as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := explicitClass(err); ok {
		return class == ErrorTransient
	}
	if matchesAny(err, transientCauses) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, word := range transientWords {
		if strings.Contains(msg, word) {
			return true
		}
	}
	return false
}

// IsFatal reports whether err marks misuse of the core
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := explicitClass(err); ok {
		return class == ErrorFatal
	}
	return matchesAny(err, fatalCauses)
}

// IsInvalid reports whether err was caused by bad input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := explicitClass(err); ok {
		return class == ErrorInvalid
	}
	return matchesAny(err, invalidCauses)
}

// Classify returns the class of err; anything unrecognized is transient
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	if class, ok := explicitClass(err); ok {
		return class
	}
	switch {
	case IsFatal(err):
		return ErrorFatal
	case IsInvalid(err):
		return ErrorInvalid
	default:
		return ErrorTransient
	}
}

// Wrap adds the raising site to err as
// "Component.Method: action failed: cause". A nil err stays nil.
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient is Wrap plus the transient class
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal is Wrap plus the fatal class
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid is Wrap plus the invalid class
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}

// RetryConfig is the delivery retry policy of network outputs. MaxRetries
// counts attempts after the first one.
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []error
}

// DefaultRetryConfig retries three times, doubling from 100ms up to 5s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ShouldRetry reports whether attempt (zero based) may be followed by
// another. Only transient errors qualify; a non-empty RetryableErrors list
// narrows them further.
func (rc RetryConfig) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= rc.MaxRetries || !IsTransient(err) {
		return false
	}
	return len(rc.RetryableErrors) == 0 || matchesAny(err, rc.RetryableErrors)
}

// ToRetryConfig converts the policy for pkg/retry, which counts total
// attempts
func (rc RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  rc.MaxRetries + 1,
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Multiplier:   rc.BackoffFactor,
		AddJitter:    true,
	}
}
