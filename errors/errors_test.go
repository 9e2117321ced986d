package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(999).String())
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name                      string
		err                       error
		transient, invalid, fatal bool
		class                     ErrorClass
	}{
		{name: "nil", err: nil, class: ErrorTransient},
		{name: "connection timeout", err: ErrConnectionTimeout, transient: true, class: ErrorTransient},
		{name: "connection lost", err: ErrConnectionLost, transient: true, class: ErrorTransient},
		{name: "no connection", err: ErrNoConnection, transient: true, class: ErrorTransient},
		{name: "deadline", err: context.DeadlineExceeded, transient: true, class: ErrorTransient},
		{name: "canceled", err: context.Canceled, transient: true, class: ErrorTransient},
		{name: "timeout in message", err: fmt.Errorf("dial tcp: i/o timeout"), transient: true, class: ErrorTransient},
		{name: "unrecognized", err: fmt.Errorf("boom"), class: ErrorTransient},
		{name: "invalid data", err: ErrInvalidData, invalid: true, class: ErrorInvalid},
		{name: "parsing failed", err: ErrParsingFailed, invalid: true, class: ErrorInvalid},
		{name: "unknown type", err: ErrUnknownType, invalid: true, class: ErrorInvalid},
		{name: "invalid settings", err: ErrInvalidSetting, invalid: true, class: ErrorInvalid},
		{name: "no stream lock", err: ErrNoStreamLock, fatal: true, class: ErrorFatal},
		{name: "join from task", err: ErrJoinFromTask, fatal: true, class: ErrorFatal},
		{name: "over release", err: ErrOverRelease, fatal: true, class: ErrorFatal},
		{name: "wrapped sentinel", err: fmt.Errorf("dispose: %w", ErrRetainDisposed), fatal: true, class: ErrorFatal},
		{name: "explicit class wins", err: WrapInvalid(ErrConnectionLost, "Output", "Push", "send"), invalid: true, class: ErrorInvalid},
		{name: "explicit transient over fatal cause", err: &ClassifiedError{Class: ErrorTransient, Err: ErrNoStreamLock}, transient: true, class: ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err), "IsTransient")
			assert.Equal(t, tt.invalid, IsInvalid(tt.err), "IsInvalid")
			assert.Equal(t, tt.fatal, IsFatal(tt.err), "IsFatal")
			assert.Equal(t, tt.class, Classify(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil, "Element", "Update", "apply"))

	err := Wrap(ErrUnknownType, "Runtime", "Instantiate", "type lookup")
	assert.EqualError(t, err, "Runtime.Instantiate: type lookup failed: unknown element type")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestWrapClassified(t *testing.T) {
	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.wrap(nil, "a", "b", "c"))

			err := tt.wrap(ErrLinkFailed, "Element", "LinkPads", "link src to sink")
			var ce *ClassifiedError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.class, ce.Class)
			assert.Equal(t, "Element", ce.Component)
			assert.Equal(t, "LinkPads", ce.Operation)
			assert.EqualError(t, err, "Element.LinkPads: link src to sink failed: link failed")
			assert.ErrorIs(t, err, ErrLinkFailed)
		})
	}
}

func TestClassifiedError_WithoutMessage(t *testing.T) {
	ce := &ClassifiedError{Class: ErrorFatal, Err: ErrTaskRunning}
	assert.Equal(t, ErrTaskRunning.Error(), ce.Error())
	assert.True(t, errors.Is(ce, ErrTaskRunning))
}

func TestRetryConfig(t *testing.T) {
	rc := DefaultRetryConfig()

	assert.True(t, rc.ShouldRetry(ErrConnectionLost, 0))
	assert.False(t, rc.ShouldRetry(ErrConnectionLost, rc.MaxRetries), "attempts are capped")
	assert.False(t, rc.ShouldRetry(ErrInvalidData, 0), "invalid errors are final")
	assert.False(t, rc.ShouldRetry(nil, 0))

	rc.RetryableErrors = []error{ErrConnectionTimeout}
	assert.False(t, rc.ShouldRetry(ErrConnectionLost, 0))
	assert.True(t, rc.ShouldRetry(fmt.Errorf("post: %w", ErrConnectionTimeout), 0))

	cfg := rc.ToRetryConfig()
	assert.Equal(t, rc.MaxRetries+1, cfg.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.True(t, cfg.AddJitter)
}
