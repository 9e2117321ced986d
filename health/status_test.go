package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_States(t *testing.T) {
	tests := []struct {
		status                       Status
		healthy, degraded, unhealthy bool
	}{
		{status: NewHealthy("a", "ok"), healthy: true},
		{status: NewDegraded("a", "slow"), degraded: true},
		{status: NewUnhealthy("a", "down"), unhealthy: true},
		{status: Status{Status: "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.status.Status, func(t *testing.T) {
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.Equal(t, tt.degraded, tt.status.IsDegraded())
			assert.Equal(t, tt.unhealthy, tt.status.IsUnhealthy())
			assert.Equal(t, tt.healthy, tt.status.Healthy)
		})
	}
}

func TestStatus_WithMetrics(t *testing.T) {
	original := NewHealthy("pipeline", "running")
	withMetrics := original.WithMetrics(&Metrics{Uptime: time.Minute, ErrorCount: 2})

	assert.Nil(t, original.Metrics)
	assert.Equal(t, time.Minute, withMetrics.Metrics.Uptime)
	assert.Equal(t, 2, withMetrics.Metrics.ErrorCount)
}

func TestStatus_WithSubStatusIsolation(t *testing.T) {
	original := Status{
		Component:   "parent",
		Status:      StateHealthy,
		SubStatuses: []Status{{Component: "child1", Status: StateHealthy}},
	}
	modified := original.WithSubStatus(Status{Component: "child2", Status: StateUnhealthy})

	assert.Len(t, original.SubStatuses, 1)
	assert.Len(t, modified.SubStatuses, 2)

	original.SubStatuses[0].Status = StateDegraded
	assert.Equal(t, StateHealthy, modified.SubStatuses[0].Status)
}

func TestFromError(t *testing.T) {
	s := FromError("nats", errors.New("cannot connect to nats://10.0.0.1:4222"))
	assert.True(t, s.IsUnhealthy())
	assert.Equal(t, "nats", s.Component)
	assert.Equal(t, "cannot connect to [URL]", s.Message)

	assert.Equal(t, "unknown error", FromError("x", nil).Message)
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "unix path", input: "failed to open /var/log/app.log", expected: "failed to open [PATH]"},
		{name: "windows path", input: "cannot read C:\\Users\\Admin\\ols.json", expected: "cannot read [PATH]"},
		{name: "http url", input: "post failed to https://collector.example.com/v1/logs", expected: "post failed to [URL]"},
		{name: "nats url", input: "cannot connect to nats://localhost:4222", expected: "cannot connect to [URL]"},
		{name: "websocket url", input: "dial ws://logs.local/stream", expected: "dial [URL]"},
		{name: "ip address", input: "timeout connecting to 192.168.1.100", expected: "timeout connecting to [IP]"},
		{name: "port", input: "failed to bind to :8080", expected: "failed to bind to [PORT]"},
		{name: "credentials", input: "auth failed with password:secretpass123", expected: "auth failed with [REDACTED]"},
		{
			name:     "combined",
			input:    "failed to connect to https://192.168.1.1:8080/api with token=abc123def",
			expected: "failed to connect to [URL] with [REDACTED]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeMessage(tt.input))
		})
	}
}
