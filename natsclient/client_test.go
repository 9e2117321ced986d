package natsclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	olserrors "github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/metric"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/pkg/retry"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	assert.True(t, olserrors.IsInvalid(err))
}

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "circuit_open", StatusCircuitOpen.String())
	assert.Equal(t, "unknown", ConnectionStatus(42).String())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(3))
	require.NoError(t, err)

	client.recordFailure()
	client.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(3), client.Failures())
	assert.Equal(t, 2*time.Second, client.Backoff())

	assert.ErrorIs(t, client.Publish("x", nil), ErrCircuitOpen)
	assert.ErrorIs(t, client.Connect(context.Background()), ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(1))
	require.NoError(t, err)

	client.recordFailure()
	require.Equal(t, StatusCircuitOpen, client.Status())

	client.halfOpen()
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestCircuitBreaker_BackoffCapped(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithCircuitBreakerThreshold(1),
		WithMaxBackoff(2*time.Second),
	)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		client.recordFailure()
		client.halfOpen()
	}
	assert.Equal(t, 2*time.Second, client.Backoff())

	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestClient_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.ErrorIs(t, client.Publish("logs", []byte("x")), ErrNotConnected)

	_, err = client.Subscribe("logs", "", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, client.PublishToStream(context.Background(), "logs", nil), ErrNotConnected)
}

func TestClient_ConnectFailsWithRetry(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	client, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(50*time.Millisecond),
		WithCircuitBreakerThreshold(10),
		WithMetrics(registry.CoreMetrics()),
		WithConnectRetry(retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		}),
	)
	require.NoError(t, err)

	err = client.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, olserrors.IsTransient(err))
	assert.Equal(t, int32(2), client.Failures())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, 0.0, testutil.ToFloat64(registry.CoreMetrics().NATSConnected))
}

func TestClient_ConnectOpensCircuit(t *testing.T) {
	client, err := NewClient("nats://127.0.0.1:1",
		WithTimeout(50*time.Millisecond),
		WithCircuitBreakerThreshold(2),
		WithConnectRetry(retry.Config{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		}),
	)
	require.NoError(t, err)

	err = client.Connect(context.Background())
	assert.True(t, errors.Is(err, ErrCircuitOpen), "got %v", err)
	assert.Equal(t, int32(2), client.Failures())
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.False(t, client.Closed())
	assert.NoError(t, client.Close(context.Background()))
	assert.NoError(t, client.Close(context.Background()))
	assert.True(t, client.Closed())

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
