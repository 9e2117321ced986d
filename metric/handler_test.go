package metric

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/health"
)

func TestServer_Handler(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordElementCreated("collect_sink")

	ts := httptest.NewServer(NewServer(0, "/metrics", registry).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ols_elements_created_total{type="collect_sink"} 1`)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthReporter(t *testing.T) {
	srv := NewServer(0, "/metrics", NewMetricsRegistry())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func() (int, health.Status) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		var status health.Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		return resp.StatusCode, status
	}

	srv.SetHealth(func() health.Status { return health.NewDegraded("pipeline", "stopped") })
	code, status := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StateDegraded, status.Status)

	srv.SetHealth(func() health.Status { return health.NewUnhealthy("pipeline", "stopped") })
	code, status = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "pipeline", status.Component)
}

func TestServer_StartStopWithContext(t *testing.T) {
	srv := NewServer(0, "", NewMetricsRegistry())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.Address())
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, srv.Address(), "/metrics")

	err := srv.Start(ctx)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, srv.Stop())
}
