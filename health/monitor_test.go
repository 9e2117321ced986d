package health

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		subs  []Status
		state string
	}{
		{name: "empty", subs: nil, state: StateHealthy},
		{name: "all healthy", subs: []Status{NewHealthy("a", ""), NewHealthy("b", "")}, state: StateHealthy},
		{name: "one degraded", subs: []Status{NewHealthy("a", ""), NewDegraded("b", "")}, state: StateDegraded},
		{name: "unhealthy wins", subs: []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, state: StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.subs)
			assert.Equal(t, "system", got.Component)
			assert.Equal(t, tt.state, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestAggregate_SortsCopy(t *testing.T) {
	subs := []Status{NewHealthy("b", ""), NewHealthy("a", "")}
	got := Aggregate("system", subs)

	assert.Equal(t, "a", got.SubStatuses[0].Component)
	assert.Equal(t, "b", subs[0].Component, "input order is kept")
}

func TestMonitor(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("pipeline", "running")
	m.UpdateDegraded("nats", "reconnecting")

	s, ok := m.Get("nats")
	require.True(t, ok)
	assert.True(t, s.IsDegraded())
	assert.False(t, s.Timestamp.IsZero())

	// Update rewrites the component to the monitored name.
	m.Update("pipeline", NewUnhealthy("other", "stopped"))
	s, _ = m.Get("pipeline")
	assert.Equal(t, "pipeline", s.Component)

	assert.Equal(t, []string{"nats", "pipeline"}, m.Names())
	assert.True(t, m.AggregateHealth("olsd").IsUnhealthy())

	m.Remove("pipeline")
	m.UpdateUnhealthy("nats", "down")
	m.UpdateHealthy("nats", "connected")
	_, ok = m.Get("pipeline")
	assert.False(t, ok)
	assert.True(t, m.AggregateHealth("olsd").IsHealthy())
}

func TestMonitor_ConcurrentAccess(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				switch (i + j) % 4 {
				case 0:
					m.UpdateHealthy("comp", "ok")
				case 1:
					m.Remove("comp")
				case 2:
					_, _ = m.Get("comp")
				default:
					_ = m.AggregateHealth("system")
				}
			}
		}(i)
	}
	wg.Wait()

	m.UpdateHealthy("final", "ok")
	s, ok := m.Get("final")
	require.True(t, ok)
	assert.Equal(t, "final", s.Component)
}
