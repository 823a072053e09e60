package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_Counters(t *testing.T) {
	m := NewMonitor("test", prometheus.NewRegistry())

	m.ObserveOperation("Join", "ok", time.Millisecond)
	m.ObserveOperation("Join", "UserAddFailed", time.Millisecond)
	m.ObserveOperation("Join", "ok", time.Millisecond)
	m.IncCountdownsArmed()
	m.IncConnectedPlayers()
	m.IncConnectedPlayers()
	m.DecConnectedPlayers()
	m.SetActiveGames(3)

	metrics := m.Metrics()
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("Join", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("Join", "UserAddFailed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CountdownsArmed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ConnectedPlayers))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActiveGames))
}

func TestMonitor_SeparateRegistries(t *testing.T) {
	// same namespace twice must not collide when registries differ
	assert.NotPanics(t, func() {
		NewMonitor("dup", prometheus.NewRegistry())
		NewMonitor("dup", prometheus.NewRegistry())
	})
}
