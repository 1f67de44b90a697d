package mqtbridge

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.Received.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Received))
}

func TestMetrics_TrackConnectionState(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	machine := NewMachine()
	machine.OnTransition(m.observeState)
	require.NoError(t, machine.Transition(StateConnecting))
	require.NoError(t, machine.Transition(StateConnected))
	require.NoError(t, machine.Transition(StateSubscribed))

	assert.Equal(t, float64(StateSubscribed), testutil.ToFloat64(m.ConnectionState))
}
