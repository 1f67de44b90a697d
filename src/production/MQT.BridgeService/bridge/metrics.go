package mqtbridge

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for bridge_messages_dropped_total
const (
	DropDecode = "decode"
)

// Metrics are the bridge collectors exported on /metrics
type Metrics struct {
	Received        prometheus.Counter
	Dropped         *prometheus.CounterVec
	Saved           prometheus.Counter
	PersistFailures prometheus.Counter
	SaveDuration    prometheus.Histogram
	ConnectionState prometheus.Gauge
}

// NewMetrics registers the bridge collectors on reg. Registering twice on the
// same registry reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.Received, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_messages_received_total",
		Help: "Messages delivered on the sensor topic",
	})); err != nil {
		return nil, err
	}

	if m.Dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_dropped_total",
		Help: "Messages discarded without a database write",
	}, []string{"reason"})); err != nil {
		return nil, err
	}

	if m.Saved, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_rows_saved_total",
		Help: "Rows inserted into data_sensor",
	})); err != nil {
		return nil, err
	}

	if m.PersistFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_persist_failures_total",
		Help: "Inserts that returned an error",
	})); err != nil {
		return nil, err
	}

	if m.SaveDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_save_duration_seconds",
		Help:    "Time spent in a single insert, probe included",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}

	if m.ConnectionState, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_connection_state",
		Help: "Broker connection state (0 disconnected, 1 connecting, 2 connected, 3 subscribed, 4 shutting down)",
	})); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("failed to register metric: %w", err)
	}
	return c, nil
}

// observeState mirrors state transitions into the gauge
func (m *Metrics) observeState(_, to State) {
	m.ConnectionState.Set(float64(to))
}
