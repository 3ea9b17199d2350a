package soak

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/mash-subs/pkg/connection"
	"github.com/mash-protocol/mash-subs/pkg/log"
	"github.com/mash-protocol/mash-subs/pkg/metrics"
)

// metricValue sums every series of the named metric family.
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			sum += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return sum
}

func TestRun_NoLeaks(t *testing.T) {
	opts := DefaultOptions()
	opts.Connections = 20
	opts.Streams = 30

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 20, res.Connections)
	assert.Equal(t, int64(20*30), res.Started+res.Rejected)
	assert.Zero(t, res.Leaked)
	assert.Zero(t, res.DoubleDispose)
	assert.Zero(t, res.CloseFailures)
	assert.LessOrEqual(t, res.Stopped, res.Started)
}

func TestRun_MetricsBalance(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPrometheus(reg, "soak_test")
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Connections = 10
	opts.Streams = 25
	opts.DuplicateRatio = 0.3
	opts.NewConfig = func(int) connection.Config {
		return connection.Config{Metrics: m}
	}

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Positive(t, res.Rejected, "duplicate ids should be exercised")

	assert.Equal(t, float64(res.Started), metricValue(t, reg, "soak_test_registry_sessions_registered_total"))
	assert.Equal(t, float64(res.Rejected), metricValue(t, reg, "soak_test_registry_sessions_rejected_total"))
	// The last disposals are counted just after the streams report disposed.
	assert.Eventually(t, func() bool {
		return metricValue(t, reg, "soak_test_registry_sessions_disposed_total") == float64(res.Started) &&
			metricValue(t, reg, "soak_test_registry_active_sessions") == 0
	}, time.Second, time.Millisecond, "every registered session must be disposed")
	assert.Equal(t, 0.0, metricValue(t, reg, "soak_test_connection_active"))
	assert.Equal(t, 10.0, metricValue(t, reg, "soak_test_connection_opened_total"))
}

type eventCount struct {
	n int
}

func (c *eventCount) Log(log.Event) { c.n++ }

func TestDisposalCounter(t *testing.T) {
	next := &eventCount{}
	d := &disposalCounter{next: next, counts: make(map[string]int)}

	disposed := func(id string) log.Event {
		return log.Event{
			SubscriptionID: id,
			Entity:         log.EntitySession,
			Category:       log.CategoryState,
			StateChange:    &log.StateChangeEvent{OldState: log.StateRegistered, NewState: log.StateDisposed},
		}
	}
	d.Log(disposed("a"))
	d.Log(disposed("a"))
	d.Log(disposed("b"))
	d.Log(log.Event{
		SubscriptionID: "c",
		Entity:         log.EntitySession,
		Category:       log.CategoryState,
		StateChange:    &log.StateChangeEvent{NewState: log.StateRegistered},
	})
	d.Log(log.Event{Entity: log.EntityRegistry, StateChange: &log.StateChangeEvent{NewState: log.StateDisposed}})

	assert.Equal(t, 5, next.n, "every event is forwarded")
	assert.Equal(t, 2, d.count("a"))
	assert.Equal(t, 1, d.count("b"))
	assert.Zero(t, d.count("c"))
	assert.True(t, d.reached(map[string]int{"a": 1, "b": 1}))
	assert.False(t, d.reached(map[string]int{"b": 1, "c": 1}))
}

func TestRun_InvalidOptions(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Connections = 3
	opts.Streams = 5

	res, err := Run(ctx, opts)
	require.NoError(t, err, "streams on a cancelled context still complete and get disposed")
	assert.Zero(t, res.Leaked)
}
