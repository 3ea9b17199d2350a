package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace is the metric namespace used when none is given.
const DefaultNamespace = "mash_subs"

// PrometheusCollector implements Collector with Prometheus metrics.
type PrometheusCollector struct {
	activeSessions     prometheus.Gauge
	sessionsRegistered prometheus.Counter
	sessionsRejected   *prometheus.CounterVec
	sessionsDisposed   *prometheus.CounterVec
	disposeFailures    prometheus.Counter
	registryTeardowns  prometheus.Counter
	teardownSessions   prometheus.Histogram
	activeConnections  prometheus.Gauge
	connectionsOpened  prometheus.Counter
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates the collector's metrics and registers them with reg.
//
// Parameters:
//   - reg: registerer to use (prometheus.DefaultRegisterer if nil)
//   - namespace: metric namespace (DefaultNamespace if empty)
//
// It returns an error if any metric is already registered with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := &PrometheusCollector{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "active_sessions",
			Help:      "Sessions currently held by subscription registries.",
		}),
		sessionsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions_registered_total",
			Help:      "Total sessions accepted by subscription registries.",
		}),
		sessionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions_rejected_total",
			Help:      "Total Register calls that stored nothing, by reason.",
		}, []string{"reason"}),
		sessionsDisposed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "sessions_disposed_total",
			Help:      "Total sessions disposed by subscription registries, by reason (unregistered, completed, teardown).",
		}, []string{"reason"}),
		disposeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "dispose_failures_total",
			Help:      "Total session disposals that returned an error or panicked.",
		}),
		registryTeardowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "teardowns_total",
			Help:      "Total subscription registries disposed.",
		}),
		teardownSessions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "teardown_sessions",
			Help:      "Sessions still active when their registry was disposed.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "active",
			Help:      "Connections currently open.",
		}),
		connectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "opened_total",
			Help:      "Total connections opened.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.activeSessions,
		p.sessionsRegistered,
		p.sessionsRejected,
		p.sessionsDisposed,
		p.disposeFailures,
		p.registryTeardowns,
		p.teardownSessions,
		p.activeConnections,
		p.connectionsOpened,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SessionRegistered increments the registered counter and the active gauge.
func (p *PrometheusCollector) SessionRegistered() {
	p.sessionsRegistered.Inc()
	p.activeSessions.Inc()
}

// SessionRejected counts a rejected registration.
func (p *PrometheusCollector) SessionRejected(reason string) {
	p.sessionsRejected.WithLabelValues(reason).Inc()
}

// SessionDisposed counts a disposal and decrements the active gauge.
func (p *PrometheusCollector) SessionDisposed(reason string) {
	p.sessionsDisposed.WithLabelValues(reason).Inc()
	p.activeSessions.Dec()
}

// DisposeFailed counts a failed disposal.
func (p *PrometheusCollector) DisposeFailed() {
	p.disposeFailures.Inc()
}

// RegistryDisposed counts a registry teardown.
func (p *PrometheusCollector) RegistryDisposed(sessions int) {
	p.registryTeardowns.Inc()
	p.teardownSessions.Observe(float64(sessions))
}

// ConnectionOpened counts an opened connection.
func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsOpened.Inc()
	p.activeConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (p *PrometheusCollector) ConnectionClosed() {
	p.activeConnections.Dec()
}
