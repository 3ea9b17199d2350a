// Package metrics collects counters for connections and subscription
// registries.
//
// Collector is implemented by NopCollector, which discards everything, and by
// PrometheusCollector. Reasons passed to the collector are the removal and
// rejection reasons defined by the subscription package.
package metrics

// Collector receives registry and connection metrics.
// Implementations must be safe for concurrent use.
type Collector interface {
	// SessionRegistered records a session accepted by a registry.
	SessionRegistered()

	// SessionRejected records a Register call that stored nothing.
	SessionRejected(reason string)

	// SessionDisposed records a session removed and disposed by a registry.
	SessionDisposed(reason string)

	// DisposeFailed records a session whose Dispose returned an error or panicked.
	DisposeFailed()

	// RegistryDisposed records a registry teardown and how many sessions it disposed.
	RegistryDisposed(sessions int)

	// ConnectionOpened records a new connection.
	ConnectionOpened()

	// ConnectionClosed records a closed connection.
	ConnectionClosed()
}
