package subscription

import (
	"log/slog"

	"github.com/mash-protocol/mash-subs/pkg/log"
	"github.com/mash-protocol/mash-subs/pkg/metrics"
)

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLogger receives lifecycle events for registered sessions.
	// If nil, events are discarded.
	EventLogger log.Logger

	// Metrics receives registry counters.
	// If nil, metrics are discarded.
	Metrics metrics.Collector
}

// withDefaults fills unset collaborators with no-op implementations.
func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.EventLogger == nil {
		c.EventLogger = log.NoopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNop()
	}
	return c
}
