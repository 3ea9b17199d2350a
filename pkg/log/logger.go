package log

// Logger receives lifecycle events.
// Implementations must be safe for concurrent use and should not block:
// events are logged from the registry's hot path.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
