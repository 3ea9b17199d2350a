package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes lifecycle events to an slog.Logger at debug level,
// or warn level for error events.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("entity", event.Entity.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SubscriptionID != "" {
		attrs = append(attrs, slog.String("subscription_id", event.SubscriptionID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", event.RemoteAddr))
	}

	switch {
	case event.StateChange != nil:
		attrs = append(attrs, slog.String("new_state", event.StateChange.NewState))
		if event.StateChange.OldState != "" {
			attrs = append(attrs, slog.String("old_state", event.StateChange.OldState))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "lifecycle", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
