package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mash-protocol/mash-subs/pkg/log"
	"github.com/mash-protocol/mash-subs/pkg/metrics"
	"github.com/mash-protocol/mash-subs/pkg/subscription"
)

// ErrConnectionClosed is returned by Close on an already closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// Config configures a Conn.
type Config struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// EventLogger receives connection and session lifecycle events.
	// If nil, events are discarded.
	EventLogger log.Logger

	// Metrics receives connection and registry counters.
	// If nil, metrics are discarded.
	Metrics metrics.Collector

	// RemoteAddr is the peer address, recorded in lifecycle events.
	RemoteAddr string

	// StreamBuffer is the notification buffer of each started stream.
	// Zero selects subscription.DefaultStreamBuffer.
	StreamBuffer int

	// Deliver receives every notification of every stream, in emit order per
	// stream. It is called from one goroutine per stream.
	// If nil, notifications are dropped.
	Deliver func(subscription.Notification)
}

// Conn is one client connection and the subscriptions it carries.
type Conn struct {
	id       string
	config   Config
	ctx      context.Context
	cancel   context.CancelFunc
	registry *subscription.Registry
	opened   time.Time

	closed atomic.Bool
	done   chan struct{}
}

// New opens a connection with a fresh UUID connection id.
// The connection context is derived from ctx; cancelling ctx cancels every
// stream but does not close the connection.
func New(ctx context.Context, config Config) (*Conn, error) {
	if config.EventLogger == nil {
		config.EventLogger = log.NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NewNop()
	}
	if config.StreamBuffer <= 0 {
		config.StreamBuffer = subscription.DefaultStreamBuffer
	}

	c := &Conn{
		id:     uuid.New().String(),
		config: config,
		opened: time.Now(),
		done:   make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	registry, err := subscription.NewRegistry(c, subscription.RegistryConfig{
		Logger:      config.Logger,
		EventLogger: config.EventLogger,
		Metrics:     config.Metrics,
	})
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("create registry: %w", err)
	}
	c.registry = registry

	config.Metrics.ConnectionOpened()
	c.logState("", log.StateConnected, "")
	c.debugLog("connection opened", "remote_addr", config.RemoteAddr)

	return c, nil
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the configured peer address.
func (c *Conn) RemoteAddr() string {
	return c.config.RemoteAddr
}

// Registry returns the connection's subscription registry.
func (c *Conn) Registry() *subscription.Registry {
	return c.registry
}

// Start launches a stream driven by producer and registers it under id.
// If the registry rejects the stream it is disposed here and the registry
// error is returned.
func (c *Conn) Start(id string, producer subscription.Producer) (*subscription.StreamSession, error) {
	s := subscription.NewStreamSession(c.ctx, id, c.config.StreamBuffer, producer)
	go c.forward(s)

	if err := c.registry.Register(s); err != nil {
		_ = s.Dispose()
		return nil, fmt.Errorf("start subscription: %w", err)
	}

	c.debugLog("stream started", "subscription_id", id)
	return s, nil
}

// Stop unregisters the stream with the given id.
// Stopping an unknown id is a no-op.
func (c *Conn) Stop(id string) error {
	if err := c.registry.Unregister(id); err != nil {
		return fmt.Errorf("stop subscription: %w", err)
	}
	return nil
}

// Close tears down every stream and closes the connection.
// Only the first call does any work; later calls return ErrConnectionClosed.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrConnectionClosed
	}

	err := c.registry.Dispose()
	c.cancel()

	c.config.Metrics.ConnectionClosed()
	reason := "closed"
	if err != nil {
		reason = "closed with dispose failures"
	}
	c.logState(log.StateConnected, log.StateClosed, reason)
	c.debugLog("connection closed", "lifetime", time.Since(c.opened))
	close(c.done)

	if err != nil {
		return fmt.Errorf("close connection %s: %w", c.id, err)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Done is closed once Close has finished tearing down the connection.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// forward hands notifications to the delivery sink until the stream ends.
func (c *Conn) forward(s *subscription.StreamSession) {
	for n := range s.Notifications() {
		if c.config.Deliver != nil {
			c.config.Deliver(n)
		}
	}
}

func (c *Conn) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, append([]any{"conn_id", c.id}, args...)...)
	}
}

func (c *Conn) logState(oldState, newState, reason string) {
	c.config.EventLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Entity:       log.EntityConnection,
		Category:     log.CategoryState,
		RemoteAddr:   c.config.RemoteAddr,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
