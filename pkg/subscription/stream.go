package subscription

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultStreamBuffer is the notification buffer size of a stream session.
const DefaultStreamBuffer = 16

// Notification is one event produced by a stream session.
type Notification struct {
	// SubscriptionID identifies the subscription.
	SubscriptionID string

	// Seq numbers the notifications of one subscription, starting at 1.
	Seq uint64

	// Payload is the produced value.
	Payload any

	// Timestamp is when the notification was produced.
	Timestamp time.Time
}

// Producer produces the notifications of one subscription.
//
// It runs in its own goroutine until it returns or ctx is cancelled. emit
// delivers a payload and returns false once the session has been disposed.
// emit may be called from several goroutines; calls are serialized and
// sequence numbers are only consumed by delivered notifications. emit must
// not be called after the producer returns.
type Producer func(ctx context.Context, emit func(payload any) bool) error

// StreamSession is a Session whose work is a running Producer.
type StreamSession struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	out  chan Notification
	done chan struct{}

	emitMu sync.Mutex
	seq    uint64 // guarded by emitMu; counts delivered notifications

	completed atomic.Bool
	err       error // set before done is closed

	disposeOnce sync.Once
	disposed    atomic.Bool
}

// NewStreamSession starts producer under a context derived from ctx.
// buffer sets the notification channel capacity; values <= 0 use
// DefaultStreamBuffer.
func NewStreamSession(ctx context.Context, id string, buffer int, producer Producer) *StreamSession {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &StreamSession{
		id:     id,
		ctx:    sctx,
		cancel: cancel,
		out:    make(chan Notification, buffer),
		done:   make(chan struct{}),
	}
	go s.run(producer)
	return s
}

func (s *StreamSession) run(producer Producer) {
	err := producer(s.ctx, s.emit)
	s.err = err
	s.completed.Store(true)
	close(s.out)
	close(s.done)
}

func (s *StreamSession) emit(payload any) bool {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}
	n := Notification{
		SubscriptionID: s.id,
		Seq:            s.seq + 1,
		Payload:        payload,
		Timestamp:      time.Now(),
	}
	select {
	case s.out <- n:
		s.seq = n.Seq
		return true
	case <-s.ctx.Done():
		return false
	}
}

// ID returns the subscription id.
func (s *StreamSession) ID() string {
	return s.id
}

// Done returns a channel closed when the producer has returned.
func (s *StreamSession) Done() <-chan struct{} {
	return s.done
}

// IsCompleted reports whether the producer has returned.
func (s *StreamSession) IsCompleted() bool {
	return s.completed.Load()
}

// Notifications returns the channel of produced notifications.
// It is closed when the producer returns.
func (s *StreamSession) Notifications() <-chan Notification {
	return s.out
}

// Err returns the producer's result. It is nil until the session completes.
func (s *StreamSession) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// IsDisposed reports whether Dispose has been called.
func (s *StreamSession) IsDisposed() bool {
	return s.disposed.Load()
}

// Dispose cancels the producer. It does not wait for the producer to return;
// use Wait for that. Dispose is idempotent and always returns nil.
func (s *StreamSession) Dispose() error {
	s.disposeOnce.Do(func() {
		s.disposed.Store(true)
		s.cancel()
	})
	return nil
}

// Wait blocks until the producer has returned or ctx is done.
func (s *StreamSession) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compile-time interface satisfaction check.
var _ Session = (*StreamSession)(nil)
