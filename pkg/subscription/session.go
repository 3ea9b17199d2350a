package subscription

import "errors"

// Registry errors.
var (
	// ErrNilSession is returned when Register is called without a session.
	ErrNilSession = errors.New("subscription session is nil")

	// ErrEmptyID is returned when a session or Unregister call carries no id.
	ErrEmptyID = errors.New("subscription id is empty")

	// ErrNilOwner is returned when a registry is created without an owner.
	ErrNilOwner = errors.New("registry owner is nil")

	// ErrRegistryDisposed is returned by operations on a disposed registry.
	ErrRegistryDisposed = errors.New("subscription registry disposed")

	// ErrDuplicateID is returned when Register finds the id already in use.
	ErrDuplicateID = errors.New("subscription id already registered")

	// ErrDisposeFailed wraps a panic raised by a session's Dispose.
	ErrDisposeFailed = errors.New("subscription session dispose failed")
)

// Session is one active subscription stream as seen by the registry.
//
// Implementations are provided by the execution engine. Done must be closed
// at most once, when the session's work ends for any reason. Dispose must be
// idempotent and safe to call concurrently with itself and with completion.
type Session interface {
	// ID returns the client-assigned subscription id.
	ID() string

	// Done returns a channel that is closed when the session completes.
	Done() <-chan struct{}

	// IsCompleted reports whether the session has already completed.
	IsCompleted() bool

	// Dispose releases the session's resources.
	Dispose() error
}

// Owner is the connection a registry belongs to.
// It is only used as context for logs and errors.
type Owner interface {
	ID() string
}

// Removal reasons, recorded in logs, events and metrics.
const (
	ReasonUnregistered = "unregistered"
	ReasonCompleted    = "completed"
	ReasonTeardown     = "teardown"
	ReasonDuplicate    = "duplicate"
)
