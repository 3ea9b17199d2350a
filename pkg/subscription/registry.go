package subscription

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/mash-protocol/mash-subs/pkg/log"
)

// entry is the registry's record of one registered session.
type entry struct {
	session Session

	// removed is closed by the goroutine that won the removal of this entry,
	// once the session's Dispose has returned. It stops the completion watcher.
	removed chan struct{}
}

// Registry tracks the active sessions of one connection.
//
// All methods are safe for concurrent use. Operations on different ids never
// wait for each other.
type Registry struct {
	owner  Owner
	config RegistryConfig

	entries *xsync.Map[string, *entry]

	disposed    atomic.Bool
	closing     chan struct{}
	disposeOnce sync.Once
	disposeErr  error
}

// NewRegistry creates an empty registry for the given connection.
func NewRegistry(owner Owner, config RegistryConfig) (*Registry, error) {
	if owner == nil {
		return nil, ErrNilOwner
	}
	return &Registry{
		owner:   owner,
		config:  config.withDefaults(),
		entries: xsync.NewMap[string, *entry](),
		closing: make(chan struct{}),
	}, nil
}

// Register hands a session over to the registry.
//
// On success the registry owns the session and disposes it exactly once: when
// it is unregistered, when it completes, or when the registry is disposed. A
// session that has already completed is disposed before Register returns.
//
// If another session is registered under the same id, nothing is stored and
// ErrDuplicateID is returned; the existing session is left untouched.
func (r *Registry) Register(session Session) error {
	if session == nil {
		return ErrNilSession
	}
	id := session.ID()
	if id == "" {
		return ErrEmptyID
	}
	if r.disposed.Load() {
		return r.disposedError("register", id)
	}

	e := &entry{session: session, removed: make(chan struct{})}
	if _, loaded := r.entries.LoadOrStore(id, e); loaded {
		r.config.Metrics.SessionRejected(ReasonDuplicate)
		r.logState(id, "", log.StateRejected, ReasonDuplicate)
		return fmt.Errorf("%w: %q on connection %s", ErrDuplicateID, id, r.owner.ID())
	}

	r.config.Metrics.SessionRegistered()
	r.logState(id, "", log.StateRegistered, "")
	r.debugLog("subscription registered", "subscription_id", id)

	go r.watch(id, e, session.Done())

	// Dispose may have taken its snapshot before the insert above. The entry
	// is ours to clean up if it is still present.
	if r.disposed.Load() {
		if r.remove(id, e) {
			r.reportDisposeError(id, r.release(id, e, ReasonTeardown))
		}
		return nil
	}

	// The session may have completed before the watcher was attached.
	if session.IsCompleted() {
		if err := r.retire(id, e, ReasonCompleted); err != nil && !errors.Is(err, ErrRegistryDisposed) {
			r.reportDisposeError(id, err)
		}
		// The watcher or Dispose may have won the removal and still be
		// disposing the session.
		<-e.removed
	}
	return nil
}

// Unregister removes the session registered under id and disposes it.
// Unknown ids are ignored, so repeated calls dispose the session once.
func (r *Registry) Unregister(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if r.disposed.Load() {
		return r.disposedError("unregister", id)
	}

	e, ok := r.entries.LoadAndDelete(id)
	if !ok {
		return nil
	}
	return r.release(id, e, ReasonUnregistered)
}

// Dispose stops the registry from accepting work and disposes every
// registered session. Only the first call does anything; later calls wait
// for it and return nil.
//
// Every session is disposed even if some of them fail. The failures are
// joined into the returned error.
func (r *Registry) Dispose() error {
	first := false
	r.disposeOnce.Do(func() {
		first = true
		r.disposed.Store(true)
		close(r.closing)

		type removedEntry struct {
			id string
			e  *entry
		}
		var snapshot []removedEntry
		r.entries.Range(func(id string, e *entry) bool {
			if r.remove(id, e) {
				snapshot = append(snapshot, removedEntry{id: id, e: e})
			}
			return true
		})

		var errs []error
		for _, s := range snapshot {
			if err := r.release(s.id, s.e, ReasonTeardown); err != nil {
				errs = append(errs, err)
			}
		}

		r.config.Metrics.RegistryDisposed(len(snapshot))
		r.logRegistry(len(snapshot), len(errs))
		r.debugLog("subscription registry disposed", "sessions", len(snapshot), "failures", len(errs))
		r.disposeErr = errors.Join(errs...)
	})
	if !first {
		return nil
	}
	return r.disposeErr
}

// IsDisposed reports whether Dispose has been called.
func (r *Registry) IsDisposed() bool {
	return r.disposed.Load()
}

// All returns an iterator over the sessions registered at iteration time.
// Sessions added or removed while iterating may or may not be visited.
func (r *Registry) All() iter.Seq[Session] {
	return func(yield func(Session) bool) {
		r.entries.Range(func(_ string, e *entry) bool {
			return yield(e.session)
		})
	}
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (Session, bool) {
	e, ok := r.entries.Load(id)
	if !ok {
		return nil, false
	}
	return e.session, true
}

// IDs returns the ids of the currently registered sessions.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, r.entries.Size())
	r.entries.Range(func(id string, _ *entry) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.entries.Size()
}

// Owner returns the connection this registry belongs to.
func (r *Registry) Owner() Owner {
	return r.owner
}

// watch waits for the session to complete and retires it.
// It exits early once the entry is removed or the registry is disposed.
func (r *Registry) watch(id string, e *entry, done <-chan struct{}) {
	select {
	case <-done:
		// A disposed registry has already taken ownership of the entry.
		if err := r.retire(id, e, ReasonCompleted); err != nil && !errors.Is(err, ErrRegistryDisposed) {
			r.reportDisposeError(id, err)
		}
	case <-e.removed:
	case <-r.closing:
	}
}

// retire removes a completed session's entry and disposes it.
func (r *Registry) retire(id string, e *entry, reason string) error {
	if r.disposed.Load() {
		return r.disposedError("unregister", id)
	}
	if !r.remove(id, e) {
		return nil
	}
	return r.release(id, e, reason)
}

// remove deletes id from the map if it still maps to e.
// It reports whether this call performed the deletion.
func (r *Registry) remove(id string, e *entry) bool {
	removed := false
	r.entries.Compute(id, func(old *entry, loaded bool) (*entry, xsync.ComputeOp) {
		if loaded && old == e {
			removed = true
			return nil, xsync.DeleteOp
		}
		return old, xsync.CancelOp
	})
	return removed
}

// release disposes the session of an entry the caller has removed.
// A panic in the session's Dispose is returned as an error.
func (r *Registry) release(id string, e *entry, reason string) (err error) {
	defer close(e.removed)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: subscription %q: panic: %v", ErrDisposeFailed, id, p)
		}
		if err != nil {
			r.config.Metrics.DisposeFailed()
			r.logError(id, err, reason)
		}
		r.config.Metrics.SessionDisposed(reason)
		r.logState(id, log.StateRegistered, log.StateDisposed, reason)
		r.debugLog("subscription disposed", "subscription_id", id, "reason", reason)
	}()

	if derr := e.session.Dispose(); derr != nil {
		return fmt.Errorf("dispose subscription %q: %w", id, derr)
	}
	return nil
}

// reportDisposeError logs a dispose failure that has no caller to return to.
func (r *Registry) reportDisposeError(id string, err error) {
	if err == nil {
		return
	}
	if r.config.Logger != nil {
		r.config.Logger.Warn("subscription dispose failed",
			"conn_id", r.owner.ID(),
			"subscription_id", id,
			"error", err)
	}
}

func (r *Registry) disposedError(op, id string) error {
	return fmt.Errorf("%s %q on connection %s: %w", op, id, r.owner.ID(), ErrRegistryDisposed)
}

func (r *Registry) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, append([]any{"conn_id", r.owner.ID()}, args...)...)
	}
}

func (r *Registry) logState(id, oldState, newState, reason string) {
	r.config.EventLogger.Log(log.Event{
		Timestamp:      time.Now(),
		ConnectionID:   r.owner.ID(),
		SubscriptionID: id,
		Entity:         log.EntitySession,
		Category:       log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (r *Registry) logRegistry(sessions, failures int) {
	r.config.EventLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.owner.ID(),
		Entity:       log.EntityRegistry,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			OldState: log.StateActive,
			NewState: log.StateDisposed,
			Reason:   fmt.Sprintf("sessions=%d failures=%d", sessions, failures),
		},
	})
}

func (r *Registry) logError(id string, err error, reason string) {
	r.config.EventLogger.Log(log.Event{
		Timestamp:      time.Now(),
		ConnectionID:   r.owner.ID(),
		SubscriptionID: id,
		Entity:         log.EntitySession,
		Category:       log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: reason,
		},
	})
}
