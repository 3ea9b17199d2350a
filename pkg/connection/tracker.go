package connection

import (
	"errors"
	"sync"
	"time"
)

type tracked struct {
	conn  *Conn
	added time.Time
}

// Tracker tracks open connections by id.
type Tracker struct {
	mu    sync.Mutex
	conns map[string]tracked
}

// NewTracker creates an empty connection tracker.
func NewTracker() *Tracker {
	return &Tracker{
		conns: make(map[string]tracked),
	}
}

// Add registers a connection with the current time.
func (t *Tracker) Add(c *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.ID()] = tracked{conn: c, added: time.Now()}
}

// Remove deregisters a connection. Safe to call on absent connections.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

// Get returns the tracked connection with the given id.
func (t *Tracker) Get(id string) (*Conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tc, ok := t.conns[id]
	return tc.conn, ok
}

// CloseStale closes and removes all connections older than maxAge.
// Returns the number of connections closed and any close errors joined.
func (t *Tracker) CloseStale(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	return t.closeMatching(func(tc tracked) bool {
		return tc.added.Before(cutoff)
	})
}

// CloseAll closes and removes all tracked connections.
// A failing close does not stop the others; all errors are joined.
func (t *Tracker) CloseAll() (int, error) {
	return t.closeMatching(func(tracked) bool { return true })
}

// Len returns the number of tracked connections.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *Tracker) closeMatching(match func(tracked) bool) (int, error) {
	t.mu.Lock()
	var victims []*Conn
	for id, tc := range t.conns {
		if match(tc) {
			victims = append(victims, tc.conn)
			delete(t.conns, id)
		}
	}
	t.mu.Unlock()

	var errs []error
	for _, c := range victims {
		if err := c.Close(); err != nil && !errors.Is(err, ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	return len(victims), errors.Join(errs...)
}
