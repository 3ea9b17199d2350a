package log

import (
	"fmt"
	"strings"
	"time"
)

// Event is one lifecycle event. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection owning the registry.
	ConnectionID string `cbor:"2,keyasint"`

	// Entity is what the event is about.
	Entity Entity `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// SubscriptionID is set for session events.
	SubscriptionID string `cbor:"5,keyasint,omitempty"`

	// RemoteAddr is the peer address, set on connection events.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Exactly one of these is set.
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"`
}

// Entity identifies what kind of object an event concerns.
type Entity uint8

const (
	// EntityConnection is the duplex connection.
	EntityConnection Entity = 0
	// EntityRegistry is the connection's subscription registry.
	EntityRegistry Entity = 1
	// EntitySession is a single subscription session.
	EntitySession Entity = 2
)

// String returns the entity name.
func (e Entity) String() string {
	switch e {
	case EntityConnection:
		return "CONNECTION"
	case EntityRegistry:
		return "REGISTRY"
	case EntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ParseEntity parses an entity name, case-insensitively.
func ParseEntity(s string) (Entity, error) {
	switch strings.ToLower(s) {
	case "connection", "conn":
		return EntityConnection, nil
	case "registry":
		return EntityRegistry, nil
	case "session", "subscription":
		return EntitySession, nil
	default:
		return 0, fmt.Errorf("invalid entity %q (expected connection, registry, session)", s)
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryError indicates an error.
	CategoryError Category = 1
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return CategoryState, nil
	case "error":
		return CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category %q (expected state, error)", s)
	}
}

// Lifecycle states used in StateChangeEvent.
const (
	StateConnected  = "CONNECTED"
	StateClosed     = "CLOSED"
	StateActive     = "ACTIVE"
	StateRegistered = "REGISTERED"
	StateRejected   = "REJECTED"
	StateDisposed   = "DISPOSED"
)

// StateChangeEvent captures a lifecycle transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change, if known.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures a failure.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being done when the error occurred.
	Context string `cbor:"2,keyasint,omitempty"`
}
