// Package subscription implements the per-connection subscription registry.
//
// A single persistent connection multiplexes many subscription streams. Each
// stream is represented by a Session, created by the execution engine and
// handed to the connection's Registry. The registry guarantees that every
// session it accepts is disposed exactly once, whichever of these happens
// first:
//
//   - the client stops the subscription (Unregister)
//   - the session completes on its own (success, error or cancellation)
//   - the connection closes and the registry is disposed
//
// # Ownership
//
// Register returning nil transfers ownership of the session to the registry.
// Any error leaves the session with the caller, who must dispose it.
//
// Only the goroutine that removes an entry from the registry may dispose its
// session. Removal is a single atomic operation on a concurrent map, so two
// racing removal paths never both dispose the same session.
//
// # Self-Completion
//
// A session may finish before, during or after Register. Register attaches a
// completion watcher and then re-checks IsCompleted, so a session that
// finished before the watcher was attached is still removed and disposed
// before Register returns. When another removal path wins that race,
// Register waits for its Dispose to return.
//
// # Teardown
//
// Dispose flips the registry into the disposed state, removes every stored
// entry and disposes each removed session. A failing session does not stop
// the others from being disposed. After Dispose the registry rejects Register
// and Unregister with ErrRegistryDisposed.
//
// # Stream Sessions
//
// StreamSession is a Session backed by a producer function running in its own
// goroutine. It is what the connection layer registers for each started
// subscription.
package subscription
