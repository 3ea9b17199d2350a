// Package connection owns the subscription registry of a single client
// connection.
//
// A Conn is created when a client connects and closed exactly once when the
// connection ends:
//
//  1. New assigns a UUID connection id and creates the registry
//  2. Start launches a stream and hands it to the registry
//  3. Stop unregisters a stream on client request
//  4. Close disposes the registry, tearing down every live stream
//
// Streams that finish on their own are removed by the registry without any
// action from the connection.
//
// # Delivery
//
// Each started stream gets a forwarder goroutine that passes notifications to
// Config.Deliver in emit order. Without a Deliver func notifications are
// drained and dropped, so producers never block on an unread buffer.
//
// # Tracking
//
// A server keeps its open connections in a Tracker and calls CloseAll on
// shutdown.
package connection
