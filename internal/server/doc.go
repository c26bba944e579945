// Package server presents a running discovery session over HTTP and WebSocket.
//
// # Routes
//
//   - GET /api/session: session summary (id, state, stop cause, timestamps,
//     failure, device count)
//   - GET /api/devices: the current snapshot as a JSON array, ordered by first
//     sighting
//   - GET /ws: WebSocket feed of JSON messages
//
// # WebSocket Feed
//
// Each client receives:
//  1. A "snapshot" message on connect
//  2. A "state" message for every session transition
//  3. A "snapshot" message every PushInterval while connected
//  4. A final "snapshot" and a normal close frame once the session stops
//
// Connecting to a stopped session yields the final snapshot and the close
// frame straight away.
//
// # Usage Example
//
//	sess := session.New(session.Options{Timeout: time.Minute})
//	srv := server.New(&server.Config{Port: 8080, PushInterval: time.Second}, sess)
//
//	// Start blocks until ctx is done, then shuts down gracefully
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// When the context passed to Start is done the server:
//  1. Stops accepting new connections
//  2. Sends a going-away close frame to WebSocket clients
//  3. Waits up to 10 seconds for connections to finish
//
// # Thread Safety
//
// Each connection runs in its own goroutine and only reads the session, so any
// number of clients can watch the same scan.
package server
