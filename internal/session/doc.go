// Package session implements the lifecycle of a single BLE discovery scan.
//
// A Session collects raw sightings delivered by a platform scanner, collapses
// repeated sightings of the same physical device into one record keyed by its
// identifier, and stops itself after an optional timeout.
//
// # Lifecycle
//
// A session moves through three states and is never reused:
//
//	Idle --Start--> Scanning --Stop/timeout/Fail--> Stopped
//	Idle --Fail--> Stopped
//
// Observations delivered outside Scanning are dropped without error. This
// covers the last callback a radio may deliver after a stop request.
//
// # Usage Example
//
//	sess := session.New(session.Options{Timeout: 30 * time.Second})
//	if err := sess.Start(); err != nil {
//	    return err
//	}
//
//	// From the scanner callback:
//	sess.Observe(session.RawObservation{
//	    Identifier:     "AA:BB:CC:DD:EE:FF",
//	    DisplayName:    "Phone",
//	    SignalStrength: -40,
//	})
//
//	// From the UI:
//	for _, dev := range sess.Snapshot() {
//	    fmt.Printf("%4d  %s  %s\n", dev.SignalStrength, dev.Name(), dev.Identifier)
//	}
//
// # Stop Semantics
//
// An explicit Stop is strict: calling it on a session that is not scanning
// returns an error matching ErrNotScanning, even when the timeout already
// stopped the session. The internal timeout is lenient and does nothing when
// the session has already stopped.
//
// Platform failures are not errors of this package. They are delivered with
// Fail, which forces the session to Stopped from any state.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Snapshot returns copies and may be
// called from a rendering goroutine while another goroutine delivers
// observations.
package session
