// Package logging provides structured logging for smartdevice.
//
// This package wraps a global zap logger with convenience functions for the
// events the tool cares about: session transitions, first sightings of a
// device, scan source lifecycle and HTTP/WebSocket clients.
//
// # Log Levels
//
//   - Debug: First sighting of each device, ignored failures
//   - Info: Session transitions, source start/stop, client connections
//   - Warn: Non-fatal issues (dropped clients, slow shutdown)
//   - Error: Source failures, server errors
//
// # Structured Logging
//
//	logging.Info("Scan source event",
//	    zap.String("source", "ble"),
//	    zap.String("event", "adapter_enabled"),
//	)
//
//	logging.LogStateChange(sessionID, "scanning", "stopped", "timeout")
//
// # Configuration
//
// Logging is silent by default. Enable it with --log-level on any command or
// with the SMARTDEVICE_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output is written to stderr in console format so that JSON or YAML scan
// results on stdout can be piped.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// are meant to be called once at startup.
package logging
