// Package discovery connects platform scanners to a discovery session.
//
// A Source produces raw sightings; Run binds one Source to one
// session.Session, starts the session and feeds every sighting into it until
// the scan ends. Three sources are provided:
//
//   - BLESource scans with the local Bluetooth adapter
//   - MDNSSource browses for network nodes (ESPHome Bluetooth proxies by
//     default) announced over multicast DNS
//   - ReplaySource replays a YAML capture written by a Recorder
//
// # Usage Example
//
//	sess := session.New(session.Options{Timeout: 30 * time.Second})
//
//	if err := discovery.Run(ctx, discovery.NewBLESource(), sess); err != nil {
//	    // The session has already been failed with the platform reason
//	    log.Fatal(err)
//	}
//
//	for _, device := range sess.Snapshot() {
//	    fmt.Println(device)
//	}
//
// # Ending a Scan
//
// Run returns once the session has stopped and the source has returned. The
// scan ends on the session timeout, on ctx cancellation (an explicit stop),
// on a source failure (the session is failed with the reason carried by a
// *ScanError, or FailureInternalError), or when a finite source runs out.
//
// # Failure Codes
//
// Platform errors are mapped to the scan failure codes defined in the
// session package. Adapter errors that cannot be classified are reported as
// internal errors.
//
// # Captures
//
// A Recorder wraps any Source and records sightings with their relative
// delays. The resulting capture can be replayed with ReplaySource, which
// makes scans reproducible without a radio:
//
//	rec := discovery.NewRecorder()
//	err := discovery.Run(ctx, rec.Source(discovery.NewBLESource()), sess)
//	rec.WriteFile("capture.yaml")
//
// # Platform Requirements
//
// - BLE scanning on Linux needs BlueZ and, without root, CAP_NET_ADMIN
// - mDNS requires multicast on the local network segment (UDP port 5353)
package discovery
