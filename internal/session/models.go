package session

import (
	"fmt"
	"time"
)

// UnknownName is shown in place of a display name the platform withheld.
const UnknownName = "Unknown"

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle is the initial state; no scan has been requested yet
	StateIdle State = iota
	// StateScanning accepts observations
	StateScanning
	// StateStopped is terminal
	StateStopped
)

// String returns the lower-case state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so states render as names in
// JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateIdle, StateScanning, StateStopped} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// StopCause records why a session reached StateStopped.
type StopCause int

const (
	// CauseNone means the session has not stopped
	CauseNone StopCause = iota
	// CauseExplicit is a caller-issued Stop
	CauseExplicit
	// CauseTimeout is the internal auto-stop
	CauseTimeout
	// CauseFailure is a platform failure delivered with Fail
	CauseFailure
)

// String returns the lower-case cause name
func (c StopCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseExplicit:
		return "explicit"
	case CauseTimeout:
		return "timeout"
	case CauseFailure:
		return "failure"
	default:
		return fmt.Sprintf("StopCause(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler
func (c StopCause) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *StopCause) UnmarshalText(text []byte) error {
	for _, candidate := range []StopCause{CauseNone, CauseExplicit, CauseTimeout, CauseFailure} {
		if candidate.String() == string(text) {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown stop cause %q", text)
}

// RawObservation is one device sighting as delivered by the platform scanner.
// The same identifier may be delivered any number of times during a scan.
type RawObservation struct {
	// Identifier is the stable device address (e.g., "AA:BB:CC:DD:EE:FF")
	Identifier string

	// DisplayName is the advertised name; empty when the platform withholds it
	DisplayName string

	// SignalStrength is the RSSI in dBm
	SignalStrength int
}

// DiscoveredDevice is the deduplicated record of one physical device.
type DiscoveredDevice struct {
	Identifier     string    `json:"identifier" yaml:"identifier"`
	DisplayName    string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	SignalStrength int       `json:"signal_strength" yaml:"signal_strength"`
	FirstSeenAt    time.Time `json:"first_seen_at" yaml:"first_seen_at"`
	LastSeenAt     time.Time `json:"last_seen_at" yaml:"last_seen_at"`
	Sightings      int       `json:"sightings" yaml:"sightings"`
}

// HasName reports whether the platform supplied a display name
func (d DiscoveredDevice) HasName() bool {
	return d.DisplayName != ""
}

// Name returns the display name, or UnknownName when absent
func (d DiscoveredDevice) Name() string {
	if d.DisplayName == "" {
		return UnknownName
	}
	return d.DisplayName
}

// String returns a human-readable representation of the device
func (d DiscoveredDevice) String() string {
	return fmt.Sprintf("%s (%s) RSSI %d dBm", d.Name(), d.Identifier, d.SignalStrength)
}

// Platform scan failure codes. The values match the error codes an Android
// ScanCallback receives, which is where most captures come from.
const (
	FailureAlreadyStarted                = 1
	FailureApplicationRegistrationFailed = 2
	FailureInternalError                 = 3
	FailureFeatureUnsupported            = 4
	FailureOutOfHardwareResources        = 5
	FailureScanningTooFrequently         = 6
)

// ScanFailureReason is the terminal failure signal from the platform scanner.
type ScanFailureReason struct {
	Code int `json:"code" yaml:"code"`
}

// String returns a readable name for known codes
func (r ScanFailureReason) String() string {
	switch r.Code {
	case FailureAlreadyStarted:
		return "scan already started"
	case FailureApplicationRegistrationFailed:
		return "application registration failed"
	case FailureInternalError:
		return "internal error"
	case FailureFeatureUnsupported:
		return "feature unsupported"
	case FailureOutOfHardwareResources:
		return "out of hardware resources"
	case FailureScanningTooFrequently:
		return "scanning too frequently"
	default:
		return fmt.Sprintf("unknown (%d)", r.Code)
	}
}

// StateChange is delivered to watchers on every transition.
type StateChange struct {
	SessionID string
	From      State
	To        State
	Cause     StopCause
	At        time.Time

	// Failure is set when Cause is CauseFailure
	Failure *ScanFailureReason
}
