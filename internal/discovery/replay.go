package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/smartdevice/internal/session"
)

// CaptureVersion is the only capture file version understood
const CaptureVersion = 1

// Capture is a recorded sequence of sightings, stored as YAML.
//
//	version: 1
//	source: ble
//	steps:
//	  - after: 0s
//	    id: "AA:BB:CC:DD:EE:FF"
//	    name: Phone
//	    rssi: -40
//	  - after: 250ms
//	    fail: 2
type Capture struct {
	Version    int       `yaml:"version"`
	Source     string    `yaml:"source,omitempty"`
	RecordedAt time.Time `yaml:"recorded_at,omitempty"`
	Steps      []Step    `yaml:"steps"`
}

// Step is one replayed event: a sighting, or a platform failure when Fail
// is non-zero. After is the delay since the previous step.
type Step struct {
	After time.Duration `yaml:"after"`
	ID    string        `yaml:"id,omitempty"`
	Name  string        `yaml:"name,omitempty"`
	RSSI  int           `yaml:"rssi,omitempty"`
	Fail  int           `yaml:"fail,omitempty"`
}

// Validate checks the capture for structural errors
func (c *Capture) Validate() error {
	if c.Version != CaptureVersion {
		return fmt.Errorf("unsupported capture version: %d (expected %d)", c.Version, CaptureVersion)
	}
	for i, step := range c.Steps {
		if step.After < 0 {
			return fmt.Errorf("step %d: negative delay %v", i+1, step.After)
		}
		if step.ID == "" && step.Fail == 0 {
			return fmt.Errorf("step %d: needs either id or fail", i+1)
		}
		if step.ID != "" && step.Fail != 0 {
			return fmt.Errorf("step %d: id and fail are mutually exclusive", i+1)
		}
	}
	return nil
}

// ParseCapture decodes and validates a YAML capture
func ParseCapture(data []byte) (*Capture, error) {
	var capture Capture
	if err := yaml.Unmarshal(data, &capture); err != nil {
		return nil, fmt.Errorf("failed to parse capture: %w", err)
	}
	if err := capture.Validate(); err != nil {
		return nil, err
	}
	return &capture, nil
}

// LoadCapture reads a capture file from disk
func LoadCapture(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}
	return ParseCapture(data)
}

// ReplaySource replays a Capture as if a radio delivered it
type ReplaySource struct {
	Capture *Capture

	// Speed scales the recorded delays: 1 replays in real time, 2 twice as
	// fast. Zero or less replays without any delay.
	Speed float64

	// Hold keeps the scan open after the last step until ctx is done, like
	// a radio that has nothing more to report. Without Hold the scan ends
	// with the capture.
	Hold bool
}

// NewReplaySource creates a real-time replay of capture
func NewReplaySource(capture *Capture) *ReplaySource {
	return &ReplaySource{
		Capture: capture,
		Speed:   1,
	}
}

// Name implements Source
func (s *ReplaySource) Name() string {
	return "replay"
}

// Scan implements Source
func (s *ReplaySource) Scan(ctx context.Context, emit EmitFunc) error {
	for _, step := range s.Capture.Steps {
		if err := s.wait(ctx, step.After); err != nil {
			return nil
		}

		if step.Fail != 0 {
			return &ScanError{
				Reason: session.ScanFailureReason{Code: step.Fail},
				Err:    fmt.Errorf("replayed platform failure"),
			}
		}

		emit(session.RawObservation{
			Identifier:     step.ID,
			DisplayName:    step.Name,
			SignalStrength: step.RSSI,
		})
	}

	if s.Hold {
		<-ctx.Done()
	}
	return nil
}

func (s *ReplaySource) wait(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.Speed <= 0 || d <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(float64(d) / s.Speed))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
