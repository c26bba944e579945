package discovery

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/smartdevice/internal/session"
)

// Recorder captures the sightings of a scan so they can be replayed later
type Recorder struct {
	mu     sync.Mutex
	now    func() time.Time
	source string
	start  time.Time
	last   time.Time
	steps  []Step
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Source wraps src so that every sighting and a terminal failure are
// recorded on their way to the session
func (r *Recorder) Source(src Source) Source {
	r.mu.Lock()
	r.source = src.Name()
	r.mu.Unlock()
	return &recordingSource{src: src, rec: r}
}

func (r *Recorder) record(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	if r.start.IsZero() {
		r.start = at
		r.last = at
	}
	step.After = at.Sub(r.last)
	r.last = at
	r.steps = append(r.steps, step)
}

// Capture returns what has been recorded so far
func (r *Recorder) Capture() *Capture {
	r.mu.Lock()
	defer r.mu.Unlock()

	steps := make([]Step, len(r.steps))
	copy(steps, r.steps)
	return &Capture{
		Version:    CaptureVersion,
		Source:     r.source,
		RecordedAt: r.start,
		Steps:      steps,
	}
}

// WriteFile saves the capture as YAML. The write is atomic.
func (r *Recorder) WriteFile(path string) error {
	data, err := yaml.Marshal(r.Capture())
	if err != nil {
		return fmt.Errorf("failed to marshal capture: %w", err)
	}

	header := []byte("# smartdevice scan capture\n# Replay with: smartdevice scan --source replay --replay " + path + "\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary capture file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save capture file: %w", err)
	}
	return nil
}

type recordingSource struct {
	src Source
	rec *Recorder
}

func (s *recordingSource) Name() string {
	return s.src.Name()
}

func (s *recordingSource) Scan(ctx context.Context, emit EmitFunc) error {
	err := s.src.Scan(ctx, func(obs session.RawObservation) {
		s.rec.record(Step{ID: obs.Identifier, Name: obs.DisplayName, RSSI: obs.SignalStrength})
		emit(obs)
	})
	if err != nil && ctx.Err() == nil {
		s.rec.record(Step{Fail: FailureReason(err).Code})
	}
	return err
}
