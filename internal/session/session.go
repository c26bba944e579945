package session

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/muurk/smartdevice/internal/logging"
)

// A session makes at most two transitions, so watcher channels of this size
// never fill up unless the reader stops draining them.
const watchBuffer = 4

// Options configures a new Session.
type Options struct {
	// Timeout stops the session automatically this long after Start.
	// Zero disables the timeout.
	Timeout time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Session owns one scan's lifecycle and its deduplicated result set.
type Session struct {
	id      string
	timeout time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	state     State
	devices   map[string]*DiscoveredDevice
	order     []string // identifiers in first-seen order
	startedAt time.Time
	stoppedAt time.Time
	cause     StopCause
	failure   *ScanFailureReason
	timer     *time.Timer

	watchers  map[uint64]chan StateChange
	nextWatch uint64
	done      chan struct{}
}

// New creates a session in StateIdle.
func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:       ulid.Make().String(),
		timeout:  opts.Timeout,
		now:      now,
		state:    StateIdle,
		devices:  make(map[string]*DiscoveredDevice),
		watchers: make(map[uint64]chan StateChange),
		done:     make(chan struct{}),
	}
}

// ID returns the session's unique identifier (a ULID)
func (s *Session) ID() string {
	return s.id
}

// Timeout returns the configured auto-stop duration (zero if disabled)
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// Start moves the session from StateIdle to StateScanning and arms the
// timeout, if any. It fails with ErrAlreadyStarted in any other state and
// leaves the state unchanged.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return &Error{Op: "start", Kind: KindAlreadyStarted, State: state}
	}

	change := s.transitionLocked(StateScanning, CauseNone)
	s.startedAt = change.At
	if s.timeout > 0 {
		s.timer = time.AfterFunc(s.timeout, s.expire)
	}
	s.mu.Unlock()

	logChange(change)
	return nil
}

// Observe folds one sighting into the result set. It is a no-op unless the
// session is scanning, and for observations without an identifier.
func (s *Session) Observe(obs RawObservation) {
	if obs.Identifier == "" {
		return
	}

	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return
	}

	at := s.now()
	dev, exists := s.devices[obs.Identifier]
	if exists {
		dev.SignalStrength = obs.SignalStrength
		dev.LastSeenAt = at
		dev.Sightings++
		if obs.DisplayName != "" {
			dev.DisplayName = obs.DisplayName
		}
		s.mu.Unlock()
		return
	}

	s.devices[obs.Identifier] = &DiscoveredDevice{
		Identifier:     obs.Identifier,
		DisplayName:    obs.DisplayName,
		SignalStrength: obs.SignalStrength,
		FirstSeenAt:    at,
		LastSeenAt:     at,
		Sightings:      1,
	}
	s.order = append(s.order, obs.Identifier)
	s.mu.Unlock()

	logging.LogObservation(s.id, obs.Identifier, obs.DisplayName, obs.SignalStrength)
}

// Stop ends a running scan. It fails with ErrNotScanning when the session is
// not scanning, including when the timeout or a failure already stopped it.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateScanning {
		state := s.state
		s.mu.Unlock()
		return &Error{Op: "stop", Kind: KindNotScanning, State: state}
	}
	change := s.transitionLocked(StateStopped, CauseExplicit)
	s.mu.Unlock()

	logChange(change)
	return nil
}

// expire is the timeout callback. Unlike Stop it is silent when the session
// has already stopped.
func (s *Session) expire() {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	change := s.transitionLocked(StateStopped, CauseTimeout)
	s.mu.Unlock()

	logChange(change)
}

// Fail records a terminal platform failure and forces StateStopped from any
// state. Once stopped, later failures are ignored and the first reason is
// kept.
func (s *Session) Fail(reason ScanFailureReason) {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		logging.Debug("Ignoring scan failure on stopped session",
			zap.String("session_id", s.id),
			zap.Int("code", reason.Code),
		)
		return
	}
	r := reason
	s.failure = &r
	change := s.transitionLocked(StateStopped, CauseFailure)
	s.mu.Unlock()

	logChange(change)
}

// transitionLocked switches state and notifies watchers. Callers hold s.mu.
func (s *Session) transitionLocked(to State, cause StopCause) StateChange {
	change := StateChange{
		SessionID: s.id,
		From:      s.state,
		To:        to,
		Cause:     cause,
		At:        s.now(),
	}
	s.state = to

	if to == StateStopped {
		s.stoppedAt = change.At
		s.cause = cause
		if s.timer != nil {
			s.timer.Stop()
		}
		if s.failure != nil {
			r := *s.failure
			change.Failure = &r
		}
	}

	for _, ch := range s.watchers {
		select {
		case ch <- change:
		default:
		}
	}

	if to == StateStopped {
		for id, ch := range s.watchers {
			close(ch)
			delete(s.watchers, id)
		}
		close(s.done)
	}

	return change
}

// Snapshot returns copies of all discovered devices ordered by first
// sighting. It never mutates the session and is valid in any state.
func (s *Session) Snapshot() []DiscoveredDevice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]DiscoveredDevice, 0, len(s.order))
	for _, id := range s.order {
		devices = append(devices, *s.devices[id])
	}
	return devices
}

// Len returns the number of distinct devices seen
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// StartedAt returns when the scan started (zero while idle)
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// StoppedAt returns when the session stopped (zero until then)
func (s *Session) StoppedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stoppedAt
}

// Cause returns why the session stopped, or CauseNone
func (s *Session) Cause() StopCause {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cause
}

// Failure returns the platform failure that stopped the session, if any
func (s *Session) Failure() (ScanFailureReason, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failure == nil {
		return ScanFailureReason{}, false
	}
	return *s.failure, true
}

// Done returns a channel that is closed once the session is stopped
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Watch subscribes to state transitions. The channel is closed when the
// session stops, right after the final transition is delivered; watching a
// stopped session yields a closed channel. The returned function cancels the
// subscription early and is safe to call more than once.
func (s *Session) Watch() (<-chan StateChange, func()) {
	ch := make(chan StateChange, watchBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		close(ch)
		return ch, func() {}
	}

	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[id]; ok {
			close(c)
			delete(s.watchers, id)
		}
	}
}

func logChange(change StateChange) {
	fields := []zap.Field{}
	if change.Failure != nil {
		fields = append(fields,
			zap.Int("failure_code", change.Failure.Code),
			zap.String("failure", change.Failure.String()),
		)
	}
	logging.LogStateChange(change.SessionID, change.From.String(), change.To.String(), change.Cause.String(), fields...)
}
