package session

import (
	"fmt"
)

// ErrorKind classifies session misuse. Both kinds are precondition
// violations by the caller; neither is transient.
type ErrorKind int

const (
	// KindAlreadyStarted means Start was called outside StateIdle
	KindAlreadyStarted ErrorKind = iota + 1
	// KindNotScanning means Stop was called outside StateScanning
	KindNotScanning
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyStarted:
		return "already started"
	case KindNotScanning:
		return "not scanning"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Start and Stop when their precondition fails.
type Error struct {
	Op    string    // Operation that failed ("start" or "stop")
	Kind  ErrorKind // What went wrong
	State State     // Session state at the time of the call
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("session %s: %s (state: %s)", e.Op, e.Kind, e.State)
}

// Is matches any *Error of the same Kind, so callers can compare against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyStarted = &Error{Kind: KindAlreadyStarted}
	ErrNotScanning    = &Error{Kind: KindNotScanning}
)
