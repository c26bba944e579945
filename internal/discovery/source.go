package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

// EmitFunc receives one sighting from a source
type EmitFunc func(session.RawObservation)

// Source is a platform scanning facility that produces device sightings.
type Source interface {
	// Name identifies the source in logs and CLI flags (e.g., "ble")
	Name() string

	// Scan delivers sightings to emit until ctx is done, then returns nil.
	// A platform failure is returned as an error, preferably a *ScanError.
	// Finite sources (replay) may return nil before ctx is done.
	Scan(ctx context.Context, emit EmitFunc) error
}

// ScanError carries the platform failure reason for a failed scan
type ScanError struct {
	Reason session.ScanFailureReason
	Err    error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scan failed: %s (caused by: %v)", e.Reason, e.Err)
	}
	return fmt.Sprintf("scan failed: %s", e.Reason)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ScanError) Unwrap() error {
	return e.Err
}

// FailureReason extracts the failure reason from err. Errors that are not a
// *ScanError map to FailureInternalError.
func FailureReason(err error) session.ScanFailureReason {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Reason
	}
	return session.ScanFailureReason{Code: session.FailureInternalError}
}

// Run binds src to sess for one scan. It starts the session, feeds every
// sighting into it and returns once the session has stopped and the source
// has returned.
//
// The scan ends on the first of:
//   - the session stopping on its own (timeout) or through another caller
//   - ctx being cancelled, which stops the session explicitly
//   - the source failing, which fails the session and returns the error
//   - a finite source running out, which stops the session explicitly
func Run(ctx context.Context, src Source, sess *session.Session) error {
	if err := sess.Start(); err != nil {
		return err
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logging.LogSourceEvent(src.Name(), "scan_started", zap.String("session_id", sess.ID()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Scan(scanCtx, sess.Observe)
	}()

	var scanErr error
	select {
	case <-sess.Done():
		cancel()
		scanErr = <-errCh

	case <-ctx.Done():
		stopQuietly(sess)
		cancel()
		scanErr = <-errCh

	case scanErr = <-errCh:
		if scanErr == nil {
			stopQuietly(sess)
		}
	}

	// A source interrupted by our own cancellation has not failed
	if scanErr != nil && scanCtx.Err() != nil && errors.Is(scanErr, context.Canceled) {
		scanErr = nil
	}

	if scanErr != nil {
		reason := FailureReason(scanErr)
		sess.Fail(reason)
		logging.Error("Scan source failed",
			zap.String("source", src.Name()),
			zap.String("session_id", sess.ID()),
			zap.Int("code", reason.Code),
			zap.Error(scanErr),
		)
		return fmt.Errorf("%s scan: %w", src.Name(), scanErr)
	}

	logging.LogSourceEvent(src.Name(), "scan_finished",
		zap.String("session_id", sess.ID()),
		zap.Int("devices", sess.Len()),
		zap.String("cause", sess.Cause().String()),
	)
	return nil
}

// stopQuietly stops a session that may already have been stopped by its
// timeout in the meantime.
func stopQuietly(sess *session.Session) {
	if err := sess.Stop(); err != nil && !errors.Is(err, session.ErrNotScanning) {
		logging.Warn("Unexpected error stopping session", zap.Error(err))
	}
}
