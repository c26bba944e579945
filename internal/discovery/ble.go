package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
)

// stopRetryInterval is how often a pending StopScan is retried while the
// adapter has not yet registered the scan.
const stopRetryInterval = 50 * time.Millisecond

// BLESource scans with the local Bluetooth adapter
type BLESource struct {
	// Adapter is the radio to scan with
	Adapter *bluetooth.Adapter
}

// NewBLESource creates a source on the system's default adapter
func NewBLESource() *BLESource {
	return &BLESource{
		Adapter: bluetooth.DefaultAdapter,
	}
}

// Name implements Source
func (s *BLESource) Name() string {
	return "ble"
}

// Scan implements Source. It blocks until ctx is done.
func (s *BLESource) Scan(ctx context.Context, emit EmitFunc) error {
	if err := s.Adapter.Enable(); err != nil {
		return &ScanError{
			Reason: session.ScanFailureReason{Code: session.FailureFeatureUnsupported},
			Err:    fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err),
		}
	}
	logging.LogSourceEvent(s.Name(), "adapter_enabled")

	if ctx.Err() != nil {
		return nil
	}

	scanDone := make(chan struct{})
	go s.stopOnCancel(ctx, scanDone)

	err := s.Adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		emit(observationFromScan(result.Address.String(), result.LocalName(), result.RSSI))
	})
	close(scanDone)

	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return &ScanError{Reason: classifyBLEError(err), Err: err}
	}
	return &ScanError{
		Reason: session.ScanFailureReason{Code: session.FailureInternalError},
		Err:    fmt.Errorf("adapter scan ended unexpectedly"),
	}
}

// stopOnCancel stops the adapter scan once ctx is done. StopScan fails when
// called before the adapter has registered the scan, so it is retried until
// Scan returns.
func (s *BLESource) stopOnCancel(ctx context.Context, scanDone <-chan struct{}) {
	select {
	case <-ctx.Done():
	case <-scanDone:
		return
	}

	for {
		err := s.Adapter.StopScan()
		if err == nil {
			return
		}
		logging.Debug("StopScan not accepted yet", zap.Error(err))

		select {
		case <-scanDone:
			return
		case <-time.After(stopRetryInterval):
		}
	}
}

// observationFromScan converts the fields of one advertisement report
func observationFromScan(address, localName string, rssi int16) session.RawObservation {
	return session.RawObservation{
		Identifier:     strings.ToUpper(address),
		DisplayName:    strings.TrimSpace(localName),
		SignalStrength: int(rssi),
	}
}

// classifyBLEError maps adapter errors to platform failure codes
func classifyBLEError(err error) session.ScanFailureReason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already"):
		return session.ScanFailureReason{Code: session.FailureAlreadyStarted}
	case strings.Contains(msg, "not supported"), strings.Contains(msg, "unsupported"):
		return session.ScanFailureReason{Code: session.FailureFeatureUnsupported}
	case strings.Contains(msg, "too frequent"):
		return session.ScanFailureReason{Code: session.FailureScanningTooFrequently}
	default:
		return session.ScanFailureReason{Code: session.FailureInternalError}
	}
}
