package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/discovery"
	"github.com/muurk/smartdevice/internal/logging"
	"github.com/muurk/smartdevice/internal/session"
	"github.com/muurk/smartdevice/internal/ui"
)

// Output formats accepted by --format
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// Scan command flags
var (
	scanSource   string
	scanTimeout  time.Duration
	scanReplay   string
	scanSpeed    float64
	scanRecord   string
	scanFormat   string
	scanRemember bool
	scanTUI      bool
)

func init() {
	scanCmd.Flags().StringVar(&scanSource, "source", config.DefaultSource, "Scan source (ble, mdns, replay)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", config.DefaultScanTimeout*time.Second, "Stop the scan automatically after this long (0 = until interrupted)")
	scanCmd.Flags().StringVar(&scanReplay, "replay", "", "Capture file to replay (implies --source replay)")
	scanCmd.Flags().Float64Var(&scanSpeed, "speed", 1, "Replay speed multiplier (0 = no delays)")
	scanCmd.Flags().StringVar(&scanRecord, "record", "", "Write the sightings of this scan to a capture file")
	scanCmd.Flags().StringVar(&scanFormat, "format", formatTable, "Output format (table, json, yaml)")
	scanCmd.Flags().BoolVar(&scanRemember, "remember", false, "Remember discovered devices in the registry")
	scanCmd.Flags().BoolVar(&scanTUI, "tui", false, "Show a live view while scanning (table format only)")

	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby devices",
	Long: `Run one discovery session and print the devices it found.

The scan stops when the timeout expires, when you press Ctrl+C, or when the
platform scanner reports a failure. Each device appears once, with the
signal strength of its most recent sighting.

Without --source the registry preference is used (ble unless changed).`,
	Example: `  # Scan over Bluetooth LE for 30 seconds (default)
  smartdevice scan

  # Quick 5-second scan with a live view
  smartdevice scan --timeout 5s --tui

  # Browse mDNS and print JSON for scripting
  smartdevice scan --source mdns --format json

  # Record a scan and replay it later at double speed
  smartdevice scan --record office.yaml
  smartdevice scan --replay office.yaml --speed 2

  # Remember what was found so it can be given nicknames
  smartdevice scan --remember`,
	RunE: runScan,
}

// scanReport is the machine-readable result of a scan
type scanReport struct {
	Session   string                     `json:"session" yaml:"session"`
	Source    string                     `json:"source" yaml:"source"`
	State     session.State              `json:"state" yaml:"state"`
	Cause     session.StopCause          `json:"cause" yaml:"cause"`
	StartedAt time.Time                  `json:"started_at" yaml:"started_at"`
	StoppedAt time.Time                  `json:"stopped_at" yaml:"stopped_at"`
	Failure   *session.ScanFailureReason `json:"failure,omitempty" yaml:"failure,omitempty"`
	Devices   []session.DiscoveredDevice `json:"devices" yaml:"devices"`
}

func newScanReport(sess *session.Session, source string) scanReport {
	report := scanReport{
		Session:   sess.ID(),
		Source:    source,
		State:     sess.State(),
		Cause:     sess.Cause(),
		StartedAt: sess.StartedAt(),
		StoppedAt: sess.StoppedAt(),
		Devices:   sess.Snapshot(),
	}
	if reason, failed := sess.Failure(); failed {
		report.Failure = &reason
	}
	return report
}

// writeReport encodes report in a machine-readable format
func writeReport(w io.Writer, format string, report scanReport) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown format %q (expected %s, %s or %s)", format, formatTable, formatJSON, formatYAML)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validateFormat(scanFormat); err != nil {
		return err
	}
	if scanTimeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}

	reg, err := loadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	timeout := scanTimeout
	if !cmd.Flags().Changed("timeout") {
		timeout = reg.Preferences.ScanTimeoutDuration()
	}

	src, err := newSource(sourceOptions{
		Name:        resolveSourceName(scanSource, cmd.Flags().Changed("source"), scanReplay, reg.Preferences),
		MDNSService: reg.Preferences.MDNSService,
		ReplayPath:  scanReplay,
		ReplaySpeed: scanSpeed,
	})
	if err != nil {
		return err
	}
	sourceName := src.Name()

	var recorder *discovery.Recorder
	if scanRecord != "" {
		recorder = discovery.NewRecorder()
		src = recorder.Source(src)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(session.Options{Timeout: timeout})
	logging.Info("Starting scan",
		zap.String("session_id", sess.ID()),
		zap.String("source", sourceName),
		zap.Duration("timeout", timeout),
	)

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)

	var scanErr error
	if scanTUI && scanFormat == formatTable && ui.IsTerminal() {
		scanErr = scanWithLiveView(ctx, src, sess, reg.Nickname)
	} else {
		if scanFormat == formatTable {
			timeoutLabel := "none"
			if timeout > 0 {
				timeoutLabel = timeout.String()
			}
			printer.PrintHeader("Device Scan", "smartdevice scan",
				ui.Param{Key: "Source", Value: sourceName},
				ui.Param{Key: "Timeout", Value: timeoutLabel},
				ui.Param{Key: "Session", Value: sess.ID()},
			)
			printer.Println(ui.NoteStyle.Render("  Scanning... press Ctrl+C to stop"))
			printer.Newline()
		}
		scanErr = discovery.Run(ctx, src, sess)
	}

	if recorder != nil {
		if err := recorder.WriteFile(scanRecord); err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
		logging.Info("Capture written", zap.String("path", scanRecord))
	}

	if scanRemember {
		added := reg.RememberSightings(sess.Snapshot())
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		logging.Info("Remembered devices",
			zap.Int("new", added),
			zap.Int("total", len(reg.Devices)),
		)
	}

	if scanFormat != formatTable {
		if err := writeReport(out, scanFormat, newScanReport(sess, sourceName)); err != nil {
			return fmt.Errorf("failed to encode %s: %w", scanFormat, err)
		}
		return scanErr
	}

	printer.PrintDevices(sess.Snapshot(), reg.Nickname)
	printer.Newline()
	printer.PrintScanResult(sess)
	if scanRemember {
		printer.Println(ui.NoteStyle.Render(fmt.Sprintf("  %d device(s) in registry. Use 'smartdevice devices alias' to name them.", len(reg.Devices))))
	}
	return scanErr
}

// scanWithLiveView drives the scan in the background while the live view
// runs. Leaving the view ends the scan.
func scanWithLiveView(ctx context.Context, src discovery.Source, sess *session.Session, nicknames ui.NicknameFunc) error {
	scanCtx, cancelScan := context.WithCancel(ctx)
	defer cancelScan()

	model := ui.NewScanModel(sess, src.Name(), nicknames)

	runErr := make(chan error, 1)
	go func() {
		runErr <- discovery.Run(scanCtx, src, sess)
	}()

	viewErr := ui.RunScan(ctx, model)
	cancelScan()
	scanErr := <-runErr

	if viewErr != nil {
		return errors.Join(fmt.Errorf("live view: %w", viewErr), scanErr)
	}
	return scanErr
}
