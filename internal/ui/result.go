package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartdevice/internal/session"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType // Success, failure, or warning
	Title           string     // e.g., "Scan complete"
	Details         []Param    // Key-value details to display, in order
	Error           error      // Error (for failure results)
	Troubleshooting []string   // Troubleshooting tips (for failure results)
	Width           int        // Terminal width
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Param{Key: key, Value: value})
	return r
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// NewScanResult summarizes a stopped session. A failed session yields a
// failure box with troubleshooting tips for its failure code; a session that
// found nothing yields a warning.
func NewScanResult(sess *session.Session) *Result {
	r := &Result{Width: GetTerminalWidth()}

	elapsed := "-"
	if started := sess.StartedAt(); !started.IsZero() && !sess.StoppedAt().IsZero() {
		elapsed = sess.StoppedAt().Sub(started).Round(100 * time.Millisecond).String()
	}

	if reason, failed := sess.Failure(); failed {
		r.Type = ResultFailure
		r.Title = "Scan failed"
		r.Error = fmt.Errorf("%s (code %d)", reason, reason.Code)
		r.Troubleshooting = TroubleshootingFor(reason)
	} else if sess.Len() == 0 {
		r.Type = ResultWarning
		r.Title = "No devices found"
	} else {
		r.Type = ResultSuccess
		r.Title = "Scan complete"
	}

	r.AddDetail("Devices", fmt.Sprintf("%d", sess.Len()))
	r.AddDetail("Stopped by", sess.Cause().String())
	r.AddDetail("Duration", elapsed)
	r.AddDetail("Session", sess.ID())
	return r
}

// TroubleshootingFor returns hints for a scan failure code
func TroubleshootingFor(reason session.ScanFailureReason) []string {
	switch reason.Code {
	case session.FailureAlreadyStarted:
		return []string{"Another scan is already running on this adapter; stop it and retry"}
	case session.FailureApplicationRegistrationFailed:
		return []string{"The scanner could not be registered; restart the Bluetooth service and retry"}
	case session.FailureFeatureUnsupported:
		return []string{
			"Check that a Bluetooth adapter is present and powered on",
			"On Linux, run with sudo or grant the binary CAP_NET_ADMIN (setcap cap_net_admin+ep)",
			"For --source mdns, check that multicast is allowed on this network",
		}
	case session.FailureOutOfHardwareResources:
		return []string{"The adapter has no free scan slots; close other Bluetooth applications"}
	case session.FailureScanningTooFrequently:
		return []string{"Scans were started too often; wait 30 seconds before scanning again"}
	default:
		return []string{"Run again with --log-level debug for details"}
	}
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var (
		title string
		color lipgloss.Color
	)
	switch r.Type {
	case ResultFailure:
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
		color = ErrorColor
	case ResultWarning:
		title = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, r.Title))
		color = WarningColor
	default:
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
		color = SuccessColor
	}

	lines := []string{"", title, ""}

	for _, d := range r.Details {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", d.Key))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(d.Value))
	}
	lines = append(lines, "")

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}
	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshootingBox(width), "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12 // Indent within outer box
	if innerWidth < 40 {
		innerWidth = 40
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
