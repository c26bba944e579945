package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/session"
)

func TestFormatRSSI(t *testing.T) {
	tests := []struct {
		rssi int
		want string
		bars string
	}{
		{-40, "-40 dBm", "▂▄▆█"},
		{-60, "-60 dBm", "▂▄▆ "},
		{-75, "-75 dBm", "▂▄  "},
		{-95, "-95 dBm", "▂   "},
		{0, "-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatRSSI(tt.rssi); got != tt.want {
				t.Errorf("FormatRSSI(%d) = %q, want %q", tt.rssi, got, tt.want)
			}
			if got := SignalBars(tt.rssi); got != tt.bars {
				t.Errorf("SignalBars(%d) = %q, want %q", tt.rssi, got, tt.bars)
			}
		})
	}
}

func TestDeviceRows(t *testing.T) {
	devices := []session.DiscoveredDevice{
		{Identifier: "AA", DisplayName: "Phone", SignalStrength: -40, Sightings: 3},
		{Identifier: "BB", SignalStrength: -70, Sightings: 1},
	}

	rows := deviceRows(devices, nil)
	if len(rows) != 2 {
		t.Fatalf("deviceRows() returned %d rows, want 2", len(rows))
	}

	want := []string{"1", "-40 dBm", "▂▄▆█", "Phone", "AA", "3", ""}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Errorf("rows[0][%d] = %q, want %q", i, rows[0][i], want[i])
		}
	}
	if rows[1][3] != session.UnknownName {
		t.Errorf("rows[1] name = %q, want %q", rows[1][3], session.UnknownName)
	}

	table := RenderDeviceTable(devices, nil)
	for _, s := range []string{"ADDRESS", "Phone", "AA", "BB"} {
		if !strings.Contains(table, s) {
			t.Errorf("RenderDeviceTable() missing %q", s)
		}
	}
}

func TestNewScanResult(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*session.Session)
		wantType  ResultType
		wantTitle string
		wantTips  bool
	}{
		{
			name: "devices found",
			setup: func(s *session.Session) {
				_ = s.Start()
				s.Observe(session.RawObservation{Identifier: "AA"})
				_ = s.Stop()
			},
			wantType:  ResultSuccess,
			wantTitle: "Scan complete",
		},
		{
			name: "nothing found",
			setup: func(s *session.Session) {
				_ = s.Start()
				_ = s.Stop()
			},
			wantType:  ResultWarning,
			wantTitle: "No devices found",
		},
		{
			name: "failed",
			setup: func(s *session.Session) {
				s.Fail(session.ScanFailureReason{Code: session.FailureFeatureUnsupported})
			},
			wantType:  ResultFailure,
			wantTitle: "Scan failed",
			wantTips:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := session.New(session.Options{})
			tt.setup(sess)

			r := NewScanResult(sess)
			if r.Type != tt.wantType || r.Title != tt.wantTitle {
				t.Errorf("NewScanResult() = %v %q, want %v %q", r.Type, r.Title, tt.wantType, tt.wantTitle)
			}
			if (len(r.Troubleshooting) > 0) != tt.wantTips {
				t.Errorf("Troubleshooting = %v", r.Troubleshooting)
			}

			out := r.Render()
			if !strings.Contains(out, tt.wantTitle) || !strings.Contains(out, sess.ID()) {
				t.Errorf("Render() = %q", out)
			}
		})
	}
}

func TestTroubleshootingFor(t *testing.T) {
	for code := 1; code <= 7; code++ {
		if tips := TroubleshootingFor(session.ScanFailureReason{Code: code}); len(tips) == 0 {
			t.Errorf("TroubleshootingFor(%d) returned no tips", code)
		}
	}
}

func TestHeaderRender(t *testing.T) {
	h := NewHeader("ble scan", "smartdevice scan",
		Param{Key: "Source", Value: "ble"},
		Param{Key: "Timeout", Value: "30s"},
	).SetWidth(80)

	out := h.Render()
	for _, s := range []string{"BLE SCAN", "smartdevice scan", "Source:", "ble", "Timeout:", "30s"} {
		if !strings.Contains(out, s) {
			t.Errorf("Render() missing %q", s)
		}
	}
	if strings.Index(out, "Source:") > strings.Index(out, "Timeout:") {
		t.Error("params should keep their order")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintDevices(nil, nil)
	if !strings.Contains(buf.String(), "No devices discovered") {
		t.Errorf("PrintDevices(nil) = %q", buf.String())
	}

	buf.Reset()
	reg := config.NewRegistry()
	p.PrintRegistry(reg)
	if !strings.Contains(buf.String(), "No remembered devices") {
		t.Errorf("PrintRegistry(empty) = %q", buf.String())
	}

	buf.Reset()
	reg.RememberSightings([]session.DiscoveredDevice{
		{Identifier: "AA", DisplayName: "Phone", SignalStrength: -40, LastSeenAt: time.Now()},
	})
	reg.SetDeviceNickname("AA", "Mine")
	p.PrintRegistry(reg)
	for _, s := range []string{"AA", "Mine", "Phone", "-40 dBm"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("PrintRegistry() missing %q", s)
		}
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"  yes  \n", true},
		{"YES\n", false},
		{"no\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := Confirm(strings.NewReader(tt.input), &out, "Forget all devices", []string{"This cannot be undone"})
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Forget all devices") {
				t.Error("Confirm() should print the warning title")
			}
		})
	}
}
