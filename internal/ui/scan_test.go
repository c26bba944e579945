package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/smartdevice/internal/session"
)

func keyPress(k string) tea.KeyMsg {
	if k == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func update(t *testing.T, m ScanModel, msg tea.Msg) (ScanModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(ScanModel)
	if !ok {
		t.Fatalf("Update() returned %T, want ScanModel", next)
	}
	return model, cmd
}

func scanningModel(t *testing.T) (ScanModel, *session.Session) {
	t.Helper()
	sess := session.New(session.Options{})
	m := NewScanModel(sess, "ble", func(address string) string {
		if address == "AA:BB:CC:DD:EE:FF" {
			return "Mine"
		}
		return ""
	})
	if err := sess.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sess.Observe(session.RawObservation{Identifier: "AA:BB:CC:DD:EE:FF", DisplayName: "Phone", SignalStrength: -40})
	return m, sess
}

func TestScanModel_IdleView(t *testing.T) {
	sess := session.New(session.Options{})
	m := NewScanModel(sess, "replay", nil)

	view := m.View()
	if !strings.Contains(view, "Starting scan") {
		t.Errorf("View() = %q, want starting status", view)
	}
	if !strings.Contains(view, sess.ID()) {
		t.Error("View() should show the session id")
	}
}

func TestScanModel_TickRefreshesTable(t *testing.T) {
	m, _ := scanningModel(t)

	m, cmd := update(t, m, tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}

	rows := m.Table.Rows()
	if len(rows) != 1 {
		t.Fatalf("table has %d rows, want 1", len(rows))
	}
	if rows[0][3] != "Phone" || rows[0][4] != "AA:BB:CC:DD:EE:FF" || rows[0][6] != "Mine" {
		t.Errorf("row = %v", rows[0])
	}

	view := m.View()
	if !strings.Contains(view, "Scanning") || !strings.Contains(view, "1 device") {
		t.Errorf("View() = %q, want scanning status with 1 device", view)
	}
}

func TestScanModel_StopKey(t *testing.T) {
	m, sess := scanningModel(t)

	m, _ = update(t, m, keyPress("s"))
	if sess.State() != session.StateStopped || sess.Cause() != session.CauseExplicit {
		t.Fatalf("session = %v/%v, want stopped explicitly", sess.State(), sess.Cause())
	}
	if m.StopErr != nil {
		t.Errorf("StopErr = %v", m.StopErr)
	}
	if !strings.Contains(m.View(), "Scan stopped (explicit)") {
		t.Errorf("View() = %q, want stopped status", m.View())
	}

	m, _ = update(t, m, keyPress("s"))
	if !errors.Is(m.StopErr, session.ErrNotScanning) {
		t.Errorf("StopErr = %v, want ErrNotScanning", m.StopErr)
	}
	view := m.View()
	if !strings.Contains(view, "Cannot stop") || !strings.Contains(view, "not scanning") {
		t.Errorf("View() = %q, want the rejected stop explained", view)
	}
}

func TestScanModel_StopAfterTimeout(t *testing.T) {
	sess := session.New(session.Options{Timeout: time.Millisecond})
	m := NewScanModel(sess, "ble", nil)
	if err := sess.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-sess.Done()

	if strings.Contains(m.View(), "Cannot stop") {
		t.Error("View() should not mention a stop before one was requested")
	}

	m, _ = update(t, m, keyPress("s"))
	if !strings.Contains(m.View(), "Cannot stop") {
		t.Errorf("View() = %q, want the rejected stop explained", m.View())
	}
}

func TestScanModel_QuitStopsScan(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m, sess := scanningModel(t)

			m, cmd := update(t, m, keyPress(k))
			if !m.Quitting {
				t.Error("Quitting = false after quit key")
			}
			if cmd == nil {
				t.Fatal("quit key returned no command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit key should return tea.Quit")
			}
			if sess.State() != session.StateStopped {
				t.Errorf("State() = %v, want stopped", sess.State())
			}
			if m.View() != "" {
				t.Error("View() should be empty after quitting")
			}
		})
	}
}

func TestScanModel_StateMessages(t *testing.T) {
	m, sess := scanningModel(t)

	change := session.StateChange{SessionID: sess.ID(), From: session.StateIdle, To: session.StateScanning}
	m, cmd := update(t, m, stateMsg{change: change, open: true})
	if m.LastChange == nil || m.LastChange.To != session.StateScanning {
		t.Errorf("LastChange = %v", m.LastChange)
	}
	if cmd == nil {
		t.Error("open state message should keep waiting for changes")
	}

	_, cmd = update(t, m, stateMsg{open: false})
	if cmd != nil {
		t.Error("closed watch channel should not be waited on again")
	}
}

func TestScanModel_FailureView(t *testing.T) {
	m, sess := scanningModel(t)
	sess.Fail(session.ScanFailureReason{Code: session.FailureFeatureUnsupported})

	view := m.View()
	if !strings.Contains(view, "Scan failed: feature unsupported (code 4)") {
		t.Errorf("View() = %q, want failure status", view)
	}
}

func TestScanModel_Resize(t *testing.T) {
	m, _ := scanningModel(t)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})
	if m.Width != MaxContentWidth {
		t.Errorf("Width = %d, want capped at %d", m.Width, MaxContentWidth)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 5})
	if m.Width != MinTerminalWidth {
		t.Errorf("Width = %d, want at least %d", m.Width, MinTerminalWidth)
	}
	if m.Table.Height() < minTableRows {
		t.Errorf("table height = %d, want at least %d", m.Table.Height(), minTableRows)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	if want := 30 - 7 - tableHeaderLines; m.Table.Height() != want {
		t.Errorf("table height = %d, want %d rows", m.Table.Height(), want)
	}
}
