package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartdevice/internal/session"
)

// RefreshInterval is how often the device table is redrawn while scanning
const RefreshInterval = 250 * time.Millisecond

const (
	// tableHeaderLines is the column header row plus its bottom border.
	// table.SetHeight counts them, the visible row count does not.
	tableHeaderLines = 2

	minTableRows = 3
)

// Messages for async updates
type tickMsg time.Time

type stateMsg struct {
	change session.StateChange
	open   bool
}

// scanKeyMap defines key bindings for the scan screen
type scanKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Stop key.Binding
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k scanKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Stop, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k scanKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Stop, k.Quit},
	}
}

// ScanModel is a live view of one discovery session. It does not drive the
// scan; a discovery.Run call elsewhere feeds the session while the model
// redraws it.
type ScanModel struct {
	sess      *session.Session
	source    string
	nicknames NicknameFunc
	changes   <-chan session.StateChange
	unwatch   func()
	now       func() time.Time

	Spinner spinner.Model
	Table   table.Model
	Help    help.Model
	Keys    scanKeyMap

	// UI state
	Width  int
	Height int

	// LastChange is the most recent transition seen
	LastChange *session.StateChange

	// StopErr is the result of the last stop request, shown under the status line
	StopErr  error
	Quitting bool
}

// NewScanModel creates a live view of sess. The model subscribes to the
// session's transitions immediately.
func NewScanModel(sess *session.Session, source string, nicknames NicknameFunc) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusScanningStyle

	t := table.New(
		table.WithColumns(deviceColumns(MinTerminalWidth)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(MutedColor).
		BorderBottom(true).
		Foreground(PrimaryColor).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(TextColor).
		Background(PrimaryColor)
	t.SetStyles(styles)

	changes, unwatch := sess.Watch()
	width, height := GetTerminalSize()

	m := ScanModel{
		sess:      sess,
		source:    source,
		nicknames: nicknames,
		changes:   changes,
		unwatch:   unwatch,
		now:       time.Now,
		Spinner:   s,
		Table:     t,
		Help:      help.New(),
		Keys: scanKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
			Stop: key.NewBinding(
				key.WithKeys("s"),
				key.WithHelp("s", "stop scan"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
	m = m.resize(width, height)
	m.refresh()
	return m
}

// deviceColumns sizes the table columns for the given width. The name
// column takes whatever the fixed columns leave.
func deviceColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "#", Width: 3},
		{Title: "RSSI", Width: 8},
		{Title: "SIGNAL", Width: 6},
		{Title: "NAME", Width: 0},
		{Title: "ADDRESS", Width: 17},
		{Title: "SEEN", Width: 5},
		{Title: "NICKNAME", Width: 14},
	}

	used := 0
	for _, c := range fixed {
		used += c.Width + 2 // cell padding
	}
	nameWidth := width - used - 2
	if nameWidth < 12 {
		nameWidth = 12
	}
	fixed[3].Width = nameWidth
	return fixed
}

func (m ScanModel) resize(width, height int) ScanModel {
	m.Width = clampWidth(width)
	m.Height = height
	m.Table.SetColumns(deviceColumns(m.Width))

	// Title, status line, spacing and help take 7 lines
	rows := height - 7 - tableHeaderLines
	if rows < minTableRows {
		rows = minTableRows
	}
	m.Table.SetHeight(rows + tableHeaderLines)
	m.Help.Width = m.Width
	return m
}

func (m *ScanModel) refresh() {
	rows := deviceRows(m.sess.Snapshot(), m.nicknames)
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row(r)
	}
	m.Table.SetRows(tableRows)
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(changes <-chan session.StateChange) tea.Cmd {
	return func() tea.Msg {
		change, open := <-changes
		return stateMsg{change: change, open: open}
	}
}

// Init implements tea.Model
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, tick(), waitForChange(m.changes))
}

// Update implements tea.Model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			m.stopScan()
			m.unwatch()
			m.Quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.Keys.Stop):
			m.StopErr = m.sess.Stop()
			m.refresh()
			return m, nil
		}

	case tickMsg:
		m.refresh()
		return m, tick()

	case stateMsg:
		if !msg.open {
			m.refresh()
			return m, nil
		}
		change := msg.change
		m.LastChange = &change
		m.refresh()
		return m, waitForChange(m.changes)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

// stopScan stops a running scan on quit
func (m *ScanModel) stopScan() {
	if err := m.sess.Stop(); err != nil && !errors.Is(err, session.ErrNotScanning) {
		m.StopErr = err
	}
}

// View implements tea.Model
func (m ScanModel) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder

	title := HeaderTitleStyle.Render("DEVICE SCAN") +
		HeaderCommandStyle.Render(fmt.Sprintf("%s · session %s", m.source, m.sess.ID()))
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.statusLine()))
	if m.StopErr != nil {
		b.WriteString("\n")
		b.WriteString(NoteStyle.Render(fmt.Sprintf("  %s Cannot stop: %v", WarningMarker, m.StopErr)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.Table.View())
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(m.Help.View(m.Keys)))
	return b.String()
}

// statusLine describes the session state in one line
func (m ScanModel) statusLine() string {
	count := m.sess.Len()
	devices := fmt.Sprintf("%d device", count)
	if count != 1 {
		devices += "s"
	}

	switch m.sess.State() {
	case session.StateIdle:
		return m.Spinner.View() + " " + StatusScanningStyle.Render("Starting scan...")

	case session.StateScanning:
		elapsed := m.now().Sub(m.sess.StartedAt()).Truncate(time.Second)
		line := fmt.Sprintf("Scanning · %s · %s", elapsed, devices)
		if timeout := m.sess.Timeout(); timeout > 0 {
			remaining := (timeout - elapsed).Truncate(time.Second)
			if remaining < 0 {
				remaining = 0
			}
			line += fmt.Sprintf(" · stops in %s", remaining)
		}
		return m.Spinner.View() + " " + StatusScanningStyle.Render(line)

	default:
		if reason, failed := m.sess.Failure(); failed {
			return ErrorTitleStyle.Render(fmt.Sprintf("%s Scan failed: %s (code %d) · %s",
				FailureMarker, reason, reason.Code, devices))
		}
		elapsed := m.sess.StoppedAt().Sub(m.sess.StartedAt()).Truncate(time.Second)
		return StatusStoppedStyle.Render(fmt.Sprintf("%s Scan stopped (%s) after %s · %s",
			SuccessMarker, m.sess.Cause(), elapsed, devices))
	}
}

// RunScan runs the live view until the user quits or ctx is done
func RunScan(ctx context.Context, model ScanModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		model.unwatch()
		return nil
	}
	return err
}
