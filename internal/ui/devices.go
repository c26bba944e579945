package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/session"
)

// NicknameFunc looks up a user-assigned nickname for a device address
type NicknameFunc func(address string) string

// deviceHeaders are the columns of a scan result table
var deviceHeaders = []string{"#", "RSSI", "SIGNAL", "NAME", "ADDRESS", "SEEN", "NICKNAME"}

// FormatRSSI renders a signal strength; 0 means it was not measured
func FormatRSSI(rssi int) string {
	if rssi == 0 {
		return "-"
	}
	return fmt.Sprintf("%d dBm", rssi)
}

// SignalBars renders a signal strength as a four-step bar
func SignalBars(rssi int) string {
	switch {
	case rssi == 0:
		return ""
	case rssi >= -55:
		return "▂▄▆█"
	case rssi >= -67:
		return "▂▄▆ "
	case rssi >= -80:
		return "▂▄  "
	default:
		return "▂   "
	}
}

// deviceRows converts a snapshot to table rows in snapshot order
func deviceRows(devices []session.DiscoveredDevice, nicknames NicknameFunc) [][]string {
	rows := make([][]string, 0, len(devices))
	for i, d := range devices {
		nickname := ""
		if nicknames != nil {
			nickname = nicknames(d.Identifier)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			FormatRSSI(d.SignalStrength),
			SignalBars(d.SignalStrength),
			d.Name(),
			d.Identifier,
			strconv.Itoa(d.Sightings),
			nickname,
		})
	}
	return rows
}

// RenderDeviceTable renders a snapshot as a bordered table
func RenderDeviceTable(devices []session.DiscoveredDevice, nicknames NicknameFunc) string {
	return renderTable(deviceHeaders, deviceRows(devices, nicknames))
}

// RenderRegistryTable renders the remembered devices, most recent first
func RenderRegistryTable(reg *config.Registry) string {
	headers := []string{"ADDRESS", "NICKNAME", "LAST NAME", "LAST RSSI", "LAST SEEN", "SCANS"}

	var rows [][]string
	for _, address := range reg.Addresses() {
		d := reg.Devices[address]
		lastSeen := "-"
		if !d.LastSeen.IsZero() {
			lastSeen = d.LastSeen.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			address,
			d.Nickname,
			d.LastName,
			FormatRSSI(d.LastRSSI),
			lastSeen,
			strconv.Itoa(d.TimesSeen),
		})
	}
	return renderTable(headers, rows)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
	return t.String()
}
