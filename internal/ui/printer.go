package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muurk/smartdevice/internal/config"
	"github.com/muurk/smartdevice/internal/session"
)

// Printer provides methods for printing UI components to a writer.
// Plain (non-interactive) commands write all their styled output through it.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintDevices prints a snapshot as a table, or a note when it is empty
func (p *Printer) PrintDevices(devices []session.DiscoveredDevice, nicknames NicknameFunc) {
	if len(devices) == 0 {
		p.Println(NoteStyle.Render("  No devices discovered"))
		return
	}
	p.Println(RenderDeviceTable(devices, nicknames))
}

// PrintRegistry prints the remembered devices
func (p *Printer) PrintRegistry(reg *config.Registry) {
	if len(reg.Devices) == 0 {
		p.Println(NoteStyle.Render("  No remembered devices. Run 'smartdevice scan --remember' first."))
		return
	}
	p.Println(RenderRegistryTable(reg))
}

// PrintScanResult prints the summary box for a stopped session
func (p *Printer) PrintScanResult(sess *session.Session) {
	p.Println(NewScanResult(sess).SetWidth(p.width).Render())
}
