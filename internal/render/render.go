// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package render prints connection and scan lines for an operator console.
package render

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"grimm.is/scanwall/internal/detector"
	"grimm.is/scanwall/internal/procnet"
)

const (
	ReasonNewConnection = "New connection"
	ReasonPortScan      = "Port scan detected"

	// NoConnections is printed while the table holds no usable records.
	NoConnections = "No TCP peer connection established yet"

	timestampLayout = "2006-01-02 15:04:05"
)

// Console writes one line per event.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool

	newStyle  lipgloss.Style
	scanStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

// NewConsole writes to w, styling output when color is true.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:         w,
		color:     color,
		newStyle:  r.NewStyle().Foreground(lipgloss.Color("2")),
		scanStyle: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		dimStyle:  r.NewStyle().Faint(true),
	}
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// FormatLine renders the fixed-width line layout without styling.
func FormatLine(at time.Time, reason, peer, arrow, local string) string {
	return fmt.Sprintf("%19s: %18s: %21s %s %-21s", at.Format(timestampLayout), reason, peer, arrow, local)
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, strings.TrimRight(line, " "))
}

// Connection prints a "New connection" line for r.
func (c *Console) Connection(at time.Time, r procnet.ConnectionRecord) {
	c.println(c.line(at, ReasonNewConnection, c.newStyle, r.Peer.String(), r.Direction.Arrow(), r.Local.String()))
}

// Scan prints a "Port scan detected" line for ev.
func (c *Console) Scan(ev detector.ScanEvent) {
	ports := make([]string, len(ev.Ports))
	for i, p := range ev.Ports {
		ports[i] = strconv.Itoa(int(p))
	}
	local := ev.LocalIP + " on ports " + strings.Join(ports, ",")
	c.println(c.line(ev.DetectedAt, ReasonPortScan, c.scanStyle, ev.Peer, procnet.Outbound.Arrow(), local))
}

// Empty prints the no-connections notice.
func (c *Console) Empty() {
	c.println(c.style(c.dimStyle, NoConnections))
}

func (c *Console) line(at time.Time, reason string, s lipgloss.Style, peer, arrow, local string) string {
	if !c.color {
		return FormatLine(at, reason, peer, arrow, local)
	}
	return fmt.Sprintf("%19s: %s: %21s %s %-21s",
		at.Format(timestampLayout), c.style(s, fmt.Sprintf("%18s", reason)), peer, arrow, local)
}
