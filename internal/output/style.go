package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Level selects the tag printed in front of a status line
type Level int

const (
	LevelInfo Level = iota
	LevelOK
	LevelWarning
	LevelError
)

var (
	colorEnabled = true

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// SetColor turns styling on or off for everything this package renders.
// lipgloss already drops colors when stdout is not a terminal.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// Good renders s in green
func Good(s string) string { return render(okStyle, s) }

// Bad renders s in red
func Bad(s string) string { return render(errorStyle, s) }

// Warn renders s in yellow
func Warn(s string) string { return render(warnStyle, s) }

// Muted renders s in grey
func Muted(s string) string { return render(mutedStyle, s) }

// Heading renders s in bold
func Heading(s string) string { return render(headingStyle, s) }

func (l Level) tag() string {
	switch l {
	case LevelOK:
		return Good("[OK]")
	case LevelWarning:
		return Warn("[WARNING]")
	case LevelError:
		return Bad("[ERROR]")
	default:
		return render(infoStyle, "[INFO]")
	}
}

// Status prints a tagged status line
func Status(w io.Writer, level Level, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", level.tag(), fmt.Sprintf(format, args...))
}

// Section prints a section heading with an underline
func Section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, Heading("=== "+title+" ==="))
	fmt.Fprintln(w, strings.Repeat("-", len(title)+8))
}

// DemoBanner marks output produced against canned data
func DemoBanner(w io.Writer) {
	fmt.Fprintln(w, Warn("[DEMO MODE]")+" Commands are simulated; no processes are started and Docker is not contacted.")
}

// State colors a container state: running green, exited or dead red,
// anything else yellow
func State(state string) string {
	switch state {
	case "running":
		return Good(state)
	case "exited", "dead":
		return Bad(state)
	default:
		return Warn(state)
	}
}

// ServiceState colors a daemon status word the same way
func ServiceState(status string) string {
	switch strings.ToLower(status) {
	case "running":
		return Good(status)
	case "stopped", "error", "notinstalled":
		return Bad(status)
	default:
		return Warn(status)
	}
}

// Bar draws a horizontal bar of width cells for value out of limit
func Bar(value, limit float64, width int) string {
	if limit <= 0 || width <= 0 {
		return strings.Repeat(" ", width)
	}
	n := int(value / limit * float64(width))
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat(" ", width-n)
}
