package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/uiregistry/internal/board"
)

var (
	headerStateStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	headerWaitStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	headerValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	headerErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// RenderHeader renders the status bar: visibility, elapsed, running counters
// and errors.
func RenderHeader(snap board.Snapshot, width int) string {
	state := headerWaitStyle.Render("WAITING FOR VIEWER")
	if snap.Visible {
		state = headerStateStyle.Render("VISIBLE")
	}

	left := fmt.Sprintf("  Board: %s    Elapsed: %s",
		state,
		headerValueStyle.Render(formatDuration(snap.ElapsedSec)))

	right := fmt.Sprintf("Animating: %s  ",
		headerValueStyle.Render(fmt.Sprintf("%d/%d", snap.Running, len(snap.Counters))))
	if snap.ErrorCount > 0 {
		right = headerErrorStyle.Render(fmt.Sprintf("Errors: %d", snap.ErrorCount)) + "    " + right
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + right
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
