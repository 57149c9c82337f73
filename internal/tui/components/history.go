package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/uiregistry/internal/board"
)

const sparklineChars = "▁▂▃▄▅▆▇█"

// History keeps a rolling window of a counter's values for sparkline
// rendering.
type History struct {
	values []float64
	cap    int
}

// NewHistory creates a history buffer with the given capacity.
func NewHistory(cap int) *History {
	return &History{
		values: make([]float64, 0, cap),
		cap:    cap,
	}
}

// Push adds a new value.
func (h *History) Push(v float64) {
	if len(h.values) >= h.cap {
		copy(h.values, h.values[1:])
		h.values = h.values[:len(h.values)-1]
	}
	h.values = append(h.values, v)
}

// Len returns the number of values held.
func (h *History) Len() int {
	return len(h.values)
}

// Sparkline scales the last width values between their minimum and
// maximum. Values may be negative.
func (h *History) Sparkline(width int) string {
	runes := []rune(sparklineChars)
	if len(h.values) == 0 {
		return strings.Repeat(string(runes[0]), width)
	}

	vals := h.values
	if len(vals) > width {
		vals = vals[len(vals)-width:]
	}

	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo

	var b strings.Builder
	for _, v := range vals {
		idx := len(runes) - 1
		if span > 0 {
			idx = int((v - lo) / span * float64(len(runes)-1))
		}
		b.WriteRune(runes[idx])
	}
	for i := len(vals); i < width; i++ {
		b.WriteRune(runes[0])
	}
	return b.String()
}

// RenderHistory renders the selected counter's recent values.
func RenderHistory(c board.CounterState, h *History, p Palette, width int) string {
	sparkWidth := width - 30
	if sparkWidth < 10 {
		sparkWidth = 10
	}
	name := c.Label
	if name == "" {
		name = c.Name
	}
	return fmt.Sprintf("  %-12s %s  %s",
		name,
		p.Paint(h.Sparkline(sparkWidth)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Render(fmt.Sprintf("→ %g", c.Target)))
}
