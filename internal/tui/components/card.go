package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jfoltran/uiregistry/internal/board"
)

var (
	cardValueStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	cardLabelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	cardSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	cardEmptyBar      = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
)

// CardWidth is the outer width of a rendered card.
const CardWidth = 22

// RenderCard draws one counter as a card whose border follows its palette
// gradient, with the display value, the label and a progress bar.
func RenderCard(c board.CounterState, p Palette, selected bool) string {
	inner := CardWidth - 2
	top := p.Paint("╭" + strings.Repeat("─", inner) + "╮")
	bottom := p.Paint("╰" + strings.Repeat("─", inner) + "╯")
	left := p.Paint("│")
	right := lipgloss.NewStyle().Foreground(lipgloss.Color(p.At(1).Hex())).Render("│")

	label := c.Label
	if label == "" {
		label = c.Name
	}
	labelStyle := cardLabelStyle
	if selected {
		label = "▸ " + label
		labelStyle = cardSelectedStyle
	}

	barWidth := inner - 4
	filled := int(float64(barWidth) * clamp01(c.Progress))
	bar := p.Paint(strings.Repeat("█", filled)) + cardEmptyBar.Render(strings.Repeat("░", barWidth-filled))

	rows := []string{
		strings.Repeat(" ", inner),
		center(cardValueStyle.Render(truncate(c.Display, inner-2)), inner),
		center(labelStyle.Render(truncate(label, inner-2)), inner),
		center(bar, inner),
		center(cardLabelStyle.Render(status(c)), inner),
	}

	var b strings.Builder
	b.WriteString(top)
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(left + row + right)
	}
	b.WriteByte('\n')
	b.WriteString(bottom)
	return b.String()
}

// RenderCards lays cards out in rows that fit width.
func RenderCards(snap board.Snapshot, palettes func(string) Palette, selected, width int) string {
	if len(snap.Counters) == 0 {
		return "  No counters on the board"
	}
	perRow := width / (CardWidth + 1)
	if perRow < 1 {
		perRow = 1
	}

	var rows []string
	var row []string
	for i, c := range snap.Counters {
		row = append(row, RenderCard(c, palettes(c.Palette), i == selected))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, spaced(row)...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, spaced(row)...))
	}
	return strings.Join(rows, "\n")
}

func status(c board.CounterState) string {
	switch {
	case c.Running:
		return fmt.Sprintf("%s %3.0f%%", c.Easing, c.Progress*100)
	case c.Value != c.Target:
		return "waiting"
	default:
		return "settled"
	}
}

func spaced(cards []string) []string {
	out := make([]string, 0, 2*len(cards))
	for i, c := range cards {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, c)
	}
	return out
}

func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-w-left)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
