package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Palette is a left-to-right list of gradient stops.
type Palette []colorful.Color

// ParsePalette parses hex colour stops such as "#06b6d4".
func ParsePalette(hexes []string) (Palette, error) {
	if len(hexes) == 0 {
		return nil, fmt.Errorf("palette has no colours")
	}
	p := make(Palette, 0, len(hexes))
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("palette colour %q: %w", h, err)
		}
		p = append(p, c)
	}
	return p, nil
}

// At returns the colour at position t in [0,1], blending neighbouring
// stops in HCL space.
func (p Palette) At(t float64) colorful.Color {
	switch {
	case len(p) == 0:
		return colorful.Color{}
	case len(p) == 1 || t <= 0:
		return p[0]
	case t >= 1:
		return p[len(p)-1]
	}
	seg := t * float64(len(p)-1)
	i := int(seg)
	return p[i].BlendHcl(p[i+1], seg-float64(i)).Clamped()
}

// Colors samples n evenly spaced colours.
func (p Palette) Colors(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i := range out {
		if n == 1 {
			out[i] = p.At(0)
			continue
		}
		out[i] = p.At(float64(i) / float64(n-1))
	}
	return out
}

// Paint colours each rune of s along the palette.
func (p Palette) Paint(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	colors := p.Colors(len(runes))
	var b strings.Builder
	for i, r := range runes {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i].Hex())).Render(string(r)))
	}
	return b.String()
}
