// Package demo embeds a small component registry and the counter board
// shown on its landing page, so the server and dashboard work with no
// files on disk.
package demo

import (
	"embed"
	"io/fs"
	"sort"

	"github.com/jfoltran/uiregistry/internal/board"
)

//go:embed all:public
var publicFiles embed.FS

//go:embed all:source
var sourceFiles embed.FS

// Public returns the prebuilt registry (r/index.json, r/styles, r/colors).
func Public() fs.FS {
	sub, err := fs.Sub(publicFiles, "public")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source returns registry.json and the component sources.
func Source() fs.FS {
	sub, err := fs.Sub(sourceFiles, "source")
	if err != nil {
		panic(err)
	}
	return sub
}

// Counters returns the landing page stats board.
func Counters() []board.CounterSpec {
	return []board.CounterSpec{
		{Name: "revenue", Label: "Revenue", Target: 12500, DurationMs: 2000, Easing: "easeOut", Prefix: "$", UseLocale: true, StartOnView: true, Palette: "ocean"},
		{Name: "uptime", Label: "Uptime", Target: 98.5, DurationMs: 1500, Easing: "easeOut", Decimals: 1, Suffix: "%", UseLocale: true, StartOnView: true, Palette: "sunset"},
		{Name: "users", Label: "Users", Target: 4280, DurationMs: 2500, Easing: "spring", UseLocale: true, StartOnView: true, Palette: "forest"},
		{Name: "countries", Label: "Countries", Target: 156, DurationMs: 1800, Easing: "easeInOut", Suffix: "+", UseLocale: true, StartOnView: true, Palette: "fire"},
	}
}

// DefaultPalette is used for counters without a known palette.
const DefaultPalette = "rainbow"

// Palettes maps gradient card variants to their colour stops, left to
// right.
var Palettes = map[string][]string{
	"rainbow": {"#ef4444", "#eab308", "#22c55e", "#3b82f6", "#a855f7"},
	"sunset":  {"#f97316", "#ec4899", "#a855f7"},
	"ocean":   {"#06b6d4", "#3b82f6", "#6366f1"},
	"forest":  {"#4ade80", "#10b981", "#0d9488"},
	"fire":    {"#eab308", "#f97316", "#dc2626"},
	"aurora":  {"#4ade80", "#06b6d4", "#3b82f6", "#9333ea"},
}

// PaletteNames returns the palette names in sorted order.
func PaletteNames() []string {
	names := make([]string, 0, len(Palettes))
	for name := range Palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Palette returns the stops for name, falling back to DefaultPalette.
func Palette(name string) []string {
	if stops, ok := Palettes[name]; ok {
		return stops
	}
	return Palettes[DefaultPalette]
}
