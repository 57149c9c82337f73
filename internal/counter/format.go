package counter

import (
	"math"
	"strconv"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxDecimals bounds Format.Decimals.
const MaxDecimals = 20

// Format renders a counter value for display.
//
// Values are rounded half away from zero at Decimals places before
// formatting, so 0.125 with two decimals shows as "0.13" and -2.5 with none
// shows as "-3". The rounding is applied to the binary value, so inputs such
// as 1.005 that are stored just below the boundary round down.
type Format struct {
	Decimals  int    `json:"decimals" toml:"decimals" yaml:"decimals"`
	Prefix    string `json:"prefix,omitempty" toml:"prefix" yaml:"prefix"`
	Suffix    string `json:"suffix,omitempty" toml:"suffix" yaml:"suffix"`
	UseLocale bool   `json:"use_locale" toml:"use_locale" yaml:"use_locale"`

	// Locale selects digit grouping when UseLocale is set. The zero value
	// means English.
	Locale language.Tag `json:"-" toml:"-" yaml:"-"`
}

// Validate checks the decimal count.
func (f Format) Validate() error {
	if f.Decimals < 0 || f.Decimals > MaxDecimals {
		return ErrInvalidDecimals
	}
	return nil
}

// Round rounds v half away from zero at f.Decimals places.
func (f Format) Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	pow := math.Pow10(f.Decimals)
	scaled := v * pow
	if math.IsInf(scaled, 0) {
		return v
	}
	r := math.Round(scaled) / pow
	if r == 0 {
		// Drop the sign of negative zero.
		return 0
	}
	return r
}

// Number formats v without prefix or suffix.
func (f Format) Number(v float64) string {
	r := f.Round(v)
	if !f.UseLocale {
		return strconv.FormatFloat(r, 'f', f.Decimals, 64)
	}
	return printerFor(f.Locale).Sprintf("%."+strconv.Itoa(f.Decimals)+"f", r)
}

// Render returns Prefix + Number(v) + Suffix.
func (f Format) Render(v float64) string {
	return f.Prefix + f.Number(v) + f.Suffix
}

var printers sync.Map // language.Tag -> *message.Printer

func printerFor(tag language.Tag) *message.Printer {
	if tag == language.Und {
		tag = language.English
	}
	if p, ok := printers.Load(tag); ok {
		return p.(*message.Printer)
	}
	p, _ := printers.LoadOrStore(tag, message.NewPrinter(tag))
	return p.(*message.Printer)
}
