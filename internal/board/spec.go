package board

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jfoltran/uiregistry/internal/counter"
	"github.com/jfoltran/uiregistry/internal/easing"
)

// CounterSpec defines one counter on the board. It is loaded from config
// files, so durations are plain milliseconds and the easing is a name.
type CounterSpec struct {
	Name        string  `json:"name" toml:"name" yaml:"name"`
	Label       string  `json:"label,omitempty" toml:"label" yaml:"label"`
	Target      float64 `json:"target" toml:"target" yaml:"target"`
	Initial     float64 `json:"initial,omitempty" toml:"initial" yaml:"initial"`
	DurationMs  int     `json:"duration_ms,omitempty" toml:"duration_ms" yaml:"duration_ms"`
	Easing      string  `json:"easing,omitempty" toml:"easing" yaml:"easing"`
	Decimals    int     `json:"decimals,omitempty" toml:"decimals" yaml:"decimals"`
	Prefix      string  `json:"prefix,omitempty" toml:"prefix" yaml:"prefix"`
	Suffix      string  `json:"suffix,omitempty" toml:"suffix" yaml:"suffix"`
	UseLocale   bool    `json:"use_locale" toml:"use_locale" yaml:"use_locale"`
	StartOnView bool    `json:"start_on_view" toml:"start_on_view" yaml:"start_on_view"`
	Palette     string  `json:"palette,omitempty" toml:"palette" yaml:"palette"`
}

// Validate reports every problem with the spec at once.
func (s CounterSpec) Validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("counter name is required"))
	}
	if math.IsNaN(s.Target) || math.IsInf(s.Target, 0) {
		errs = append(errs, fmt.Errorf("counter %q: %w", s.Name, counter.ErrNonFiniteTarget))
	}
	if math.IsNaN(s.Initial) || math.IsInf(s.Initial, 0) {
		errs = append(errs, fmt.Errorf("counter %q: %w", s.Name, counter.ErrNonFiniteStart))
	}
	if s.Easing != "" {
		if _, err := easing.Parse(s.Easing); err != nil {
			errs = append(errs, fmt.Errorf("counter %q: %w", s.Name, err))
		}
	}
	if err := s.format().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("counter %q: %w", s.Name, err))
	}
	return errors.Join(errs...)
}

// Kind returns the parsed easing, defaulting to easeOut.
func (s CounterSpec) Kind() easing.Kind {
	if s.Easing == "" {
		return easing.EaseOut
	}
	k, err := easing.Parse(s.Easing)
	if err != nil {
		return easing.EaseOut
	}
	return k
}

// Duration converts DurationMs. Zero selects the driver default and a
// negative value makes the counter jump straight to its target.
func (s CounterSpec) Duration() time.Duration {
	if s.DurationMs < 0 {
		return -1
	}
	return time.Duration(s.DurationMs) * time.Millisecond
}

func (s CounterSpec) format() counter.Format {
	return counter.Format{
		Decimals:  s.Decimals,
		Prefix:    s.Prefix,
		Suffix:    s.Suffix,
		UseLocale: s.UseLocale,
	}
}
