// Package easing maps normalized progress onto eased progress for counter
// animations.
package easing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fogleman/ease"
)

// ErrUnknownKind is returned when an easing name cannot be parsed.
var ErrUnknownKind = errors.New("unknown easing")

// Kind selects an easing curve.
type Kind int

const (
	Linear Kind = iota
	EaseOut
	EaseInOut
	Spring
)

// Func reshapes progress t in [0,1].
type Func func(t float64) float64

var names = map[Kind]string{
	Linear:    "linear",
	EaseOut:   "easeOut",
	EaseInOut: "easeInOut",
	Spring:    "spring",
}

// springCurve is a damped sine with a 0.3 period, i.e.
// 2^(-10t) * sin((10t - 0.75) * 2π/3) + 1.
var springCurve = ease.OutElasticFunction(0.3)

// Kinds returns every supported kind in declaration order.
func Kinds() []Kind {
	return []Kind{Linear, EaseOut, EaseInOut, Spring}
}

// Parse accepts "linear", "easeOut", "easeInOut" and "spring". Matching is
// case-insensitive and ignores '-' and '_', so "ease-out" works too.
func Parse(name string) (Kind, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	switch norm {
	case "linear":
		return Linear, nil
	case "easeout":
		return EaseOut, nil
	case "easeinout":
		return EaseInOut, nil
	case "spring":
		return Spring, nil
	}
	return Linear, fmt.Errorf("%w %q", ErrUnknownKind, name)
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Overshoots reports whether the curve may leave [0,1] before settling.
func (k Kind) Overshoots() bool {
	return k == Spring
}

// Func returns the curve for k. Unknown kinds fall back to Linear.
func (k Kind) Func() Func {
	switch k {
	case EaseOut:
		return easeOut
	case EaseInOut:
		return easeInOut
	case Spring:
		return spring
	default:
		return linear
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := names[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Apply clamps t to [0,1] and evaluates the curve for k.
func Apply(k Kind, t float64) float64 {
	return k.Func()(Clamp(t))
}

// Clamp limits t to [0,1]. NaN clamps to 0.
func Clamp(t float64) float64 {
	switch {
	case t > 1:
		return 1
	case t >= 0:
		return t
	default:
		return 0
	}
}

func linear(t float64) float64 { return ease.Linear(t) }

func easeOut(t float64) float64 { return ease.OutCubic(t) }

func easeInOut(t float64) float64 { return ease.InOutCubic(t) }

func spring(t float64) float64 {
	// Endpoints are pinned so the curve starts and settles without float noise.
	if t == 0 {
		return 0
	}
	if t == 1 {
		return 1
	}
	return springCurve(t)
}
