// Package counter animates a displayed number from a start value to a target
// over a fixed duration.
//
// A Driver owns one counter. It advances on ticks supplied by a Scheduler,
// reads time from a Clock, and may hold off until a Signal reports that the
// counter is visible. Every registration it makes is revocable, so a disposed
// driver never reacts to a late callback.
package counter

import (
	"errors"
	"math"
	"time"

	"github.com/jfoltran/uiregistry/internal/easing"
)

var (
	ErrNonFiniteTarget = errors.New("counter: target is not a finite number")
	ErrNonFiniteStart  = errors.New("counter: start is not a finite number")
	ErrInvalidDecimals = errors.New("counter: decimals out of range")
	ErrDisposed        = errors.New("counter: driver disposed")
)

// Request describes one animation run. It does not change once the run
// has begun.
type Request struct {
	Start    float64
	Target   float64
	Duration time.Duration
	Easing   easing.Kind
	Format   Format
}

// Validate rejects requests that cannot produce a finite final value.
func (r Request) Validate() error {
	if !finite(r.Target) {
		return ErrNonFiniteTarget
	}
	if !finite(r.Start) {
		return ErrNonFiniteStart
	}
	return r.Format.Validate()
}

// Frame is the state of a run at one tick.
type Frame struct {
	Elapsed       time.Duration `json:"elapsed"`
	RawProgress   float64       `json:"raw_progress"`
	EasedProgress float64       `json:"eased_progress"`
	Value         float64       `json:"value"`
	Display       string        `json:"display"`
	Done          bool          `json:"done"`
}

// FrameAt computes the frame elapsed time into the run. A non-positive
// duration completes immediately. The final frame always carries Target
// exactly, whatever the curve returned.
func (r Request) FrameAt(elapsed time.Duration) Frame {
	raw := 1.0
	if r.Duration > 0 {
		raw = math.Min(float64(elapsed)/float64(r.Duration), 1)
	}
	if raw < 0 {
		raw = 0
	}
	eased := easing.Apply(r.Easing, raw)
	value := r.Start + (r.Target-r.Start)*eased
	done := raw >= 1
	if done {
		value = r.Target
	}
	return Frame{
		Elapsed:       elapsed,
		RawProgress:   raw,
		EasedProgress: eased,
		Value:         value,
		Display:       r.Format.Render(value),
		Done:          done,
	}
}

func (r Request) settled(elapsed time.Duration) Frame {
	return Frame{
		Elapsed:       elapsed,
		RawProgress:   1,
		EasedProgress: 1,
		Value:         r.Target,
		Display:       r.Format.Render(r.Target),
		Done:          true,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
