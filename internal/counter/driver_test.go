package counter_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jfoltran/uiregistry/internal/counter"
	"github.com/jfoltran/uiregistry/internal/counter/countertest"
	"github.com/jfoltran/uiregistry/internal/easing"
)

type recorder struct {
	frames  []counter.Frame
	settles []counter.Frame
}

func (r *recorder) opts(o counter.Options) counter.Options {
	o.OnFrame = func(f counter.Frame) { r.frames = append(r.frames, f) }
	o.OnSettle = func(f counter.Frame) { r.settles = append(r.settles, f) }
	return o
}

func newDriver(t *testing.T, o counter.Options) (*counter.Driver, *countertest.Clock, *countertest.Scheduler) {
	t.Helper()
	clock := countertest.NewClock()
	sched := countertest.NewScheduler()
	o.Clock = clock
	o.Scheduler = sched
	d, err := counter.New(o)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(d.Dispose)
	return d, clock, sched
}

func TestDriver_LinearRun(t *testing.T) {
	rec := &recorder{}
	d, clock, sched := newDriver(t, rec.opts(counter.Options{Duration: time.Second, Easing: easing.Linear}))

	if err := d.SetTarget(100); err != nil {
		t.Fatalf("SetTarget() error: %v", err)
	}
	if sched.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", sched.Pending())
	}

	sched.Fire()
	if v := d.Value(); v != 0 {
		t.Errorf("first frame value = %v, want 0", v)
	}

	steps := []struct {
		advance time.Duration
		want    float64
	}{
		{250 * time.Millisecond, 25},
		{250 * time.Millisecond, 50},
		{250 * time.Millisecond, 75},
		{250 * time.Millisecond, 100},
	}
	for _, s := range steps {
		sched.Step(clock, s.advance)
		if v := d.Value(); v != s.want {
			t.Errorf("Value = %v, want %v", v, s.want)
		}
	}

	if d.Running() {
		t.Error("driver still running after settling")
	}
	if sched.Pending() != 0 {
		t.Errorf("Pending = %d after settle, want 0", sched.Pending())
	}
	if len(rec.settles) != 1 {
		t.Fatalf("settle callbacks = %d, want 1", len(rec.settles))
	}
	if rec.settles[0].Display != "100" {
		t.Errorf("settled display = %q, want 100", rec.settles[0].Display)
	}
	if len(rec.frames) != 5 {
		t.Errorf("frames = %d, want 5", len(rec.frames))
	}
}

func TestDriver_SettlesExactlyForEveryCurve(t *testing.T) {
	targets := []float64{4280, 98.5, 12500, -37.25, 0.1 + 0.2}
	for _, k := range easing.Kinds() {
		for _, target := range targets {
			rec := &recorder{}
			d, clock, sched := newDriver(t, rec.opts(counter.Options{
				Duration: 2500 * time.Millisecond,
				Easing:   k,
				Initial:  3,
			}))
			if err := d.SetTarget(target); err != nil {
				t.Fatalf("SetTarget(%v) error: %v", target, err)
			}
			sched.RunUntilIdle(clock, 16*time.Millisecond, 1000)

			if got := d.Value(); got != target {
				t.Errorf("%s: final value = %v, want exactly %v", k, got, target)
			}
			if len(rec.settles) != 1 || rec.settles[0].Value != target {
				t.Errorf("%s: settle frames = %+v", k, rec.settles)
			}
		}
	}
}

func TestDriver_SpringOvershootStillSettles(t *testing.T) {
	rec := &recorder{}
	d, clock, sched := newDriver(t, rec.opts(counter.Options{Duration: 2500 * time.Millisecond, Easing: easing.Spring}))
	if err := d.SetTarget(4280); err != nil {
		t.Fatal(err)
	}
	sched.RunUntilIdle(clock, 16*time.Millisecond, 1000)

	peak := 0.0
	for _, f := range rec.frames {
		peak = math.Max(peak, f.Value)
	}
	if peak <= 4280 {
		t.Errorf("peak = %v, expected spring overshoot", peak)
	}
	if d.Display() != "4280" {
		t.Errorf("Display = %q, want 4280", d.Display())
	}
}

func TestDriver_ProgressMonotonic(t *testing.T) {
	rec := &recorder{}
	d, clock, sched := newDriver(t, rec.opts(counter.Options{Duration: time.Second, Easing: easing.EaseInOut}))
	if err := d.SetTarget(10); err != nil {
		t.Fatal(err)
	}
	sched.Fire()
	advances := []time.Duration{100, 300, -200, 50, 0, 400, -1000, 600, 2000}
	for _, a := range advances {
		sched.Step(clock, a*time.Millisecond)
	}

	prev := -1.0
	for i, f := range rec.frames {
		if f.RawProgress < prev {
			t.Fatalf("frame %d: raw progress %v < previous %v", i, f.RawProgress, prev)
		}
		prev = f.RawProgress
	}
	if !rec.frames[len(rec.frames)-1].Done {
		t.Error("expected the run to complete")
	}
}

func TestDriver_RetargetBoundsForNonOvershootingCurves(t *testing.T) {
	for _, k := range easing.Kinds() {
		if k.Overshoots() {
			continue
		}
		t.Run(k.String(), func(t *testing.T) {
			rec := &recorder{}
			d, clock, sched := newDriver(t, rec.opts(counter.Options{Duration: time.Second, Easing: k, Initial: 50}))
			if err := d.SetTarget(100); err != nil {
				t.Fatal(err)
			}
			sched.RunUntilIdle(clock, 7*time.Millisecond, 1000)

			for _, f := range rec.frames {
				if f.Value < 50 || f.Value > 100 {
					t.Fatalf("value %v outside [50,100]", f.Value)
				}
			}
		})
	}
}

func TestDriver_RetargetMidFlight(t *testing.T) {
	d, clock, sched := newDriver(t, counter.Options{Duration: time.Second, Easing: easing.Linear})
	if err := d.SetTarget(100); err != nil {
		t.Fatal(err)
	}
	sched.Fire()
	sched.Step(clock, 400*time.Millisecond)
	if v := d.Value(); v != 40 {
		t.Fatalf("Value = %v, want 40", v)
	}

	stale := sched.Last()
	if err := d.SetTarget(10); err != nil {
		t.Fatal(err)
	}
	if sched.Cancelled() != 1 {
		t.Errorf("Cancelled = %d, want 1", sched.Cancelled())
	}

	// The tick registered for the old run must not move the counter.
	clock.Advance(300 * time.Millisecond)
	stale()
	if v := d.Value(); v != 40 {
		t.Errorf("stale tick changed value to %v", v)
	}

	sched.Fire()
	if v := d.Value(); v != 40 {
		t.Errorf("first frame of new run = %v, want 40 (continuity)", v)
	}
	sched.Step(clock, 500*time.Millisecond)
	if v := d.Value(); v != 25 {
		t.Errorf("midway value = %v, want 25", v)
	}
	sched.Step(clock, 500*time.Millisecond)
	if v := d.Value(); v != 10 {
		t.Errorf("final value = %v, want 10", v)
	}
}

func TestDriver_NonPositiveDurationJumps(t *testing.T) {
	rec := &recorder{}
	d, _, sched := newDriver(t, rec.opts(counter.Options{Duration: -1}))
	if err := d.SetTarget(42); err != nil {
		t.Fatal(err)
	}
	if n := sched.Fire(); n != 1 {
		t.Fatalf("fired %d ticks, want 1", n)
	}
	if d.Value() != 42 || d.Running() {
		t.Errorf("Value = %v Running = %v, want 42 and settled", d.Value(), d.Running())
	}
	if sched.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", sched.Pending())
	}

	if err := d.Start(counter.Request{Start: 0, Target: 7, Duration: 0}); err != nil {
		t.Fatal(err)
	}
	sched.Fire()
	if d.Value() != 7 {
		t.Errorf("Value = %v, want 7", d.Value())
	}
	if len(rec.settles) != 2 {
		t.Errorf("settles = %d, want 2", len(rec.settles))
	}
}

func TestDriver_RejectsNonFiniteTarget(t *testing.T) {
	d, _, sched := newDriver(t, counter.Options{Initial: 5})
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := d.SetTarget(v); !errors.Is(err, counter.ErrNonFiniteTarget) {
			t.Errorf("SetTarget(%v) = %v, want ErrNonFiniteTarget", v, err)
		}
	}
	if err := d.Start(counter.Request{Start: math.NaN(), Target: 1}); !errors.Is(err, counter.ErrNonFiniteStart) {
		t.Errorf("Start(NaN start) = %v, want ErrNonFiniteStart", err)
	}
	if d.Value() != 5 || sched.Scheduled() != 0 {
		t.Errorf("rejected request mutated state: value=%v scheduled=%d", d.Value(), sched.Scheduled())
	}
}

func TestDriver_NoSchedulerSettlesSynchronously(t *testing.T) {
	var settled []counter.Frame
	d, err := counter.New(counter.Options{
		Format:   counter.Format{Prefix: "$", UseLocale: true},
		OnSettle: func(f counter.Frame) { settled = append(settled, f) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()

	if err := d.SetTarget(12500); err != nil {
		t.Fatal(err)
	}
	if len(settled) != 1 {
		t.Fatalf("settles = %d, want 1", len(settled))
	}
	if d.Display() != "$12,500" {
		t.Errorf("Display = %q, want $12,500", d.Display())
	}
}

// inlineScheduler runs every callback before ScheduleNextTick returns.
type inlineScheduler struct {
	calls int
}

func (s *inlineScheduler) ScheduleNextTick(fn func()) counter.Cancel {
	s.calls++
	fn()
	return counter.Once(func() {})
}

func TestDriver_InlineSchedulerSettles(t *testing.T) {
	sched := &inlineScheduler{}
	var settled []counter.Frame
	d, err := counter.New(counter.Options{
		Duration:  time.Hour,
		Format:    counter.Format{Decimals: 1, Suffix: "%"},
		Scheduler: sched,
		OnSettle:  func(f counter.Frame) { settled = append(settled, f) },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()

	done := make(chan error, 1)
	go func() { done <- d.SetTarget(98.5) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetTarget() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetTarget blocked with a scheduler that calls back inline")
	}

	if d.Running() {
		t.Error("Running() = true after an inline tick")
	}
	if d.Display() != "98.5%" || len(settled) != 1 {
		t.Errorf("Display = %q with %d settles, want 98.5%% once", d.Display(), len(settled))
	}
	if sched.calls != 1 {
		t.Errorf("ScheduleNextTick calls = %d, want 1", sched.calls)
	}
}

type spySignal struct {
	fn      func()
	cancels int
}

func (s *spySignal) OnBecomesVisible(fn func()) counter.Cancel {
	s.fn = fn
	return counter.Once(func() { s.cancels++ })
}

func TestDriver_VisibilityGate(t *testing.T) {
	sig := &spySignal{}
	d, clock, sched := newDriver(t, counter.Options{
		Duration:       time.Second,
		StartOnVisible: true,
		Signal:         sig,
	})

	if err := d.SetTarget(10); err != nil {
		t.Fatal(err)
	}
	if err := d.SetTarget(20); err != nil {
		t.Fatal(err)
	}
	if sched.Pending() != 0 {
		t.Fatalf("ticking before visible: pending = %d", sched.Pending())
	}
	if d.Target() != 20 {
		t.Errorf("Target = %v, want queued 20", d.Target())
	}
	if d.Visible() {
		t.Error("Visible() = true before signal")
	}

	sig.fn()
	if !d.Visible() {
		t.Error("Visible() = false after signal")
	}
	if sig.cancels != 1 {
		t.Errorf("watcher cancels = %d, want 1", sig.cancels)
	}
	if sched.Pending() != 1 {
		t.Fatalf("pending = %d after visible, want 1", sched.Pending())
	}

	// A second signal is ignored; the gate stays open.
	sig.fn()
	sched.RunUntilIdle(clock, 100*time.Millisecond, 100)
	if d.Value() != 20 {
		t.Errorf("Value = %v, want 20", d.Value())
	}

	if err := d.SetTarget(5); err != nil {
		t.Fatal(err)
	}
	if sched.Pending() != 1 {
		t.Errorf("later targets should start immediately, pending = %d", sched.Pending())
	}
}

func TestDriver_VisibleWithLatch(t *testing.T) {
	latch := counter.NewLatch()
	latch.Fire()

	d, _, sched := newDriver(t, counter.Options{StartOnVisible: true, Signal: latch})
	if !d.Visible() {
		t.Fatal("driver registered on a fired latch should be visible")
	}
	if err := d.SetTarget(1); err != nil {
		t.Fatal(err)
	}
	if sched.Pending() != 1 {
		t.Errorf("pending = %d, want 1", sched.Pending())
	}
}

func TestDriver_DisposeRevokesEverything(t *testing.T) {
	sig := &spySignal{}
	d, clock, sched := newDriver(t, counter.Options{Duration: time.Second, StartOnVisible: true, Signal: sig})
	sig.fn()
	if sig.cancels != 1 {
		t.Fatalf("cancels = %d", sig.cancels)
	}

	if err := d.SetTarget(100); err != nil {
		t.Fatal(err)
	}
	sched.Fire()
	sched.Step(clock, 300*time.Millisecond)
	before := d.Frame()
	stale := sched.Last()

	d.Dispose()
	d.Dispose()
	if sched.Pending() != 0 {
		t.Errorf("Pending = %d after Dispose, want 0", sched.Pending())
	}
	if sched.Cancelled() != 1 {
		t.Errorf("Cancelled = %d, want 1", sched.Cancelled())
	}

	clock.Advance(time.Second)
	stale()
	if got := d.Frame(); got != before {
		t.Errorf("frame changed after dispose: %+v -> %+v", before, got)
	}
	if err := d.SetTarget(3); !errors.Is(err, counter.ErrDisposed) {
		t.Errorf("SetTarget after Dispose = %v, want ErrDisposed", err)
	}
}

func TestDriver_DisposeBeforeVisible(t *testing.T) {
	sig := &spySignal{}
	d, _, sched := newDriver(t, counter.Options{StartOnVisible: true, Signal: sig})
	if err := d.SetTarget(9); err != nil {
		t.Fatal(err)
	}
	d.Dispose()
	if sig.cancels != 1 {
		t.Errorf("visibility watcher cancels = %d, want 1", sig.cancels)
	}
	sig.fn()
	if sched.Pending() != 0 || d.Value() != 0 {
		t.Errorf("signal after dispose started a run: pending=%d value=%v", sched.Pending(), d.Value())
	}
}

func TestDriver_Settle(t *testing.T) {
	rec := &recorder{}
	d, clock, sched := newDriver(t, rec.opts(counter.Options{Duration: time.Second}))
	if err := d.SetTarget(80); err != nil {
		t.Fatal(err)
	}
	sched.Fire()
	sched.Step(clock, 100*time.Millisecond)

	d.Settle()
	if d.Value() != 80 || d.Running() {
		t.Errorf("after Settle value=%v running=%v", d.Value(), d.Running())
	}
	if sched.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", sched.Pending())
	}
	if len(rec.settles) != 1 {
		t.Errorf("settles = %d, want 1", len(rec.settles))
	}
}

func TestDriver_TickSchedulerEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan counter.Frame, 1)
	d, err := counter.New(counter.Options{
		Duration:  50 * time.Millisecond,
		Easing:    easing.EaseOut,
		Scheduler: counter.NewTickScheduler(200),
		Format:    counter.Format{Decimals: 1, Suffix: "%"},
		OnSettle:  func(f counter.Frame) { done <- f },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Dispose()

	if err := d.SetTarget(98.5); err != nil {
		t.Fatal(err)
	}
	select {
	case f := <-done:
		if f.Display != "98.5%" {
			t.Errorf("Display = %q, want 98.5%%", f.Display)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("counter did not settle")
	}
}

func TestTickSchedulerCancelIdempotent(t *testing.T) {
	s := counter.NewTickScheduler(0)
	if s.Interval() != time.Second/counter.DefaultFPS {
		t.Errorf("Interval = %v", s.Interval())
	}
	fired := make(chan struct{}, 1)
	cancel := s.ScheduleNextTick(func() { fired <- struct{}{} })
	cancel()
	cancel()
	select {
	case <-fired:
		t.Error("cancelled tick fired")
	case <-time.After(3 * s.Interval()):
	}
}

func TestLatch(t *testing.T) {
	l := counter.NewLatch()
	var order []int
	l.OnBecomesVisible(func() { order = append(order, 1) })
	cancel := l.OnBecomesVisible(func() { order = append(order, 2) })
	l.OnBecomesVisible(func() { order = append(order, 3) })
	cancel()
	cancel()

	if !l.Fire() {
		t.Fatal("first Fire() = false")
	}
	if l.Fire() {
		t.Error("second Fire() = true")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("order = %v, want [1 3]", order)
	}

	late := false
	l.OnBecomesVisible(func() { late = true })
	if !late {
		t.Error("registration after Fire should run immediately")
	}
	if !l.Fired() {
		t.Error("Fired() = false")
	}
}
