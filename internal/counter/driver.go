package counter

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/easing"
)

// DefaultDuration is used when Options.Duration is zero.
const DefaultDuration = 2 * time.Second

// Options configures a Driver.
type Options struct {
	Initial  float64
	Duration time.Duration // zero selects DefaultDuration, negative jumps
	Easing   easing.Kind
	Format   Format

	// StartOnVisible holds every run until Signal fires. Without a Signal
	// the gate starts open.
	StartOnVisible bool

	Clock     Clock     // nil selects SystemClock
	Scheduler Scheduler // nil makes every run settle synchronously
	Signal    Signal

	OnFrame  func(Frame)
	OnSettle func(Frame)

	Logger *zerolog.Logger
}

// Driver animates a single counter.
type Driver struct {
	clock    Clock
	sched    Scheduler
	onFrame  func(Frame)
	onSettle func(Frame)
	logger   zerolog.Logger

	mu         sync.Mutex
	duration   time.Duration
	kind       easing.Kind
	format     Format
	value      float64
	frame      Frame
	run        *run
	gen        uint64
	visible    bool
	pending    *Request
	cancelTick Cancel
	cancelVis  Cancel
	disposed   bool
}

type run struct {
	req      Request
	started  time.Time
	anchored bool
	lastRaw  float64
}

// New creates a driver showing opts.Initial.
func New(opts Options) (*Driver, error) {
	if err := opts.Format.Validate(); err != nil {
		return nil, err
	}
	if !finite(opts.Initial) {
		return nil, ErrNonFiniteStart
	}
	if opts.Duration == 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	d := &Driver{
		clock:    opts.Clock,
		sched:    opts.Scheduler,
		onFrame:  opts.OnFrame,
		onSettle: opts.OnSettle,
		logger:   logger,
		duration: opts.Duration,
		kind:     opts.Easing,
		format:   opts.Format,
		value:    opts.Initial,
		visible:  !opts.StartOnVisible,
	}
	d.frame = Request{Target: opts.Initial, Format: opts.Format}.settled(0)

	if opts.StartOnVisible {
		if opts.Signal == nil {
			d.logger.Debug().Msg("no visibility signal, starting immediately")
			d.visible = true
		} else {
			cancel := opts.Signal.OnBecomesVisible(d.becomeVisible)
			d.mu.Lock()
			if d.visible {
				// Fired synchronously during registration.
				d.mu.Unlock()
				cancel()
			} else {
				d.cancelVis = cancel
				d.mu.Unlock()
			}
		}
	}
	return d, nil
}

// SetTarget starts a run from the currently displayed value toward target,
// replacing any run in flight.
func (d *Driver) SetTarget(target float64) error {
	if !finite(target) {
		return ErrNonFiniteTarget
	}
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDisposed
	}
	req := Request{
		Start:    d.value,
		Target:   target,
		Duration: d.duration,
		Easing:   d.kind,
		Format:   d.format,
	}
	em := d.beginLocked(req)
	d.mu.Unlock()

	d.emit(em)
	return nil
}

// Start begins an explicit run. Its duration, easing and format become the
// defaults for later SetTarget calls.
func (d *Driver) Start(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return ErrDisposed
	}
	d.duration = req.Duration
	d.kind = req.Easing
	d.format = req.Format
	em := d.beginLocked(req)
	d.mu.Unlock()

	d.emit(em)
	return nil
}

// Settle ends the current run at its target immediately.
func (d *Driver) Settle() {
	d.mu.Lock()
	gen := d.gen
	d.mu.Unlock()
	d.settleRun(gen)
}

// Dispose revokes the pending tick and the visibility watcher. Later
// callbacks from either are ignored. Dispose is idempotent.
func (d *Driver) Dispose() {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	d.gen++
	d.run = nil
	d.pending = nil
	ct, cv := d.cancelTick, d.cancelVis
	d.cancelTick, d.cancelVis = nil, nil
	d.mu.Unlock()

	if ct != nil {
		ct()
	}
	if cv != nil {
		cv()
	}
}

// Value returns the value shown by the latest frame.
func (d *Driver) Value() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Frame returns the latest frame.
func (d *Driver) Frame() Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame
}

// Display returns the latest display string.
func (d *Driver) Display() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame.Display
}

// Target returns the value the driver is heading to: the active run's
// target, a queued target waiting for visibility, or the current value.
func (d *Driver) Target() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.run != nil:
		return d.run.req.Target
	case d.pending != nil:
		return d.pending.Target
	default:
		return d.value
	}
}

// Running reports whether a run is in flight.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.run != nil
}

// Visible reports whether the visibility gate is open.
func (d *Driver) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// Easing returns the curve used by SetTarget.
func (d *Driver) Easing() easing.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kind
}

// emission is the work left after d.mu is released: callbacks for a new
// frame and registering the first tick of a run.
type emission struct {
	frame    Frame
	hasFrame bool
	schedule bool
	gen      uint64
}

func framed(f Frame) *emission {
	return &emission{frame: f, hasFrame: true}
}

func (d *Driver) emit(em *emission) {
	if em == nil {
		return
	}
	if em.hasFrame {
		if d.onFrame != nil {
			d.onFrame(em.frame)
		}
		if em.frame.Done && d.onSettle != nil {
			d.onSettle(em.frame)
		}
	}
	if em.schedule {
		d.scheduleTick(em.gen)
	}
}

// beginLocked replaces the active run with req. Callers hold d.mu.
func (d *Driver) beginLocked(req Request) *emission {
	d.gen++
	if d.cancelTick != nil {
		d.cancelTick()
		d.cancelTick = nil
	}
	d.run = nil

	if !d.visible {
		d.pending = &req
		return nil
	}
	d.pending = nil

	if d.sched == nil {
		f := req.settled(0)
		d.applyLocked(f)
		return framed(f)
	}

	d.run = &run{req: req}
	return &emission{schedule: true, gen: d.gen}
}

// scheduleTick registers the next tick of run gen. It is called without
// d.mu held. A scheduler that runs the callback before ScheduleNextTick
// returns is treated like no scheduler: the run settles at once.
func (d *Driver) scheduleTick(gen uint64) {
	var registered, early, fired atomic.Bool
	cancel := d.sched.ScheduleNextTick(func() {
		if !registered.Load() {
			early.Store(true)
			return
		}
		fired.Store(true)
		d.tick(gen)
	})
	registered.Store(true)

	if early.Load() {
		cancel()
		d.settleRun(gen)
		return
	}

	d.mu.Lock()
	if d.disposed || gen != d.gen || d.run == nil {
		d.mu.Unlock()
		cancel()
		return
	}
	if !fired.Load() {
		d.cancelTick = cancel
	}
	d.mu.Unlock()
}

// settleRun ends run gen at its target if it is still the active run.
func (d *Driver) settleRun(gen uint64) {
	d.mu.Lock()
	if d.disposed || gen != d.gen || d.run == nil {
		d.mu.Unlock()
		return
	}
	r := d.run
	d.gen++
	cancel := d.cancelTick
	d.cancelTick = nil
	f := r.req.settled(d.elapsedLocked(r))
	d.applyLocked(f)
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.emit(framed(f))
}

func (d *Driver) tick(gen uint64) {
	d.mu.Lock()
	if d.disposed || gen != d.gen || d.run == nil {
		d.mu.Unlock()
		return
	}
	r := d.run
	now := d.clock.Now()
	if !r.anchored {
		r.started = now
		r.anchored = true
	}
	f := r.req.FrameAt(now.Sub(r.started))
	if f.RawProgress < r.lastRaw {
		// Keep progress monotonic if the clock steps backwards.
		f = r.req.FrameAt(time.Duration(r.lastRaw * float64(r.req.Duration)))
	}
	r.lastRaw = f.RawProgress
	d.applyLocked(f)
	d.cancelTick = nil
	d.mu.Unlock()

	d.emit(framed(f))
	if f.Done {
		return
	}
	d.scheduleTick(gen)
}

func (d *Driver) applyLocked(f Frame) {
	d.value = f.Value
	d.frame = f
	if f.Done {
		d.run = nil
	}
}

func (d *Driver) elapsedLocked(r *run) time.Duration {
	if !r.anchored {
		return 0
	}
	return d.clock.Now().Sub(r.started)
}

func (d *Driver) becomeVisible() {
	d.mu.Lock()
	if d.disposed || d.visible {
		d.mu.Unlock()
		return
	}
	d.visible = true
	cancel := d.cancelVis
	d.cancelVis = nil
	var em *emission
	if d.pending != nil {
		req := *d.pending
		em = d.beginLocked(req)
	}
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.logger.Debug().Msg("counter became visible")
	d.emit(em)
}
