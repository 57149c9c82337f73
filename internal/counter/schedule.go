package counter

import (
	"sort"
	"sync"
	"time"
)

// Cancel revokes a registration. Calling it more than once is a no-op.
type Cancel func()

// Once wraps f so that only the first call has an effect.
func Once(f func()) Cancel {
	var once sync.Once
	return func() {
		once.Do(f)
	}
}

// Clock is a monotonic time source.
type Clock interface {
	Now() time.Time
}

// Scheduler registers a callback for the next tick. The driver never holds
// its lock while calling ScheduleNextTick. A callback run before
// ScheduleNextTick returns settles the run immediately.
type Scheduler interface {
	ScheduleNextTick(fn func()) Cancel
}

// Signal fires once when the counter first becomes visible.
type Signal interface {
	OnBecomesVisible(fn func()) Cancel
}

// SystemClock reads the wall clock; time.Now carries a monotonic reading.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DefaultFPS approximates a display refresh rate.
const DefaultFPS = 60

// TickScheduler schedules ticks on a fixed interval using time.AfterFunc.
type TickScheduler struct {
	interval time.Duration
}

// NewTickScheduler returns a scheduler ticking fps times per second.
// Non-positive fps selects DefaultFPS.
func NewTickScheduler(fps int) *TickScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickScheduler{interval: time.Second / time.Duration(fps)}
}

// Interval returns the delay between ticks.
func (s *TickScheduler) Interval() time.Duration {
	return s.interval
}

func (s *TickScheduler) ScheduleNextTick(fn func()) Cancel {
	t := time.AfterFunc(s.interval, fn)
	return Once(func() { t.Stop() })
}

// Latch is a one-shot Signal. Callbacks registered after Fire run immediately.
type Latch struct {
	mu      sync.Mutex
	fired   bool
	next    int
	waiters map[int]func()
}

// NewLatch returns an unfired latch.
func NewLatch() *Latch {
	return &Latch{waiters: make(map[int]func())}
}

func (l *Latch) OnBecomesVisible(fn func()) Cancel {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		fn()
		return Once(func() {})
	}
	id := l.next
	l.next++
	l.waiters[id] = fn
	l.mu.Unlock()

	return Once(func() {
		l.mu.Lock()
		delete(l.waiters, id)
		l.mu.Unlock()
	})
}

// Fire runs every registered callback in registration order. It returns
// false if the latch had already fired.
func (l *Latch) Fire() bool {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		return false
	}
	l.fired = true
	ids := make([]int, 0, len(l.waiters))
	for id := range l.waiters {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, l.waiters[id])
	}
	l.waiters = nil
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

// Fired reports whether Fire has been called.
func (l *Latch) Fired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}
