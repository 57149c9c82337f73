// Package countertest provides a manual clock and tick scheduler for driving
// counters deterministically in tests.
package countertest

import (
	"sort"
	"sync"
	"time"

	"github.com/jfoltran/uiregistry/internal/counter"
)

// Epoch is the initial reading of a new Clock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock only moves when Advance is called.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: Epoch}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d (backward if d is negative).
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Scheduler queues tick callbacks until Fire is called.
type Scheduler struct {
	mu        sync.Mutex
	next      int
	pending   map[int]func()
	last      func()
	scheduled int
	cancelled int
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[int]func())}
}

func (s *Scheduler) ScheduleNextTick(fn func()) counter.Cancel {
	s.mu.Lock()
	id := s.next
	s.next++
	s.pending[id] = fn
	s.last = fn
	s.scheduled++
	s.mu.Unlock()

	return counter.Once(func() {
		s.mu.Lock()
		if _, ok := s.pending[id]; ok {
			delete(s.pending, id)
			s.cancelled++
		}
		s.mu.Unlock()
	})
}

// Fire runs every callback pending at the time of the call and returns how
// many ran. Callbacks scheduled while firing wait for the next Fire.
func (s *Scheduler) Fire() int {
	s.mu.Lock()
	ids := make([]int, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.pending[id])
		delete(s.pending, id)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Step advances clock by d and fires pending ticks.
func (s *Scheduler) Step(clock *Clock, d time.Duration) int {
	clock.Advance(d)
	return s.Fire()
}

// RunUntilIdle steps until nothing is pending or max steps have run, and
// returns the number of steps taken.
func (s *Scheduler) RunUntilIdle(clock *Clock, d time.Duration, max int) int {
	steps := 0
	for steps < max && s.Pending() > 0 {
		// The first tick of a run anchors its start time, so fire before
		// advancing.
		if steps == 0 {
			s.Fire()
		} else {
			s.Step(clock, d)
		}
		steps++
	}
	return steps
}

// Pending returns the number of callbacks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Last returns the most recently scheduled callback, even if it was
// cancelled since.
func (s *Scheduler) Last() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Scheduled returns the total number of registrations.
func (s *Scheduler) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}

// Cancelled returns how many registrations were revoked before firing.
func (s *Scheduler) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}
