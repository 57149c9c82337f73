// Package board keeps the set of animated counters that the HTTP API, the
// WebSocket hub and the terminal dashboard all render.
package board

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/counter"
)

var (
	ErrUnknownCounter   = errors.New("unknown counter")
	ErrDuplicateCounter = errors.New("counter already exists")
	ErrClosed           = errors.New("board closed")
)

// CounterState is the rendered state of one counter.
type CounterState struct {
	Name     string  `json:"name"`
	Label    string  `json:"label,omitempty"`
	Display  string  `json:"display"`
	Value    float64 `json:"value"`
	Target   float64 `json:"target"`
	Progress float64 `json:"progress"`
	Easing   string  `json:"easing"`
	Running  bool    `json:"running"`
	Palette  string  `json:"palette,omitempty"`

	Decimals  int    `json:"decimals,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Suffix    string `json:"suffix,omitempty"`
	UseLocale bool   `json:"use_locale"`
}

// Snapshot is the complete board state at a point in time.
type Snapshot struct {
	Timestamp  time.Time      `json:"timestamp"`
	Visible    bool           `json:"visible"`
	ElapsedSec float64        `json:"elapsed_sec"`
	Counters   []CounterState `json:"counters"`
	Running    int            `json:"running"`

	ErrorCount int    `json:"error_count"`
	LastError  string `json:"last_error,omitempty"`
}

// Counter returns the state for name, if present.
func (s Snapshot) Counter(name string) (CounterState, bool) {
	for _, c := range s.Counters {
		if c.Name == name {
			return c, true
		}
	}
	return CounterState{}, false
}

// LogEntry represents a log line captured for the UI.
type LogEntry struct {
	Time    time.Time         `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Options tunes a Board. Zero values select defaults.
type Options struct {
	FPS               int
	BroadcastInterval time.Duration

	// LogOutput, when set, receives the board logger's output and every
	// line is also captured into the board's log ring. Logger returns the
	// combined logger for other components to share.
	LogOutput io.Writer

	// Clock and Scheduler override the real-time ones, mainly for tests.
	Clock     counter.Clock
	Scheduler counter.Scheduler
}

type entry struct {
	spec   CounterSpec
	driver *counter.Driver
}

// Board owns one counter.Driver per counter and fans snapshots out to
// subscribers.
type Board struct {
	root   zerolog.Logger
	logger zerolog.Logger
	clock  counter.Clock
	sched  counter.Scheduler
	latch  *counter.Latch

	mu        sync.RWMutex
	counters  map[string]*entry
	order     []string
	startedAt time.Time
	closed    bool

	dirty      atomic.Bool
	errorCount atomic.Int64
	lastError  atomic.Value // string

	subMu       sync.Mutex
	subscribers map[chan Snapshot]struct{}

	logMu  sync.Mutex
	logs   []LogEntry
	logCap int

	interval time.Duration
	done     chan struct{}
}

// New creates a Board and starts its broadcast loop.
func New(logger zerolog.Logger, opts Options) *Board {
	if opts.Clock == nil {
		opts.Clock = counter.SystemClock{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = counter.NewTickScheduler(opts.FPS)
	}
	if opts.BroadcastInterval <= 0 {
		opts.BroadcastInterval = 50 * time.Millisecond
	}
	b := &Board{
		clock:       opts.Clock,
		sched:       opts.Scheduler,
		latch:       counter.NewLatch(),
		counters:    make(map[string]*entry),
		startedAt:   opts.Clock.Now(),
		subscribers: make(map[chan Snapshot]struct{}),
		logs:        make([]LogEntry, 0, 500),
		logCap:      500,
		interval:    opts.BroadcastInterval,
		done:        make(chan struct{}),
	}
	if opts.LogOutput != nil {
		logger = logger.Output(io.MultiWriter(opts.LogOutput, NewLogWriter(b)))
	}
	b.root = logger
	b.logger = logger.With().Str("component", "board").Logger()
	go b.broadcastLoop()
	return b
}

// Logger returns the logger the board was created with, writing to the
// log ring as well when Options.LogOutput is set.
func (b *Board) Logger() zerolog.Logger {
	return b.root
}

// Add creates a counter from spec and sends it toward spec.Target, starting
// from spec.Initial. Counters with StartOnView wait for MarkVisible.
func (b *Board) Add(spec CounterSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.counters[spec.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCounter, spec.Name)
	}

	logger := b.logger.With().Str("counter", spec.Name).Logger()
	opts := counter.Options{
		Initial:        spec.Initial,
		Duration:       spec.Duration(),
		Easing:         spec.Kind(),
		Format:         spec.format(),
		StartOnVisible: spec.StartOnView,
		Clock:          b.clock,
		Scheduler:      b.sched,
		OnFrame:        func(counter.Frame) { b.dirty.Store(true) },
		OnSettle: func(f counter.Frame) {
			logger.Debug().Str("display", f.Display).Msg("counter settled")
		},
		Logger: &logger,
	}
	if spec.StartOnView {
		opts.Signal = b.latch
	}
	d, err := counter.New(opts)
	if err != nil {
		return fmt.Errorf("counter %q: %w", spec.Name, err)
	}
	if err := d.SetTarget(spec.Target); err != nil {
		d.Dispose()
		return fmt.Errorf("counter %q: %w", spec.Name, err)
	}

	b.counters[spec.Name] = &entry{spec: spec, driver: d}
	b.order = append(b.order, spec.Name)
	b.dirty.Store(true)
	return nil
}

// Remove disposes the named counter.
func (b *Board) Remove(name string) error {
	b.mu.Lock()
	e, ok := b.counters[name]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownCounter, name)
	}
	delete(b.counters, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	e.driver.Dispose()
	b.dirty.Store(true)
	return nil
}

// SetTarget re-targets a counter from its current value.
func (b *Board) SetTarget(name string, target float64) error {
	b.mu.RLock()
	e, ok := b.counters[name]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCounter, name)
	}
	if err := e.driver.SetTarget(target); err != nil {
		return fmt.Errorf("counter %q: %w", name, err)
	}
	b.logger.Info().Str("counter", name).Float64("target", target).Msg("target set")
	return nil
}

// Settle forces every running counter to its target.
func (b *Board) Settle() {
	b.mu.RLock()
	drivers := make([]*counter.Driver, 0, len(b.order))
	for _, name := range b.order {
		drivers = append(drivers, b.counters[name].driver)
	}
	b.mu.RUnlock()

	for _, d := range drivers {
		d.Settle()
	}
}

// MarkVisible opens the visibility gate shared by StartOnView counters. It
// returns false if the board was already visible.
func (b *Board) MarkVisible() bool {
	if !b.latch.Fire() {
		return false
	}
	b.logger.Info().Msg("board visible, starting gated counters")
	b.dirty.Store(true)
	return true
}

// Visible reports whether MarkVisible has been called.
func (b *Board) Visible() bool {
	return b.latch.Fired()
}

// Names returns counter names in insertion order.
func (b *Board) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Spec returns the spec a counter was added with.
func (b *Board) Spec(name string) (CounterSpec, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.counters[name]
	if !ok {
		return CounterSpec{}, false
	}
	return e.spec, true
}

// RecordError increments the error count and stores the last error message.
func (b *Board) RecordError(err error) {
	b.errorCount.Add(1)
	if err != nil {
		b.lastError.Store(err.Error())
	}
	b.dirty.Store(true)
}

// AddLog appends a log entry to the ring buffer.
func (b *Board) AddLog(entry LogEntry) {
	b.logMu.Lock()
	defer b.logMu.Unlock()
	if len(b.logs) >= b.logCap {
		// Drop the oldest quarter.
		n := b.logCap / 4
		copy(b.logs, b.logs[n:])
		b.logs = b.logs[:len(b.logs)-n]
	}
	b.logs = append(b.logs, entry)
}

// Logs returns a copy of recent log entries.
func (b *Board) Logs() []LogEntry {
	b.logMu.Lock()
	defer b.logMu.Unlock()
	out := make([]LogEntry, len(b.logs))
	copy(out, b.logs)
	return out
}

// Snapshot returns the current board state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := b.clock.Now()
	counters := make([]CounterState, 0, len(b.order))
	running := 0
	for _, name := range b.order {
		e := b.counters[name]
		f := e.driver.Frame()
		isRunning := e.driver.Running()
		if isRunning {
			running++
		}
		counters = append(counters, CounterState{
			Name:     name,
			Label:    e.spec.Label,
			Display:  f.Display,
			Value:    f.Value,
			Target:   e.driver.Target(),
			Progress: f.RawProgress,
			Easing:   e.driver.Easing().String(),
			Running:  isRunning,
			Palette:  e.spec.Palette,

			Decimals:  e.spec.Decimals,
			Prefix:    e.spec.Prefix,
			Suffix:    e.spec.Suffix,
			UseLocale: e.spec.UseLocale,
		})
	}

	var lastErr string
	if v := b.lastError.Load(); v != nil {
		lastErr = v.(string)
	}

	return Snapshot{
		Timestamp:  now,
		Visible:    b.latch.Fired(),
		ElapsedSec: now.Sub(b.startedAt).Seconds(),
		Counters:   counters,
		Running:    running,
		ErrorCount: int(b.errorCount.Load()),
		LastError:  lastErr,
	}
}

// Subscribe returns a channel that receives a Snapshot whenever the board
// changes.
func (b *Board) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 4)
	b.subMu.Lock()
	b.subscribers[ch] = struct{}{}
	b.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel.
func (b *Board) Unsubscribe(ch chan Snapshot) {
	b.subMu.Lock()
	delete(b.subscribers, ch)
	b.subMu.Unlock()
}

// Close disposes every counter and stops the broadcast loop. It is safe to
// call more than once.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	entries := make([]*entry, 0, len(b.counters))
	for _, e := range b.counters {
		entries = append(entries, e)
	}
	b.mu.Unlock()

	for _, e := range entries {
		e.driver.Dispose()
	}
	close(b.done)
}

// Flush broadcasts a snapshot now if anything changed since the last one.
func (b *Board) Flush() bool {
	if !b.dirty.Swap(false) {
		return false
	}
	snap := b.Snapshot()
	b.subMu.Lock()
	for ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			// Subscriber too slow, skip.
		}
	}
	b.subMu.Unlock()
	return true
}

func (b *Board) broadcastLoop() {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
