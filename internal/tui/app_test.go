package tui

import (
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/counter/countertest"
	"github.com/jfoltran/uiregistry/internal/demo"
)

func newModel(t *testing.T) (Model, *board.Board, *countertest.Clock, *countertest.Scheduler) {
	t.Helper()
	clock := countertest.NewClock()
	sched := countertest.NewScheduler()
	b := board.New(zerolog.Nop(), board.Options{Clock: clock, Scheduler: sched, BroadcastInterval: time.Hour})
	t.Cleanup(b.Close)
	for _, spec := range demo.Counters() {
		if err := b.Add(spec); err != nil {
			t.Fatal(err)
		}
	}
	return NewModel(b, "test board"), b, clock, sched
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_WindowSizeStartsCounters(t *testing.T) {
	m, b, clock, sched := newModel(t)

	if b.Visible() {
		t.Fatal("board visible before the dashboard is shown")
	}
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View() before size = %q", got)
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	if !b.Visible() {
		t.Fatal("WindowSizeMsg did not mark the board visible")
	}

	sched.RunUntilIdle(clock, 16*time.Millisecond, 1000)
	m, _ = update(t, m, snapshotMsg(b.Snapshot()))

	view := m.View()
	for _, want := range []string{"test board", "$12,500", "98.5%", "4,280", "156+", "Revenue", "VISIBLE"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_Selection(t *testing.T) {
	m, _, _, _ := newModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.selected != 3 {
		t.Errorf("selected after left = %d, want 3", m.selected)
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.selected != 0 {
		t.Errorf("selected after tab = %d, want 0", m.selected)
	}
}

func TestModel_RetargetAndSettle(t *testing.T) {
	m, b, _, _ := newModel(t)
	m.rng = rand.New(rand.NewSource(1))
	b.MarkVisible()

	before, _ := b.Snapshot().Counter("revenue")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	after, _ := b.Snapshot().Counter("revenue")
	if after.Target == before.Target {
		t.Errorf("target unchanged at %v after r", after.Target)
	}
	if after.Target < 6250 || after.Target > 18750 {
		t.Errorf("new target %v outside [6250, 18750]", after.Target)
	}

	update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	if snap := b.Snapshot(); snap.Running != 0 {
		t.Errorf("Running = %d after settle, want 0", snap.Running)
	}
}

func TestModel_Quit(t *testing.T) {
	m, _, _, _ := newModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestModel_SnapshotRecordsHistory(t *testing.T) {
	m, b, _, _ := newModel(t)
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, snapshotMsg(b.Snapshot()))
	}
	if h := m.history["users"]; h == nil || h.Len() != 3 {
		t.Errorf("users history = %v, want 3 values", h)
	}
}

func TestRandomTarget(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		v := RandomTarget(98.5, 1, r)
		if v < 49.2 || v > 147.8 {
			t.Fatalf("RandomTarget(98.5) = %v, out of range", v)
		}
		if math.Abs(v*10-math.Round(v*10)) > 1e-6 {
			t.Fatalf("RandomTarget(98.5, 1) = %v has more than one decimal", v)
		}
	}
	if v := RandomTarget(0, 0, r); v < 5 || v > 15 {
		t.Errorf("RandomTarget(0) = %v, want within [5, 15]", v)
	}
}
