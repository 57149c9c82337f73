package tui

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/demo"
	"github.com/jfoltran/uiregistry/internal/tui/components"
)

// snapshotMsg carries a new board snapshot into the Bubble Tea update loop.
type snapshotMsg board.Snapshot

// Model is the Bubble Tea model for the counter board dashboard.
type Model struct {
	board    *board.Board
	sub      chan board.Snapshot
	snapshot board.Snapshot
	history  map[string]*components.History
	palettes map[string]components.Palette
	rng      *rand.Rand
	title    string
	selected int

	width  int
	height int
	ready  bool
}

// NewModel creates a model subscribed to b.
func NewModel(b *board.Board, title string) Model {
	if title == "" {
		title = "uiregistry"
	}
	return Model{
		board:    b,
		sub:      b.Subscribe(),
		snapshot: b.Snapshot(),
		history:  make(map[string]*components.History),
		palettes: make(map[string]components.Palette),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		title:    title,
	}
}

// Init starts listening for board updates.
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.sub)
}

func waitForSnapshot(sub chan board.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.board.Unsubscribe(m.sub)
			return m, tea.Quit
		case "right", "l", "tab":
			m.selected = m.wrap(m.selected + 1)
		case "left", "h", "shift+tab":
			m.selected = m.wrap(m.selected - 1)
		case "r":
			m.retarget(m.selected)
		case "R":
			for i := range m.snapshot.Counters {
				m.retarget(i)
			}
		case "s":
			m.board.Settle()
		case "v":
			m.board.MarkVisible()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		// Once the dashboard is on screen, the counters are in view.
		m.board.MarkVisible()

	case snapshotMsg:
		m.snapshot = board.Snapshot(msg)
		for _, c := range m.snapshot.Counters {
			h, ok := m.history[c.Name]
			if !ok {
				h = components.NewHistory(120)
				m.history[c.Name] = h
			}
			h.Push(c.Value)
		}
		m.selected = m.wrap(m.selected)
		return m, waitForSnapshot(m.sub)
	}

	return m, nil
}

func (m Model) wrap(i int) int {
	n := len(m.snapshot.Counters)
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

func (m Model) retarget(i int) {
	if i < 0 || i >= len(m.snapshot.Counters) {
		return
	}
	c := m.snapshot.Counters[i]
	decimals := 0
	if spec, ok := m.board.Spec(c.Name); ok {
		decimals = spec.Decimals
	}
	if err := m.board.SetTarget(c.Name, RandomTarget(c.Target, decimals, m.rng)); err != nil {
		m.board.RecordError(err)
	}
}

func (m Model) palette(name string) components.Palette {
	if p, ok := m.palettes[name]; ok {
		return p
	}
	p, err := components.ParsePalette(demo.Palette(name))
	if err != nil {
		p, _ = components.ParsePalette(demo.Palettes[demo.DefaultPalette])
	}
	m.palettes[name] = p
	return p
}

// RandomTarget picks a new target between half and one and a half times
// the magnitude of current, rounded to decimals.
func RandomTarget(current float64, decimals int, r *rand.Rand) float64 {
	base := math.Max(math.Abs(current), 10)
	v := base * (0.5 + r.Float64())
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// View renders the full dashboard.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	w := m.width
	snap := m.snapshot

	var sections []string

	sections = append(sections, titleStyle.Width(w).Render(" "+m.title))
	sections = append(sections, boxStyle.Width(w-2).Render(components.RenderHeader(snap, w-4)))
	sections = append(sections, components.RenderCards(snap, m.palette, m.selected, w))

	if len(snap.Counters) > 0 {
		c := snap.Counters[m.selected]
		h := m.history[c.Name]
		if h == nil {
			h = components.NewHistory(1)
		}
		sections = append(sections, boxStyle.Width(w-2).Render(components.RenderHistory(c, h, m.palette(c.Palette), w-4)))
	}

	logLines := m.height - 22
	if logLines < 3 {
		logLines = 3
	}
	sections = append(sections, boxStyle.Width(w-2).Render(components.RenderLogs(m.board.Logs(), logLines)))

	sections = append(sections, helpStyle.Render("  ←/→: select  r: new target  R: shuffle all  s: settle  v: start  q: quit"))

	return strings.Join(sections, "\n")
}

// Run starts the TUI in fullscreen mode.
func Run(b *board.Board, title string) error {
	p := tea.NewProgram(NewModel(b, title), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
