package board

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	stateDir  = ".uiregistry"
	stateFile = "state.json"
)

// DefaultStatePath returns ~/.uiregistry/state.json.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, stateDir, stateFile), nil
}

// StatePersister periodically writes the board Snapshot to a JSON file so
// `uiregistry status` can read it and the next `serve` can resume from the
// last displayed values.
type StatePersister struct {
	board    *Board
	logger   zerolog.Logger
	path     string
	interval time.Duration
	done     chan struct{}
}

// NewStatePersister writes to path, or DefaultStatePath when path is empty.
func NewStatePersister(b *Board, logger zerolog.Logger, path string) (*StatePersister, error) {
	if path == "" {
		var err error
		if path, err = DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &StatePersister{
		board:    b,
		logger:   logger.With().Str("component", "state-persister").Logger(),
		path:     path,
		interval: 2 * time.Second,
		done:     make(chan struct{}),
	}, nil
}

// Start begins periodic writes.
func (sp *StatePersister) Start() {
	go sp.loop()
}

// Stop halts the persister and writes a final snapshot.
func (sp *StatePersister) Stop() {
	select {
	case <-sp.done:
	default:
		close(sp.done)
	}
	sp.write()
}

func (sp *StatePersister) Path() string {
	return sp.path
}

func (sp *StatePersister) loop() {
	ticker := time.NewTicker(sp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-sp.done:
			return
		case <-ticker.C:
			sp.write()
		}
	}
}

func (sp *StatePersister) write() {
	data, err := json.MarshalIndent(sp.board.Snapshot(), "", "  ")
	if err != nil {
		sp.logger.Err(err).Msg("marshal state")
		return
	}
	tmp := sp.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		sp.logger.Err(err).Msg("write state file")
		return
	}
	if err := os.Rename(tmp, sp.path); err != nil {
		sp.logger.Err(err).Msg("rename state file")
	}
}

// ReadStateFile reads a persisted Snapshot from path, or DefaultStatePath
// when path is empty.
func ReadStateFile(path string) (*Snapshot, error) {
	if path == "" {
		var err error
		if path, err = DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Resume copies the last displayed value of each counter in snap into the
// matching spec's Initial, so animations continue where they stopped.
// Counters that had already settled on their configured target keep their
// Initial and animate again.
func Resume(specs []CounterSpec, snap *Snapshot) []CounterSpec {
	out := make([]CounterSpec, len(specs))
	copy(out, specs)
	if snap == nil {
		return out
	}
	for i := range out {
		if c, ok := snap.Counter(out[i].Name); ok && c.Value != out[i].Target {
			out[i].Initial = c.Value
		}
	}
	return out
}
