package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/board"
)

const (
	viewerQueue  = 8
	writeTimeout = 5 * time.Second
)

// Hub streams board snapshots to WebSocket viewers and applies the
// commands they send back.
type Hub struct {
	board  *board.Board
	logger zerolog.Logger

	mu      sync.Mutex
	viewers map[*viewer]struct{}
}

// viewer is one connected page. Frames are queued and written by the
// viewer's own goroutine, so a slow connection only drops its own frames.
type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// viewerMessage is a command from a page.
//
//	{"type":"visible"}                          open the visibility gate
//	{"type":"target","name":"users","value":5}  re-target a counter
//	{"type":"settle"}                           settle every counter
type viewerMessage struct {
	Type  string   `json:"type"`
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

func newHub(b *board.Board, logger zerolog.Logger) *Hub {
	return &Hub{
		board:   b,
		logger:  logger.With().Str("component", "ws-hub").Logger(),
		viewers: make(map[*viewer]struct{}),
	}
}

func (h *Hub) start(ctx context.Context) {
	ch := h.board.Subscribe()
	defer h.board.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			h.broadcast(snap)
		}
	}
}

// broadcast queues snap for every viewer. Each snapshot carries the full
// board, so a viewer whose queue is full just skips this one.
func (h *Hub) broadcast(snap board.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Err(err).Msg("marshal snapshot")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		v.enqueue(data)
	}
}

func (v *viewer) enqueue(data []byte) bool {
	select {
	case v.send <- data:
		return true
	default:
		return false
	}
}

func (v *viewer) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-v.send:
			wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
			err := v.conn.Write(wctx, websocket.MessageText, data)
			wcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Any origin, like the REST routes.
	})
	if err != nil {
		h.logger.Err(err).Msg("ws accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	v := &viewer{conn: conn, send: make(chan []byte, viewerQueue)}
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	n := len(h.viewers)
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.viewers, v)
		h.mu.Unlock()
	}()
	h.logger.Debug().Int("viewers", n).Msg("viewer connected")

	// A page only connects once the board is on screen.
	if h.board.MarkVisible() {
		h.logger.Info().Msg("first viewer connected")
	}
	if data, err := json.Marshal(h.board.Snapshot()); err == nil {
		v.enqueue(data)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v.writeLoop(ctx, cancel)
	}()
	defer func() { <-done }()
	defer cancel()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := h.apply(data); err != nil {
			h.logger.Warn().Err(err).Msg("viewer command rejected")
			if reply, err := json.Marshal(errorBody{Error: err.Error()}); err == nil {
				v.enqueue(reply)
			}
		}
	}
}

func (h *Hub) apply(data []byte) error {
	var msg viewerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	switch msg.Type {
	case "visible":
		h.board.MarkVisible()
	case "settle":
		h.board.Settle()
	case "target":
		if msg.Value == nil {
			return fmt.Errorf("target for %q: value is required", msg.Name)
		}
		return h.board.SetTarget(msg.Name, *msg.Value)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
