package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jfoltran/uiregistry/internal/board"
)

type counterHandlers struct {
	board *board.Board
}

type targetRequest struct {
	Value *float64 `json:"value"`
}

func (ch *counterHandlers) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ch.board.Snapshot())
}

func (ch *counterHandlers) get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	c, ok := ch.board.Snapshot().Counter(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Counter %q not found", name))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (ch *counterHandlers) setTarget(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req targetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}

	err := ch.board.SetTarget(name, *req.Value)
	switch {
	case errors.Is(err, board.ErrUnknownCounter):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Counter %q not found", name))
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"name": name, "target": *req.Value})
}

func (ch *counterHandlers) visible(w http.ResponseWriter, r *http.Request) {
	changed := ch.board.MarkVisible()
	writeJSON(w, http.StatusOK, map[string]bool{"visible": true, "changed": changed})
}

func (ch *counterHandlers) logs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ch.board.Logs())
}
