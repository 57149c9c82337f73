package server

import (
	"encoding/json"
	"net/http"
	"time"
)

var availableEndpoints = []string{
	"GET /health",
	"GET /r/index.json",
	"GET /r/styles/:style/:component.json",
	"GET /r/registry/*",
	"GET /r/colors/:base/:name.json",
	"GET /api/v1/counters",
	"GET /api/v1/counters/:name",
	"POST /api/v1/counters/:name/target",
	"POST /api/v1/visible",
	"GET /api/v1/logs",
	"GET /api/v1/ws",
}

type errorBody struct {
	Error              string   `json:"error"`
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "Component Registry Server",
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found", AvailableEndpoints: availableEndpoints})
}

// withCORS allows any origin and answers preflight requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
