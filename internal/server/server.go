package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/registry"
)

// Server serves the component registry, the counter board REST API and the
// board WebSocket stream.
type Server struct {
	board   *board.Board
	catalog *registry.Catalog
	logger  zerolog.Logger
	hub     *Hub
	srv     *http.Server
}

// New creates a new Server.
func New(b *board.Board, catalog *registry.Catalog, logger zerolog.Logger) *Server {
	return &Server{
		board:   b,
		catalog: catalog,
		logger:  logger.With().Str("component", "http-server").Logger(),
		hub:     newHub(b, logger),
	}
}

// Handler returns the routed handler wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	rh := &registryHandlers{catalog: s.catalog}
	ch := &counterHandlers{board: s.board}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", health)
	mux.HandleFunc("GET /health", health)

	// Registry routes.
	mux.HandleFunc("GET /r/index.json", rh.index)
	mux.HandleFunc("GET /r/styles/{style}/{file}", rh.manifest)
	mux.HandleFunc("GET /r/registry/{path...}", rh.source)
	mux.HandleFunc("GET /r/colors/{base}/{file}", rh.colors)

	// Board API.
	mux.HandleFunc("GET /api/v1/counters", ch.list)
	mux.HandleFunc("GET /api/v1/counters/{name}", ch.get)
	mux.HandleFunc("POST /api/v1/counters/{name}/target", ch.setTarget)
	mux.HandleFunc("POST /api/v1/visible", ch.visible)
	mux.HandleFunc("GET /api/v1/logs", ch.logs)
	mux.HandleFunc("/api/v1/ws", s.hub.handleWS)

	mux.HandleFunc("/", notFound)

	return withCORS(mux)
}

// Start begins serving on addr. It blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	// Start WebSocket hub.
	go s.hub.start(ctx)

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// StartBackground starts the server in a goroutine (non-blocking).
func (s *Server) StartBackground(ctx context.Context, addr string) {
	go func() {
		if err := s.Start(ctx, addr); err != nil {
			s.logger.Err(err).Msg("http server error")
		}
	}()
}
