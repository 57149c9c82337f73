package main

import (
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/demo"
	"github.com/jfoltran/uiregistry/internal/publish"
	"github.com/jfoltran/uiregistry/internal/registry"
	"github.com/jfoltran/uiregistry/internal/server"
)

var (
	servePort      int
	servePublicDir string
	serveSourceDir string
	serveWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry and counter board server",
	Long: `Serve starts the HTTP server for the component registry, the counter
board API and the WebSocket feed used by the landing page. Without
--public-dir and --source-dir the embedded demo registry is served.
Gated counters start when the first viewer connects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Server.Port = servePort
		}
		if flags.Changed("public-dir") {
			cfg.Registry.PublicDir = servePublicDir
		}
		if flags.Changed("source-dir") {
			cfg.Registry.SourceDir = serveSourceDir
		}
		if flags.Changed("watch") {
			cfg.Registry.Watch = serveWatch
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b, err := newBoard()
		if err != nil {
			return err
		}
		defer b.Close()
		log := b.Logger()

		persister, err := board.NewStatePersister(b, log, cfg.Board.StateFile)
		if err != nil {
			return err
		}
		persister.Start()
		defer persister.Stop()

		catalog := newCatalog(log)
		g, gctx := errgroup.WithContext(ctx)

		if cfg.Registry.Watch {
			w, err := registry.NewWatcher(catalog, log, cfg.Registry.PublicDir, cfg.Registry.SourceDir)
			if err != nil {
				return err
			}
			g.Go(func() error { return w.Run(gctx) })
		}

		if cfg.MQTT.URL != "" {
			opts := publish.Options{
				URL:      cfg.MQTT.URL,
				ClientID: cfg.MQTT.ClientID,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
				Topic:    cfg.MQTT.Topic,
				QoS:      byte(cfg.MQTT.QoS),
				Interval: millis(cfg.MQTT.IntervalMs),
			}
			client, err := publish.Connect(opts, log)
			if err != nil {
				return err
			}
			defer client.Disconnect(250)
			pub := publish.New(client, b, opts, log)
			g.Go(func() error { return pub.Run(gctx) })
		}

		srv := server.New(b, catalog, log)
		g.Go(func() error { return srv.Start(gctx, cfg.Addr()) })

		return g.Wait()
	},
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&servePort, "port", 3001, "HTTP server port")
	f.StringVar(&servePublicDir, "public-dir", "", "Directory holding the built registry (r/index.json, r/styles, r/colors)")
	f.StringVar(&serveSourceDir, "source-dir", "", "Directory holding registry.json and component sources")
	f.BoolVar(&serveWatch, "watch", false, "Reload registry files when they change on disk")
	rootCmd.AddCommand(serveCmd)
}

// newBoard creates the board with the configured counters, resuming from
// the last persisted values when enabled.
func newBoard() (*board.Board, error) {
	b := board.New(logger, board.Options{
		FPS:               cfg.Board.FPS,
		BroadcastInterval: millis(cfg.Board.BroadcastMs),
		LogOutput:         logOutput,
	})

	specs := cfg.CounterSpecs()
	if cfg.Board.Resume {
		if snap, err := board.ReadStateFile(cfg.Board.StateFile); err == nil {
			specs = board.Resume(specs, snap)
			log := b.Logger()
			log.Info().Time("saved_at", snap.Timestamp).Msg("resuming counters from state file")
		}
	}
	for _, spec := range specs {
		if err := b.Add(spec); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func newCatalog(log zerolog.Logger) *registry.Catalog {
	var public, source fs.FS
	if cfg.Registry.PublicDir != "" {
		public = os.DirFS(cfg.Registry.PublicDir)
		source = os.DirFS(cfg.Registry.SourceDir)
		log.Info().
			Str("public_dir", cfg.Registry.PublicDir).
			Str("source_dir", cfg.Registry.SourceDir).
			Msg("serving registry from disk")
	} else {
		public = demo.Public()
		source = demo.Source()
		log.Info().Msg("serving embedded demo registry")
	}
	return registry.NewCatalog(public, source, log)
}

