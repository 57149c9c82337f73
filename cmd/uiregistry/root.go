package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jfoltran/uiregistry/internal/config"
)

var (
	cfg        config.Config
	logger     zerolog.Logger
	logOutput  io.Writer
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "uiregistry",
	Short: "Component registry server and animated counter board",
	Long: `uiregistry serves a shadcn-style component registry over HTTP and drives
a board of animated number counters. The board is rendered by the web
landing page over WebSocket, by the terminal dashboard, and optionally
mirrored to an MQTT broker.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		switch cfg.Logging.Format {
		case "json":
			logOutput = os.Stdout
		default:
			logOutput = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		logger = zerolog.New(logOutput).With().Timestamp().Logger()

		level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
		if err != nil {
			level = zerolog.InfoLevel
		}
		logger = logger.Level(level)

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()

	f.StringVar(&configPath, "config", "", "Config file (default ~/.uiregistry/config.toml)")

	// Logging flags.
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
