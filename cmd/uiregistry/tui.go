package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/tui"
)

var (
	tuiAPIAddr string
	tuiTitle   string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch terminal counter dashboard",
	Long: `TUI starts a Bubble Tea dashboard that animates the configured counter
board in the terminal. With --api-addr it follows the counters of a
running uiregistry server, animating towards each new remote target.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		// The dashboard owns the screen, so logs only go to the board.
		logOutput = io.Discard

		b, err := newBoard()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if tuiAPIAddr != "" {
			go pollRemote(ctx, strings.TrimRight(tuiAPIAddr, "/"), b)
		}

		return tui.Run(b, tuiTitle)
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiAPIAddr, "api-addr", "", `Follow a running server (e.g. "http://localhost:3001")`)
	tuiCmd.Flags().StringVar(&tuiTitle, "title", "uiregistry", "Dashboard title")
	rootCmd.AddCommand(tuiCmd)
}

func pollRemote(ctx context.Context, addr string, b *board.Board) {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	log := b.Logger().With().Str("component", "remote").Str("addr", addr).Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := fetchCounters(ctx, client, addr)
			if err != nil {
				b.RecordError(fmt.Errorf("api fetch: %w", err))
				continue
			}
			if err := syncBoard(b, snap); err != nil {
				log.Warn().Err(err).Msg("sync remote counters")
			}
		}
	}
}

func fetchCounters(ctx context.Context, client *http.Client, addr string) (*board.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/v1/counters", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var snap board.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// syncBoard re-targets local counters to the remote targets. Counters the
// local board does not know are added with the remote format, starting
// from the remote value.
func syncBoard(b *board.Board, remote *board.Snapshot) error {
	local := b.Snapshot()
	for _, rc := range remote.Counters {
		lc, ok := local.Counter(rc.Name)
		if !ok {
			err := b.Add(board.CounterSpec{
				Name:      rc.Name,
				Label:     rc.Label,
				Initial:   rc.Value,
				Target:    rc.Target,
				Easing:    rc.Easing,
				Decimals:  rc.Decimals,
				Prefix:    rc.Prefix,
				Suffix:    rc.Suffix,
				UseLocale: rc.UseLocale,
				Palette:   rc.Palette,
			})
			if err != nil {
				return err
			}
			continue
		}
		if lc.Target != rc.Target {
			if err := b.SetTarget(rc.Name, rc.Target); err != nil {
				return err
			}
		}
	}
	if remote.Visible {
		b.MarkVisible()
	}
	return nil
}
