package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfoltran/uiregistry/internal/board"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last persisted counter board",
	Long:  `Status prints the counter board last written to the state file by serve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := board.ReadStateFile(cfg.Board.StateFile)
		if err != nil {
			fmt.Println("No board state found. Is the server running?")
			fmt.Printf("  (error: %v)\n", err)
			return nil
		}

		age := time.Since(snap.Timestamp)
		stale := ""
		if age > 10*time.Second {
			stale = fmt.Sprintf(" (stale, %s ago)", age.Truncate(time.Second))
		}

		visible := "waiting for viewer"
		if snap.Visible {
			visible = "visible"
		}
		fmt.Printf("Board:      %s%s\n", visible, stale)
		fmt.Printf("Elapsed:    %.0fs\n", snap.ElapsedSec)
		fmt.Printf("Animating:  %d/%d\n", snap.Running, len(snap.Counters))

		if snap.ErrorCount > 0 {
			fmt.Printf("Errors:     %d (last: %s)\n", snap.ErrorCount, snap.LastError)
		}

		if len(snap.Counters) > 0 {
			fmt.Println("\nCounters:")
			for _, c := range snap.Counters {
				fmt.Printf("  %-14s %16s  → %-12g %5.1f%%  %s\n",
					c.Name, c.Display, c.Target, c.Progress*100, c.Easing)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
