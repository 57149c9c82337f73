package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/jfoltran/uiregistry/internal/counter"
	"github.com/jfoltran/uiregistry/internal/easing"
)

var (
	countFrom     float64
	countDuration time.Duration
	countEasing   string
	countDecimals int
	countPrefix   string
	countSuffix   string
	countGroup    bool
	countLocale   string
	countFPS      int
)

var countCmd = &cobra.Command{
	Use:   "count VALUE",
	Short: "Animate a single number in the terminal",
	Long: `Count animates from --from to VALUE on one terminal line, rewriting it
on every frame, and prints the final formatted value.`,
	Example: `  uiregistry count 12500 --prefix '$'
  uiregistry count 98.5 --decimals 1 --suffix % --easing spring
  uiregistry count 1234567 --locale de`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[0], err)
		}
		kind, err := easing.Parse(countEasing)
		if err != nil {
			return err
		}
		tag, err := language.Parse(countLocale)
		if err != nil {
			return fmt.Errorf("invalid locale %q: %w", countLocale, err)
		}

		return runCount(cmd.OutOrStdout(), counter.Request{
			Start:    countFrom,
			Target:   target,
			Duration: countDuration,
			Easing:   kind,
			Format: counter.Format{
				Decimals:  countDecimals,
				Prefix:    countPrefix,
				Suffix:    countSuffix,
				UseLocale: countGroup,
				Locale:    tag,
			},
		}, countFPS)
	},
}

func init() {
	f := countCmd.Flags()
	f.Float64Var(&countFrom, "from", 0, "Start value")
	f.DurationVar(&countDuration, "duration", counter.DefaultDuration, "Animation length (0 jumps to the value)")
	f.StringVar(&countEasing, "easing", "easeOut", "Easing curve (linear, easeOut, easeInOut, spring)")
	f.IntVar(&countDecimals, "decimals", 0, "Decimal places")
	f.StringVar(&countPrefix, "prefix", "", "Text shown before the number")
	f.StringVar(&countSuffix, "suffix", "", "Text shown after the number")
	f.BoolVar(&countGroup, "group", true, "Group digits by locale")
	f.StringVar(&countLocale, "locale", "en", "Locale for digit grouping (BCP 47 tag)")
	f.IntVar(&countFPS, "fps", counter.DefaultFPS, "Frames per second")
	rootCmd.AddCommand(countCmd)
}

func runCount(out io.Writer, req counter.Request, fps int) error {
	if err := req.Validate(); err != nil {
		return err
	}

	done := make(chan counter.Frame, 1)
	d, err := counter.New(counter.Options{
		Initial:   req.Start,
		Format:    req.Format,
		Scheduler: counter.NewTickScheduler(fps),
		OnFrame: func(f counter.Frame) {
			fmt.Fprintf(out, "\r%s\x1b[K", f.Display)
		},
		OnSettle: func(f counter.Frame) {
			select {
			case done <- f:
			default:
			}
		},
		Logger: &logger,
	})
	if err != nil {
		return err
	}
	defer d.Dispose()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	if err := d.Start(req); err != nil {
		return err
	}

	select {
	case f := <-done:
		fmt.Fprintf(out, "\r%s\x1b[K\n", f.Display)
	case <-interrupt:
		d.Settle()
		fmt.Fprintf(out, "\r%s\x1b[K\n", d.Display())
	}
	return nil
}
