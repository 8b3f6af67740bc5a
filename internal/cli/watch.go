package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/display"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the current prayer period",
		Long:  "Continuously redraw a one-line period summary with countdown and progress. The refresh rate tightens during the urgent closing window. Ctrl-C to exit.",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	zone, err := effectiveZone()
	if err != nil {
		return err
	}
	coord, _, err := resolveCoordinate(cmd.Context())
	if err != nil {
		return err
	}
	engine, err := effectiveEngine()
	if err != nil {
		return err
	}
	layout := goTimeFormat(cmd)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	now := time.Now().In(zone)
	today, err := buildDay(cmd, now, coord)
	if err != nil {
		return err
	}
	tomorrow, err := buildDay(cmd, now.AddDate(0, 0, 1), coord)
	if err != nil {
		return err
	}

	for {
		now = time.Now().In(zone)
		p := engine.Advance(today, tomorrow, now)
		if p.NeedsRebuild {
			today, err = buildDay(cmd, now, coord)
			if err != nil {
				return err
			}
			tomorrow, err = buildDay(cmd, now.AddDate(0, 0, 1), coord)
			if err != nil {
				return err
			}
			p = engine.Advance(today, tomorrow, now)
			if p.NeedsRebuild {
				// Solar midnight can precede civil midnight, so the
				// rebuilt civil day may already be over. Roll forward.
				dayAfter, err := buildDay(cmd, now.AddDate(0, 0, 2), coord)
				if err != nil {
					return err
				}
				today, tomorrow = tomorrow, dayAfter
				p = engine.Advance(today, tomorrow, now)
			}
		}

		// \r redraw keeps the line in place; pad to clear leftovers.
		fmt.Printf("\r%-80s", display.PeriodLine(p, layout, now))

		interval := loadedConfig.Tick.Interval
		if p.Urgent {
			interval = loadedConfig.Tick.UrgentInterval
		}

		select {
		case <-stop:
			fmt.Println()
			return nil
		case <-cmd.Context().Done():
			fmt.Println()
			return nil
		case <-time.After(interval):
		}
	}
}
