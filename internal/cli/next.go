package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/period"
)

var flagFormat string

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer with countdown",
		Long:  "Print the next upcoming prayer boundary, formatted for a status bar (tmux, waybar, polybar).",
		RunE:  runNext,
	}

	cmd.Flags().StringVar(&flagFormat, "format", period.FormatFull, "Display format: time-remaining, next-prayer-time, name-and-time, name-and-remaining, short-name-and-time, short-name-and-remaining, full, or a custom Go template")

	return cmd
}

func runNext(cmd *cobra.Command, args []string) error {
	zone, err := effectiveZone()
	if err != nil {
		return err
	}
	now := time.Now().In(zone)

	coord, _, err := resolveCoordinate(cmd.Context())
	if err != nil {
		return err
	}

	today, err := buildDay(cmd, now, coord)
	if err != nil {
		return err
	}

	next := today.NextAfter(now)
	if next == nil {
		// Today's boundaries have all passed; roll to tomorrow's first.
		tomorrow, err := buildDay(cmd, now.AddDate(0, 0, 1), coord)
		if err != nil {
			return err
		}
		if entries := tomorrow.Ordered(); len(entries) > 0 {
			e := entries[0]
			next = &e
		}
	}
	if next == nil {
		return fmt.Errorf("could not determine the next prayer boundary")
	}

	fmt.Print(period.FormatNext(*next, now, flagFormat, goTimeFormat(cmd)))
	return nil
}
