package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/times"
)

func newAdjustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Show or set per-prayer minute adjustments",
		Long:  "Fine-tune individual prayer times by a signed number of minutes (±30). An adjustment that would push a prayer past its neighbor is rejected.",
		RunE:  runAdjustShow,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <prayer> <minutes>",
		Short: "Set an adjustment",
		Long:  "Set a signed minute offset for one prayer.\n\nExamples:\n  athan adjust set fajr -5\n  athan adjust set isha +10",
		Args:  cobra.ExactArgs(2),
		RunE:  runAdjustSet,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [prayer]",
		Short: "Clear one or all adjustments",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAdjustClear,
	})

	return cmd
}

type adjustedEntry struct {
	name    string
	minutes int
}

func adjustedEntries(adj times.Adjustments) []adjustedEntry {
	var out []adjustedEntry
	for _, p := range times.AllPrayers {
		if adj[p] != 0 {
			out = append(out, adjustedEntry{name: p.String(), minutes: adj[p]})
		}
	}
	return out
}

func runAdjustShow(cmd *cobra.Command, args []string) error {
	adj := settingsStore.Adjustments()
	if !adj.IsAdjusted() {
		fmt.Println("No adjustments set.")
		return nil
	}
	for _, e := range adjustedEntries(adj) {
		fmt.Printf("  %-8s %+dm\n", e.name, e.minutes)
	}
	return nil
}

func runAdjustSet(cmd *cobra.Command, args []string) error {
	p, err := times.ParsePrayer(args[0])
	if err != nil {
		return err
	}
	minutes, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid minutes %q: %w", args[1], err)
	}

	// Validate against today's actual times before persisting: the offset
	// must not reorder the schedule.
	zone, err := effectiveZone()
	if err != nil {
		return err
	}
	coord, _, err := resolveCoordinate(cmd.Context())
	if err != nil {
		return err
	}
	candidate := settingsStore.Adjustments()
	candidate[p] = minutes

	m, err := effectiveMethod(cmd)
	if err != nil {
		return err
	}
	madhab, err := effectiveMadhab(cmd)
	if err != nil {
		return err
	}
	opts, err := effectiveOptions(cmd)
	if err != nil {
		return err
	}
	if _, err := times.Build(time.Now().In(zone), coord, m, madhab, candidate, opts); err != nil {
		return fmt.Errorf("adjustment rejected: %w", err)
	}

	if err := settingsStore.SetAdjustment(p, minutes); err != nil {
		return err
	}
	fmt.Printf("Set %s adjustment to %+dm\n", p, minutes)
	return nil
}

func runAdjustClear(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		p, err := times.ParsePrayer(args[0])
		if err != nil {
			return err
		}
		if err := settingsStore.SetAdjustment(p, 0); err != nil {
			return err
		}
		fmt.Printf("Cleared %s adjustment\n", p)
		return nil
	}

	if err := settingsStore.ClearAdjustments(); err != nil {
		return err
	}
	fmt.Println("Cleared all adjustments")
	return nil
}
