package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/display"
	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today [date]",
		Short: "Show the prayer schedule for today or a given date",
		Long:  "Display the full prayer schedule. An optional YYYY-MM-DD argument shows another date.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runToday,
	}
}

func runToday(cmd *cobra.Command, args []string) error {
	zone, err := effectiveZone()
	if err != nil {
		return err
	}
	now := time.Now().In(zone)

	date := now
	explicit := false
	if len(args) == 1 {
		date, err = time.ParseInLocation("2006-01-02", args[0], zone)
		if err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
		}
		explicit = true
	}

	coord, place, err := resolveCoordinate(cmd.Context())
	if err != nil {
		return err
	}

	day, err := buildDay(cmd, date, coord)
	if err != nil {
		return err
	}

	layout := goTimeFormat(cmd)

	if FlagJSON {
		return printTodayJSON(day, place, layout)
	}

	printTodayRich(cmd, day, place, now, layout, explicit)
	return nil
}

func printTodayRich(cmd *cobra.Command, day *times.Day, place string, now time.Time, layout string, explicitDate bool) {
	fmt.Println()
	fmt.Printf("  %s\n", display.Bold("Prayer Times"))
	fmt.Println()

	if place != "" {
		fmt.Printf("  %s\n", place)
	} else {
		fmt.Printf("  %.4f, %.4f\n", day.Coord.Latitude, day.Coord.Longitude)
	}
	fmt.Printf("  %s\n", day.Date.Format("Mon 02 Jan 2006"))

	h := astro.HijriFromTime(day.Date)
	fmt.Printf("  %s\n", display.Dim(h.String()))
	fmt.Println()

	// Highlight the active window only when showing the actual current day.
	current := times.Prayer(-1)
	urgent := false
	if !explicitDate {
		current, urgent = activeWindow(cmd, day, now)
	}

	fmt.Print(display.DayTable(day, layout, current, urgent))
	fmt.Println()
	if lines := display.NightLines(day, layout); lines != "" {
		fmt.Print(lines)
		fmt.Println()
	}
}

// activeWindow resolves the prayer whose window holds now, and its urgency.
// The next day is built as well: with a fajr day boundary the Isha window
// runs past solar midnight to the next Fajr.
func activeWindow(cmd *cobra.Command, day *times.Day, now time.Time) (times.Prayer, bool) {
	engine, err := effectiveEngine()
	if err != nil {
		return times.Prayer(-1), false
	}
	tomorrow, _ := buildDay(cmd, day.Date.AddDate(0, 0, 1), day.Coord)
	if p := engine.Advance(day, tomorrow, now); p.State == period.InWindow {
		return p.Current, p.Urgent
	}
	return times.Prayer(-1), false
}

// todayJSON is the JSON output structure for the today command.
type todayJSON struct {
	Date        string            `json:"date"`
	Hijri       string            `json:"hijri"`
	Location    string            `json:"location,omitempty"`
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	Method      string            `json:"method"`
	Madhab      string            `json:"madhab"`
	Times       map[string]string `json:"times"`
	Midnight    string            `json:"midnight,omitempty"`
	LastThird   string            `json:"last_third,omitempty"`
	Suhoor      string            `json:"suhoor,omitempty"`
	Iftar       string            `json:"iftar,omitempty"`
	Adjustments map[string]int    `json:"adjustments,omitempty"`
}

func printTodayJSON(day *times.Day, place, layout string) error {
	out := todayJSON{
		Date:      day.Date.Format("2006-01-02"),
		Hijri:     astro.HijriFromTime(day.Date).String(),
		Location:  place,
		Latitude:  day.Coord.Latitude,
		Longitude: day.Coord.Longitude,
		Method:    day.MethodID,
		Madhab:    day.Madhab.String(),
		Times:     map[string]string{},
	}
	for _, p := range times.AllPrayers {
		if t, ok := day.At(p); ok {
			out.Times[p.String()] = t.Format(layout)
		}
	}
	if !day.Midnight.IsZero() {
		out.Midnight = day.Midnight.Format(layout)
	}
	if !day.LastThird.IsZero() {
		out.LastThird = day.LastThird.Format(layout)
	}
	if !day.Suhoor.IsZero() {
		out.Suhoor = day.Suhoor.Format(layout)
		out.Iftar = day.Iftar.Format(layout)
	}
	if day.Adjustments.IsAdjusted() {
		out.Adjustments = map[string]int{}
		for _, p := range times.AllPrayers {
			if m := day.Adjustments[p]; m != 0 {
				out.Adjustments[p.String()] = m
			}
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
