package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

// Undefined is the placeholder shown for events that do not occur on a date
// (polar conditions with no fallback rule).
const Undefined = "—"

// DayTable renders the day's prayer times as an aligned table. The row for
// current (when >= 0) is highlighted, in the urgent style when the window is
// closing; adjusted prayers carry a marker so a shifted time is never
// mistaken for the computed one.
func DayTable(day *times.Day, layout string, current times.Prayer, urgent bool) string {
	tbl := NewTable([]string{"Prayer", "Time", ""})
	if urgent {
		tbl.SetHighlightStyle(Urgent)
	}

	for i, p := range times.AllPrayers {
		cell := Undefined
		if t, ok := day.At(p); ok {
			cell = t.Format(layout)
		}
		marker := ""
		if m := day.Adjustments[p]; m != 0 {
			marker = fmt.Sprintf("%+dm", m)
		}
		tbl.AddRow([]string{p.String(), cell, marker})
		if p == current {
			tbl.SetHighlightRow(i)
		}
	}

	return tbl.Render()
}

// NightLines formats the night markers (solar midnight, last third) and, in
// Ramadan, the suhoor/iftar times.
func NightLines(day *times.Day, layout string) string {
	var sb strings.Builder
	if !day.Midnight.IsZero() {
		fmt.Fprintf(&sb, "  %s %s\n", Dim("Midnight  "), day.Midnight.Format(layout))
	}
	if !day.LastThird.IsZero() {
		fmt.Fprintf(&sb, "  %s %s\n", Dim("Last third"), day.LastThird.Format(layout))
	}
	if !day.Suhoor.IsZero() {
		fmt.Fprintf(&sb, "  %s %s  %s %s\n",
			Dim("Suhoor ends"), day.Suhoor.Format(layout),
			Dim("Iftar"), day.Iftar.Format(layout))
	}
	return sb.String()
}

// ProgressBar renders a fixed-width bar for a window's elapsed fraction.
func ProgressBar(progress float64, width int) string {
	if width <= 0 {
		width = 20
	}
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filled := int(progress*float64(width) + 0.5)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// PeriodLine renders a one-line summary of the current period, styled by
// state: the active window in green (red when urgent), gaps in the default
// style with the next prayer accented.
func PeriodLine(p period.Period, layout string, now time.Time) string {
	switch p.State {
	case period.InWindow:
		line := fmt.Sprintf("%s until %s (%s left) %s",
			p.Current, p.End.Format(layout),
			period.FormatRemaining(p.Remaining),
			ProgressBar(p.Progress, 20))
		if p.Urgent {
			return Urgent(line)
		}
		return Green(line)
	case period.BeforeFajr, period.BetweenWindows:
		return fmt.Sprintf("next: %s at %s (in %s)",
			Accent(p.Next.String()), p.End.Format(layout),
			period.FormatRemaining(p.Remaining))
	default:
		return Dim("day complete")
	}
}
