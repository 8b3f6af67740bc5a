// Package period derives the current prayer period from a fixed daily time
// set and a wall-clock instant. The engine is a pure function: it owns no
// timers and no mutable state, so tests drive it with synthetic times.
package period

import (
	"time"

	"github.com/mzahid/athan/internal/times"
)

// DefaultUrgentThreshold is the trailing window before a hard end during
// which the period is flagged urgent.
const DefaultUrgentThreshold = 30 * time.Minute

// DayBoundary selects where the Isha window (and so the prayer day) ends.
type DayBoundary string

const (
	// EndAtMidnight closes Isha at solar midnight (default).
	EndAtMidnight DayBoundary = "midnight"
	// EndAtNextFajr extends Isha to the next day's Fajr.
	EndAtNextFajr DayBoundary = "fajr"
)

// State classifies the instant relative to the day's prayer windows.
type State int

const (
	// BeforeFajr: the day's first window has not started.
	BeforeFajr State = iota
	// InWindow: inside an obligatory prayer's window.
	InWindow
	// BetweenWindows: in the gap between sunrise and Dhuhr.
	BetweenWindows
	// AfterIsha: the final window has closed; the caller must rebuild for
	// the next date.
	AfterIsha
)

func (s State) String() string {
	switch s {
	case BeforeFajr:
		return "before-fajr"
	case InWindow:
		return "in-window"
	case BetweenWindows:
		return "between-windows"
	case AfterIsha:
		return "after-isha"
	default:
		return "unknown"
	}
}

// Period is the ephemeral read model for one instant. It is recomputed every
// tick and never cached beyond it.
type Period struct {
	State State

	// Current is the active prayer when State is InWindow.
	Current times.Prayer
	// Ended and Next frame the gap when State is BetweenWindows; Next is
	// also set for BeforeFajr (Fajr).
	Ended times.Prayer
	Next  times.Prayer

	Start time.Time
	End   time.Time

	// Progress is (t-Start)/(End-Start) clamped to [0,1].
	Progress float64
	// Remaining is End minus the instant, floored at zero.
	Remaining time.Duration
	// Countdown is Remaining formatted as H:MM:SS.
	Countdown string
	// Urgent is set inside the trailing threshold of a window that is not
	// the day's final one.
	Urgent bool

	// NeedsRebuild signals that the instant has passed the day boundary and
	// the caller must build the next date's times before advancing again.
	NeedsRebuild bool
}

// Engine holds the fixed policy knobs. The zero value uses solar midnight as
// the day boundary and the default urgent threshold.
type Engine struct {
	Boundary        DayBoundary
	UrgentThreshold time.Duration
}

// Window is one prayer's half-open interval [Start, End).
type Window struct {
	Prayer times.Prayer
	Start  time.Time
	End    time.Time
	// Final marks the day's last window; urgency is suppressed in it.
	Final bool
}

func (e Engine) urgentThreshold() time.Duration {
	if e.UrgentThreshold > 0 {
		return e.UrgentThreshold
	}
	return DefaultUrgentThreshold
}

// ishaEnd resolves the Isha window's hard end for the configured boundary.
// next may be nil; solar midnight is the fallback.
func (e Engine) ishaEnd(day, next *times.Day) time.Time {
	if e.Boundary == EndAtNextFajr && next != nil {
		if fajr, ok := next.At(times.Fajr); ok {
			return fajr
		}
	}
	return day.Midnight
}

// Windows lists the day's prayer windows in order. Each obligatory prayer's
// window runs from its own boundary to the next defined boundary; Fajr closes
// at sunrise and the day's last defined prayer at the configured day end.
// Prayers undefined on this date (polar conditions without a fallback rule)
// contribute no window, and the chain closes over the gap they leave.
func (e Engine) Windows(day, next *times.Day) []Window {
	if day == nil {
		return nil
	}

	var defined []times.Entry
	for _, en := range day.Ordered() {
		if en.Prayer.Obligatory() {
			defined = append(defined, en)
		}
	}

	out := make([]Window, 0, len(defined))
	for i, en := range defined {
		w := Window{Prayer: en.Prayer, Start: en.Time}

		if i == len(defined)-1 {
			w.End = e.ishaEnd(day, next)
			w.Final = true
		} else {
			w.End = defined[i+1].Time
			if en.Prayer == times.Fajr {
				if sunrise, ok := day.At(times.Sunrise); ok && sunrise.Before(w.End) {
					w.End = sunrise
				}
			}
		}

		if w.End.IsZero() || !w.End.After(w.Start) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Advance computes the period at instant t against the immutable day (and
// optionally the next day, needed when the boundary is the next Fajr).
func (e Engine) Advance(day, next *times.Day, t time.Time) Period {
	windows := e.Windows(day, next)
	if len(windows) == 0 {
		return Period{State: AfterIsha, NeedsRebuild: true}
	}

	first := windows[0]
	if t.Before(first.Start) {
		return e.fill(Period{
			State: BeforeFajr,
			Next:  first.Prayer,
			End:   first.Start,
		}, t)
	}

	for i, w := range windows {
		if t.Before(w.End) {
			if !t.Before(w.Start) {
				p := Period{
					State:   InWindow,
					Current: w.Prayer,
					Start:   w.Start,
					End:     w.End,
				}
				remaining := w.End.Sub(t)
				p.Urgent = !w.Final && remaining <= e.urgentThreshold()
				return e.fill(p, t)
			}
			// Past the previous window's end, before this one starts.
			return e.fill(Period{
				State: BetweenWindows,
				Ended: windows[i-1].Prayer,
				Next:  w.Prayer,
				Start: windows[i-1].End,
				End:   w.Start,
			}, t)
		}
	}

	return Period{State: AfterIsha, NeedsRebuild: true}
}

// fill computes the derived progress/countdown fields common to all states.
func (e Engine) fill(p Period, t time.Time) Period {
	p.Remaining = p.End.Sub(t)
	if p.Remaining < 0 {
		p.Remaining = 0
	}
	p.Countdown = FormatCountdown(p.Remaining)

	if !p.Start.IsZero() {
		span := p.End.Sub(p.Start)
		if span > 0 {
			p.Progress = float64(t.Sub(p.Start)) / float64(span)
		}
		if p.Progress < 0 {
			p.Progress = 0
		} else if p.Progress > 1 {
			p.Progress = 1
		}
	}
	return p
}
