// Package notify turns a daily prayer time set plus per-prayer preferences
// into an ordered list of absolute-time triggers. It owns no delivery
// mechanism: the daemon hands the triggers to MQTT or the OS layer.
package notify

import (
	"fmt"
	"sort"
	"time"

	"github.com/mzahid/athan/internal/period"
	"github.com/mzahid/athan/internal/times"
)

// Kind classifies a trigger.
type Kind string

const (
	// Reminder fires a configured number of minutes before a window opens.
	Reminder Kind = "reminder"
	// OnTime fires when the window opens.
	OnTime Kind = "ontime"
	// Urgent fires when the window enters its trailing urgent threshold.
	Urgent Kind = "urgent"
)

// ReminderChoices are the permitted minutes-before values for reminders.
var ReminderChoices = []int{0, 5, 10, 15, 20, 30, 45, 60}

// ValidReminderMinutes reports whether m is a permitted reminder offset.
func ValidReminderMinutes(m int) bool {
	for _, c := range ReminderChoices {
		if c == m {
			return true
		}
	}
	return false
}

// Prefs is the per-prayer notification preference triple.
type Prefs struct {
	Enabled         bool `json:"enabled"`
	Urgent          bool `json:"urgent"`
	ReminderMinutes int  `json:"reminder_minutes"` // 0 = no separate reminder
}

// PrefSet holds preferences for every prayer. Sunrise's slot is ignored: it
// is a marker, not a prayer window.
type PrefSet [times.NumPrayers]Prefs

// DefaultPrefs enables on-time notifications for the five prayers.
func DefaultPrefs() PrefSet {
	var ps PrefSet
	for _, p := range times.AllPrayers {
		if p.Obligatory() {
			ps[p] = Prefs{Enabled: true}
		}
	}
	return ps
}

// Trigger is one scheduled notification instant.
type Trigger struct {
	At     time.Time    `json:"at"`
	Prayer times.Prayer `json:"-"`
	Kind   Kind         `json:"kind"`
}

// Key is a stable identity for de-duplication, including across process
// restarts.
func (t Trigger) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.At.UTC().Format(time.RFC3339), t.Prayer, t.Kind)
}

// Options tune the schedule; the zero value matches the period engine's
// defaults.
type Options struct {
	Boundary        period.DayBoundary
	UrgentThreshold time.Duration
}

// Schedule produces the trigger list for today and (optionally) tomorrow,
// sorted ascending, de-duplicated, with nothing at or before now. It is pure:
// identical inputs yield an identical list, so rescheduling is idempotent.
func Schedule(today, tomorrow *times.Day, prefs PrefSet, now time.Time, opts Options) []Trigger {
	engine := period.Engine{Boundary: opts.Boundary, UrgentThreshold: opts.UrgentThreshold}
	threshold := opts.UrgentThreshold
	if threshold <= 0 {
		threshold = period.DefaultUrgentThreshold
	}

	var raw []Trigger
	collect := func(day, next *times.Day) {
		if day == nil {
			return
		}
		for _, w := range engine.Windows(day, next) {
			p := prefs[w.Prayer]
			if !p.Enabled {
				continue
			}

			raw = append(raw, Trigger{At: w.Start, Prayer: w.Prayer, Kind: OnTime})
			if p.ReminderMinutes > 0 {
				raw = append(raw, Trigger{
					At:     w.Start.Add(-time.Duration(p.ReminderMinutes) * time.Minute),
					Prayer: w.Prayer,
					Kind:   Reminder,
				})
			}
			if p.Urgent && !w.Final {
				raw = append(raw, Trigger{
					At:     w.End.Add(-threshold),
					Prayer: w.Prayer,
					Kind:   Urgent,
				})
			}
		}
	}

	collect(today, tomorrow)
	collect(tomorrow, nil)

	sort.Slice(raw, func(i, j int) bool {
		if !raw[i].At.Equal(raw[j].At) {
			return raw[i].At.Before(raw[j].At)
		}
		if raw[i].Prayer != raw[j].Prayer {
			return raw[i].Prayer < raw[j].Prayer
		}
		return raw[i].Kind < raw[j].Kind
	})

	out := make([]Trigger, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		if !t.At.After(now) {
			continue
		}
		if key := t.Key(); !seen[key] {
			seen[key] = true
			out = append(out, t)
		}
	}
	return out
}
