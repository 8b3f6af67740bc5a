package times

import (
	"errors"
	"fmt"
	"time"

	"github.com/mzahid/athan/internal/astro"
	"github.com/mzahid/athan/internal/method"
)

// AdjustmentLimitMin bounds a per-prayer adjustment to ±30 minutes.
const AdjustmentLimitMin = 30

// ErrUnordered is returned when the built times would violate the fixed
// chronological prayer order, typically because an adjustment pushed one
// boundary past the next. The build is rejected, never silently clamped.
var ErrUnordered = errors.New("prayer times out of chronological order")

// Adjustments are signed minute offsets per prayer, applied as the last step
// of a build. Zero means "not adjusted".
type Adjustments [NumPrayers]int

// IsAdjusted reports whether any offset is non-zero.
func (a Adjustments) IsAdjusted() bool {
	for _, m := range a {
		if m != 0 {
			return true
		}
	}
	return false
}

// HighLatitudeRule selects the fallback when a depression-angle crossing
// never happens (polar twilight conditions).
type HighLatitudeRule string

const (
	// RuleNone leaves undefined events undefined; consumers show a
	// placeholder. This is the default: substituting a time silently is
	// worse than admitting there is none.
	RuleNone HighLatitudeRule = "none"
	// RuleMiddleOfNight caps Fajr/Isha at the midpoint of the night.
	RuleMiddleOfNight HighLatitudeRule = "middle-of-night"
	// RuleSeventhOfNight caps Fajr/Isha at one seventh of the night from
	// its nearer edge.
	RuleSeventhOfNight HighLatitudeRule = "seventh-of-night"
)

// ParseHighLatitudeRule parses a persisted rule identifier.
func ParseHighLatitudeRule(s string) (HighLatitudeRule, error) {
	switch HighLatitudeRule(s) {
	case "", RuleNone:
		return RuleNone, nil
	case RuleMiddleOfNight, RuleSeventhOfNight:
		return HighLatitudeRule(s), nil
	default:
		return RuleNone, fmt.Errorf("unknown high latitude rule %q", s)
	}
}

// Options tune a build beyond the method/madhab parameters.
type Options struct {
	HighLatitudeRule HighLatitudeRule
}

// Day is the immutable set of prayer boundaries and special times for one
// civil date at one location. Zero time.Time fields are undefined events.
type Day struct {
	Date  time.Time // midnight at the start of the civil date, in its zone
	Coord astro.Coordinate

	MethodID string
	Madhab   method.Madhab

	times [NumPrayers]time.Time

	Midnight  time.Time // solar midnight
	LastThird time.Time // start of the last third of the night

	// Suhoor and Iftar are set only when the date falls in Ramadan
	// (tabular Hijri calendar). Suhoor ends at Fajr; Iftar is Maghrib.
	Suhoor time.Time
	Iftar  time.Time

	Adjustments Adjustments
}

// At returns the instant of the given boundary. ok is false when the event is
// undefined on this date.
func (d *Day) At(p Prayer) (time.Time, bool) {
	if p < 0 || p >= NumPrayers {
		return time.Time{}, false
	}
	t := d.times[p]
	return t, !t.IsZero()
}

// Entry pairs a prayer boundary with its instant.
type Entry struct {
	Prayer Prayer
	Time   time.Time
}

// Ordered returns the defined boundaries in chronological order.
func (d *Day) Ordered() []Entry {
	out := make([]Entry, 0, NumPrayers)
	for _, p := range AllPrayers {
		if t := d.times[p]; !t.IsZero() {
			out = append(out, Entry{Prayer: p, Time: t})
		}
	}
	return out
}

// NextAfter returns the first defined boundary strictly after t, or nil if
// every boundary of the day has passed.
func (d *Day) NextAfter(t time.Time) *Entry {
	for _, e := range d.Ordered() {
		if e.Time.After(t) {
			out := e
			return &out
		}
	}
	return nil
}

// Build produces the effective Day for (date, coord, method, madhab,
// adjustments). It is pure: identical inputs yield identical output.
//
// Adjustments are applied last. If an adjustment (or a degenerate
// astronomical day) would put the boundaries out of order, Build returns
// ErrUnordered rather than clamping.
func Build(date time.Time, coord astro.Coordinate, m method.Method, madhab method.Madhab, adj Adjustments, opts Options) (*Day, error) {
	if !coord.Valid() {
		return nil, fmt.Errorf("invalid coordinate %+v", coord)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	for p, min := range adj {
		if min < -AdjustmentLimitMin || min > AdjustmentLimitMin {
			return nil, fmt.Errorf("%s adjustment %+d min outside ±%d", Prayer(p), min, AdjustmentLimitMin)
		}
	}

	loc := date.Location()
	year, month, day := date.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)

	ramadan := astro.IsRamadan(midnight)

	raw := astro.Compute(midnight, coord, astro.SolarParams{
		FajrAngle:      m.FajrAngle,
		IshaAngle:      m.IshaAngle,
		AsrShadowRatio: madhab.ShadowRatio(),
	})

	d := &Day{
		Date:        midnight,
		Coord:       coord,
		MethodID:    m.ID,
		Madhab:      madhab,
		Adjustments: adj,
	}

	d.times[Fajr] = roundMinute(raw.Fajr)
	d.times[Sunrise] = roundMinute(raw.Sunrise)
	d.times[Dhuhr] = roundMinute(offset(raw.Noon, m.DhuhrOffsetMin))
	d.times[Asr] = roundMinute(raw.Asr)
	d.times[Maghrib] = roundMinute(offset(raw.Sunset, m.MaghribOffsetMin))

	if m.UsesIshaInterval() {
		d.times[Isha] = roundMinute(offset(d.times[Maghrib], m.IshaInterval(ramadan)))
	} else {
		d.times[Isha] = roundMinute(raw.Isha)
	}

	d.Midnight = roundMinute(raw.Midnight)
	d.LastThird = roundMinute(raw.LastThird)

	applyHighLatitudeRule(d, raw, opts.HighLatitudeRule)

	// Adjustments apply after every derived time is in place.
	for _, p := range AllPrayers {
		if adj[p] != 0 && !d.times[p].IsZero() {
			d.times[p] = offset(d.times[p], adj[p])
		}
	}

	if err := checkOrdering(d); err != nil {
		return nil, err
	}

	if ramadan {
		d.Suhoor = d.times[Fajr]
		d.Iftar = d.times[Maghrib]
	}

	return d, nil
}

// applyHighLatitudeRule substitutes Fajr/Isha when the angle crossing never
// happened and a fallback rule is active. With RuleNone the fields stay
// undefined.
func applyHighLatitudeRule(d *Day, raw astro.RawSolarTimes, rule HighLatitudeRule) {
	var portion float64
	switch rule {
	case RuleMiddleOfNight:
		portion = 1.0 / 2
	case RuleSeventhOfNight:
		portion = 1.0 / 7
	default:
		return
	}

	sunset := raw.Sunset
	sunrise := raw.Sunrise
	if sunset.IsZero() || sunrise.IsZero() {
		// Full polar day/night: no night to take a portion of.
		return
	}
	// Night runs sunset -> next sunrise; Compute exposes its length via the
	// midnight midpoint.
	if raw.Midnight.IsZero() {
		return
	}
	night := raw.Midnight.Sub(sunset) * 2
	span := time.Duration(portion * float64(night))

	if d.times[Fajr].IsZero() {
		d.times[Fajr] = roundMinute(sunrise.Add(-span))
	}
	if d.times[Isha].IsZero() {
		isha := roundMinute(sunset.Add(span))
		// The middle-of-night portion lands exactly on solar midnight; keep
		// the substituted Isha strictly before it.
		if mid := roundMinute(raw.Midnight); !isha.Before(mid) {
			isha = mid.Add(-time.Minute)
		}
		d.times[Isha] = isha
	}
}

// checkOrdering enforces the strict chronological invariants: the defined
// boundaries must increase in the fixed prayer order, and Isha must precede
// solar midnight, which precedes the last third.
func checkOrdering(d *Day) error {
	var prev *Entry
	for _, p := range AllPrayers {
		t := d.times[p]
		if t.IsZero() {
			continue
		}
		if prev != nil && !t.After(prev.Time) {
			return fmt.Errorf("%w: %s (%s) not after %s (%s)",
				ErrUnordered, p, t.Format("15:04"), prev.Prayer, prev.Time.Format("15:04"))
		}
		e := Entry{Prayer: p, Time: t}
		prev = &e
	}

	isha := d.times[Isha]
	if !isha.IsZero() && !d.Midnight.IsZero() && !isha.Before(d.Midnight) {
		return fmt.Errorf("%w: Isha (%s) not before solar midnight (%s)",
			ErrUnordered, isha.Format("15:04"), d.Midnight.Format("15:04"))
	}
	if !d.Midnight.IsZero() && !d.LastThird.IsZero() && !d.Midnight.Before(d.LastThird) {
		return fmt.Errorf("%w: solar midnight (%s) not before last third (%s)",
			ErrUnordered, d.Midnight.Format("15:04"), d.LastThird.Format("15:04"))
	}
	return nil
}

func offset(t time.Time, minutes int) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Add(time.Duration(minutes) * time.Minute)
}

func roundMinute(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.Round(time.Minute)
}
