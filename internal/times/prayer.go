// Package times builds the immutable daily prayer time set from the
// astronomical calculator, the method catalog, and user adjustments.
package times

import (
	"fmt"
	"strings"
)

// Prayer identifies one of the day's prayer boundaries, in fixed
// chronological order. Sunrise is a non-obligatory marker: it closes the Fajr
// window but is never a prayer window of its own.
type Prayer int

const (
	Fajr Prayer = iota
	Sunrise
	Dhuhr
	Asr
	Maghrib
	Isha

	// NumPrayers is the size of the closed set.
	NumPrayers
)

// AllPrayers lists the boundaries in chronological order.
var AllPrayers = [NumPrayers]Prayer{Fajr, Sunrise, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = [NumPrayers]string{"Fajr", "Sunrise", "Dhuhr", "Asr", "Maghrib", "Isha"}

// shortNames maps prayers to the abbreviations used in compact display modes.
var shortNames = [NumPrayers]string{"F", "S", "D", "A", "M", "I"}

func (p Prayer) String() string {
	if p < 0 || p >= NumPrayers {
		return fmt.Sprintf("Prayer(%d)", int(p))
	}
	return prayerNames[p]
}

// Short returns the single-letter abbreviation.
func (p Prayer) Short() string {
	if p < 0 || p >= NumPrayers {
		return "?"
	}
	return shortNames[p]
}

// Obligatory reports whether p is one of the five daily prayers.
func (p Prayer) Obligatory() bool {
	return p != Sunrise && p >= 0 && p < NumPrayers
}

// ParsePrayer parses a prayer name, case-insensitively.
func ParsePrayer(s string) (Prayer, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range prayerNames {
		if strings.ToLower(name) == key {
			return Prayer(i), nil
		}
	}
	return 0, fmt.Errorf("unknown prayer name %q; valid names: %s", s, strings.Join(prayerNames[:], ", "))
}
