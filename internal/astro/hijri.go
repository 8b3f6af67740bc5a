package astro

import (
	"fmt"
	"math"
	"time"
)

// HijriDate is a date in the tabular Islamic calendar.
type HijriDate struct {
	Year  int
	Month int // 1..12; 9 = Ramadan
	Day   int
}

// Ramadan is the month number of Ramadan in the Hijri calendar.
const Ramadan = 9

// HijriFromTime converts the civil date of t (in t's location) to the tabular
// Islamic calendar with the astronomical epoch.
//
// The tabular calendar is arithmetic, not observational: around month
// boundaries it can differ from a sighted calendar by a day. That is accepted
// here; it is used only for coarse month detection (Ramadan markers), never
// for prayer times themselves.
func HijriFromTime(t time.Time) HijriDate {
	year, month, day := t.Date()
	jdn := int(math.Floor(julianDay(year, int(month), day, 12)))

	// Kuwaiti arithmetic conversion over 30-year cycles of 10631 days.
	l := jdn - 1948440 + 10632
	n := (l - 1) / 10631
	l = l - 10631*n + 354
	j := ((10985-l)/5316)*((50*l)/17719) + (l/5670)*((43*l)/15238)
	l = l - ((30-j)/15)*((17719*j)/50) - (j/16)*((15238*j)/43) + 29

	m := (24 * l) / 709
	d := l - (709*m)/24
	y := 30*n + j - 30

	return HijriDate{Year: y, Month: m, Day: d}
}

var hijriMonths = [12]string{
	"Muharram", "Safar", "Rabi al-Awwal", "Rabi al-Thani",
	"Jumada al-Awwal", "Jumada al-Thani", "Rajab", "Shaban",
	"Ramadan", "Shawwal", "Dhu al-Qadah", "Dhu al-Hijjah",
}

// String renders the date as "24 Ramadan 1420 AH".
func (h HijriDate) String() string {
	name := ""
	if h.Month >= 1 && h.Month <= 12 {
		name = hijriMonths[h.Month-1]
	}
	return fmt.Sprintf("%d %s %d AH", h.Day, name, h.Year)
}

// IsRamadan reports whether the civil date of t falls in Ramadan per the
// tabular calendar.
func IsRamadan(t time.Time) bool {
	return HijriFromTime(t).Month == Ramadan
}
