// Package astro computes solar event times from first principles.
//
// All times are derived from the sun's declination and the equation of time
// using the standard low-precision solar position series, refined with a
// second pass at each event's provisional time. Events that never occur at a
// given latitude/date (polar day or polar night) are reported as zero
// time.Time values, never as guessed substitutes.
package astro

import (
	"math"
	"time"
)

// standardDepression is the depression angle for sunrise/sunset, accounting
// for atmospheric refraction and the solar disc radius.
const standardDepression = 0.833

// Coordinate is a geographic position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within latitude [-90,90] and
// longitude [-180,180].
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// SolarParams are the angular inputs to a computation. FajrAngle and
// IshaAngle are depression angles in degrees below the horizon; an IshaAngle
// of 0 means Isha is not angle-based and its slot is left undefined here.
// AsrShadowRatio is 1 (Shafi) or 2 (Hanafi).
type SolarParams struct {
	FajrAngle      float64
	IshaAngle      float64
	AsrShadowRatio float64
}

// RawSolarTimes holds the solar events for one civil date. A zero time.Time
// means the event does not occur on that date at that latitude.
type RawSolarTimes struct {
	Fajr      time.Time // FajrAngle crossing before sunrise
	Sunrise   time.Time
	Noon      time.Time // apparent solar noon (sun's transit)
	Asr       time.Time // shadow-ratio crossing after noon
	Sunset    time.Time
	Isha      time.Time // IshaAngle crossing after sunset
	Midnight  time.Time // midpoint of sunset and next-day sunrise
	LastThird time.Time // sunset + 2/3 of the night
}

// sunPosition is the sun's declination (radians) and the equation of time
// (hours) at a Julian date.
type sunPosition struct {
	declination float64
	eqtHours    float64
}

// Compute derives the solar events for the civil date of d (in d's location)
// at the given coordinate. The returned instants carry d's location.
func Compute(d time.Time, coord Coordinate, p SolarParams) RawSolarTimes {
	loc := d.Location()
	year, month, day := d.Date()

	today := computeDay(year, int(month), day, coord, p, loc)

	// Midnight and the last third need the following sunrise.
	next := d.AddDate(0, 0, 1)
	ny, nm, nd := next.Date()
	tomorrow := computeDay(ny, int(nm), nd, coord, SolarParams{AsrShadowRatio: p.AsrShadowRatio}, loc)

	if !today.Sunset.IsZero() && !tomorrow.Sunrise.IsZero() {
		night := tomorrow.Sunrise.Sub(today.Sunset)
		today.Midnight = today.Sunset.Add(night / 2)
		today.LastThird = today.Sunset.Add(night * 2 / 3)
	}

	return today
}

// computeDay runs the two-pass computation for a single civil date.
func computeDay(year, month, day int, coord Coordinate, p SolarParams, loc *time.Location) RawSolarTimes {
	jd := julianDay(year, month, day, 0)

	// First pass: provisional UTC hours using the sun's position at 12:00 UTC.
	guess := map[string]float64{
		"fajr": 5, "sunrise": 6, "noon": 12, "asr": 13,
		"sunset": 18, "isha": 19,
	}

	// Two refinement passes: recompute the sun's position at each event's
	// provisional time. One pass already lands within a minute; the second
	// is for stability near the poles.
	var out RawSolarTimes
	for pass := 0; pass < 2; pass++ {
		noon := solarNoonUTC(jd, guess["noon"], coord.Longitude)
		guess["noon"] = noon

		guess["sunrise"] = horizonCrossing(jd, guess["sunrise"], coord, -standardDepression, false)
		guess["sunset"] = horizonCrossing(jd, guess["sunset"], coord, -standardDepression, true)

		if p.FajrAngle > 0 {
			guess["fajr"] = horizonCrossing(jd, guess["fajr"], coord, -p.FajrAngle, false)
		} else {
			guess["fajr"] = math.NaN()
		}
		if p.IshaAngle > 0 {
			guess["isha"] = horizonCrossing(jd, guess["isha"], coord, -p.IshaAngle, true)
		} else {
			guess["isha"] = math.NaN()
		}
		if p.AsrShadowRatio > 0 {
			guess["asr"] = asrCrossing(jd, guess["asr"], coord, p.AsrShadowRatio)
		} else {
			guess["asr"] = math.NaN()
		}
	}

	base := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	toInstant := func(hours float64) time.Time {
		if math.IsNaN(hours) {
			return time.Time{}
		}
		return base.Add(time.Duration(hours * float64(time.Hour))).In(loc)
	}

	out.Fajr = toInstant(guess["fajr"])
	out.Sunrise = toInstant(guess["sunrise"])
	out.Noon = toInstant(guess["noon"])
	out.Asr = toInstant(guess["asr"])
	out.Sunset = toInstant(guess["sunset"])
	out.Isha = toInstant(guess["isha"])
	return out
}

// solarNoonUTC returns apparent solar noon in fractional UTC hours, using the
// equation of time evaluated at the provisional noon.
func solarNoonUTC(jd, approxHours, longitude float64) float64 {
	// Deliberately not wrapped into [0,24): near the antimeridian the transit
	// falls on an adjacent UTC day, and the offset from the date's UTC
	// midnight must reflect that.
	pos := positionAt(jd, approxHours)
	return 12 - longitude/15 - pos.eqtHours
}

// horizonCrossing returns the fractional UTC hour at which the sun's altitude
// crosses the given angle (degrees, negative below the horizon). afternoon
// selects the post-noon branch. Returns NaN when the crossing never happens.
func horizonCrossing(jd, approxHours float64, coord Coordinate, angle float64, afternoon bool) float64 {
	pos := positionAt(jd, approxHours)
	noon := solarNoonUTC(jd, approxHours, coord.Longitude)

	lat := radians(coord.Latitude)
	cosH := (math.Sin(radians(angle)) - math.Sin(pos.declination)*math.Sin(lat)) /
		(math.Cos(pos.declination) * math.Cos(lat))
	if cosH < -1 || cosH > 1 {
		// Sun never reaches the angle on this date (polar condition).
		return math.NaN()
	}

	offset := degrees(math.Acos(cosH)) / 15
	if afternoon {
		return noon + offset
	}
	return noon - offset
}

// asrCrossing returns the fractional UTC hour of Asr for the given shadow
// ratio: the moment an object's shadow equals ratio times its height plus the
// noon shadow.
func asrCrossing(jd, approxHours float64, coord Coordinate, ratio float64) float64 {
	pos := positionAt(jd, approxHours)
	lat := radians(coord.Latitude)

	// Altitude at which the shadow condition holds.
	altitude := math.Atan2(1, ratio+math.Tan(math.Abs(lat-pos.declination)))
	return horizonCrossing(jd, approxHours, coord, degrees(altitude), true)
}

// positionAt evaluates the sun's position at jd plus a fractional-hour offset.
func positionAt(jd, hours float64) sunPosition {
	return sunPositionAt(jd + hours/24)
}

// sunPositionAt computes declination and equation of time for a Julian date
// using the low-precision series (accurate to well under a minute of time for
// the current era).
func sunPositionAt(jd float64) sunPosition {
	d := jd - 2451545.0

	g := radians(normalizeDegrees(357.529 + 0.98560028*d)) // mean anomaly
	q := normalizeDegrees(280.459 + 0.98564736*d)          // mean longitude
	l := radians(normalizeDegrees(q + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)))

	e := radians(23.439 - 0.00000036*d) // obliquity of the ecliptic

	declination := math.Asin(math.Sin(e) * math.Sin(l))

	raHours := normalizeHours(degrees(math.Atan2(math.Cos(e)*math.Sin(l), math.Cos(l))) / 15)
	eqt := q/15 - raHours
	// Keep the equation of time in the ±several-minutes band.
	for eqt > 12 {
		eqt -= 24
	}
	for eqt < -12 {
		eqt += 24
	}

	return sunPosition{declination: declination, eqtHours: eqt}
}

// julianDay converts a Gregorian calendar date plus fractional UTC hours to a
// Julian date.
func julianDay(year, month, day int, hours float64) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := year / 100
	b := 2 - a + a/4

	return math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5 + hours/24
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// normalizeDegrees wraps an angle into [0, 360).
func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// normalizeHours wraps a fractional-hour value into [0, 24).
func normalizeHours(h float64) float64 {
	h = math.Mod(h, 24)
	if h < 0 {
		h += 24
	}
	return h
}
