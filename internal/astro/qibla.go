package astro

import "math"

// Kaaba is the reference coordinate for the qibla bearing.
var Kaaba = Coordinate{Latitude: 21.4225, Longitude: 39.8262}

// QiblaBearing returns the great-circle initial bearing from the given
// coordinate to the Kaaba, in degrees clockwise from true north, in [0, 360).
func QiblaBearing(from Coordinate) float64 {
	lat1 := radians(from.Latitude)
	lat2 := radians(Kaaba.Latitude)
	dLon := radians(Kaaba.Longitude - from.Longitude)

	y := math.Sin(dLon)
	x := math.Cos(lat1)*math.Tan(lat2) - math.Sin(lat1)*math.Cos(dLon)

	return normalizeDegrees(degrees(math.Atan2(y, x)))
}
