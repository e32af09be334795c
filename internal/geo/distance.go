// Package geo holds the great-circle distance primitive used by visit geofencing.
package geo

import (
	"math"

	"github.com/shopspring/decimal"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PointFromDecimal converts stored decimal coordinates.
func PointFromDecimal(lat, lng decimal.Decimal) Point {
	return Point{Latitude: lat.InexactFloat64(), Longitude: lng.InexactFloat64()}
}

// DistanceMeters returns the Haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	phi1 := toRadians(a.Latitude)
	phi2 := toRadians(b.Latitude)
	deltaPhi := toRadians(b.Latitude - a.Latitude)
	deltaLambda := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Within reports whether b lies within radius meters of a, along with the distance.
func Within(a, b Point, radius float64) (bool, float64) {
	d := DistanceMeters(a, b)
	return d <= radius, d
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
