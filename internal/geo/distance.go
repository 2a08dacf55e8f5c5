// Package geo provides great-circle distance math, coordinate handling and
// address normalization shared by POI discovery and the comparison engine.
package geo

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// String renders the point as "lat, lon" with five decimal places.
func (p Point) String() string {
	return fmt.Sprintf("%.5f, %.5f", p.Lat, p.Lon)
}

// DistanceMeters computes the haversine great-circle distance between two
// coordinates in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance is the Point-based form of DistanceMeters.
func Distance(a, b Point) float64 {
	return DistanceMeters(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Quantize rounds a coordinate to five decimal places, roughly one meter of
// precision. Cache keys derived from quantized coordinates collapse repeated
// lookups for the same location.
func Quantize(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// CacheKey builds a stable cache key from a quantized coordinate pair.
func CacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.5f,%.5f", Quantize(lat), Quantize(lon))
}
