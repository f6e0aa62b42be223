// internal/geo/distance.go

// Package geo provides great-circle distance math for the matching pipeline.
package geo

import "math"

// EarthRadiusMiles is the sphere radius used for great-circle distances.
const EarthRadiusMiles = 3959.0

// CoordinatePrecision is the number of decimal places coordinates are rounded
// to when used in cache keys. Four decimal places is roughly 11 meters, which
// keeps floating-point jitter from fragmenting the cache.
const CoordinatePrecision = 4

// Miles returns the great-circle distance in miles between two points given
// in decimal degrees. The haversine formula operates on angular differences,
// so coincident points, antimeridian crossings, and high latitudes need no
// special handling.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// RoundCoordinate rounds a coordinate to CoordinatePrecision decimal places.
func RoundCoordinate(v float64) float64 {
	scale := math.Pow(10, CoordinatePrecision)
	return math.Round(v*scale) / scale
}

// ValidCoordinates reports whether lat/lon fall in the valid geographic
// domain.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
