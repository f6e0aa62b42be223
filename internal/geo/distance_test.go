// internal/geo/distance_test.go
package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiles_IdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Miles(40.7128, -74.0060, 40.7128, -74.0060))
}

func TestMiles_Symmetry(t *testing.T) {
	a := Miles(40.7128, -74.0060, 34.0522, -118.2437)
	b := Miles(34.0522, -118.2437, 40.7128, -74.0060)
	assert.InDelta(t, a, b, 1e-9)
}

func TestMiles_KnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		lat1     float64
		lon1     float64
		lat2     float64
		lon2     float64
		expected float64
		delta    float64
	}{
		{
			name: "new york to los angeles",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 34.0522, lon2: -118.2437,
			expected: 2445, delta: 15,
		},
		{
			name: "manhattan to brooklyn",
			lat1: 40.7831, lon1: -73.9712,
			lat2: 40.6782, lon2: -73.9442,
			expected: 7.3, delta: 0.5,
		},
		{
			name: "across the antimeridian",
			lat1: 10.0, lon1: 179.9,
			lat2: 10.0, lon2: -179.9,
			expected: 13.6, delta: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Miles(tt.lat1, tt.lon1, tt.lat2, tt.lon2), tt.delta)
		})
	}
}

func TestMiles_HighLatitude(t *testing.T) {
	// One degree of longitude near the pole is far shorter than at the
	// equator; the formula needs no special-casing.
	polar := Miles(89.0, 0.0, 89.0, 1.0)
	equatorial := Miles(0.0, 0.0, 0.0, 1.0)
	assert.Less(t, polar, equatorial)
	assert.Greater(t, polar, 0.0)
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 40.7128, RoundCoordinate(40.71284999))
	assert.Equal(t, -74.0060, RoundCoordinate(-74.00603))
	// Jitter below the precision collapses to the same key component.
	assert.Equal(t, RoundCoordinate(40.71280001), RoundCoordinate(40.71280002))
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lon   float64
		valid bool
	}{
		{"origin", 0, 0, true},
		{"extremes", 90, 180, true},
		{"negative extremes", -90, -180, true},
		{"latitude too high", 90.1, 0, false},
		{"latitude too low", -90.1, 0, false},
		{"longitude too high", 0, 180.1, false},
		{"longitude too low", 0, -180.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCoordinates(tt.lat, tt.lon))
		})
	}
}
