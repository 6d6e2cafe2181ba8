// Package geo provides straight-line distance helpers used for diagnostics
// only — the engine's relocation costs always come from a graph edge
// (internal/graph), never from coordinates. This package answers
// "how far would it have been anyway" when no edge exists, or when a run
// summary wants to contrast relocation km against straight-line km.
package geo

import (
	"math"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// EarthRadiusKm is the mean radius of Earth in kilometers.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two locations in
// kilometers.
//
// Complexity: O(1)
func HaversineKm(a, b model.Location) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
