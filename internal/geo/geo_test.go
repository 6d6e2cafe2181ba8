package geo

import (
	"testing"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	loc := model.Location{Lat: 52.2297, Lon: 21.0122}
	got := HaversineKm(loc, loc)
	if got != 0 {
		t.Errorf("HaversineKm(same point) = %v, want 0", got)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Warsaw to Lodz, roughly 120 km apart.
	warsaw := model.Location{Lat: 52.2297, Lon: 21.0122}
	lodz := model.Location{Lat: 51.7592, Lon: 19.4560}
	got := HaversineKm(warsaw, lodz)
	wantMin, wantMax := 100.0, 140.0
	if got < wantMin || got > wantMax {
		t.Errorf("HaversineKm(Warsaw->Lodz) = %.2f km, want between %.1f and %.1f", got, wantMin, wantMax)
	}
}
