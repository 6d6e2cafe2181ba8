package graph

import (
	"testing"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

func sampleEdges() []model.LocationEdge {
	return []model.LocationEdge{
		{FromID: 1, ToID: 2, DistanceKm: 100, TimeHours: 1.5},
		{FromID: 2, ToID: 3, DistanceKm: 50, TimeHours: 0.8},
	}
}

func TestLookup_HitAndMiss(t *testing.T) {
	g := New(sampleEdges())

	edge, ok := g.Lookup(1, 2)
	if !ok {
		t.Fatalf("Lookup(1, 2) ok = false, want true")
	}
	if edge.DistanceKm != 100 {
		t.Errorf("DistanceKm = %v, want 100", edge.DistanceKm)
	}

	if _, ok := g.Lookup(2, 1); ok {
		t.Errorf("Lookup(2, 1) ok = true, want false (no symmetric closure)")
	}
	if _, ok := g.Lookup(9, 9); ok {
		t.Errorf("Lookup(9, 9) ok = true, want false (unknown edge)")
	}
}

func TestLookup_WithCache(t *testing.T) {
	g, err := NewWithCache(sampleEdges(), 8)
	if err != nil {
		t.Fatalf("NewWithCache: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, ok := g.Lookup(1, 2); !ok {
			t.Fatalf("Lookup(1, 2) iteration %d: ok = false", i)
		}
	}

	hits, misses := g.Stats()
	if hits == 0 {
		t.Errorf("Stats() hits = 0, want > 0 after repeated lookups")
	}
	if misses == 0 {
		t.Errorf("Stats() misses = 0, want > 0 (first lookup always misses)")
	}
}

func TestLookup_WithCacheSizeZeroDisablesCache(t *testing.T) {
	g, err := NewWithCache(sampleEdges(), 0)
	if err != nil {
		t.Fatalf("NewWithCache: %v", err)
	}
	if g.cache != nil {
		t.Errorf("cache = %v, want nil when size <= 0", g.cache)
	}
}

func TestLen(t *testing.T) {
	g := New(sampleEdges())
	if got := g.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}
