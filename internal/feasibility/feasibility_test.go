package feasibility

import (
	"testing"
	"time"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

func swapCfg() config.SwapPolicyConfig {
	return config.SwapPolicyConfig{MaxSwapsPerPeriod: 1, SwapPeriodDays: 90}
}

// Scenario S1: vehicle already at the route's start, no relocation needed.
func TestEvaluate_S1_AlreadyAtStart(t *testing.T) {
	avail := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := model.VehicleState{CurrentLocationID: 10, AvailableFrom: avail}
	route := model.Route{StartLocationID: 10, StartTime: avail.Add(8 * time.Hour)}

	ok, reason := Evaluate(state, route, true, model.LocationEdge{}, swapCfg())
	if !ok {
		t.Fatalf("Evaluate() ok = false, reason = %q, want true", reason)
	}
}

func TestEvaluate_NoPath(t *testing.T) {
	state := model.VehicleState{CurrentLocationID: 5, AvailableFrom: time.Now()}
	route := model.Route{StartLocationID: 99, StartTime: time.Now().Add(time.Hour)}

	ok, reason := Evaluate(state, route, false, model.LocationEdge{}, swapCfg())
	if ok || reason != model.ReasonNoPath {
		t.Errorf("got (ok=%v, reason=%q), want (false, NO_PATH)", ok, reason)
	}
}

// Boundary behavior 8: start exactly equals available_from is feasible;
// strictly less is not.
func TestEvaluate_BoundaryAvailability(t *testing.T) {
	avail := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	state := model.VehicleState{CurrentLocationID: 10, AvailableFrom: avail}

	exact := model.Route{StartLocationID: 10, StartTime: avail}
	if ok, reason := Evaluate(state, exact, true, model.LocationEdge{}, swapCfg()); !ok {
		t.Errorf("exact boundary: ok = false, reason = %q, want true", reason)
	}

	before := model.Route{StartLocationID: 10, StartTime: avail.Add(-time.Minute)}
	if ok, reason := Evaluate(state, before, true, model.LocationEdge{}, swapCfg()); ok || reason != model.ReasonTime {
		t.Errorf("strictly before: got (ok=%v, reason=%q), want (false, TIME)", ok, reason)
	}
}

func TestEvaluate_RelocationArrivalTooLate(t *testing.T) {
	avail := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state := model.VehicleState{CurrentLocationID: 20, AvailableFrom: avail}
	route := model.Route{StartLocationID: 10, StartTime: avail.Add(2 * time.Hour)}
	edge := model.LocationEdge{FromID: 20, ToID: 10, TimeHours: 3.5}

	ok, reason := Evaluate(state, route, true, edge, swapCfg())
	if ok || reason != model.ReasonTime {
		t.Errorf("got (ok=%v, reason=%q), want (false, TIME)", ok, reason)
	}
}

func TestEvaluate_LifetimeExceeded(t *testing.T) {
	state := model.VehicleState{
		CurrentLocationID:    10,
		TotalLifetimeKm:      499_900,
		TotalContractLimitKm: 500_000,
	}
	route := model.Route{StartLocationID: 10, DistanceKm: 200}

	ok, reason := Evaluate(state, route, true, model.LocationEdge{}, swapCfg())
	if ok || reason != model.ReasonLifetime {
		t.Errorf("got (ok=%v, reason=%q), want (false, LIFETIME)", ok, reason)
	}
}

func TestEvaluate_LifetimeNotSet(t *testing.T) {
	state := model.VehicleState{CurrentLocationID: 10, TotalLifetimeKm: 999_999_999}
	route := model.Route{StartLocationID: 10, DistanceKm: 200}

	if ok, reason := Evaluate(state, route, true, model.LocationEdge{}, swapCfg()); !ok {
		t.Errorf("got (ok=false, reason=%q), want true when no contract limit is set", reason)
	}
}

// Scenario S3: max_swaps_per_period=1, one relocation already at 2024-01-05;
// a new route requiring relocation on 2024-02-01 is infeasible.
func TestEvaluate_S3_SwapPolicyBlocks(t *testing.T) {
	state := model.VehicleState{
		CurrentLocationID: 20,
		Relocations: []model.Relocation{
			{Time: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), FromID: 30, ToID: 20},
		},
	}
	route := model.Route{
		StartLocationID: 10,
		StartTime:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	edge := model.LocationEdge{FromID: 20, ToID: 10, TimeHours: 1}

	ok, reason := Evaluate(state, route, true, edge, swapCfg())
	if ok || reason != model.ReasonSwap {
		t.Errorf("got (ok=%v, reason=%q), want (false, SWAP)", ok, reason)
	}
}

func TestCountRecentRelocations_WindowBounds(t *testing.T) {
	asOf := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	state := model.VehicleState{
		Relocations: []model.Relocation{
			{Time: asOf.AddDate(0, 0, -89)}, // inside window
			{Time: asOf.AddDate(0, 0, -91)}, // outside window
			{Time: asOf},                    // not strictly before asOf
		},
	}
	if got := CountRecentRelocations(state, asOf, 90); got != 1 {
		t.Errorf("CountRecentRelocations = %d, want 1", got)
	}
}
