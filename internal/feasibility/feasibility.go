// Package feasibility implements the Feasibility Kernel (spec.md §4.3):
// pure predicates over (VehicleState, Route, Graph, Config) returning a
// boolean and a reason code, the same hard-constraint-then-skip shape as
// service.MatchingService's seat/luggage/detour filter, generalized to
// fixed scheduling/contract/policy constraints instead of capacity ones.
package feasibility

import (
	"math"
	"time"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// Evaluate runs every hard predicate against the current snapshot in the
// order spec.md §4.3 implies (availability, lifetime, swap) and returns
// the first rejection reason. ok=true means the candidate is feasible.
//
// edgeFound/edge describe the relocation edge from state.CurrentLocationID
// to route.StartLocationID; pass edgeFound=true with a zero edge when the
// vehicle is already at the route start (no relocation needed, so edge
// content is irrelevant).
func Evaluate(state model.VehicleState, route model.Route, edgeFound bool, edge model.LocationEdge, swapCfg config.SwapPolicyConfig) (ok bool, reason model.ReasonCode) {
	requiresRelocation := state.CurrentLocationID != route.StartLocationID

	if requiresRelocation && !edgeFound {
		return false, model.ReasonNoPath
	}

	if !checkAvailability(state, route, requiresRelocation, edge) {
		return false, model.ReasonTime
	}

	if !checkLifetime(state, route) {
		return false, model.ReasonLifetime
	}

	if requiresRelocation && !checkSwapPolicy(state, route, swapCfg) {
		return false, model.ReasonSwap
	}

	return true, ""
}

// checkAvailability is spec.md §4.3's "Availability & arrival": the
// vehicle must become free, and (if relocating) arrive, no later than
// the route's start.
func checkAvailability(state model.VehicleState, route model.Route, requiresRelocation bool, edge model.LocationEdge) bool {
	arrival := state.AvailableFrom
	if requiresRelocation {
		arrival = arrival.Add(time.Duration(edge.TimeHours * float64(time.Hour)))
	}
	return !arrival.After(route.StartTime)
}

// checkLifetime rejects a candidate whose lifetime contract cap would be
// crossed by this route. A zero TotalContractLimitKm means no lifetime
// cap is in force — only the rolling annual counter applies.
func checkLifetime(state model.VehicleState, route model.Route) bool {
	if state.TotalContractLimitKm <= 0 {
		return true
	}
	projected := state.TotalLifetimeKm + roundKm(route.DistanceKm)
	return projected <= state.TotalContractLimitKm
}

// checkSwapPolicy rejects a new relocation when the vehicle has already
// used up its swap budget in the trailing window ending at route.StartTime.
func checkSwapPolicy(state model.VehicleState, route model.Route, cfg config.SwapPolicyConfig) bool {
	if cfg.MaxSwapsPerPeriod <= 0 {
		return false
	}
	count := CountRecentRelocations(state, route.StartTime, cfg.SwapPeriodDays)
	return count < cfg.MaxSwapsPerPeriod
}

// CountRecentRelocations counts relocation entries within
// [asOf - periodDays, asOf), the rolling window spec.md §4.3 defines.
func CountRecentRelocations(state model.VehicleState, asOf time.Time, periodDays int) int {
	windowStart := asOf.AddDate(0, 0, -periodDays)
	count := 0
	for _, r := range state.Relocations {
		if !r.Time.Before(windowStart) && r.Time.Before(asOf) {
			count++
		}
	}
	return count
}

func roundKm(km float64) int {
	return int(math.Round(km))
}
