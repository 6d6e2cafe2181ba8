// Package costing implements the Cost Kernel (spec.md §4.2): pure
// functions of (VehicleState, Route, Config, Graph) with no side effects,
// in the same spirit as service.PricingService's fare formula — a fixed
// base plus linear distance/time terms, here without the surge lookup.
package costing

import (
	"math"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// RelocationCost returns the cost of moving a vehicle from its current
// location to the route's start via the given edge, and whether a
// relocation was required at all (state already at the route start means
// cost 0, requiresRelocation false).
//
// ok is false only when a relocation is required and edgeFound is false —
// callers must treat that as infeasible (NO_PATH); the Feasibility Kernel
// rejects before this cost would ever be accounted.
func RelocationCost(state model.VehicleState, route model.Route, edge model.LocationEdge, edgeFound bool, cfg config.CostsConfig) (cost float64, requiresRelocation bool, ok bool) {
	if state.CurrentLocationID == route.StartLocationID {
		return 0, false, true
	}
	if !edgeFound {
		return 0, true, false
	}
	cost = cfg.RelocationBaseCostPln +
		edge.DistanceKm*cfg.RelocationPerKmPln +
		edge.TimeHours*cfg.RelocationPerHourPln
	return cost, true, true
}

// OverageCost returns the annual-limit overage cost for adding
// round(route.DistanceKm) to state.KmThisLeaseYear. Overage never applies
// to a lifetime limit — only the rolling annual counter.
func OverageCost(state model.VehicleState, route model.Route, cfg config.CostsConfig) float64 {
	future := state.KmThisLeaseYear + RoundKm(route.DistanceKm)
	if future <= state.AnnualLimitKm {
		return 0
	}
	return float64(future-state.AnnualLimitKm) * cfg.OveragePerKmPln
}

// ServicePenalty returns the scoring-bias penalty applied when this route
// would push the vehicle past its service interval plus tolerance. It is
// a selection bias only — it never blocks assignment (spec.md §4.2) — and
// is distinct from the service *cost* accounted once a service is actually
// scheduled in fleet.Store.Advance.
func ServicePenalty(state model.VehicleState, route model.Route, cfg config.ServicePolicyConfig) float64 {
	if NeedsService(state, route, cfg) {
		return cfg.ServicePenaltyPln
	}
	return 0
}

// NeedsService reports whether completing this route would cross the
// service interval plus tolerance.
func NeedsService(state model.VehicleState, route model.Route, cfg config.ServicePolicyConfig) bool {
	projected := state.KmSinceLastService + RoundKm(route.DistanceKm)
	return projected > state.ServiceIntervalKm+cfg.ServiceToleranceKm
}

// CandidateScore is the immediate per-candidate score used by the
// Assignment Engine's SELECT step (spec.md §4.6): the sum of relocation,
// overage and service-penalty costs. Lower is better.
func CandidateScore(relocation, overage, servicePenalty float64) float64 {
	return relocation + overage + servicePenalty
}

// AccountingCost is the money actually recorded for an Assignment (spec.md
// §4.2): relocation plus overage, plus the service *cost* when a service is
// actually scheduled for this route — never the scoring-only service
// penalty, which CandidateScore already accounts for separately.
func AccountingCost(relocation, overage float64, requiresService bool, serviceCostPln float64) float64 {
	cost := relocation + overage
	if requiresService {
		cost += serviceCostPln
	}
	return cost
}

// LookaheadScore converts a chain-candidate's accumulated cost into a
// bounded score so look-ahead terms never overwhelm the immediate score
// (spec.md §4.6): 1000 / (cost + 100).
func LookaheadScore(cost float64) float64 {
	return 1000 / (cost + 100)
}

// RoundKm rounds a distance in kilometers to the nearest integer, the
// point at which every engine component adds distance to an odometer-like
// counter (spec.md §4.2).
func RoundKm(km float64) int {
	return int(math.Round(km))
}
