package assignment

import (
	"math"

	"github.com/TechniCodeCamp2025/fleet-api/internal/costing"
	"github.com/TechniCodeCamp2025/fleet-api/internal/feasibility"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// lookaheadAdjustment implements spec.md §4.6's optional chain scoring:
// it walks up to chain_depth feasible future routes within look_ahead_days
// of route.StartTime (scanning at most max_lookahead_routes candidates),
// scores each with the Cost Kernel against a hypothetical post-route
// state, and combines them with geometrically diminishing weights
// chain_weight^i (0.5^i at the default chain_weight).
//
// It returns a non-negative adjustment to SUBTRACT from the immediate
// score: a vehicle well-placed for upcoming routes gets a lower combined
// score and is preferred, without this term ever overwhelming the
// immediate cost (each term is the bounded costing.LookaheadScore, never
// the raw chain cost).
//
// This never mutates the fleet.Store — it only walks a local copy of the
// snapshot already taken for the immediate candidate.
func (e *Engine) lookaheadAdjustment(snap model.VehicleState, route model.Route, futureRoutes []model.Route) float64 {
	cutoff := route.StartTime.AddDate(0, 0, e.cfg.LookAheadDays)

	cur := snap
	projectForward(&cur, route)

	adjustment := 0.0
	depth := 0

	for scanned := 0; scanned < len(futureRoutes) && scanned < e.cfg.MaxLookaheadRoutes && depth < e.cfg.ChainDepth; scanned++ {
		fr := futureRoutes[scanned]
		if fr.StartTime.After(cutoff) {
			break
		}

		requiresRelocation := cur.CurrentLocationID != fr.StartLocationID
		var edge model.LocationEdge
		edgeFound := true
		if requiresRelocation {
			edge, edgeFound = e.graph.Lookup(cur.CurrentLocationID, fr.StartLocationID)
		}

		ok, _ := feasibility.Evaluate(cur, fr, edgeFound, edge, e.swapPolicy)
		if !ok {
			continue
		}

		relocationCost, _, _ := costing.RelocationCost(cur, fr, edge, edgeFound, e.costs)
		overageCost := costing.OverageCost(cur, fr, e.costs)
		servicePenalty := costing.ServicePenalty(cur, fr, e.servicePolicy)
		chainCost := costing.CandidateScore(relocationCost, overageCost, servicePenalty)

		depth++
		weight := math.Pow(e.cfg.ChainWeight, float64(depth))
		adjustment += weight * costing.LookaheadScore(chainCost)

		projectForward(&cur, fr)
	}

	return adjustment
}

// projectForward mutates a scoring-only snapshot to reflect having just
// completed route r, without touching fleet.Store.
func projectForward(state *model.VehicleState, r model.Route) {
	km := costing.RoundKm(r.DistanceKm)
	state.CurrentLocationID = r.EndLocationID
	state.AvailableFrom = r.EndTime
	state.KmThisLeaseYear += km
	state.TotalLifetimeKm += km
	state.KmSinceLastService += km
}
