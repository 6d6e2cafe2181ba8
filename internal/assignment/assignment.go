// Package assignment implements the Assignment Engine (spec.md §4.6): the
// chronological main loop that matches each route to a vehicle. Its
// FETCH/FILTER/SCORE/SELECT shape is the same one service.MatchingService
// runs per ride request — candidates gathered, hard-filtered, scored, the
// minimum picked — generalized from trip capacity/detour constraints to
// vehicle time/lifetime/swap-policy constraints, and from a single
// booking-repository commit to fleet.Store.Advance.
package assignment

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/costing"
	"github.com/TechniCodeCamp2025/fleet-api/internal/engineerr"
	"github.com/TechniCodeCamp2025/fleet-api/internal/feasibility"
	"github.com/TechniCodeCamp2025/fleet-api/internal/fleet"
	"github.com/TechniCodeCamp2025/fleet-api/internal/graph"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// Engine runs Phase 2 over a fleet.Store already seeded by placement.
type Engine struct {
	graph *graph.Graph
	store *fleet.Store

	costs         config.CostsConfig
	servicePolicy config.ServicePolicyConfig
	swapPolicy    config.SwapPolicyConfig
	cfg           config.AssignmentConfig

	onRoute func(processed, total int, route model.Route)
}

// NewEngine builds an Assignment Engine over an already-seeded store.
func NewEngine(g *graph.Graph, store *fleet.Store, costs config.CostsConfig, servicePolicy config.ServicePolicyConfig, swapPolicy config.SwapPolicyConfig, cfg config.AssignmentConfig) *Engine {
	return &Engine{graph: g, store: store, costs: costs, servicePolicy: servicePolicy, swapPolicy: swapPolicy, cfg: cfg}
}

// SetProgressHook registers a callback invoked once per route, right after
// it is processed (assigned or unassigned). rundriver uses this to batch
// progress events without the engine itself knowing about reporters.
func (e *Engine) SetProgressHook(hook func(processed, total int, route model.Route)) {
	e.onRoute = hook
}

// Result is the output of a full assignment run: the append-only
// assignment log plus the unassigned-route log, both in the same
// chronological order the routes were processed in.
type Result struct {
	Assignments []model.Assignment
	Unassigned  []model.Unassigned
	Cancelled   bool
}

// candidate is one vehicle's evaluation against the current route.
type candidate struct {
	vehicleID          int64
	feasible           bool
	reason             model.ReasonCode
	score              float64
	requiresRelocation bool
	requiresService    bool
	fromLocationID     int64
	edge               model.LocationEdge
	relocationCost     float64
	overageCost        float64
	servicePenalty     float64
}

// AssignAll runs the chronological main loop over routes, filtered first
// to the assignment window (spec.md §4.6: `assignment_lookahead_days`,
// 0 = all) and sorted by (start_time, id) for a deterministic,
// totally-ordered log (spec.md §5, testable property 5). Between routes
// it checks ctx for cooperative cancellation, returning the partial log
// with Cancelled=true per spec.md §5.
func (e *Engine) AssignAll(ctx context.Context, vehicleIDs []int64, routes []model.Route) (Result, error) {
	windowed := e.filterWindow(routes)
	sort.Slice(windowed, func(i, j int) bool {
		if !windowed[i].StartTime.Equal(windowed[j].StartTime) {
			return windowed[i].StartTime.Before(windowed[j].StartTime)
		}
		return windowed[i].ID < windowed[j].ID
	})

	ids := make([]int64, len(vehicleIDs))
	copy(ids, vehicleIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var result Result

	for i, route := range windowed {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			return result, nil
		default:
		}

		if err := validateRoute(route); err != nil {
			return result, err
		}

		best, reasons, err := e.selectBest(ids, route, windowed[i+1:])
		if err != nil {
			return result, err
		}

		if best == nil {
			result.Unassigned = append(result.Unassigned, model.Unassigned{
				RouteID:   route.ID,
				StartTime: route.StartTime,
				Reasons:   reasons,
			})
			log.Printf("[assignment] route %d unassigned: %v", route.ID, reasons)
			if e.onRoute != nil {
				e.onRoute(i+1, len(windowed), route)
			}
			continue
		}

		kmBefore, err := e.commit(best, route)
		if err != nil {
			return result, err
		}

		result.Assignments = append(result.Assignments, model.Assignment{
			RouteID:            route.ID,
			VehicleID:          best.vehicleID,
			RequiresRelocation: best.requiresRelocation,
			RequiresService:    best.requiresService,
			RelocationCostPln:  best.relocationCost,
			OverageCostPln:     best.overageCost,
			ServicePenaltyPln:  best.servicePenalty,
			TotalCostPln:       costing.AccountingCost(best.relocationCost, best.overageCost, best.requiresService, e.servicePolicy.ServiceCostPln),
			VehicleKmBefore:    kmBefore,
			VehicleKmAfter:     kmBefore + costing.RoundKm(route.DistanceKm),
		})

		if e.onRoute != nil {
			e.onRoute(i+1, len(windowed), route)
		}
	}

	return result, nil
}

// filterWindow applies assignment_lookahead_days (0 = all) relative to
// the earliest route's start_time.
func (e *Engine) filterWindow(routes []model.Route) []model.Route {
	if e.cfg.AssignmentLookaheadDays <= 0 || len(routes) == 0 {
		out := make([]model.Route, len(routes))
		copy(out, routes)
		return out
	}

	t0 := routes[0].StartTime
	for _, r := range routes {
		if r.StartTime.Before(t0) {
			t0 = r.StartTime
		}
	}
	cutoff := t0.AddDate(0, 0, e.cfg.AssignmentLookaheadDays)

	out := make([]model.Route, 0, len(routes))
	for _, r := range routes {
		if r.StartTime.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func validateRoute(r model.Route) error {
	if r.DistanceKm <= 0 {
		return fmt.Errorf("assignment: route %d has non-positive distance %v: %w", r.ID, r.DistanceKm, engineerr.ErrInputInvalid)
	}
	if !r.EndTime.After(r.StartTime) {
		return fmt.Errorf("assignment: route %d end_time <= start_time: %w", r.ID, engineerr.ErrInputInvalid)
	}
	if len(r.Segments) == 0 {
		return fmt.Errorf("assignment: route %d has no segments: %w", r.ID, engineerr.ErrInputInvalid)
	}
	return nil
}

// selectBest runs FETCH/FILTER/SCORE/SELECT for one route across every
// vehicle and returns the minimum-score feasible candidate, breaking ties
// by ascending vehicle id (spec.md §4.6). futureRoutes is only consulted
// when use_chain_optimization is enabled; the engine must select
// correctly (on immediate score alone) with it empty or the flag off.
func (e *Engine) selectBest(vehicleIDs []int64, route model.Route, futureRoutes []model.Route) (*candidate, map[model.ReasonCode]int, error) {
	reasons := make(map[model.ReasonCode]int)
	var best *candidate
	bestSelectionScore := 0.0

	for _, vid := range vehicleIDs {
		snap, err := e.store.SnapshotForScoring(vid, route.StartTime)
		if err != nil {
			return nil, nil, err
		}

		c := e.scoreCandidate(vid, snap, route)
		if !c.feasible {
			reasons[c.reason]++
			continue
		}

		selectionScore := c.score
		if e.cfg.UseChainOptimization {
			selectionScore -= e.lookaheadAdjustment(snap, route, futureRoutes)
		}

		if best == nil || selectionScore < bestSelectionScore || (selectionScore == bestSelectionScore && c.vehicleID < best.vehicleID) {
			best = c
			bestSelectionScore = selectionScore
		}
	}

	return best, reasons, nil
}

// scoreCandidate evaluates one vehicle snapshot against the route: graph
// lookup, feasibility, then cost (spec.md §4.6 steps 1-3).
func (e *Engine) scoreCandidate(vehicleID int64, snap model.VehicleState, route model.Route) *candidate {
	requiresRelocation := snap.CurrentLocationID != route.StartLocationID

	var edge model.LocationEdge
	edgeFound := true
	if requiresRelocation {
		edge, edgeFound = e.graph.Lookup(snap.CurrentLocationID, route.StartLocationID)
	}

	ok, reason := feasibility.Evaluate(snap, route, edgeFound, edge, e.swapPolicy)
	if !ok {
		return &candidate{vehicleID: vehicleID, feasible: false, reason: reason}
	}

	relocationCost, _, _ := costing.RelocationCost(snap, route, edge, edgeFound, e.costs)
	overageCost := costing.OverageCost(snap, route, e.costs)
	needsService := costing.NeedsService(snap, route, e.servicePolicy)
	servicePenalty := costing.ServicePenalty(snap, route, e.servicePolicy)

	return &candidate{
		vehicleID:          vehicleID,
		feasible:           true,
		score:              costing.CandidateScore(relocationCost, overageCost, servicePenalty),
		requiresRelocation: requiresRelocation,
		requiresService:    needsService,
		fromLocationID:     snap.CurrentLocationID,
		edge:               edge,
		relocationCost:     relocationCost,
		overageCost:        overageCost,
		servicePenalty:     servicePenalty,
	}
}

// commit advances the winning vehicle and returns its pre-route odometer
// reading for the assignment record's km_before field.
func (e *Engine) commit(c *candidate, route model.Route) (int, error) {
	before, err := e.store.SnapshotForScoring(c.vehicleID, route.StartTime)
	if err != nil {
		return 0, err
	}

	outcome := fleet.Outcome{
		RequiresRelocation: c.requiresRelocation,
		FromLocationID:     c.fromLocationID,
		RelocationEdge:     c.edge,
		RequiresService:    c.requiresService,
		RelocationCostPln:  c.relocationCost,
		OverageCostPln:     c.overageCost,
		ServicePenaltyPln:  c.servicePenalty,
	}

	if err := e.store.Advance(c.vehicleID, route, outcome); err != nil {
		return 0, err
	}

	return before.CurrentOdometerKm, nil
}
