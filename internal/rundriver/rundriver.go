// Package rundriver implements the Run Driver (spec.md §4.7): it seeds the
// fleet from the Placement Engine, runs the Assignment Engine's chronological
// main loop, and produces the run's aggregate summary. It is also where the
// two external collaborators spec.md §1 leaves unspecified attach: progress
// reporting and cooperative cancellation, both behind named interfaces the
// same way the teacher's `cmd/server/main.go` treats Postgres/Redis as
// collaborators wired in from outside the service layer, never imported by
// it directly.
package rundriver

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/assignment"
	"github.com/TechniCodeCamp2025/fleet-api/internal/engineerr"
	"github.com/TechniCodeCamp2025/fleet-api/internal/fleet"
	"github.com/TechniCodeCamp2025/fleet-api/internal/geo"
	"github.com/TechniCodeCamp2025/fleet-api/internal/graph"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
	"github.com/TechniCodeCamp2025/fleet-api/internal/placement"
)

// ProgressEvent is emitted every progress_report_interval routes and at
// progress_report_days day boundaries (spec.md §5).
type ProgressEvent struct {
	RoutesProcessed int
	TotalRoutes     int
	Assigned        int
	Unassigned      int
	Day             time.Time
}

// ProgressReporter is the external collaborator progress events are handed
// to. Report must not block the run for long; a slow sink should drop
// events rather than stall the main loop (see internal/reporter).
type ProgressReporter interface {
	Report(ctx context.Context, evt ProgressEvent)
}

// CancelSignal is the external collaborator polled for cooperative
// cancellation (spec.md §5), checked at the same between-routes checkpoint
// as the wall-clock budget.
type CancelSignal interface {
	Cancelled(ctx context.Context) bool
}

// Config bundles every engine-facing config group a run needs.
type Config struct {
	Placement     config.PlacementConfig
	Assignment    config.AssignmentConfig
	SwapPolicy    config.SwapPolicyConfig
	ServicePolicy config.ServicePolicyConfig
	Costs         config.CostsConfig
	Performance   config.PerformanceConfig

	// MaxWallClock bounds how long a single run may take before it is
	// cancelled the same way an external CancelSignal would cancel it
	// (spec.md §5's "wall-clock budget enforcement", SPEC_FULL.md). Zero
	// means no budget.
	MaxWallClock time.Duration
}

// RunSummary is the Run Driver's output: the full assignment/unassigned
// log plus the aggregate figures spec.md §4.7 asks for.
type RunSummary struct {
	Assignments []model.Assignment
	Unassigned  []model.Unassigned
	Cancelled   bool

	TotalCostPln       float64
	RelocationCount    int
	ServiceCount       int
	OverageKm          int
	UnassignedByReason map[model.ReasonCode]int

	VehicleStates map[int64]model.VehicleState
}

// Driver runs Placement then Assignment over one planning horizon.
type Driver struct {
	graph    *graph.Graph
	cfg      Config
	reporter ProgressReporter
	cancel   CancelSignal
}

// NewDriver builds a Run Driver. reporter and cancel may be nil; a nil
// reporter drops every event, a nil cancel signal is never consulted.
func NewDriver(g *graph.Graph, cfg Config, reporter ProgressReporter, cancel CancelSignal) *Driver {
	return &Driver{graph: g, cfg: cfg, reporter: reporter, cancel: cancel}
}

// Run seeds a fresh fleet.Store from vehicles/locations/routes, runs the
// full chronological main loop, and returns the aggregate RunSummary.
//
// Unknown location ids referenced by a route (spec.md §7's InputInvalid)
// are checked here, before Phase 1, since only the Run Driver holds the
// full location set; the Assignment Engine itself only sees routes and
// vehicle ids.
func (d *Driver) Run(ctx context.Context, vehicles []model.VehicleSpec, locations []model.Location, routes []model.Route, runStart time.Time) (RunSummary, error) {
	if err := validateLocationRefs(locations, routes); err != nil {
		return RunSummary{}, err
	}

	runCtx, stop := d.withCancellation(ctx)
	defer stop()

	demand := placement.AnalyzeDemand(routes, d.cfg.Placement.LookaheadDays)
	placed := placement.Place(d.cfg.Placement.Strategy, vehicles, locations, demand,
		d.cfg.Placement.MaxConcentration, d.cfg.Placement.MaxVehiclesPerLocation)
	log.Printf("[rundriver] placement complete: %d vehicles across %d locations", len(placed), len(locations))

	store := fleet.NewStore(vehicles, placed, runStart, d.cfg.ServicePolicy, d.cfg.SwapPolicy)
	engine := assignment.NewEngine(d.graph, store, d.cfg.Costs, d.cfg.ServicePolicy, d.cfg.SwapPolicy, d.cfg.Assignment)

	reportState := &progressState{interval: d.cfg.Performance.ProgressReportInterval, dayStep: d.cfg.Performance.ProgressReportDays}
	engine.SetProgressHook(func(processed, total int, route model.Route) {
		d.maybeReport(runCtx, reportState, processed, total, route)
	})

	vehicleIDs := make([]int64, len(vehicles))
	for i, v := range vehicles {
		vehicleIDs[i] = v.ID
	}

	result, err := engine.AssignAll(runCtx, vehicleIDs, routes)
	if err != nil {
		return RunSummary{}, err
	}

	summary := summarize(result, store.All())
	logNoPathDiagnostics(locations, routes, summary.Unassigned)
	log.Printf("[rundriver] run complete: %d assigned, %d unassigned, cancelled=%v, total_cost=%.2f",
		len(summary.Assignments), len(summary.Unassigned), summary.Cancelled, summary.TotalCostPln)
	return summary, nil
}

// logNoPathDiagnostics reports the straight-line distance a NO_PATH route
// would have covered had a graph edge existed, purely to help an operator
// judge how big the missing-edge gap is — the engine itself never falls
// back to straight-line distance for any cost or feasibility decision.
func logNoPathDiagnostics(locations []model.Location, routes []model.Route, unassigned []model.Unassigned) {
	byID := make(map[int64]model.Route, len(routes))
	for _, r := range routes {
		byID[r.ID] = r
	}
	byLocation := make(map[int64]model.Location, len(locations))
	for _, l := range locations {
		byLocation[l.ID] = l
	}

	for _, u := range unassigned {
		if u.Reasons[model.ReasonNoPath] == 0 {
			continue
		}
		route, ok := byID[u.RouteID]
		if !ok {
			continue
		}
		start, startOK := byLocation[route.StartLocationID]
		end, endOK := byLocation[route.EndLocationID]
		if !startOK || !endOK {
			continue
		}
		log.Printf("[rundriver] route %d unassigned with NO_PATH; straight-line start-to-end distance of the route is %.1fkm",
			u.RouteID, geo.HaversineKm(start, end))
	}
}

func validateLocationRefs(locations []model.Location, routes []model.Route) error {
	known := make(map[int64]bool, len(locations))
	for _, l := range locations {
		known[l.ID] = true
	}
	for _, r := range routes {
		if r.StartLocationID != 0 && !known[r.StartLocationID] {
			return fmt.Errorf("rundriver: route %d references unknown location %d: %w", r.ID, r.StartLocationID, engineerr.ErrInputInvalid)
		}
		if r.EndLocationID != 0 && !known[r.EndLocationID] {
			return fmt.Errorf("rundriver: route %d references unknown location %d: %w", r.ID, r.EndLocationID, engineerr.ErrInputInvalid)
		}
	}
	return nil
}

// withCancellation combines ctx with d.cfg.MaxWallClock and a poller over
// d.cancel, both feeding the same derived context the Assignment Engine
// already watches via ctx.Done() between routes (spec.md §5). The engine
// itself needs no knowledge of wall-clock budgets or external signals.
func (d *Driver) withCancellation(ctx context.Context) (context.Context, func()) {
	runCtx := ctx
	var cancels []func()

	if d.cfg.MaxWallClock > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d.cfg.MaxWallClock)
		cancels = append(cancels, cancel)
	}

	if d.cancel != nil {
		derived, cancel := context.WithCancel(runCtx)
		runCtx = derived
		cancels = append(cancels, cancel)

		var once sync.Once
		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-derived.Done():
					return
				case <-ticker.C:
					if d.cancel.Cancelled(derived) {
						once.Do(cancel)
						return
					}
				}
			}
		}()
	}

	return runCtx, func() {
		for _, c := range cancels {
			c()
		}
	}
}

// progressState tracks the last reported route count and day boundary so
// maybeReport only fires on the configured cadence.
type progressState struct {
	interval     int
	dayStep      int
	lastReported int
	lastDay      time.Time
	dayInit      bool
}

func (d *Driver) maybeReport(ctx context.Context, s *progressState, processed, total int, route model.Route) {
	if d.reporter == nil {
		return
	}

	dueByCount := s.interval > 0 && processed-s.lastReported >= s.interval
	dueByDay := false
	if s.dayStep > 0 {
		if !s.dayInit {
			s.lastDay = route.StartTime
			s.dayInit = true
		} else if route.StartTime.Sub(s.lastDay) >= time.Duration(s.dayStep)*24*time.Hour {
			dueByDay = true
			s.lastDay = route.StartTime
		}
	}

	if !dueByCount && !dueByDay && processed != total {
		return
	}

	s.lastReported = processed
	d.reporter.Report(ctx, ProgressEvent{
		RoutesProcessed: processed,
		TotalRoutes:     total,
		Day:             route.StartTime,
	})
}

func summarize(result assignment.Result, states map[int64]model.VehicleState) RunSummary {
	summary := RunSummary{
		Assignments:        result.Assignments,
		Unassigned:         result.Unassigned,
		Cancelled:          result.Cancelled,
		VehicleStates:      states,
		UnassignedByReason: make(map[model.ReasonCode]int),
	}

	for _, a := range result.Assignments {
		summary.TotalCostPln += a.TotalCostPln
		if a.RequiresRelocation {
			summary.RelocationCount++
		}
		if a.RequiresService {
			summary.ServiceCount++
		}
	}

	for _, u := range result.Unassigned {
		for reason, count := range u.Reasons {
			summary.UnassignedByReason[reason] += count
		}
	}

	for _, v := range states {
		summary.OverageKm += overageKmFor(v)
	}

	return summary
}

// overageKmFor reports the km a vehicle has run past its annual limit this
// lease year, used for the run summary's total overage figure.
func overageKmFor(v model.VehicleState) int {
	if over := v.KmThisLeaseYear - v.AnnualLimitKm; over > 0 {
		return over
	}
	return 0
}
