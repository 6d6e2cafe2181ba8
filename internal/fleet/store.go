// Package fleet implements the Vehicle State Store (spec.md §4.4): the
// single owner of every VehicleState, mutated only through Advance — the
// in-memory analogue of the teacher's pessimistic-locked booking
// transaction, here a sync.RWMutex guarding a map instead of a Postgres
// row lock, since no database sits under the engine core (spec.md §1).
package fleet

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/engineerr"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

// Outcome carries the decisions Advance must commit for one route: whether
// a relocation edge was traversed, and whether a service was triggered.
// The Assignment Engine computes these from the Feasibility/Cost kernels
// before calling Advance; Advance itself never re-derives them.
type Outcome struct {
	RequiresRelocation bool
	FromLocationID     int64
	RelocationEdge      model.LocationEdge

	RequiresService bool

	RelocationCostPln float64
	OverageCostPln    float64
	ServicePenaltyPln float64
}

// Store owns every VehicleState, keyed by vehicle id.
//
// Concurrency discipline (spec.md §5): SnapshotForScoring takes a read
// lock — many callers may score candidates for the same route
// concurrently — and Advance takes the exclusive write lock, so the
// winning candidate's commit can never interleave with a concurrent
// snapshot read.
type Store struct {
	mu            sync.RWMutex
	vehicles      map[int64]*model.VehicleState
	servicePolicy config.ServicePolicyConfig
	swapPolicy    config.SwapPolicyConfig
}

// NewStore seeds the store from Placement's output and each vehicle's
// leasing contract. placement maps vehicle id to its initial location;
// runStart is the run's t0 — every vehicle starts IDLE_AT(placement[v],
// runStart - 24h) per spec.md §4.8.
func NewStore(specs []model.VehicleSpec, placement map[int64]int64, runStart time.Time, servicePolicy config.ServicePolicyConfig, swapPolicy config.SwapPolicyConfig) *Store {
	s := &Store{
		vehicles:      make(map[int64]*model.VehicleState, len(specs)),
		servicePolicy: servicePolicy,
		swapPolicy:    swapPolicy,
	}
	availableFrom := runStart.Add(-24 * time.Hour)

	for _, spec := range specs {
		loc := placement[spec.ID]
		s.vehicles[spec.ID] = &model.VehicleState{
			VehicleID:            spec.ID,
			CurrentLocationID:    loc,
			CurrentOdometerKm:    spec.CurrentOdometerKm,
			KmSinceLastService:   0,
			KmThisLeaseYear:      0,
			TotalLifetimeKm:      spec.CurrentOdometerKm,
			AvailableFrom:        availableFrom,
			LeaseCycleNumber:     0,
			LeaseStartDate:       spec.LeaseStartDate,
			LeaseEndDate:         spec.LeaseEndDate,
			AnnualLimitKm:        spec.AnnualLimitKm(),
			ServiceIntervalKm:    spec.ServiceIntervalKm,
			TotalContractLimitKm: spec.ContractLimitKm(),
		}
	}
	return s
}

// SnapshotForScoring returns a read-only, lease-rolled copy of vehicle v's
// state as of route R, for use by the Cost and Feasibility kernels. The
// roll is applied to the copy only; nothing is committed until Advance.
func (s *Store) SnapshotForScoring(vehicleID int64, asOf time.Time) (model.VehicleState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return model.VehicleState{}, fmt.Errorf("fleet: snapshot: %w: vehicle %d", engineerr.ErrInternal, vehicleID)
	}

	snap := v.Clone()
	rollLeaseCycle(&snap, asOf)
	return snap, nil
}

// Advance is the sole commit path (spec.md §4.4): it rolls the lease
// cycle forward, performs service if outcome.RequiresService, records a
// relocation tuple if outcome.RequiresRelocation, increments mileage
// counters, and moves the vehicle to the route's end.
func (s *Store) Advance(vehicleID int64, route model.Route, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("fleet: advance: %w: vehicle %d", engineerr.ErrInternal, vehicleID)
	}

	rollLeaseCycle(v, route.StartTime)

	if outcome.RequiresService {
		v.KmSinceLastService = 0
		v.AvailableFrom = v.AvailableFrom.Add(time.Duration(s.servicePolicy.ServiceDurationHours) * time.Hour)
		v.TotalServiceCount++
		v.TotalServiceCostPln += s.servicePolicy.ServiceCostPln
		log.Printf("[fleet] vehicle %d serviced (count=%d)", vehicleID, v.TotalServiceCount)
	}

	if outcome.RequiresRelocation {
		v.Relocations = append(v.Relocations, model.Relocation{
			Time:   route.StartTime,
			FromID: outcome.FromLocationID,
			ToID:   route.StartLocationID,
		})
	}

	km := roundKm(route.DistanceKm)
	kmBefore := v.CurrentOdometerKm
	v.CurrentOdometerKm += km
	v.KmSinceLastService += km
	v.KmThisLeaseYear += km
	v.TotalLifetimeKm += km

	if v.TotalContractLimitKm > 0 && v.TotalLifetimeKm > v.TotalContractLimitKm {
		return fmt.Errorf("fleet: advance: %w: vehicle %d would exceed lifetime limit (%d > %d)",
			engineerr.ErrInternal, vehicleID, v.TotalLifetimeKm, v.TotalContractLimitKm)
	}

	v.CurrentLocationID = route.EndLocationID
	v.AvailableFrom = route.EndTime
	v.LastRouteID = route.ID

	v.TotalRelocationCostPln += outcome.RelocationCostPln
	v.TotalOverageCostPln += outcome.OverageCostPln

	pruneRelocations(v, route.StartTime, s.swapPolicy.SwapPeriodDays)

	log.Printf("[fleet] vehicle %d advanced: route=%d km %d->%d loc=%d available_from=%s",
		vehicleID, route.ID, kmBefore, v.CurrentOdometerKm, v.CurrentLocationID, v.AvailableFrom.Format(time.RFC3339))

	return nil
}

// PruneSwapWindow discards relocation tuples older than
// now - swap_period_days. Advance already calls this after every commit;
// it is exported for callers that inspect or replay state outside the
// normal commit path.
func (s *Store) PruneSwapWindow(vehicleID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles[vehicleID]
	if !ok {
		return fmt.Errorf("fleet: prune: %w: vehicle %d", engineerr.ErrInternal, vehicleID)
	}
	pruneRelocations(v, now, s.swapPolicy.SwapPeriodDays)
	return nil
}

// All returns every current VehicleState, for final run-summary reporting.
// Callers must not mutate the returned states.
func (s *Store) All() map[int64]model.VehicleState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]model.VehicleState, len(s.vehicles))
	for id, v := range s.vehicles {
		out[id] = *v
	}
	return out
}

// rollLeaseCycle advances [lease_start_date, lease_end_date) by one lease
// year at a time until asOf is within the current cycle, resetting
// KmThisLeaseYear to 0 on every roll (spec.md §3 invariant, §4.3's
// "Lease-boundary correctness").
func rollLeaseCycle(v *model.VehicleState, asOf time.Time) {
	for !v.LeaseEndDate.IsZero() && !asOf.Before(v.LeaseEndDate) {
		v.LeaseStartDate = v.LeaseEndDate
		v.LeaseEndDate = v.LeaseEndDate.AddDate(1, 0, 0)
		v.LeaseCycleNumber++
		v.KmThisLeaseYear = 0
	}
}

func pruneRelocations(v *model.VehicleState, now time.Time, swapPeriodDays int) {
	cutoff := now.AddDate(0, 0, -swapPeriodDays)
	kept := v.Relocations[:0]
	for _, r := range v.Relocations {
		if !r.Time.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	v.Relocations = kept
}

func roundKm(km float64) int {
	if km < 0 {
		return 0
	}
	return int(km + 0.5)
}
