// Package store persists a finished run the way BookingRepository commits a
// booking: one transaction, several related writes, commit-or-rollback as a
// unit. PostgresRunStore is the only implementation; RunStore is the named
// interface the Run Driver's caller (internal/handler) depends on instead of
// pgx directly, per SPEC_FULL.md's architecture note that no engine-core
// package imports the database driver.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
	"github.com/TechniCodeCamp2025/fleet-api/internal/rundriver"
)

// RunStore persists a completed run's assignment log, vehicle-state log and
// summary, and retrieves a summary back by id.
type RunStore interface {
	SaveRun(ctx context.Context, runID int64, startedAt time.Time, summary rundriver.RunSummary) error
	LoadRunSummary(ctx context.Context, runID int64) (rundriver.RunSummary, error)
}

// PostgresRunStore is the pgx-backed RunStore.
type PostgresRunStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRunStore builds a PostgresRunStore over an already-connected pool.
func NewPostgresRunStore(pool *pgxpool.Pool) *PostgresRunStore {
	return &PostgresRunStore{pool: pool}
}

// SaveRun writes the run row, the assignment log, the unassigned-route log
// and the final per-vehicle state snapshot in a single transaction — a run
// is never partially visible to a reader.
func (s *PostgresRunStore) SaveRun(ctx context.Context, runID int64, startedAt time.Time, summary rundriver.RunSummary) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, started_at, finished_at, cancelled, total_cost_pln,
		                   relocation_count, service_count, overage_km)
		VALUES ($1, $2, now(), $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			finished_at       = EXCLUDED.finished_at,
			cancelled         = EXCLUDED.cancelled,
			total_cost_pln    = EXCLUDED.total_cost_pln,
			relocation_count  = EXCLUDED.relocation_count,
			service_count     = EXCLUDED.service_count,
			overage_km        = EXCLUDED.overage_km
	`, runID, startedAt, summary.Cancelled, summary.TotalCostPln,
		summary.RelocationCount, summary.ServiceCount, summary.OverageKm)
	if err != nil {
		return fmt.Errorf("store: insert run %d: %w", runID, err)
	}

	batch := &pgx.Batch{}
	for _, a := range summary.Assignments {
		batch.Queue(`
			INSERT INTO run_assignments
				(run_id, route_id, vehicle_id, requires_relocation, requires_service,
				 relocation_cost_pln, overage_cost_pln, service_penalty_pln, total_cost_pln,
				 vehicle_km_before, vehicle_km_after)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, runID, a.RouteID, a.VehicleID, a.RequiresRelocation, a.RequiresService,
			a.RelocationCostPln, a.OverageCostPln, a.ServicePenaltyPln, a.TotalCostPln,
			a.VehicleKmBefore, a.VehicleKmAfter)
	}
	for _, u := range summary.Unassigned {
		for reason, count := range u.Reasons {
			batch.Queue(`
				INSERT INTO run_unassigned (run_id, route_id, start_time, reason, count)
				VALUES ($1, $2, $3, $4, $5)
			`, runID, u.RouteID, u.StartTime, string(reason), count)
		}
	}
	for vehicleID, vs := range summary.VehicleStates {
		batch.Queue(`
			INSERT INTO run_vehicle_states
				(run_id, vehicle_id, current_location_id, current_odometer_km,
				 km_since_last_service, km_this_lease_year, total_lifetime_km,
				 available_from, lease_cycle_number, total_service_count,
				 total_service_cost_pln, total_relocation_cost_pln, total_overage_cost_pln)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, runID, vehicleID, vs.CurrentLocationID, vs.CurrentOdometerKm,
			vs.KmSinceLastService, vs.KmThisLeaseYear, vs.TotalLifetimeKm,
			vs.AvailableFrom, vs.LeaseCycleNumber, vs.TotalServiceCount,
			vs.TotalServiceCostPln, vs.TotalRelocationCostPln, vs.TotalOverageCostPln)
	}

	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("store: batch insert (run %d, item %d): %w", runID, i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("store: close batch (run %d): %w", runID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit run %d: %w", runID, err)
	}
	return nil
}

// LoadRunSummary reconstructs a RunSummary from the persisted tables,
// for the run-status HTTP handler to serve after a process restart.
func (s *PostgresRunStore) LoadRunSummary(ctx context.Context, runID int64) (rundriver.RunSummary, error) {
	summary := rundriver.RunSummary{UnassignedByReason: make(map[model.ReasonCode]int)}

	err := s.pool.QueryRow(ctx, `
		SELECT cancelled, total_cost_pln, relocation_count, service_count, overage_km
		FROM runs WHERE id = $1
	`, runID).Scan(&summary.Cancelled, &summary.TotalCostPln,
		&summary.RelocationCount, &summary.ServiceCount, &summary.OverageKm)
	if err != nil {
		return rundriver.RunSummary{}, fmt.Errorf("store: load run %d: %w", runID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT route_id, vehicle_id, requires_relocation, requires_service,
		       relocation_cost_pln, overage_cost_pln, service_penalty_pln, total_cost_pln,
		       vehicle_km_before, vehicle_km_after
		FROM run_assignments WHERE run_id = $1 ORDER BY route_id
	`, runID)
	if err != nil {
		return rundriver.RunSummary{}, fmt.Errorf("store: load assignments for run %d: %w", runID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.RouteID, &a.VehicleID, &a.RequiresRelocation, &a.RequiresService,
			&a.RelocationCostPln, &a.OverageCostPln, &a.ServicePenaltyPln, &a.TotalCostPln,
			&a.VehicleKmBefore, &a.VehicleKmAfter); err != nil {
			return rundriver.RunSummary{}, fmt.Errorf("store: scan assignment for run %d: %w", runID, err)
		}
		summary.Assignments = append(summary.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return rundriver.RunSummary{}, fmt.Errorf("store: iterate assignments for run %d: %w", runID, err)
	}

	reasonRows, err := s.pool.Query(ctx, `
		SELECT route_id, reason, count FROM run_unassigned WHERE run_id = $1
	`, runID)
	if err != nil {
		return rundriver.RunSummary{}, fmt.Errorf("store: load unassigned for run %d: %w", runID, err)
	}
	defer reasonRows.Close()
	byRoute := make(map[int64]model.Unassigned)
	for reasonRows.Next() {
		var routeID int64
		var reason string
		var count int
		if err := reasonRows.Scan(&routeID, &reason, &count); err != nil {
			return rundriver.RunSummary{}, fmt.Errorf("store: scan unassigned for run %d: %w", runID, err)
		}
		u, ok := byRoute[routeID]
		if !ok {
			u = model.Unassigned{RouteID: routeID, Reasons: make(map[model.ReasonCode]int)}
		}
		u.Reasons[model.ReasonCode(reason)] = count
		byRoute[routeID] = u
		summary.UnassignedByReason[model.ReasonCode(reason)] += count
	}
	if err := reasonRows.Err(); err != nil {
		return rundriver.RunSummary{}, fmt.Errorf("store: iterate unassigned for run %d: %w", runID, err)
	}
	for _, u := range byRoute {
		summary.Unassigned = append(summary.Unassigned, u)
	}

	return summary, nil
}
