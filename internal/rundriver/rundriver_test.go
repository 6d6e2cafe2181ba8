package rundriver

import (
	"context"
	"testing"
	"time"

	"github.com/TechniCodeCamp2025/fleet-api/config"
	"github.com/TechniCodeCamp2025/fleet-api/internal/graph"
	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

func testConfig() Config {
	return Config{
		Placement:     config.PlacementConfig{Strategy: "proportional", LookaheadDays: 14, MaxConcentration: 0.5},
		Assignment:    config.AssignmentConfig{ChainWeight: 0.5, ChainDepth: 3, MaxLookaheadRoutes: 20, LookAheadDays: 7},
		SwapPolicy:    config.SwapPolicyConfig{MaxSwapsPerPeriod: 2, SwapPeriodDays: 90},
		ServicePolicy: config.ServicePolicyConfig{ServiceToleranceKm: 2000, ServiceDurationHours: 24, ServiceCostPln: 1200},
		Costs:         config.CostsConfig{RelocationBaseCostPln: 1000, RelocationPerKmPln: 1, RelocationPerHourPln: 150, OveragePerKmPln: 0.92},
		Performance:   config.PerformanceConfig{ProgressReportInterval: 1, ProgressReportDays: 1},
	}
}

type recordingReporter struct {
	events []ProgressEvent
}

func (r *recordingReporter) Report(_ context.Context, evt ProgressEvent) {
	r.events = append(r.events, evt)
}

type alwaysCancelled struct{}

func (alwaysCancelled) Cancelled(context.Context) bool { return true }

func TestRun_SingleRouteAssignedAndReported(t *testing.T) {
	runStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locations := []model.Location{{ID: 10, IsHub: true}}
	vehicles := []model.VehicleSpec{{ID: 1, LeasingLimitKm: 150_000, LeaseStartDate: runStart, LeaseEndDate: runStart.AddDate(1, 0, 0)}}
	routes := []model.Route{{
		ID: 1, StartLocationID: 10, EndLocationID: 10,
		StartTime: runStart.Add(8 * time.Hour), EndTime: runStart.Add(12 * time.Hour), DistanceKm: 100,
		Segments: []model.Segment{{RouteID: 1, Seq: 0, StartLocationID: 10, EndLocationID: 10}},
	}}

	reporter := &recordingReporter{}
	d := NewDriver(graph.New(nil), testConfig(), reporter, nil)

	summary, err := d.Run(context.Background(), vehicles, locations, routes, runStart)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Assignments) != 1 {
		t.Fatalf("len(Assignments) = %d, want 1", len(summary.Assignments))
	}
	if summary.Cancelled {
		t.Errorf("Cancelled = true, want false")
	}
	if len(reporter.events) == 0 {
		t.Errorf("want at least one progress event")
	}
	if _, ok := summary.VehicleStates[1]; !ok {
		t.Errorf("VehicleStates missing vehicle 1")
	}
}

func TestRun_UnknownLocationIsInputInvalid(t *testing.T) {
	runStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locations := []model.Location{{ID: 10}}
	vehicles := []model.VehicleSpec{{ID: 1, LeasingLimitKm: 150_000, LeaseStartDate: runStart, LeaseEndDate: runStart.AddDate(1, 0, 0)}}
	routes := []model.Route{{
		ID: 1, StartLocationID: 999, EndLocationID: 999,
		StartTime: runStart.Add(8 * time.Hour), EndTime: runStart.Add(12 * time.Hour), DistanceKm: 100,
		Segments: []model.Segment{{RouteID: 1, Seq: 0, StartLocationID: 999, EndLocationID: 999}},
	}}

	d := NewDriver(graph.New(nil), testConfig(), nil, nil)
	if _, err := d.Run(context.Background(), vehicles, locations, routes, runStart); err == nil {
		t.Fatal("want error for unknown location id, got nil")
	}
}

func TestRun_CancelSignalWiredRunFinishesCleanly(t *testing.T) {
	runStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locations := []model.Location{{ID: 10, IsHub: true}}
	vehicles := []model.VehicleSpec{{ID: 1, LeasingLimitKm: 150_000, LeaseStartDate: runStart, LeaseEndDate: runStart.AddDate(1, 0, 0)}}
	routes := []model.Route{{
		ID: 1, StartLocationID: 10, EndLocationID: 10,
		StartTime: runStart.Add(8 * time.Hour), EndTime: runStart.Add(12 * time.Hour), DistanceKm: 100,
		Segments: []model.Segment{{RouteID: 1, Seq: 0, StartLocationID: 10, EndLocationID: 10}},
	}}

	d := NewDriver(graph.New(nil), testConfig(), nil, alwaysCancelled{})
	summary, err := d.Run(context.Background(), vehicles, locations, routes, runStart)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The poller runs on a 500ms tick; a single fast route may complete
	// before the first tick fires, so this only asserts the run still
	// finishes cleanly with a signal wired in, not that it always cancels.
	_ = summary
}

func TestRun_MaxWallClockExceeded(t *testing.T) {
	runStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	locations := []model.Location{{ID: 10, IsHub: true}}
	vehicles := []model.VehicleSpec{{ID: 1, LeasingLimitKm: 150_000, LeaseStartDate: runStart, LeaseEndDate: runStart.AddDate(1, 0, 0)}}
	routes := []model.Route{{
		ID: 1, StartLocationID: 10, EndLocationID: 10,
		StartTime: runStart.Add(8 * time.Hour), EndTime: runStart.Add(12 * time.Hour), DistanceKm: 100,
		Segments: []model.Segment{{RouteID: 1, Seq: 0, StartLocationID: 10, EndLocationID: 10}},
	}}

	cfg := testConfig()
	cfg.MaxWallClock = time.Nanosecond
	d := NewDriver(graph.New(nil), cfg, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	summary, err := d.Run(ctx, vehicles, locations, routes, runStart)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Cancelled {
		t.Errorf("Cancelled = false, want true (wall-clock budget elapsed before the loop started)")
	}
}
