// Package placement implements the Placement Engine (spec.md §4.5):
// demand analysis over the early-window routes followed by one of two
// vehicle-to-location distribution strategies. Strategy A mirrors a
// straightforward sort-and-allocate pass; Strategy B generalizes
// service.PricingService's tiered-threshold scoring (there: a surge
// multiplier keyed on demand/supply ratio) into a cost matrix keyed on
// demand and running concentration.
package placement

import (
	"log"
	"math"
	"sort"

	"github.com/TechniCodeCamp2025/fleet-api/internal/model"
)

const (
	StrategyProportional = "proportional"
	StrategyCostMatrix   = "cost_matrix"
)

// AnalyzeDemand counts routes whose start_time falls within the first
// lookaheadDays of the earliest route, grouped by start_location_id.
// Routes with no derived start location (id 0, meaning an empty segment
// list) are discarded, per spec.md §4.5's "discarding null starts".
func AnalyzeDemand(routes []model.Route, lookaheadDays int) map[int64]int {
	demand := make(map[int64]int)
	if len(routes) == 0 {
		return demand
	}

	t0 := routes[0].StartTime
	for _, r := range routes {
		if r.StartTime.Before(t0) {
			t0 = r.StartTime
		}
	}
	cutoff := t0.AddDate(0, 0, lookaheadDays)

	for _, r := range routes {
		if r.StartLocationID == 0 {
			continue
		}
		if r.StartTime.Before(cutoff) {
			demand[r.StartLocationID]++
		}
	}
	return demand
}

// effectiveCap returns the hard per-location vehicle cap: maxPerLocation
// if it was explicitly set (> 0), else floor(|V| * maxConcentration).
func effectiveCap(fleetSize int, maxConcentration float64, maxPerLocation int) int {
	if maxPerLocation > 0 {
		return maxPerLocation
	}
	cap := int(math.Floor(float64(fleetSize) * maxConcentration))
	if cap < 1 {
		cap = 1
	}
	return cap
}

// sortedLocationsByDemand returns location ids sorted by descending
// demand, ties broken by ascending location id for determinism.
func sortedLocationsByDemand(demand map[int64]int) []int64 {
	ids := make([]int64, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if demand[ids[i]] != demand[ids[j]] {
			return demand[ids[i]] > demand[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// fallbackLocation returns the placement fallback when demand is empty:
// the lowest-id hub, or the lowest-id location if no hub exists
// (spec.md §4.5, testable property 7).
func fallbackLocation(locations []model.Location) int64 {
	var hub *model.Location
	var any *model.Location
	for i := range locations {
		loc := &locations[i]
		if any == nil || loc.ID < any.ID {
			any = loc
		}
		if loc.IsHub && (hub == nil || loc.ID < hub.ID) {
			hub = loc
		}
	}
	if hub != nil {
		return hub.ID
	}
	if any != nil {
		return any.ID
	}
	return 0
}

// PlaceProportional implements Strategy A (spec.md §4.5), the default.
// Returns a complete vehicle_id -> location_id mapping; every vehicle is
// placed exactly once.
func PlaceProportional(vehicles []model.VehicleSpec, locations []model.Location, demand map[int64]int, maxConcentration float64, maxVehiclesPerLocation int) map[int64]int64 {
	out := make(map[int64]int64, len(vehicles))

	sortedVehicles := make([]model.VehicleSpec, len(vehicles))
	copy(sortedVehicles, vehicles)
	sort.Slice(sortedVehicles, func(i, j int) bool { return sortedVehicles[i].ID < sortedVehicles[j].ID })

	if len(demand) == 0 {
		loc := fallbackLocation(locations)
		for _, v := range sortedVehicles {
			out[v.ID] = loc
		}
		log.Printf("[placement] no demand; placed %d vehicles at fallback location %d", len(sortedVehicles), loc)
		return out
	}

	fleetSize := len(sortedVehicles)
	cap := effectiveCap(fleetSize, maxConcentration, maxVehiclesPerLocation)

	total := 0
	for _, d := range demand {
		total += d
	}

	order := sortedLocationsByDemand(demand)
	counts := make(map[int64]int, len(order))

	vi := 0
	for _, locID := range order {
		if vi >= fleetSize {
			break
		}
		d := demand[locID]
		allocate := int(math.Floor(float64(fleetSize) * float64(d) / float64(total)))
		if allocate < 1 {
			allocate = 1
		}
		if remaining := fleetSize - vi; allocate > remaining {
			allocate = remaining
		}
		if room := cap - counts[locID]; allocate > room {
			allocate = room
		}
		for i := 0; i < allocate && vi < fleetSize; i++ {
			out[sortedVehicles[vi].ID] = locID
			counts[locID]++
			vi++
		}
	}

	// Drain any remaining vehicles into the top-demand location, spilling
	// to the next location in demand order once a location hits its cap
	// (spec.md §9's fixed tie-break: "next location by descending demand"),
	// and after the demand locations to the zero-demand ones by ascending id.
	spill := append([]int64(nil), order...)
	var idle []int64
	for _, l := range locations {
		if _, ok := demand[l.ID]; !ok {
			idle = append(idle, l.ID)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i] < idle[j] })
	spill = append(spill, idle...)
	oi := 0
	for vi < fleetSize {
		if oi >= len(spill) {
			// Every location is at cap but vehicles remain: pile onto the
			// top-demand location regardless (a cap violation here would
			// mean cap*len(locations) < fleetSize, an input sizing issue
			// outside this engine's control).
			locID := order[0]
			out[sortedVehicles[vi].ID] = locID
			counts[locID]++
			vi++
			continue
		}
		locID := spill[oi]
		if counts[locID] >= cap {
			oi++
			continue
		}
		out[sortedVehicles[vi].ID] = locID
		counts[locID]++
		vi++
	}

	log.Printf("[placement] proportional: placed %d vehicles across %d demand locations (cap=%d)", fleetSize, len(order), cap)
	return out
}

// costMatrixEntry is the Strategy B score for one (vehicle, location)
// pair's hypothetical assignment, evaluated fresh for each vehicle since
// concentrationPenalty depends on the running per-location count.
func costMatrixEntry(demand int, count, cap int) float64 {
	demandTerm := 1000.0 / math.Log(float64(demand)+2)
	return demandTerm + concentrationPenalty(count, cap)
}

// concentrationPenalty is 0 below 70% of cap, rises quadratically to cap,
// and applies a steep penalty beyond cap (spec.md §4.5).
func concentrationPenalty(count, cap int) float64 {
	if cap <= 0 {
		return 0
	}
	threshold := 0.7 * float64(cap)
	c := float64(count)
	switch {
	case c < threshold:
		return 0
	case c < float64(cap):
		frac := (c - threshold) / (float64(cap) - threshold)
		return 1000 * frac * frac
	default:
		excess := c - float64(cap)
		return 5000 * math.Pow(excess, 1.5)
	}
}

// PlaceCostMatrix implements Strategy B (spec.md §4.5), included for
// completeness — implementations may ship only Strategy A.
func PlaceCostMatrix(vehicles []model.VehicleSpec, locations []model.Location, demand map[int64]int, maxConcentration float64, maxVehiclesPerLocation int) map[int64]int64 {
	out := make(map[int64]int64, len(vehicles))

	if len(demand) == 0 {
		loc := fallbackLocation(locations)
		for _, v := range vehicles {
			out[v.ID] = loc
		}
		return out
	}

	sortedVehicles := make([]model.VehicleSpec, len(vehicles))
	copy(sortedVehicles, vehicles)
	sort.Slice(sortedVehicles, func(i, j int) bool { return sortedVehicles[i].ID < sortedVehicles[j].ID })

	locIDs := make([]int64, 0, len(locations))
	for _, l := range locations {
		locIDs = append(locIDs, l.ID)
	}
	sort.Slice(locIDs, func(i, j int) bool { return locIDs[i] < locIDs[j] })

	cap := effectiveCap(len(sortedVehicles), maxConcentration, maxVehiclesPerLocation)
	counts := make(map[int64]int, len(locIDs))

	for _, v := range sortedVehicles {
		bestLoc := locIDs[0]
		bestScore := math.MaxFloat64
		for _, locID := range locIDs {
			score := costMatrixEntry(demand[locID], counts[locID], cap)
			if score < bestScore {
				bestScore = score
				bestLoc = locID
			}
		}
		out[v.ID] = bestLoc
		counts[bestLoc]++
	}

	log.Printf("[placement] cost_matrix: placed %d vehicles across %d locations (cap=%d)", len(sortedVehicles), len(locIDs), cap)
	return out
}

// Place dispatches to the configured strategy.
func Place(strategy string, vehicles []model.VehicleSpec, locations []model.Location, demand map[int64]int, maxConcentration float64, maxVehiclesPerLocation int) map[int64]int64 {
	switch strategy {
	case StrategyCostMatrix:
		return PlaceCostMatrix(vehicles, locations, demand, maxConcentration, maxVehiclesPerLocation)
	default:
		return PlaceProportional(vehicles, locations, demand, maxConcentration, maxVehiclesPerLocation)
	}
}
