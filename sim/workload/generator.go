package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hbenedek/dial-a-ride/sim"
)

// Generate creates a random instance from spec.
// Deterministic given the same spec: every draw comes from the instance
// subsystem of a PartitionedRNG keyed by spec.Seed.
// Requests get sequential IDs starting at 1, matching Cordeau numbering.
func Generate(spec *GeneratorSpec) (*sim.Instance, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator spec: %w", err)
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(spec.Seed)).ForSubsystem(sim.SubsystemInstance)

	// Draw order: all pickups, all dropoffs, then both depots.
	pickups := make([]sim.Point, spec.NbRequests)
	for i := range pickups {
		pickups[i] = uniformPoint(rng, spec.Size)
	}
	dropoffs := make([]sim.Point, spec.NbRequests)
	for i := range dropoffs {
		dropoffs[i] = uniformPoint(rng, spec.Size)
	}
	startDepot := uniformPoint(rng, spec.Size)
	endDepot := uniformPoint(rng, spec.Size)

	vehicles := make([]*sim.Vehicle, spec.NbVehicles)
	for i := range vehicles {
		vehicles[i] = sim.NewVehicle(i, startDepot, spec.Capacity, spec.MaxRouteDuration)
	}

	requests := make([]*sim.Request, spec.NbRequests)
	for i := range requests {
		start, end := generateWindows(rng, spec, pickups[i], dropoffs[i])
		r, err := sim.NewRequestBuilder(i+1, spec.MaxRideTime).
			WithPickup(pickups[i], start).
			WithDropoff(dropoffs[i], end).
			Build()
		if err != nil {
			return nil, err
		}
		requests[i] = r
	}

	return sim.NewInstance(startDepot, endDepot, vehicles, requests,
		sim.InstanceSize{Vehicles: spec.NbVehicles, Requests: spec.NbRequests})
}

// generateWindows returns the pickup and dropoff windows of one request.
// Without a window width both span the whole episode. Otherwise the pickup
// window has that width and the dropoff window follows it by the direct
// travel time, closing no later than the ride-time budget allows.
func generateWindows(rng *rand.Rand, spec *GeneratorSpec, pickup, dropoff sim.Point) (sim.TimeWindow, sim.TimeWindow) {
	if spec.WindowWidth == 0 {
		w := sim.TimeWindow{Earliest: 0, Latest: spec.TimeEnd}
		return w, w
	}
	earliest := rng.Float64() * (spec.TimeEnd - spec.WindowWidth)
	start := sim.TimeWindow{Earliest: earliest, Latest: earliest + spec.WindowWidth}

	direct := sim.Distance(pickup, dropoff) / sim.DefaultSpeed
	budget := direct + spec.WindowWidth
	if spec.MaxRideTime > 0 {
		budget = math.Max(direct, spec.MaxRideTime)
	}
	end := sim.TimeWindow{Earliest: start.Earliest + direct, Latest: start.Latest + budget}
	return start, end
}

func uniformPoint(rng *rand.Rand, size float64) sim.Point {
	return sim.Point{
		X: -size + 2*size*rng.Float64(),
		Y: -size + 2*size*rng.Float64(),
	}
}
