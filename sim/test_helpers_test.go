package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// pt is shorthand for a point literal.
func pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// openRequest builds a request with unbounded windows.
func openRequest(id int, pickup, dropoff Point) *Request {
	return NewRequest(id, pickup, dropoff, UnboundedWindow(), UnboundedWindow(), 0)
}

// newTestInstance builds an instance with both depots at the origin and
// nbVehicles vehicles of the given capacity.
func newTestInstance(t *testing.T, nbVehicles, capacity int, requests ...*Request) *Instance {
	t.Helper()
	vehicles := make([]*Vehicle, nbVehicles)
	for i := range vehicles {
		vehicles[i] = NewVehicle(i, pt(0, 0), capacity, 0)
	}
	inst, err := NewInstance(pt(0, 0), pt(0, 0), vehicles, requests, InstanceSize{Vehicles: nbVehicles, Requests: len(requests)})
	require.NoError(t, err)
	return inst
}

// newTestSimulator builds a simulator with TimeEnd=100 and a generous step limit.
func newTestSimulator(t *testing.T, inst *Instance) *Simulator {
	t.Helper()
	cfg := NewConfig(100, 100)
	cfg.Trace = true
	s, err := NewSimulator(inst, cfg, nil)
	require.NoError(t, err)
	return s
}

// mustStep applies action and fails the test on error.
func mustStep(t *testing.T, s *Simulator, action int) *StepResult {
	t.Helper()
	res, err := s.Step(action)
	require.NoError(t, err)
	return res
}

// assertCapacityInvariant checks every trunk is within its capacity.
func assertCapacityInvariant(t *testing.T, s *Simulator) {
	t.Helper()
	for _, v := range s.Vehicles {
		require.LessOrEqual(t, v.Trunk.Len(), v.Capacity, "vehicle %d over capacity", v.ID)
	}
}

// greedyAction prefers dropping off, then an open pickup, then the end depot.
func greedyAction(obs *Observation) int {
	best := -1
	for _, d := range obs.ValidActions {
		switch d.Kind {
		case DestinationDropoff:
			return d.Action
		case DestinationPickup:
			if best < 0 {
				best = d.Action
			}
		}
	}
	if best >= 0 {
		return best
	}
	for _, d := range obs.ValidActions {
		if d.Kind == DestinationEndDepot {
			return d.Action
		}
	}
	return obs.ValidActions[0].Action
}
