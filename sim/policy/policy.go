// Package policy provides reference decision makers for the DARP simulator
// and the harness loop that drives an episode with one of them.
package policy

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/hbenedek/dial-a-ride/sim"
)

// DecisionPolicy picks the next action for the vehicle awaiting a decision.
// Implementations must return the Action of one of obs.ValidActions.
type DecisionPolicy interface {
	Decide(obs *sim.Observation) int
}

// validPolicies maps accepted policy names.
var validPolicies = map[string]bool{
	"nearest": true,
	"random":  true,
}

// IsValidPolicy reports whether name is a recognized policy.
func IsValidPolicy(name string) bool {
	return validPolicies[name]
}

// ValidPolicyNames returns the recognized policy names, sorted.
func ValidPolicyNames() []string {
	names := make([]string, 0, len(validPolicies))
	for name := range validPolicies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewPolicy creates a decision policy by name.
// rng is used by stochastic policies and may be nil for deterministic ones.
// Panics on unknown names; check IsValidPolicy first.
func NewPolicy(name string, rng *rand.Rand) DecisionPolicy {
	switch name {
	case "nearest":
		return &Nearest{}
	case "random":
		if rng == nil {
			panic("random policy requires an rng")
		}
		return &Random{rng: rng}
	default:
		panic(fmt.Sprintf("unknown policy %q; valid policies: %v", name, ValidPolicyNames()))
	}
}

// Nearest sends the vehicle to the closest destination it can serve on
// arrival: a pickup with room in the trunk and an open window at the
// expected arrival time, or the dropoff of the trunk front. With nothing
// servable it heads for the end depot when allowed, else drops off.
type Nearest struct{}

func (n *Nearest) Decide(obs *sim.Observation) int {
	v := obs.Vehicles[obs.CurrentVehicle]
	best, bestDist := -1, math.Inf(1)
	endDepot := -1
	for _, d := range obs.ValidActions {
		dist := sim.Distance(v.Position, d.Point)
		switch d.Kind {
		case sim.DestinationPickup:
			if !servable(obs, v, d, dist) {
				continue
			}
		case sim.DestinationDropoff:
		case sim.DestinationEndDepot:
			endDepot = d.Action
			continue
		default:
			continue
		}
		if dist < bestDist {
			best, bestDist = d.Action, dist
		}
	}
	switch {
	case best >= 0:
		return best
	case endDepot >= 0:
		return endDepot
	default:
		return obs.ValidActions[0].Action
	}
}

// servable reports whether the pickup at d would succeed if v drove there now.
func servable(obs *sim.Observation, v sim.VehicleView, d sim.Destination, dist float64) bool {
	if len(v.Trunk) >= v.Capacity {
		return false
	}
	arrival := obs.Time + dist/obs.Speed
	return obs.Requests[d.Request].StartWindow.Contains(arrival, sim.Epsilon)
}

// Random picks uniformly among the valid actions.
type Random struct {
	rng *rand.Rand
}

func (r *Random) Decide(obs *sim.Observation) int {
	return obs.ValidActions[r.rng.Intn(len(obs.ValidActions))].Action
}

// RunEpisode drives s with p until the episode is done and returns its metrics.
// The first step error aborts the loop; the metrics gathered so far are returned with it.
func RunEpisode(s *sim.Simulator, p DecisionPolicy) (*sim.Metrics, error) {
	for !s.Done() {
		obs := s.Observe()
		if len(obs.ValidActions) == 0 {
			return s.Metrics, fmt.Errorf("step %d: no valid action for vehicle %d", obs.Step, obs.CurrentVehicle)
		}
		if _, err := s.Step(p.Decide(obs)); err != nil {
			return s.Metrics, err
		}
	}
	return s.Metrics, nil
}
