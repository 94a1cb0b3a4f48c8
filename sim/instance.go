package sim

import "fmt"

// InstanceSize is the externally declared shape of an instance.
type InstanceSize struct {
	Vehicles int
	Requests int
}

// Instance is the problem definition: depots, requests and vehicles.
// It is a template: NewSimulator clones its entities for every episode, so
// an Instance is never mutated by a simulation.
type Instance struct {
	StartDepot Point
	EndDepot   Point
	Requests   []*Request
	Vehicles   []*Vehicle
}

// NewInstance validates the structural invariants and returns the instance.
// A count that disagrees with declared yields ErrInstanceMismatch.
func NewInstance(startDepot, endDepot Point, vehicles []*Vehicle, requests []*Request, declared InstanceSize) (*Instance, error) {
	if len(vehicles) != declared.Vehicles {
		return nil, fmt.Errorf("%w: %d vehicles, declared %d", ErrInstanceMismatch, len(vehicles), declared.Vehicles)
	}
	if len(requests) != declared.Requests {
		return nil, fmt.Errorf("%w: %d requests, declared %d", ErrInstanceMismatch, len(requests), declared.Requests)
	}
	if len(vehicles) == 0 {
		return nil, fmt.Errorf("%w: instance has no vehicles", ErrInstanceMismatch)
	}
	seenVehicles := make(map[int]bool, len(vehicles))
	for i, v := range vehicles {
		if v == nil {
			return nil, fmt.Errorf("vehicle[%d] is nil", i)
		}
		if v.Capacity <= 0 {
			return nil, fmt.Errorf("vehicle %d: capacity must be positive, got %d", v.ID, v.Capacity)
		}
		if seenVehicles[v.ID] {
			return nil, fmt.Errorf("%w: duplicate vehicle id %d", ErrInstanceMismatch, v.ID)
		}
		seenVehicles[v.ID] = true
	}
	seenRequests := make(map[int]bool, len(requests))
	for i, r := range requests {
		if r == nil {
			return nil, fmt.Errorf("request[%d] is nil", i)
		}
		if !r.StartWindow.Defined() || !r.EndWindow.Defined() {
			return nil, fmt.Errorf("request %d: %w", r.ID, ErrIncompleteRequest)
		}
		if seenRequests[r.ID] {
			return nil, fmt.Errorf("%w: duplicate request id %d", ErrInstanceMismatch, r.ID)
		}
		seenRequests[r.ID] = true
	}
	return &Instance{
		StartDepot: startDepot,
		EndDepot:   endDepot,
		Requests:   requests,
		Vehicles:   vehicles,
	}, nil
}

// Size returns the instance's actual shape.
func (inst *Instance) Size() InstanceSize {
	return InstanceSize{Vehicles: len(inst.Vehicles), Requests: len(inst.Requests)}
}
