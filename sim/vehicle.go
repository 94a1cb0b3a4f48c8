package sim

import (
	"fmt"
)

// VehicleState represents the lifecycle state of a vehicle.
// waiting → busy → waiting ... → busy → finished.
type VehicleState string

const (
	VehicleWaiting  VehicleState = "waiting"
	VehicleBusy     VehicleState = "busy"
	VehicleFinished VehicleState = "finished"
)

// PickupFailure names the reason a pickup could not be performed.
type PickupFailure string

const (
	PickupCapacity PickupFailure = "capacity"
	PickupWindow   PickupFailure = "window"
)

// PickupResult reports whether a pickup succeeded and, if not, why.
type PickupResult struct {
	OK     bool          `json:"ok"`
	Reason PickupFailure `json:"reason,omitempty"`
}

// Vehicle is a capacity-limited carrier moving through the plane.
type Vehicle struct {
	ID               int
	Position         Point
	Capacity         int     // Max simultaneous requests on board (fixed)
	MaxRouteDuration float64 // Budget from depot departure to end depot return (fixed, 0 = unbounded)

	State VehicleState
	Trunk *Trunk

	// destination is nil while the vehicle has nowhere to go.
	destination *Destination

	Odometer      float64 // Distance covered this episode
	Departed      bool    // Whether the vehicle has left its start position
	DepartureTime float64 // Clock when the vehicle first moved
	ReturnTime    float64 // Clock when the vehicle finished
}

// NewVehicle creates a waiting vehicle with an empty trunk at position.
func NewVehicle(id int, position Point, capacity int, maxRouteDuration float64) *Vehicle {
	return &Vehicle{
		ID:               id,
		Position:         position,
		Capacity:         capacity,
		MaxRouteDuration: maxRouteDuration,
		State:            VehicleWaiting,
		Trunk:            &Trunk{},
	}
}

// Destination returns the current destination, or nil when unset.
func (v *Vehicle) Destination() *Destination {
	return v.destination
}

// SetDestination records where the vehicle is heading.
func (v *Vehicle) SetDestination(d Destination) {
	v.destination = &d
}

// ClearDestination unsets the destination.
func (v *Vehicle) ClearDestination() {
	v.destination = nil
}

// DistanceToDestination returns the Euclidean distance left to the destination.
// ok is false when no destination is set.
func (v *Vehicle) DistanceToDestination() (dist float64, ok bool) {
	if v.destination == nil {
		return 0, false
	}
	return Distance(v.Position, v.destination.Point), true
}

// Move overwrites the position. Used both for arrivals and partial moves.
func (v *Vehicle) Move(p Point) {
	v.Position = p
}

// PickupRequest loads r iff the trunk has room and currentTime lies within
// r's pickup window; r then transitions to in_trunk. On failure nothing
// changes and the result names the reason.
func (v *Vehicle) PickupRequest(r *Request, currentTime float64) PickupResult {
	if v.Trunk.Len() >= v.Capacity {
		return PickupResult{Reason: PickupCapacity}
	}
	if !r.CheckWindow(currentTime, true) {
		return PickupResult{Reason: PickupWindow}
	}
	v.Trunk.Enqueue(r)
	r.SetState(RequestInTrunk)
	r.PickupTime = currentTime
	return PickupResult{OK: true}
}

// DropoffRequest unloads the front of the trunk and marks it delivered.
// Returns ErrEmptyTrunk when nothing is on board.
func (v *Vehicle) DropoffRequest() (*Request, error) {
	r := v.Trunk.Dequeue()
	if r == nil {
		return nil, fmt.Errorf("vehicle %d dropoff: %w", v.ID, ErrEmptyTrunk)
	}
	r.SetState(RequestDelivered)
	return r, nil
}

// SetState overwrites the lifecycle state.
func (v *Vehicle) SetState(state VehicleState) {
	v.State = state
}

// Load returns the number of requests on board.
func (v *Vehicle) Load() int {
	return v.Trunk.Len()
}

// clone returns a copy reset to the start of an episode at position.
func (v *Vehicle) clone(position Point) *Vehicle {
	return NewVehicle(v.ID, position, v.Capacity, v.MaxRouteDuration)
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle_%d_status:%s", v.ID, v.State)
}
