// Defines the Request struct that models one transportation demand in the simulation.
// Tracks pickup/dropoff locations, service windows and the pickup → in_trunk → delivered lifecycle.

package sim

import (
	"fmt"
	"math"
)

// RequestState represents the lifecycle state of a request.
// Transitions are one-directional: pickup → in_trunk → delivered.
type RequestState string

const (
	RequestPickup    RequestState = "pickup"
	RequestInTrunk   RequestState = "in_trunk"
	RequestDelivered RequestState = "delivered"
)

// TimeWindow is the interval [Earliest, Latest] during which a service may begin.
type TimeWindow struct {
	Earliest float64 `json:"earliest" yaml:"earliest"`
	Latest   float64 `json:"latest" yaml:"latest"`
}

// UnboundedWindow returns a window that accepts any non-negative time.
// The upper bound is finite so observations stay JSON-encodable.
func UnboundedWindow() TimeWindow {
	return TimeWindow{Earliest: 0, Latest: math.MaxFloat64}
}

// Defined reports whether the window is a usable interval.
// NaN bounds or Latest < Earliest mark a window that was never resolved.
func (w TimeWindow) Defined() bool {
	if math.IsNaN(w.Earliest) || math.IsNaN(w.Latest) {
		return false
	}
	return w.Earliest <= w.Latest
}

// Contains reports whether t lies in the window. Values within eps of
// either bound count as inside. Undefined windows contain nothing.
func (w TimeWindow) Contains(t, eps float64) bool {
	if !w.Defined() {
		return false
	}
	if floatEqual(t, w.Earliest, eps) || floatEqual(t, w.Latest, eps) {
		return true
	}
	return w.Earliest <= t && t <= w.Latest
}

// Request models a single pickup/dropoff demand.
// Requests reaching the engine are fully formed: build two-phase data
// (pickup half first, dropoff half later) through RequestBuilder.
type Request struct {
	ID int // Unique identifier (as declared by the instance source)

	Pickup  Point // Pickup coordinate
	Dropoff Point // Dropoff coordinate

	StartWindow TimeWindow // Window in which pickup service may begin
	EndWindow   TimeWindow // Window in which dropoff service may begin
	MaxRideTime float64    // Bound on dropoff time minus pickup time (0 = unbounded)

	State RequestState // pickup, in_trunk, delivered

	PickupTime  float64 // Simulated time the request entered a trunk (valid once in_trunk)
	DropoffTime float64 // Simulated time the request was delivered (valid once delivered)
}

// NewRequest creates a request in the pickup state.
func NewRequest(id int, pickup, dropoff Point, startWindow, endWindow TimeWindow, maxRideTime float64) *Request {
	return &Request{
		ID:          id,
		Pickup:      pickup,
		Dropoff:     dropoff,
		StartWindow: startWindow,
		EndWindow:   endWindow,
		MaxRideTime: maxRideTime,
		State:       RequestPickup,
	}
}

// CheckWindow reports whether currentTime lies inside the pickup window
// (pickup == true) or the dropoff window (pickup == false), with an
// Epsilon-tolerant boundary comparison. It never panics: an undefined
// window yields false.
func (r *Request) CheckWindow(currentTime float64, pickup bool) bool {
	if pickup {
		return r.StartWindow.Contains(currentTime, Epsilon)
	}
	return r.EndWindow.Contains(currentTime, Epsilon)
}

// SetState overwrites the lifecycle state. Sequencing is the caller's job;
// Vehicle.PickupRequest and Vehicle.DropoffRequest are the legal callers.
func (r *Request) SetState(state RequestState) {
	r.State = state
}

// RideTime returns the time spent in a trunk. Only meaningful once delivered.
func (r *Request) RideTime() float64 {
	return r.DropoffTime - r.PickupTime
}

// clone returns a copy reset to the start of an episode.
func (r *Request) clone() *Request {
	c := *r
	c.State = RequestPickup
	c.PickupTime = 0
	c.DropoffTime = 0
	return &c
}

func (r *Request) String() string {
	return fmt.Sprintf("Request_%d_status:%s", r.ID, r.State)
}
