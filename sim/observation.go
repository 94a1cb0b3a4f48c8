package sim

// VehicleView is the read-only snapshot of one vehicle.
type VehicleView struct {
	ID          int          `json:"id"`
	State       VehicleState `json:"state"`
	Position    Point        `json:"position"`
	Destination *Destination `json:"destination,omitempty"`
	Trunk       []int        `json:"trunk"` // request ids in dropoff order
	Capacity    int          `json:"capacity"`
}

// RequestView is the read-only snapshot of one request.
type RequestView struct {
	ID          int          `json:"id"`
	State       RequestState `json:"state"`
	Pickup      Point        `json:"pickup"`
	Dropoff     Point        `json:"dropoff"`
	StartWindow TimeWindow   `json:"start_window"`
	EndWindow   TimeWindow   `json:"end_window"`
	MaxRideTime float64      `json:"max_ride_time"`
	ClaimedBy   int          `json:"claimed_by"` // vehicle id heading to pick it up, -1 if none
}

// Observation is everything a decision maker may look at before choosing an action.
// It shares no memory with the simulator.
type Observation struct {
	Time           float64       `json:"time"`
	Step           int           `json:"step"`
	CurrentVehicle int           `json:"current_vehicle"` // index into Vehicles, -1 when no decision is pending
	Speed          float64       `json:"speed"`
	StartDepot     Point         `json:"start_depot"`
	EndDepot       Point         `json:"end_depot"`
	Vehicles       []VehicleView `json:"vehicles"`
	Requests       []RequestView `json:"requests"`
	ValidActions   []Destination `json:"valid_actions"`
	Done           bool          `json:"done"`
}

// Observe snapshots the simulator state for the pending decision.
func (s *Simulator) Observe() *Observation {
	obs := &Observation{
		Time:           s.Clock,
		Step:           s.StepCount,
		CurrentVehicle: s.current,
		Speed:          s.Config.Speed,
		StartDepot:     s.Instance.StartDepot,
		EndDepot:       s.Instance.EndDepot,
		Vehicles:       make([]VehicleView, len(s.Vehicles)),
		Requests:       make([]RequestView, len(s.Requests)),
		ValidActions:   s.ValidActions(),
		Done:           s.Done() || s.fatal != nil,
	}
	for i, v := range s.Vehicles {
		view := VehicleView{
			ID:       v.ID,
			State:    v.State,
			Position: v.Position,
			Trunk:    make([]int, 0, v.Trunk.Len()),
			Capacity: v.Capacity,
		}
		if d := v.Destination(); d != nil {
			dest := *d
			view.Destination = &dest
		}
		for _, r := range v.Trunk.Items() {
			view.Trunk = append(view.Trunk, r.ID)
		}
		obs.Vehicles[i] = view
	}
	for i, r := range s.Requests {
		claimed := -1
		if c := s.claims[i]; c >= 0 {
			claimed = s.Vehicles[c].ID
		}
		obs.Requests[i] = RequestView{
			ID:          r.ID,
			State:       r.State,
			Pickup:      r.Pickup,
			Dropoff:     r.Dropoff,
			StartWindow: r.StartWindow,
			EndWindow:   r.EndWindow,
			MaxRideTime: r.MaxRideTime,
			ClaimedBy:   claimed,
		}
	}
	return obs
}
