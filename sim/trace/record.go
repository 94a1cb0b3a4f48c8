// Package trace provides decision-trace recording for DARP episode analysis.
// This package has no dependencies on sim/: it stores pure data types.
package trace

// DecisionRecord captures one accepted routing decision.
type DecisionRecord struct {
	Step      int     // Decision index within the episode (1-based)
	Clock     float64 // Simulated time of the decision
	VehicleID int
	Action    int
	Kind      string // pickup, dropoff, start_depot, end_depot
	RequestID int    // -1 for depots
	Automatic bool   // Dispatched by the engine (end-depot return), not by the decision maker
}

// ArrivalRecord captures the resolution of one vehicle arrival.
type ArrivalRecord struct {
	Clock     float64
	VehicleID int
	Outcome   string // pickup, dropoff, depot_finish, depot_visit
	RequestID int    // -1 for depots
	Feasible  bool   // false only for refused pickups
	Reason    string // refusal reason (capacity, window), empty otherwise
}
