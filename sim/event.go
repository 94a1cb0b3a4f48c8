package sim

// ArrivalOutcome names how an arrival was resolved.
// Exactly one outcome is produced per arrival.
type ArrivalOutcome string

const (
	OutcomePickup      ArrivalOutcome = "pickup"       // reached a pickup point; see Arrival.Pickup
	OutcomeDropoff     ArrivalOutcome = "dropoff"      // delivered the front of the trunk
	OutcomeDepotFinish ArrivalOutcome = "depot_finish" // reached the end depot, vehicle finished
	OutcomeDepotVisit  ArrivalOutcome = "depot_visit"  // reached the start depot, vehicle waits again
)

// Arrival is the resolution of one vehicle reaching its destination.
type Arrival struct {
	Time      float64        `json:"time"`
	VehicleID int            `json:"vehicle_id"`
	Outcome   ArrivalOutcome `json:"outcome"`
	Request   int            `json:"request"`    // index into the request set, -1 for depots
	RequestID int            `json:"request_id"` // declared request id, -1 for depots
	Pickup    PickupResult   `json:"pickup"`     // OK for every outcome except a refused pickup
}
