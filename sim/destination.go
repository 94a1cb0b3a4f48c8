package sim

import "fmt"

// DestinationKind tells what a destination means on arrival.
type DestinationKind string

const (
	DestinationPickup     DestinationKind = "pickup"
	DestinationDropoff    DestinationKind = "dropoff"
	DestinationStartDepot DestinationKind = "start_depot"
	DestinationEndDepot   DestinationKind = "end_depot"
)

// Destination is one entry of the action table: what action index a maps to.
// Request is the index into the episode's request set, -1 for depots.
type Destination struct {
	Action  int             `json:"action"`
	Kind    DestinationKind `json:"kind"`
	Request int             `json:"request"`
	Point   Point           `json:"point"`
}

func (d Destination) String() string {
	if d.Request >= 0 {
		return fmt.Sprintf("%s(%d)@(%.3f,%.3f)", d.Kind, d.Request, d.Point.X, d.Point.Y)
	}
	return fmt.Sprintf("%s@(%.3f,%.3f)", d.Kind, d.Point.X, d.Point.Y)
}

// ActionSpaceSize returns the number of actions for nbRequests requests: 2n+2.
func ActionSpaceSize(nbRequests int) int {
	return 2*nbRequests + 2
}

// buildDestinations builds the action-index table once per instance.
// Identity is carried by index, never by comparing coordinates.
func buildDestinations(inst *Instance) []Destination {
	n := len(inst.Requests)
	table := make([]Destination, 0, ActionSpaceSize(n))
	for i, r := range inst.Requests {
		table = append(table, Destination{Action: i, Kind: DestinationPickup, Request: i, Point: r.Pickup})
	}
	for i, r := range inst.Requests {
		table = append(table, Destination{Action: n + i, Kind: DestinationDropoff, Request: i, Point: r.Dropoff})
	}
	table = append(table,
		Destination{Action: 2 * n, Kind: DestinationStartDepot, Request: -1, Point: inst.StartDepot},
		Destination{Action: 2*n + 1, Kind: DestinationEndDepot, Request: -1, Point: inst.EndDepot},
	)
	return table
}
