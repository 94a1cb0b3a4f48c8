// Package sim provides the discrete-event engine for the Dial-a-Ride Problem (DARP).
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - request.go: Request lifecycle (pickup → in_trunk → delivered) and time windows
//   - vehicle.go: Vehicle lifecycle (waiting → busy → finished), trunk and capacity
//   - simulator.go: decision intake, next-event time advancement and arrival resolution
//
// # Time model
//
// The engine does not tick. Each time the last waiting vehicle has received a
// destination, the clock leaps to the earliest instant at which some busy
// vehicle reaches its destination (or to the episode end time, whichever
// comes first). Vehicles move in straight lines at Config.Speed distance
// units per time unit; DefaultSpeed is 1, so a distance d takes d time units.
//
// # Decisions
//
// A decision is a discrete action index in [0, 2n+1] for n requests:
//   - [0, n): pickup point of request i
//   - [n, 2n): dropoff point of request i-n
//   - 2n: start depot
//   - 2n+1: end depot
//
// Sub-packages supply the collaborators the engine consumes:
//   - sim/workload/: instance generation and Cordeau-format instance files
//   - sim/policy/: reference decision makers and an episode runner
//   - sim/trace/: decision and arrival trace recording
package sim
