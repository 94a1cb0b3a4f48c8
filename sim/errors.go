package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction: decision index out of range or naming an unavailable destination.
	// The episode may continue with a re-prompted decision.
	ErrInvalidAction = errors.New("invalid action")

	// ErrEmptyTrunk: dropoff attempted with nothing carried. Indicates a scheduling bug.
	ErrEmptyTrunk = errors.New("empty trunk")

	// ErrPositionUpdate: elapsed time overshoots a vehicle's remaining trip. Fatal to the episode.
	ErrPositionUpdate = errors.New("position update error")

	// ErrStalled: nothing is waiting and no future event exists. Fatal to the episode.
	ErrStalled = errors.New("no future event")

	// ErrInstanceMismatch: instance disagrees with its declared size. Fatal at construction.
	ErrInstanceMismatch = errors.New("instance mismatch")

	// ErrIncompleteRequest: a request builder is missing its pickup or dropoff half.
	ErrIncompleteRequest = errors.New("incomplete request")

	// ErrEpisodeDone: step called after the termination condition holds.
	ErrEpisodeDone = errors.New("episode done")
)

// StepError carries the context of a per-step failure on one vehicle.
// It unwraps to one of the sentinel errors above.
type StepError struct {
	Err       error
	VehicleID int
	RequestID int // -1 when no request is involved
	Time      float64
	Detail    string
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%v: vehicle %d", e.Err, e.VehicleID)
	if e.RequestID >= 0 {
		msg += fmt.Sprintf(", request %d", e.RequestID)
	}
	msg += fmt.Sprintf(", t=%.3f", e.Time)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
