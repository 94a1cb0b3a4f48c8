// sim/simulator.go
package sim

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/hbenedek/dial-a-ride/sim/trace"
)

// Simulator is the core object that holds simulated time, fleet state and the decision cycle.
// It is single-threaded: one Step call is one decision cycle, and nothing else
// mutates vehicles or requests.
type Simulator struct {
	Clock       float64 // Current simulated time; never decreases
	LastTimeGap float64 // Clock delta of the most recent time advancement
	StepCount   int     // Decisions accepted this episode

	Config   Config
	Instance *Instance

	// Vehicles and Requests are this episode's entities, cloned from Instance on Reset.
	Vehicles []*Vehicle
	Requests []*Request

	Metrics *Metrics
	Trace   *trace.SimulationTrace // nil unless Config.Trace

	// destinations maps an action index to its destination; built once per instance.
	destinations []Destination
	// claims[i] is the vehicle index heading to pick up request i, or -1.
	claims []int
	// waiting holds vehicle indices awaiting a decision, in FIFO order.
	waiting []int
	queued  []bool
	// current is the vehicle index the next decision is for, -1 if none.
	current int

	arrivals []Arrival // arrivals resolved during the current step
	fatal    error     // set once the episode cannot continue
	log      logrus.FieldLogger
}

// StepResult is the outcome of one decision cycle.
type StepResult struct {
	Observation *Observation
	Reward      float64   // Negative routing cost incurred during the step
	Done        bool      // Termination condition holds
	Arrivals    []Arrival // Arrivals resolved during the step, in resolution order
}

// NewSimulator builds a simulator for inst and resets it to the start of an episode.
// logger receives the engine's structured logs; nil discards them.
func NewSimulator(inst *Instance, cfg Config, logger logrus.FieldLogger) (*Simulator, error) {
	if inst == nil {
		return nil, fmt.Errorf("new simulator: nil instance")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new simulator: %w", err)
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	s := &Simulator{
		Config:       cfg,
		Instance:     inst,
		destinations: buildDestinations(inst),
		log:          logger,
	}
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset discards the current episode and starts a new one from the instance:
// every vehicle waits at the start depot and every request awaits pickup.
func (s *Simulator) Reset() error {
	inst := s.Instance
	s.Clock = 0
	s.LastTimeGap = 0
	s.StepCount = 0
	s.fatal = nil
	s.current = -1
	s.arrivals = nil

	s.Vehicles = make([]*Vehicle, len(inst.Vehicles))
	for i, v := range inst.Vehicles {
		s.Vehicles[i] = v.clone(inst.StartDepot)
	}
	s.Requests = make([]*Request, len(inst.Requests))
	s.claims = make([]int, len(inst.Requests))
	for i, r := range inst.Requests {
		s.Requests[i] = r.clone()
		s.claims[i] = -1
	}
	s.waiting = make([]int, 0, len(s.Vehicles))
	s.queued = make([]bool, len(s.Vehicles))

	s.Metrics = NewMetrics()
	s.Trace = nil
	if s.Config.Trace {
		s.Trace = trace.NewSimulationTrace()
	}

	s.collectWaiting()
	return s.advance()
}

// Step applies one decision for the current vehicle: action is resolved to a
// destination, the vehicle becomes busy, and, once no vehicle is left waiting
// for a decision, simulated time leaps forward until one is.
//
// An ErrInvalidAction error leaves the state untouched so the caller may
// re-prompt. ErrPositionUpdate, ErrEmptyTrunk and ErrStalled are fatal: every
// later call returns the same error until Reset.
func (s *Simulator) Step(action int) (*StepResult, error) {
	if s.fatal != nil {
		return nil, s.fatal
	}
	if s.Done() {
		return nil, fmt.Errorf("step %d: %w", s.StepCount, ErrEpisodeDone)
	}
	idx := s.current
	if idx < 0 {
		return nil, fmt.Errorf("step %d: no vehicle awaiting a decision: %w", s.StepCount, ErrStalled)
	}

	dest, err := s.resolveAction(idx, action)
	if err != nil {
		s.log.WithFields(logrus.Fields{"vehicle": s.Vehicles[idx].ID, "action": action, "time": s.Clock}).
			Debugf("rejected decision: %v", err)
		return nil, err
	}

	costBefore := s.Metrics.TotalCost
	s.arrivals = s.arrivals[:0]
	s.StepCount++
	s.Metrics.Decisions++
	s.current = -1

	if err := s.dispatch(idx, dest, false); err != nil {
		return nil, err
	}
	if err := s.advance(); err != nil {
		return nil, err
	}

	return &StepResult{
		Observation: s.Observe(),
		Reward:      -(s.Metrics.TotalCost - costBefore),
		Done:        s.Done(),
		Arrivals:    append([]Arrival(nil), s.arrivals...),
	}, nil
}

// StepLimitReached reports whether Config.MaxStep decisions have been taken.
func (s *Simulator) StepLimitReached() bool {
	return s.StepCount >= s.Config.MaxStep
}

// AllFinished reports whether every vehicle is back at the end depot.
func (s *Simulator) AllFinished() bool {
	for _, v := range s.Vehicles {
		if v.State != VehicleFinished {
			return false
		}
	}
	return true
}

// Done reports whether the episode has terminated (step limit or all finished).
func (s *Simulator) Done() bool {
	return s.StepLimitReached() || s.AllFinished()
}

// Err returns the fatal error that stopped the episode, if any.
func (s *Simulator) Err() error {
	return s.fatal
}

// CurrentVehicle returns the vehicle the next decision is for, or nil.
func (s *Simulator) CurrentVehicle() *Vehicle {
	if s.current < 0 {
		return nil
	}
	return s.Vehicles[s.current]
}

// Destinations returns the action table. Callers MUST NOT modify it.
func (s *Simulator) Destinations() []Destination {
	return s.destinations
}

// ValidActions returns the destinations the current vehicle may be sent to.
// Capacity and window feasibility are not checked here: they are resolved on arrival.
func (s *Simulator) ValidActions() []Destination {
	if s.current < 0 || s.fatal != nil || s.Done() {
		return nil
	}
	valid := make([]Destination, 0, len(s.destinations))
	for a := range s.destinations {
		if dest, err := s.resolveAction(s.current, a); err == nil {
			valid = append(valid, dest)
		}
	}
	return valid
}

// resolveAction maps action to a destination for vehicle idx and checks it is available.
func (s *Simulator) resolveAction(idx int, action int) (Destination, error) {
	v := s.Vehicles[idx]
	reject := func(req int, format string, args ...any) (Destination, error) {
		reqID := -1
		if req >= 0 {
			reqID = s.Requests[req].ID
		}
		return Destination{}, &StepError{
			Err:       ErrInvalidAction,
			VehicleID: v.ID,
			RequestID: reqID,
			Time:      s.Clock,
			Detail:    fmt.Sprintf(format, args...),
		}
	}

	if action < 0 || action >= len(s.destinations) {
		return reject(-1, "action %d outside [0, %d]", action, len(s.destinations)-1)
	}
	if v.State != VehicleWaiting {
		return reject(-1, "vehicle is %s", v.State)
	}
	dest := s.destinations[action]
	switch dest.Kind {
	case DestinationPickup:
		if r := s.Requests[dest.Request]; r.State != RequestPickup {
			return reject(dest.Request, "request is %s", r.State)
		}
		if c := s.claims[dest.Request]; c >= 0 {
			return reject(dest.Request, "request already claimed by vehicle %d", s.Vehicles[c].ID)
		}
	case DestinationDropoff:
		front := v.Trunk.Peek()
		if front == nil {
			return reject(dest.Request, "trunk is empty")
		}
		if front != s.Requests[dest.Request] {
			return reject(dest.Request, "request %d is at the front of the trunk", front.ID)
		}
	case DestinationEndDepot:
		if n := v.Trunk.Len(); n > 0 {
			return reject(-1, "%d requests still on board", n)
		}
	}
	return dest, nil
}

// dispatch sends vehicle idx towards dest. A trip of zero length is resolved
// at the current instant.
func (s *Simulator) dispatch(idx int, dest Destination, automatic bool) error {
	v := s.Vehicles[idx]
	v.SetDestination(dest)
	v.SetState(VehicleBusy)
	if dest.Kind == DestinationPickup {
		s.claims[dest.Request] = idx
	}
	s.recordDecision(v, dest, automatic)

	dist, _ := v.DistanceToDestination()
	if dist < Epsilon {
		s.travel(v, dist)
		v.Move(dest.Point)
		if err := s.resolveArrival(idx); err != nil {
			return s.poison(err)
		}
		s.enqueueIfWaiting(idx)
		return nil
	}
	if !v.Departed {
		v.Departed = true
		v.DepartureTime = s.Clock
	}
	return nil
}

// advance hands the next waiting vehicle to the decision maker, leaping
// simulated time forward as long as nobody is waiting.
func (s *Simulator) advance() error {
	for {
		found, err := s.nextWaiting()
		if err != nil {
			return err
		}
		if found || s.StepLimitReached() || s.AllFinished() {
			return nil
		}
		if err := s.advanceTime(); err != nil {
			return s.poison(err)
		}
		if err := s.updatePositions(); err != nil {
			return s.poison(err)
		}
		s.collectWaiting()
	}
}

// nextWaiting pops the waiting queue until a vehicle needing a decision is
// found. A vehicle with an empty trunk and nothing left to pick up is sent to
// the end depot without consuming a decision.
func (s *Simulator) nextWaiting() (bool, error) {
	for len(s.waiting) > 0 {
		idx := s.waiting[0]
		s.waiting = s.waiting[1:]
		s.queued[idx] = false

		v := s.Vehicles[idx]
		if v.State != VehicleWaiting {
			continue
		}
		if v.Trunk.Len() == 0 && !s.pickupAvailable() {
			if err := s.dispatch(idx, s.destinations[len(s.destinations)-1], true); err != nil {
				return false, err
			}
			continue
		}
		s.current = idx
		return true, nil
	}
	return false, nil
}

// advanceTime moves the clock to the earliest future event: a busy vehicle
// reaching its destination, or the episode end time.
func (s *Simulator) advanceTime() error {
	events := []float64{0, s.Config.TimeEnd}
	for _, v := range s.Vehicles {
		if v.State != VehicleBusy {
			continue
		}
		if dist, ok := v.DistanceToDestination(); ok {
			events = append(events, s.Clock+dist/s.Config.Speed)
		}
	}

	future := make([]float64, 0, len(events))
	for _, t := range events {
		if t > s.Clock {
			future = append(future, t)
		}
	}
	if len(future) == 0 {
		return fmt.Errorf("%w after t=%.3f", ErrStalled, s.Clock)
	}

	next := floats.Min(future)
	s.LastTimeGap = next - s.Clock
	s.Clock = next
	s.Metrics.SimEndedTime = next
	return nil
}

// updatePositions moves every busy vehicle by LastTimeGap and resolves arrivals.
func (s *Simulator) updatePositions() error {
	step := s.LastTimeGap * s.Config.Speed
	for idx, v := range s.Vehicles {
		if v.State != VehicleBusy {
			continue
		}
		dist, ok := v.DistanceToDestination()
		if !ok {
			continue
		}
		switch {
		case floatEqual(step, dist, Epsilon):
			s.travel(v, dist)
			v.Move(v.Destination().Point)
			if err := s.resolveArrival(idx); err != nil {
				return err
			}
		case step < dist:
			s.travel(v, step)
			v.Move(towards(v.Position, v.Destination().Point, step))
		default:
			return &StepError{
				Err:       ErrPositionUpdate,
				VehicleID: v.ID,
				RequestID: -1,
				Time:      s.Clock,
				Detail:    fmt.Sprintf("elapsed travel %.6f overshoots remaining distance %.6f", step, dist),
			}
		}
	}
	return nil
}

// resolveArrival interprets vehicle idx having reached its destination.
func (s *Simulator) resolveArrival(idx int) error {
	v := s.Vehicles[idx]
	dest := *v.Destination()
	v.ClearDestination()

	arrival := Arrival{
		Time:      s.Clock,
		VehicleID: v.ID,
		Request:   dest.Request,
		RequestID: -1,
		Pickup:    PickupResult{OK: true},
	}
	if dest.Request >= 0 {
		arrival.RequestID = s.Requests[dest.Request].ID
	}
	fields := logrus.Fields{"vehicle": v.ID, "request": arrival.RequestID, "time": s.Clock, "step": s.StepCount}

	switch dest.Kind {
	case DestinationPickup:
		r := s.Requests[dest.Request]
		s.claims[dest.Request] = -1
		arrival.Outcome = OutcomePickup
		arrival.Pickup = v.PickupRequest(r, s.Clock)
		if arrival.Pickup.OK {
			s.Metrics.PickedUp++
		} else {
			if arrival.Pickup.Reason == PickupCapacity {
				s.Metrics.CapacityRejections++
			} else {
				s.Metrics.WindowRejections++
			}
			s.Metrics.addPenalty(s.Config.Penalties.InfeasiblePickup)
			s.log.WithFields(fields).Infof("infeasible pickup: %s", arrival.Pickup.Reason)
		}
		// Any arrival short of the end depot hands the vehicle back for a
		// decision, refused pickups included. Busy needs a destination.
		v.SetState(VehicleWaiting)

	case DestinationDropoff:
		r, err := v.DropoffRequest()
		if err != nil {
			return &StepError{Err: ErrEmptyTrunk, VehicleID: v.ID, RequestID: arrival.RequestID, Time: s.Clock}
		}
		arrival.Outcome = OutcomeDropoff
		r.DropoffTime = s.Clock
		s.Metrics.Delivered++
		ride := r.RideTime()
		s.Metrics.RideTimes = append(s.Metrics.RideTimes, ride)
		if !r.CheckWindow(s.Clock, false) {
			s.Metrics.DropoffWindowViolations++
			s.Metrics.addPenalty(s.Config.Penalties.DropoffWindow)
		}
		if r.MaxRideTime > 0 && ride > r.MaxRideTime+Epsilon {
			s.Metrics.RideTimeViolations++
			s.Metrics.addPenalty(s.Config.Penalties.RideTime)
		}
		v.SetState(VehicleWaiting)

	case DestinationEndDepot:
		arrival.Outcome = OutcomeDepotFinish
		v.ReturnTime = s.Clock
		duration := 0.0
		if v.Departed {
			duration = s.Clock - v.DepartureTime
		}
		s.Metrics.RouteDurations = append(s.Metrics.RouteDurations, duration)
		if v.MaxRouteDuration > 0 && duration > v.MaxRouteDuration+Epsilon {
			s.Metrics.RouteDurationViolations++
			s.Metrics.addPenalty(s.Config.Penalties.RouteDuration)
		}
		v.SetState(VehicleFinished)

	case DestinationStartDepot:
		arrival.Outcome = OutcomeDepotVisit
		v.SetState(VehicleWaiting)
	}

	s.arrivals = append(s.arrivals, arrival)
	s.recordArrival(arrival)
	s.log.WithFields(fields).Debugf("arrival: %s", arrival.Outcome)
	return nil
}

func (s *Simulator) travel(v *Vehicle, d float64) {
	v.Odometer += d
	s.Metrics.addDistance(d)
}

// pickupAvailable reports whether some request still awaits pickup and is unclaimed.
func (s *Simulator) pickupAvailable() bool {
	for i, r := range s.Requests {
		if r.State == RequestPickup && s.claims[i] < 0 {
			return true
		}
	}
	return false
}

// collectWaiting queues every waiting vehicle not already queued, in index order.
func (s *Simulator) collectWaiting() {
	for idx := range s.Vehicles {
		s.enqueueIfWaiting(idx)
	}
}

func (s *Simulator) enqueueIfWaiting(idx int) {
	if s.Vehicles[idx].State == VehicleWaiting && !s.queued[idx] {
		s.waiting = append(s.waiting, idx)
		s.queued[idx] = true
	}
}

// poison records a fatal error; the episode cannot continue until Reset.
func (s *Simulator) poison(err error) error {
	s.fatal = err
	s.current = -1
	s.log.WithField("time", s.Clock).Errorf("episode aborted: %v", err)
	return err
}

func (s *Simulator) recordDecision(v *Vehicle, dest Destination, automatic bool) {
	reqID := -1
	if dest.Request >= 0 {
		reqID = s.Requests[dest.Request].ID
	}
	s.log.WithFields(logrus.Fields{"vehicle": v.ID, "request": reqID, "time": s.Clock, "step": s.StepCount}).
		Debugf("dispatch to %s", dest)
	if s.Trace == nil {
		return
	}
	s.Trace.RecordDecision(trace.DecisionRecord{
		Step:      s.StepCount,
		Clock:     s.Clock,
		VehicleID: v.ID,
		Action:    dest.Action,
		Kind:      string(dest.Kind),
		RequestID: reqID,
		Automatic: automatic,
	})
}

func (s *Simulator) recordArrival(a Arrival) {
	if s.Trace == nil {
		return
	}
	s.Trace.RecordArrival(trace.ArrivalRecord{
		Clock:     a.Time,
		VehicleID: a.VehicleID,
		Outcome:   string(a.Outcome),
		RequestID: a.RequestID,
		Feasible:  a.Pickup.OK,
		Reason:    string(a.Pickup.Reason),
	})
}
