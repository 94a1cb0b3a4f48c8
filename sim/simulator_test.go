package sim

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulator_InitialState(t *testing.T) {
	// GIVEN one vehicle and one request
	inst := newTestInstance(t, 1, 2, openRequest(7, pt(3, 4), pt(6, 8)))

	// WHEN a simulator is built
	s := newTestSimulator(t, inst)

	// THEN the vehicle waits at the start depot for the first decision
	assert.Equal(t, 0.0, s.Clock)
	assert.Equal(t, 0, s.StepCount)
	require.NotNil(t, s.CurrentVehicle())
	assert.Equal(t, VehicleWaiting, s.CurrentVehicle().State)
	assert.Equal(t, RequestPickup, s.Requests[0].State)
	assert.False(t, s.Done())
	assert.Len(t, s.Destinations(), ActionSpaceSize(1))
}

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(1, 0), pt(2, 0)))

	_, err := NewSimulator(inst, NewConfig(0, 10), nil)
	assert.Error(t, err)

	_, err = NewSimulator(inst, NewConfig(10, 0), nil)
	assert.Error(t, err)

	_, err = NewSimulator(nil, NewConfig(10, 10), nil)
	assert.Error(t, err)
}

func TestSimulator_DoesNotMutateInstance(t *testing.T) {
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(3, 4), pt(6, 8)))
	s := newTestSimulator(t, inst)

	mustStep(t, s, 0)
	mustStep(t, s, 1)

	assert.Equal(t, RequestPickup, inst.Requests[0].State)
	assert.Equal(t, pt(0, 0), inst.Vehicles[0].Position)
	assert.Equal(t, 0, inst.Vehicles[0].Trunk.Len())
}

func TestSimulator_SingleVehicleSingleRequest_CompletesEpisode(t *testing.T) {
	// GIVEN one vehicle, one request with pickup window [0, 100] and no dropoff constraint
	r := NewRequest(0, pt(3, 4), pt(6, 8), TimeWindow{Earliest: 0, Latest: 100}, UnboundedWindow(), 0)
	s := newTestSimulator(t, newTestInstance(t, 1, 1, r))

	// WHEN the decisions are pickup then dropoff
	first := mustStep(t, s, 0)
	second := mustStep(t, s, 1)

	// THEN the vehicle finishes at the end depot with the request delivered
	assert.True(t, second.Done)
	assert.Equal(t, VehicleFinished, s.Vehicles[0].State)
	assert.Equal(t, RequestDelivered, s.Requests[0].State)
	assert.Equal(t, 0, s.Vehicles[0].Trunk.Len())
	assert.Equal(t, pt(0, 0), s.Vehicles[0].Position)
	assert.Equal(t, 2, s.StepCount)

	// AND time and cost follow the travelled distance: 5 out, 5 across, 10 home
	assert.InDelta(t, 20.0, s.Clock, 1e-9)
	assert.InDelta(t, 20.0, s.Metrics.TotalDistance, 1e-9)
	assert.InDelta(t, -5.0, first.Reward, 1e-9)
	assert.InDelta(t, -15.0, second.Reward, 1e-9)
	assert.InDelta(t, 5.0, s.Requests[0].RideTime(), 1e-9)

	// AND the automatic return is traced as such
	require.Len(t, second.Arrivals, 2)
	assert.Equal(t, OutcomeDropoff, second.Arrivals[0].Outcome)
	assert.Equal(t, OutcomeDepotFinish, second.Arrivals[1].Outcome)
	require.Len(t, s.Trace.Decisions, 3)
	assert.True(t, s.Trace.Decisions[2].Automatic)
}

func TestSimulator_CapacityOne_SecondPickupFails(t *testing.T) {
	// GIVEN a vehicle of capacity 1 and two requests
	r0 := openRequest(0, pt(3, 4), pt(10, 0))
	r1 := openRequest(1, pt(3, 8), pt(10, 5))
	s := newTestSimulator(t, newTestInstance(t, 1, 1, r0, r1))

	// WHEN both pickups are assigned before any dropoff
	res0 := mustStep(t, s, 0)
	res1 := mustStep(t, s, 1)

	// THEN the first succeeds and the second is refused for capacity
	require.Len(t, res0.Arrivals, 1)
	assert.True(t, res0.Arrivals[0].Pickup.OK)
	require.Len(t, res1.Arrivals, 1)
	assert.Equal(t, OutcomePickup, res1.Arrivals[0].Outcome)
	assert.False(t, res1.Arrivals[0].Pickup.OK)
	assert.Equal(t, PickupCapacity, res1.Arrivals[0].Pickup.Reason)

	assert.Equal(t, RequestPickup, s.Requests[1].State)
	assert.Equal(t, 1, s.Vehicles[0].Trunk.Len())
	assert.Equal(t, 1, s.Metrics.CapacityRejections)
	// 4 units of travel plus the infeasible pickup penalty
	assert.InDelta(t, -14.0, res1.Reward, 1e-9)
	assertCapacityInvariant(t, s)
}

func TestSimulator_PickupArrival_VehicleWaitsForNextDecision(t *testing.T) {
	// GIVEN a vehicle of capacity 1 and two requests
	r0 := openRequest(0, pt(3, 4), pt(10, 0))
	r1 := openRequest(1, pt(3, 8), pt(10, 5))
	s := newTestSimulator(t, newTestInstance(t, 1, 1, r0, r1))
	v := s.Vehicles[0]

	// WHEN the first pickup succeeds
	mustStep(t, s, 0)

	// THEN the vehicle waits at the pickup with nothing to drive to
	assert.Equal(t, VehicleWaiting, v.State)
	assert.Nil(t, v.Destination())
	assert.Equal(t, pt(3, 4), v.Position)

	// WHEN the second pickup is refused for capacity
	res := mustStep(t, s, 1)
	require.Len(t, res.Arrivals, 1)
	require.False(t, res.Arrivals[0].Pickup.OK)

	// THEN the vehicle is equally back to waiting
	assert.Equal(t, VehicleWaiting, v.State)
	assert.Nil(t, v.Destination())
	assert.False(t, res.Done)
}

func TestSimulator_LatePickup_FailsWindow(t *testing.T) {
	// GIVEN a request with pickup window [10, 20] placed 25 units from the depot
	r := NewRequest(0, pt(15, 20), pt(0, 5), TimeWindow{Earliest: 10, Latest: 20}, UnboundedWindow(), 0)
	s := newTestSimulator(t, newTestInstance(t, 1, 1, r))

	// WHEN the vehicle is sent to pick it up
	res := mustStep(t, s, 0)

	// THEN it arrives at t=25 and the pickup is refused
	require.Len(t, res.Arrivals, 1)
	assert.InDelta(t, 25.0, res.Arrivals[0].Time, 1e-9)
	assert.False(t, res.Arrivals[0].Pickup.OK)
	assert.Equal(t, PickupWindow, res.Arrivals[0].Pickup.Reason)
	assert.Equal(t, RequestPickup, s.Requests[0].State)
	assert.Equal(t, 0, s.Vehicles[0].Trunk.Len())
	assert.Equal(t, 1, s.Metrics.WindowRejections)

	// AND the vehicle waits for another decision
	assert.Equal(t, VehicleWaiting, s.Vehicles[0].State)
	assert.Equal(t, s.Vehicles[0], s.CurrentVehicle())
}

func TestSimulator_SimultaneousArrivals_ResolveInOneCycle(t *testing.T) {
	// GIVEN two vehicles sent to pickups at the same distance
	r0 := openRequest(0, pt(3, 4), pt(6, 8))
	r1 := openRequest(1, pt(-3, -4), pt(-6, -8))
	s := newTestSimulator(t, newTestInstance(t, 2, 1, r0, r1))

	first := mustStep(t, s, 0)
	assert.Empty(t, first.Arrivals, "second vehicle still awaits its decision")
	assert.Equal(t, 0.0, s.Clock)

	// WHEN the second vehicle is dispatched
	res := mustStep(t, s, 1)

	// THEN both arrivals resolve at t=5 in the same cycle
	require.Len(t, res.Arrivals, 2)
	assert.InDelta(t, 5.0, res.Arrivals[0].Time, 1e-9)
	assert.InDelta(t, 5.0, res.Arrivals[1].Time, 1e-9)
	assert.InDelta(t, 5.0, s.Clock, 1e-9)
	assert.InDelta(t, 5.0, s.LastTimeGap, 1e-9)
	assert.Equal(t, RequestInTrunk, s.Requests[0].State)
	assert.Equal(t, RequestInTrunk, s.Requests[1].State)
}

func TestSimulator_StepLimitReached_WithBusyVehicle_IsDone(t *testing.T) {
	// GIVEN a step limit of 1 and two vehicles
	inst := newTestInstance(t, 2, 1,
		openRequest(0, pt(3, 4), pt(6, 8)),
		openRequest(1, pt(30, 40), pt(6, 8)))
	s, err := NewSimulator(inst, NewConfig(100, 1), nil)
	require.NoError(t, err)

	// WHEN one decision sends vehicle 0 far away
	res := mustStep(t, s, 1)

	// THEN the episode is done on the step-limit branch while the vehicle is busy
	assert.True(t, res.Done)
	assert.True(t, s.StepLimitReached())
	assert.False(t, s.AllFinished())
	assert.Equal(t, VehicleBusy, s.Vehicles[0].State)

	// AND further steps are refused
	_, err = s.Step(0)
	assert.ErrorIs(t, err, ErrEpisodeDone)
}

func TestSimulator_TimeEndIsAnEvent(t *testing.T) {
	// GIVEN TimeEnd=3 and a pickup 5 units away
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(3, 4), pt(6, 8)))
	s, err := NewSimulator(inst, NewConfig(3, 10), nil)
	require.NoError(t, err)

	// WHEN the vehicle is dispatched
	res := mustStep(t, s, 0)

	// THEN time stops at TimeEnd on the way and then at the arrival
	require.Len(t, res.Arrivals, 1)
	assert.InDelta(t, 5.0, res.Arrivals[0].Time, 1e-9)
	assert.InDelta(t, 2.0, s.LastTimeGap, 1e-9, "last leap is from TimeEnd to arrival")
	assert.InDelta(t, 5.0, s.Metrics.TotalDistance, 1e-9)
	assert.Equal(t, pt(3, 4), s.Vehicles[0].Position)
}

func TestSimulator_AdvanceTime_PicksEarliestFutureEvent(t *testing.T) {
	tests := []struct {
		name      string
		clock     float64
		distances []float64
		want      float64
	}{
		{"nearest arrival", 0, []float64{7, 2, 9}, 2},
		{"time end first", 0, []float64{150}, 100},
		{"past time end", 120, []float64{4}, 124},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := make([]*Request, len(tt.distances))
			for i := range reqs {
				reqs[i] = openRequest(i, pt(float64(i+1), 0), pt(0, 1))
			}
			inst := newTestInstance(t, len(tt.distances), 1, reqs...)
			s := newTestSimulator(t, inst)
			s.Clock = tt.clock
			for i, d := range tt.distances {
				v := s.Vehicles[i]
				v.Move(pt(0, 0))
				v.SetDestination(Destination{Action: i, Kind: DestinationPickup, Request: i, Point: pt(d, 0)})
				v.SetState(VehicleBusy)
			}

			require.NoError(t, s.advanceTime())
			assert.InDelta(t, tt.want, s.Clock, 1e-9)
			assert.InDelta(t, tt.want-tt.clock, s.LastTimeGap, 1e-9)
		})
	}
}

func TestSimulator_AdvanceTime_NoFutureEvent_Stalls(t *testing.T) {
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(1, 0), pt(2, 0)))
	s := newTestSimulator(t, inst)
	s.Clock = 200
	s.Vehicles[0].SetState(VehicleFinished)

	err := s.advanceTime()
	assert.ErrorIs(t, err, ErrStalled)
}

func TestSimulator_PositionOvershoot_PoisonsEpisode(t *testing.T) {
	// GIVEN a busy vehicle 5 units from its destination
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(3, 4), pt(6, 8)))
	s := newTestSimulator(t, inst)
	v := s.Vehicles[0]
	v.SetDestination(s.Destinations()[0])
	v.SetState(VehicleBusy)

	// WHEN the elapsed gap overshoots the trip
	s.LastTimeGap = 10
	err := s.updatePositions()

	// THEN a position update error names the vehicle
	require.ErrorIs(t, err, ErrPositionUpdate)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, v.ID, stepErr.VehicleID)

	// AND once recorded, every later step returns the same error
	s.poison(err)
	_, again := s.Step(0)
	assert.Equal(t, err, again)
	assert.Equal(t, err, s.Err())
	assert.Nil(t, s.ValidActions())

	// AND Reset recovers
	require.NoError(t, s.Reset())
	assert.NoError(t, s.Err())
}

func TestSimulator_ZeroDistanceTrip_ResolvesInstantly(t *testing.T) {
	// GIVEN a request whose pickup sits on the depot
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(0, 0), pt(3, 4)))
	s := newTestSimulator(t, inst)

	// WHEN the vehicle is sent there
	res := mustStep(t, s, 0)

	// THEN the pickup happens without time advancing
	require.Len(t, res.Arrivals, 1)
	assert.True(t, res.Arrivals[0].Pickup.OK)
	assert.Equal(t, 0.0, s.Clock)
	assert.Equal(t, RequestInTrunk, s.Requests[0].State)
	assert.Equal(t, s.Vehicles[0], s.CurrentVehicle())
}

func TestSimulator_StartDepotVisit_WaitsAgain(t *testing.T) {
	inst := newTestInstance(t, 1, 1, openRequest(0, pt(3, 4), pt(6, 8)))
	s := newTestSimulator(t, inst)

	res := mustStep(t, s, 2)

	require.Len(t, res.Arrivals, 1)
	assert.Equal(t, OutcomeDepotVisit, res.Arrivals[0].Outcome)
	assert.Equal(t, VehicleWaiting, s.Vehicles[0].State)
	assert.Equal(t, -1, res.Arrivals[0].RequestID)
}

func TestSimulator_IdleVehicle_ReturnsToEndDepot(t *testing.T) {
	// GIVEN two vehicles and a single request
	inst := newTestInstance(t, 2, 1, openRequest(0, pt(3, 4), pt(6, 8)))
	s := newTestSimulator(t, inst)

	// WHEN vehicle 0 claims the only request
	mustStep(t, s, 0)

	// THEN vehicle 1 is sent home without a decision
	assert.Equal(t, VehicleFinished, s.Vehicles[1].State)
	assert.Equal(t, 1, s.StepCount)
	var automatic int
	for _, d := range s.Trace.Decisions {
		if d.Automatic {
			automatic++
			assert.Equal(t, 1, d.VehicleID)
		}
	}
	assert.Equal(t, 1, automatic)
}

func TestSimulator_InvalidActions_LeaveStateUntouched(t *testing.T) {
	// GIVEN one vehicle of capacity 2 and three requests, two at the depot
	r0 := openRequest(10, pt(0, 0), pt(5, 0))
	r1 := openRequest(11, pt(0, 0), pt(0, 5))
	r2 := openRequest(12, pt(9, 9), pt(1, 1))
	s := newTestSimulator(t, newTestInstance(t, 1, 2, r0, r1, r2))
	n := len(s.Requests)

	// dropoff with empty trunk
	_, err := s.Step(n)
	assert.ErrorIs(t, err, ErrInvalidAction)

	// out of range
	for _, a := range []int{-1, ActionSpaceSize(n)} {
		_, err = s.Step(a)
		assert.ErrorIs(t, err, ErrInvalidAction, "action %d", a)
	}

	// load two requests at the depot
	mustStep(t, s, 0)
	mustStep(t, s, 1)
	require.Equal(t, 2, s.Vehicles[0].Trunk.Len())

	// picking up an already loaded request
	_, err = s.Step(0)
	assert.ErrorIs(t, err, ErrInvalidAction)

	// dropping off a request that is not at the front
	_, err = s.Step(n + 1)
	assert.ErrorIs(t, err, ErrInvalidAction)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 11, stepErr.RequestID)

	// heading home with passengers on board
	_, err = s.Step(2*n + 1)
	assert.ErrorIs(t, err, ErrInvalidAction)

	// THEN nothing moved
	assert.Equal(t, 2, s.StepCount)
	assert.Equal(t, VehicleWaiting, s.Vehicles[0].State)
	assert.Nil(t, s.Vehicles[0].Destination())
}

func TestSimulator_ClaimedPickup_IsInvalidForOthers(t *testing.T) {
	inst := newTestInstance(t, 2, 1, openRequest(0, pt(3, 4), pt(6, 8)), openRequest(1, pt(9, 9), pt(1, 1)))
	s := newTestSimulator(t, inst)

	mustStep(t, s, 0)
	require.Equal(t, s.Vehicles[1], s.CurrentVehicle())

	_, err := s.Step(0)
	assert.ErrorIs(t, err, ErrInvalidAction)

	obs := s.Observe()
	assert.Equal(t, 0, obs.Requests[0].ClaimedBy)
	for _, d := range obs.ValidActions {
		assert.NotEqual(t, 0, d.Action, "claimed pickup offered as valid")
	}
}

func TestSimulator_ValidActions_InitialState(t *testing.T) {
	s := newTestSimulator(t, newTestInstance(t, 1, 1, openRequest(0, pt(3, 4), pt(6, 8))))

	var kinds []DestinationKind
	for _, d := range s.ValidActions() {
		kinds = append(kinds, d.Kind)
	}
	assert.Equal(t, []DestinationKind{DestinationPickup, DestinationStartDepot, DestinationEndDepot}, kinds)
}

func TestSimulator_Penalties_DropoffWindowAndRideTime(t *testing.T) {
	// GIVEN a request that must be delivered by t=6 within a ride of 2
	r := NewRequest(0, pt(3, 4), pt(6, 8), UnboundedWindow(), TimeWindow{Earliest: 0, Latest: 6}, 2)
	inst := newTestInstance(t, 1, 1, r)
	cfg := NewConfig(100, 10)
	cfg.Penalties = Penalties{InfeasiblePickup: 10, DropoffWindow: 3, RideTime: 4}
	s, err := NewSimulator(inst, cfg, nil)
	require.NoError(t, err)

	mustStep(t, s, 0)
	res := mustStep(t, s, 1)

	// THEN both violations are charged on top of 5 + 10 distance
	assert.Equal(t, 1, s.Metrics.DropoffWindowViolations)
	assert.Equal(t, 1, s.Metrics.RideTimeViolations)
	assert.InDelta(t, -(15.0 + 3 + 4), res.Reward, 1e-9)
}

func TestSimulator_RouteDurationViolation(t *testing.T) {
	vehicles := []*Vehicle{NewVehicle(0, pt(0, 0), 1, 12)}
	reqs := []*Request{openRequest(0, pt(3, 4), pt(6, 8))}
	inst, err := NewInstance(pt(0, 0), pt(0, 0), vehicles, reqs, InstanceSize{Vehicles: 1, Requests: 1})
	require.NoError(t, err)
	cfg := NewConfig(100, 10)
	cfg.Penalties.RouteDuration = 1
	s, err := NewSimulator(inst, cfg, nil)
	require.NoError(t, err)

	mustStep(t, s, 0)
	mustStep(t, s, 1)

	require.Len(t, s.Metrics.RouteDurations, 1)
	assert.InDelta(t, 20.0, s.Metrics.RouteDurations[0], 1e-9)
	assert.Equal(t, 1, s.Metrics.RouteDurationViolations)
	assert.InDelta(t, 21.0, s.Metrics.TotalCost, 1e-9)
}

func TestSimulator_GreedyEpisode_HoldsInvariants(t *testing.T) {
	// GIVEN a mixed instance
	reqs := []*Request{
		openRequest(0, pt(1, 2), pt(5, 5)),
		openRequest(1, pt(-3, 1), pt(2, -4)),
		openRequest(2, pt(4, -2), pt(-1, -1)),
		openRequest(3, pt(0, 6), pt(6, 0)),
		NewRequest(4, pt(2, 2), pt(3, 3), TimeWindow{Earliest: 0, Latest: 1}, UnboundedWindow(), 0),
	}
	s := newTestSimulator(t, newTestInstance(t, 2, 2, reqs...))

	// WHEN driven to completion
	prevClock := s.Clock
	var res *StepResult
	for !s.Done() {
		res = mustStep(t, s, greedyAction(s.Observe()))

		// THEN time never runs backwards
		assert.GreaterOrEqual(t, s.Clock, prevClock)
		assert.GreaterOrEqual(t, s.LastTimeGap, 0.0)
		prevClock = s.Clock
		assertCapacityInvariant(t, s)

		// AND each arrival has exactly one outcome
		for _, a := range res.Arrivals {
			assert.Contains(t, []ArrivalOutcome{OutcomePickup, OutcomeDropoff, OutcomeDepotFinish, OutcomeDepotVisit}, a.Outcome)
			if a.Outcome == OutcomePickup && a.Pickup.OK {
				r := s.Requests[a.Request]
				assert.True(t, r.CheckWindow(r.PickupTime, true))
			}
		}
	}
	require.NotNil(t, res)
	assert.True(t, res.Done)

	// AND every request is accounted for exactly once
	onBoard := 0
	for _, v := range s.Vehicles {
		onBoard += v.Trunk.Len()
	}
	states := map[RequestState]int{}
	for _, r := range s.Requests {
		states[r.State]++
	}
	assert.Equal(t, onBoard, states[RequestInTrunk])
	assert.Equal(t, len(reqs), states[RequestPickup]+states[RequestInTrunk]+states[RequestDelivered])
	assert.Equal(t, s.Metrics.Delivered, states[RequestDelivered])
}

func TestSimulator_Reset_IsDeterministic(t *testing.T) {
	reqs := []*Request{
		openRequest(0, pt(1, 2), pt(5, 5)),
		openRequest(1, pt(-3, 1), pt(2, -4)),
		openRequest(2, pt(4, -2), pt(-1, -1)),
	}
	s := newTestSimulator(t, newTestInstance(t, 2, 1, reqs...))

	run := func() (float64, float64) {
		for !s.Done() {
			mustStep(t, s, greedyAction(s.Observe()))
		}
		return s.Clock, s.Metrics.TotalCost
	}
	clock1, cost1 := run()
	require.NoError(t, s.Reset())
	assert.Equal(t, 0.0, s.Clock)
	clock2, cost2 := run()

	assert.Equal(t, clock1, clock2)
	assert.Equal(t, cost1, cost2)
}

func TestSimulator_InfeasiblePickup_IsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := NewRequest(0, pt(15, 20), pt(0, 5), TimeWindow{Earliest: 10, Latest: 20}, UnboundedWindow(), 0)
	s, err := NewSimulator(newTestInstance(t, 1, 1, r), NewConfig(100, 10), logger)
	require.NoError(t, err)

	mustStep(t, s, 0)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel {
			found = true
			assert.Equal(t, 0, e.Data["vehicle"])
			assert.Equal(t, 0, e.Data["request"])
		}
	}
	assert.True(t, found, "expected an info entry for the refused pickup")
}

func TestSimulator_Observe_SnapshotIsDetached(t *testing.T) {
	s := newTestSimulator(t, newTestInstance(t, 1, 2, openRequest(4, pt(0, 0), pt(3, 4))))
	mustStep(t, s, 0)

	obs := s.Observe()
	require.Len(t, obs.Vehicles, 1)
	assert.Equal(t, []int{4}, obs.Vehicles[0].Trunk)
	assert.Equal(t, RequestInTrunk, obs.Requests[0].State)
	assert.Equal(t, -1, obs.Requests[0].ClaimedBy)
	assert.Equal(t, 0, obs.CurrentVehicle)
	assert.Equal(t, 1.0, obs.Speed)

	obs.Vehicles[0].Trunk[0] = 99
	assert.Equal(t, 4, s.Vehicles[0].Trunk.Peek().ID)
}
