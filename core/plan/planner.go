// Package plan turns travel legs and a desired building-arrival time into
// per-lot leave-time plans, and ranks lots by a weighted mix of travel
// time and predicted fullness.
package plan

import (
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrArrivalWindow rejects desired arrival times outside [now, now+24h].
var ErrArrivalWindow = errors.New("arrival time must be in the future and within 24 hours")

// ArrivalBuffer is the fixed safety margin subtracted from the desired
// arrival time before computing the recommended lot arrival.
const ArrivalBuffer = 5 * time.Minute

// lateGrace is how far in the past a recommended leave time may sit before
// the planner falls back to the next option.
const lateGrace = time.Minute

const maxHorizon = 24 * time.Hour

// Leg couples a lot with a travel duration in seconds.
type Leg struct {
	LotID    string  `json:"lot_id"`
	Duration float64 `json:"duration"`
}

// Plan is one lot's leave-time recommendation. Pointer fields are nil when
// no user-to-lot leg was supplied and the leave time cannot be derived.
// LateBy is seconds past the desired arrival; a plan is always returned,
// "too late" is only ever a number here.
type Plan struct {
	LotID                         string     `json:"lot_id"`
	RecLeaveTime                  *time.Time `json:"rec_leave_time"`
	RecArrivalTimeToLot           time.Time  `json:"rec_arrival_time_to_lot"`
	ExpectedArrivalTimeToLot      *time.Time `json:"expected_arrival_time_to_lot"`
	ExpectedArrivalTimeToBuilding time.Time  `json:"expected_arrival_time_to_building"`
	LateBy                        float64    `json:"late_by"`
	TravelTimeToLot               *float64   `json:"travel_time_to_lot"`
	TravelTimeToBuilding          float64    `json:"travel_time_to_building"`
	TotalTravelTime               float64    `json:"total_travel_time"`
}

// Planner computes arrival plans against an injected clock.
type Planner struct {
	clock clockwork.Clock
}

// NewPlanner returns a planner; a nil clock selects the real one.
func NewPlanner(clock clockwork.Clock) *Planner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Planner{clock: clock}
}

// Plan builds one plan per building-to-lot leg. userToLots is optional;
// lots without a user leg get an arrival-time-only plan. The fallback
// chain guarantees an actionable leave time: buffered, then unbuffered,
// then "leave now" with LateBy set.
func (p *Planner) Plan(desired time.Time, buildingToLots, userToLots []Leg) ([]Plan, error) {
	now := p.clock.Now().UTC()
	desired = desired.UTC()
	if desired.Before(now) || desired.After(now.Add(maxHorizon)) {
		return nil, ErrArrivalWindow
	}

	userByLot := make(map[string]float64, len(userToLots))
	for _, l := range userToLots {
		userByLot[l.LotID] = l.Duration
	}

	bufferedDesired := desired.Add(-ArrivalBuffer)
	plans := make([]Plan, 0, len(buildingToLots))
	for _, leg := range buildingToLots {
		b2l := leg.Duration
		bufferedArrival := bufferedDesired.Add(-secs(b2l))
		unbufferedArrival := desired.Add(-secs(b2l))

		u2l, hasUserLeg := userByLot[leg.LotID]
		if !hasUserLeg {
			plans = append(plans, Plan{
				LotID:                         leg.LotID,
				RecArrivalTimeToLot:           bufferedArrival,
				ExpectedArrivalTimeToBuilding: desired,
				TravelTimeToBuilding:          round2(b2l),
				TotalTravelTime:               round2(b2l),
			})
			continue
		}

		pl := buildPlan(leg.LotID, bufferedDesired, bufferedArrival, u2l, b2l)
		if tooFarPast(*pl.RecLeaveTime, now) {
			pl = buildPlan(leg.LotID, desired, unbufferedArrival, u2l, b2l)
		}
		if tooFarPast(*pl.RecLeaveTime, now) {
			expLot := now.Add(secs(u2l))
			expBuilding := expLot.Add(secs(b2l))
			leave := now
			pl.RecLeaveTime = &leave
			pl.ExpectedArrivalTimeToLot = &expLot
			pl.ExpectedArrivalTimeToBuilding = expBuilding
			pl.LateBy = round2(math.Abs(desired.Sub(expBuilding).Seconds()))
		}
		plans = append(plans, pl)
	}
	return plans, nil
}

func buildPlan(lotID string, arrivalAtBuilding, recArrival time.Time, u2l, b2l float64) Plan {
	leave := recArrival.Add(-secs(u2l))
	expLot := recArrival
	return Plan{
		LotID:                         lotID,
		RecLeaveTime:                  &leave,
		RecArrivalTimeToLot:           recArrival,
		ExpectedArrivalTimeToLot:      &expLot,
		ExpectedArrivalTimeToBuilding: arrivalAtBuilding,
		TravelTimeToLot:               ptr(round2(u2l)),
		TravelTimeToBuilding:          round2(b2l),
		TotalTravelTime:               round2(u2l + b2l),
	}
}

// tooFarPast reports whether the leave time is at least lateGrace before now.
func tooFarPast(leave, now time.Time) bool {
	return !leave.After(now.Add(-lateGrace))
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr[T any](v T) *T { return &v }
