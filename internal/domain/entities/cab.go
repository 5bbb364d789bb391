package entities

import (
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrInvalidWorkState  = errors.New("invalid work state")
	ErrInvalidTransition = errors.New("invalid work state transition")
	ErrCabNotIdle        = errors.New("cab is not idle")
)

// WorkState is the availability of a cab. It is stored as a string so the
// persisted collections stay readable.
type WorkState string

const (
	WorkStateIdle     WorkState = "idle"
	WorkStateOnTrip   WorkState = "on_trip"
	WorkStateGrounded WorkState = "grounded"
)

// adminTransitions lists the state changes an operator may request directly.
// ON_TRIP is never a target here: a cab only goes on a trip through booking.
//
//	IDLE --[book]--> ON_TRIP --[complete]--> IDLE
//	IDLE <--> GROUNDED
//	ON_TRIP --> GROUNDED (forced override)
var adminTransitions = map[WorkState][]WorkState{
	WorkStateIdle:     {WorkStateIdle, WorkStateGrounded},
	WorkStateOnTrip:   {WorkStateGrounded},
	WorkStateGrounded: {WorkStateIdle, WorkStateGrounded},
}

// ParseWorkState accepts the stored form ("on_trip") as well as the display
// form ("On Trip") in any case.
func ParseWorkState(s string) (WorkState, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	state := WorkState(normalized)
	if !state.Valid() {
		return "", ErrInvalidWorkState
	}
	return state, nil
}

func (s WorkState) Valid() bool {
	switch s {
	case WorkStateIdle, WorkStateOnTrip, WorkStateGrounded:
		return true
	}
	return false
}

// DisplayName is the human-readable label used by listings.
func (s WorkState) DisplayName() string {
	switch s {
	case WorkStateIdle:
		return "Idle"
	case WorkStateOnTrip:
		return "On Trip"
	case WorkStateGrounded:
		return "Grounded"
	}
	return string(s)
}

// Cab is one car+driver unit in the fleet.
//
// CurrentTripID is non-nil exactly when WorkState is ON_TRIP. The number of
// finished trips is derived from CompletedTrips (see TotalTrips) and is never
// stored on its own.
type Cab struct {
	ID                int       `json:"id"`
	CarID             int       `json:"car_id"`
	DriverID          int       `json:"driver_id"`
	WorkState         WorkState `json:"work_state"`
	CurrentLocationID int       `json:"current_location_id"`
	CurrentTripID     *int      `json:"current_trip_id,omitempty"`
	LastIdleTime      time.Time `json:"last_idle_time"`
	CompletedTrips    []int     `json:"completed_trips"`
}

// NewCab creates an IDLE cab parked at locationID whose idle period starts now.
func NewCab(carID, driverID, locationID int, now time.Time) *Cab {
	return &Cab{
		CarID:             carID,
		DriverID:          driverID,
		WorkState:         WorkStateIdle,
		CurrentLocationID: locationID,
		LastIdleTime:      now.UTC(),
		CompletedTrips:    []int{},
	}
}

func (c *Cab) RecordID() int      { return c.ID }
func (c *Cab) SetRecordID(id int) { c.ID = id }

// TotalTrips is the number of trips this cab has completed.
func (c *Cab) TotalTrips() int {
	return len(c.CompletedTrips)
}

// IdleDuration is how long the cab has been idle as of now. It is zero for a
// cab that is not IDLE.
func (c *Cab) IdleDuration(now time.Time) time.Duration {
	if c.WorkState != WorkStateIdle {
		return 0
	}
	d := now.UTC().Sub(c.LastIdleTime)
	if d < 0 {
		return 0
	}
	return d
}

// IsAvailableAt reports whether the cab can be booked from locationID.
func (c *Cab) IsAvailableAt(locationID int) bool {
	return c.WorkState == WorkStateIdle && c.CurrentLocationID == locationID
}

// CanChangeStateTo reports whether an operator may move the cab to target.
func (c *Cab) CanChangeStateTo(target WorkState) bool {
	return slices.Contains(adminTransitions[c.WorkState], target)
}

// ChangeState applies an administrative state change. Entering IDLE restarts
// the idle clock; leaving ON_TRIP always drops the trip reference.
func (c *Cab) ChangeState(target WorkState, now time.Time) error {
	if !target.Valid() {
		return ErrInvalidWorkState
	}
	if !c.CanChangeStateTo(target) {
		return ErrInvalidTransition
	}
	c.WorkState = target
	c.CurrentTripID = nil
	if target == WorkStateIdle {
		c.LastIdleTime = now.UTC()
	}
	return nil
}

// AssignTrip puts an IDLE cab on tripID.
func (c *Cab) AssignTrip(tripID int) error {
	if c.WorkState != WorkStateIdle {
		return ErrCabNotIdle
	}
	c.WorkState = WorkStateOnTrip
	id := tripID
	c.CurrentTripID = &id
	return nil
}

// FinishTrip records tripID as completed and returns the cab to IDLE.
//
// A cab that has since been put on a different trip keeps its current state;
// only the history entry is added. tripID is never recorded twice.
func (c *Cab) FinishTrip(tripID int, now time.Time) {
	if !slices.Contains(c.CompletedTrips, tripID) {
		c.CompletedTrips = append(c.CompletedTrips, tripID)
	}
	if c.WorkState == WorkStateOnTrip && c.CurrentTripID != nil && *c.CurrentTripID != tripID {
		return
	}
	c.WorkState = WorkStateIdle
	c.CurrentTripID = nil
	c.LastIdleTime = now.UTC()
}

// Clone returns a deep copy so callers can mutate without aliasing a cached
// record.
func (c *Cab) Clone() *Cab {
	out := *c
	if c.CurrentTripID != nil {
		id := *c.CurrentTripID
		out.CurrentTripID = &id
	}
	out.CompletedTrips = slices.Clone(c.CompletedTrips)
	if out.CompletedTrips == nil {
		out.CompletedTrips = []int{}
	}
	return &out
}
