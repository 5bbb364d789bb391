package entities

import (
	"errors"
	"time"
)

var (
	ErrTripNotBookable = errors.New("trip is not open for booking")
	ErrTripNotActive   = errors.New("trip is not an active assigned trip")
	ErrTripClosed      = errors.New("trip is already closed")
)

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

func (s TripStatus) DisplayName() string {
	switch s {
	case TripStatusInProgress:
		return "In Progress"
	case TripStatusCompleted:
		return "Completed"
	case TripStatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Trip is one requested journey. From/To are snapshots taken when the trip
// was created.
//
// An IN_PROGRESS trip without AssignedCabID is waiting for a cab. Booking sets
// AssignedCabID and StartTime; completion sets EndTime.
type Trip struct {
	ID            int        `json:"id"`
	FromLocation  Location   `json:"from_location"`
	ToLocation    Location   `json:"to_location"`
	Status        TripStatus `json:"status"`
	AssignedCabID *int       `json:"assigned_cab_id,omitempty"`
	BookingTime   time.Time  `json:"booking_time"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

// NewTrip creates an unassigned IN_PROGRESS trip booked at now.
func NewTrip(from, to Location, now time.Time) *Trip {
	return &Trip{
		FromLocation: from,
		ToLocation:   to,
		Status:       TripStatusInProgress,
		BookingTime:  now.UTC(),
	}
}

func (t *Trip) RecordID() int      { return t.ID }
func (t *Trip) SetRecordID(id int) { t.ID = id }

// IsBookable reports whether a cab can still be assigned.
func (t *Trip) IsBookable() bool {
	return t.Status == TripStatusInProgress && t.AssignedCabID == nil
}

// IsActive reports whether the trip has a cab and is still running.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusInProgress && t.AssignedCabID != nil
}

// AssignCab records the booked cab and starts the trip.
func (t *Trip) AssignCab(cabID int, now time.Time) error {
	if !t.IsBookable() {
		return ErrTripNotBookable
	}
	id := cabID
	started := now.UTC()
	t.AssignedCabID = &id
	t.StartTime = &started
	return nil
}

// Complete closes an active trip.
func (t *Trip) Complete(now time.Time) error {
	if !t.IsActive() {
		return ErrTripNotActive
	}
	ended := now.UTC()
	if t.StartTime != nil && ended.Before(*t.StartTime) {
		ended = *t.StartTime
	}
	t.Status = TripStatusCompleted
	t.EndTime = &ended
	return nil
}

// Cancel closes a trip that never completed.
func (t *Trip) Cancel() error {
	if t.Status != TripStatusInProgress {
		return ErrTripClosed
	}
	t.Status = TripStatusCancelled
	return nil
}

// Duration is EndTime-StartTime for a finished trip, zero otherwise.
func (t *Trip) Duration() time.Duration {
	if t.StartTime == nil || t.EndTime == nil {
		return 0
	}
	return t.EndTime.Sub(*t.StartTime)
}

func (t *Trip) Clone() *Trip {
	out := *t
	if t.AssignedCabID != nil {
		id := *t.AssignedCabID
		out.AssignedCabID = &id
	}
	if t.StartTime != nil {
		ts := *t.StartTime
		out.StartTime = &ts
	}
	if t.EndTime != nil {
		ts := *t.EndTime
		out.EndTime = &ts
	}
	return &out
}
