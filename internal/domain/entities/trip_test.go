package entities

import (
	"testing"
	"time"
)

func newTestTrip() *Trip {
	from := Location{ID: 5, City: "Pune", Country: "India"}
	to := Location{ID: 7, City: "Mumbai", Country: "India"}
	return NewTrip(from, to, t0)
}

func TestTrip_Lifecycle(t *testing.T) {
	trip := newTestTrip()

	if !trip.IsBookable() {
		t.Fatal("Expected new trip to be bookable")
	}
	if trip.IsActive() {
		t.Fatal("Expected unassigned trip to be inactive")
	}
	if err := trip.Complete(t0); err != ErrTripNotActive {
		t.Errorf("Expected ErrTripNotActive before booking, got %v", err)
	}

	start := t0.Add(5 * time.Minute)
	if err := trip.AssignCab(1, start); err != nil {
		t.Fatalf("AssignCab failed: %v", err)
	}
	if err := trip.AssignCab(2, start); err != ErrTripNotBookable {
		t.Errorf("Expected ErrTripNotBookable on second assign, got %v", err)
	}

	end := start.Add(40 * time.Minute)
	if err := trip.Complete(end); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if trip.Status != TripStatusCompleted {
		t.Errorf("Expected completed, got %s", trip.Status)
	}
	if trip.Duration() != 40*time.Minute {
		t.Errorf("Expected 40m duration, got %v", trip.Duration())
	}
	if err := trip.Complete(end); err != ErrTripNotActive {
		t.Errorf("Expected second completion to fail, got %v", err)
	}
}

func TestTrip_CompleteNeverEndsBeforeStart(t *testing.T) {
	trip := newTestTrip()
	start := t0.Add(time.Hour)
	_ = trip.AssignCab(1, start)

	_ = trip.Complete(t0)

	if trip.EndTime.Before(*trip.StartTime) {
		t.Errorf("EndTime %v before StartTime %v", trip.EndTime, trip.StartTime)
	}
}

func TestTrip_Cancel(t *testing.T) {
	trip := newTestTrip()

	if err := trip.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if trip.IsBookable() {
		t.Error("Expected cancelled trip not to be bookable")
	}
	if err := trip.Cancel(); err != ErrTripClosed {
		t.Errorf("Expected ErrTripClosed, got %v", err)
	}
}
