package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cabdispatch/internal/config"
	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/repository"
	"cabdispatch/internal/repository/memory"
)

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixedTieBreaker always picks the same index, wrapped into range.
type fixedTieBreaker int

func (f fixedTieBreaker) IntN(n int) int { return int(f) % n }

type recordingNotifier struct {
	mu        sync.Mutex
	booked    []int
	completed []int
	err       error
}

func (r *recordingNotifier) TripBooked(_ context.Context, trip *entities.Trip, _ *entities.Cab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.booked = append(r.booked, trip.ID)
	return r.err
}

func (r *recordingNotifier) TripCompleted(_ context.Context, trip *entities.Trip, _ *entities.Cab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, trip.ID)
	return r.err
}

// flakyStore is a memory store whose multi-collection updates can be made to
// fail.
type flakyStore struct {
	*memory.Store
	failUpdates atomic.Bool
}

var errStoreDown = errors.New("store down")

func (s *flakyStore) Update(ctx context.Context, names []string, fn repository.TxFunc) error {
	if s.failUpdates.Load() && len(names) > 1 {
		return errStoreDown
	}
	return s.Store.Update(ctx, names, fn)
}

type testEnv struct {
	store    *flakyStore
	fleet    *repository.Fleet
	clock    *fakeClock
	notifier *recordingNotifier
	dispatch *DispatchService
	fleetSvc *FleetService
	insights *InsightsService
}

func setupServices(t *testing.T, opts ...DispatchOption) *testEnv {
	t.Helper()

	cfg := config.NewDefaultConfig()
	cfg.Dispatch.LockWait = 2 * time.Second

	store := &flakyStore{Store: memory.NewStore()}
	locks := memory.NewLockManager(time.Minute)
	t.Cleanup(locks.Stop)

	fleet := repository.NewFleet(store, discardLogger())
	clock := &fakeClock{now: t0}
	notifier := &recordingNotifier{}

	opts = append([]DispatchOption{WithClock(clock.Now), WithTieBreaker(NewTieBreaker(42))}, opts...)
	dispatch := NewDispatchService(cfg, fleet, locks, notifier, discardLogger(), opts...)

	return &testEnv{
		store:    store,
		fleet:    fleet,
		clock:    clock,
		notifier: notifier,
		dispatch: dispatch,
		fleetSvc: NewFleetService(cfg, fleet, dispatch, locks, discardLogger()),
		insights: NewInsightsService(fleet, discardLogger()),
	}
}

func (e *testEnv) addLocation(t *testing.T, city string) *entities.Location {
	t.Helper()
	loc := entities.NewLocation(city, "India", 12.9, 77.6)
	if err := e.fleetSvc.AddLocation(context.Background(), loc); err != nil {
		t.Fatalf("AddLocation(%s) failed: %v", city, err)
	}
	return loc
}

// addCab registers a cab with a fresh car and driver at locationID, idle
// since the current fake time.
func (e *testEnv) addCab(t *testing.T, locationID int) *entities.Cab {
	t.Helper()
	ctx := context.Background()

	car := entities.NewCar("Maruti", "Dzire", "", 2020, 1000)
	if err := e.fleetSvc.AddCar(ctx, car); err != nil {
		t.Fatalf("AddCar failed: %v", err)
	}
	driver := entities.NewDriver("Asha", "Rao", "555-0100", "", time.Time{}, time.Time{})
	if err := e.fleetSvc.AddDriver(ctx, driver); err != nil {
		t.Fatalf("AddDriver failed: %v", err)
	}
	cab, err := e.fleetSvc.RegisterCab(ctx, car.ID, driver.ID, locationID)
	if err != nil {
		t.Fatalf("RegisterCab failed: %v", err)
	}
	return cab
}

func (e *testEnv) mustCab(t *testing.T, id int) *entities.Cab {
	t.Helper()
	cab, ok := e.fleet.Cabs.GetByID(context.Background(), id)
	if !ok {
		t.Fatalf("cab %d not found", id)
	}
	return cab
}

func (e *testEnv) mustTrip(t *testing.T, id int) *entities.Trip {
	t.Helper()
	trip, ok := e.fleet.Trips.GetByID(context.Background(), id)
	if !ok {
		t.Fatalf("trip %d not found", id)
	}
	return trip
}

// checkInvariants asserts that a cab has a current trip exactly when it is on
// one, and that completed trips have a cab and end no earlier than they start.
func (e *testEnv) checkInvariants(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	for _, cab := range e.fleet.Cabs.GetAll(ctx) {
		onTrip := cab.WorkState == entities.WorkStateOnTrip
		if onTrip != (cab.CurrentTripID != nil) {
			t.Errorf("cab %d: state %s with current trip %v", cab.ID, cab.WorkState, cab.CurrentTripID)
		}
	}
	for _, trip := range e.fleet.Trips.GetAll(ctx) {
		if trip.Status != entities.TripStatusCompleted {
			continue
		}
		if trip.AssignedCabID == nil || trip.StartTime == nil || trip.EndTime == nil {
			t.Errorf("completed trip %d is missing cab or times", trip.ID)
			continue
		}
		if trip.EndTime.Before(*trip.StartTime) {
			t.Errorf("trip %d ends before it starts", trip.ID)
		}
	}
}
