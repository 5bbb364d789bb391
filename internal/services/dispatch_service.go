package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"cabdispatch/internal/config"
	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/repository"
)

// maxBookingAttempts bounds how often booking re-selects after the chosen cab
// turned out to be taken between selection and commit.
const maxBookingAttempts = 3

var errCabUnavailable = errors.New("selected cab is no longer available")

// Clock returns the current time. All timestamps are stored in UTC.
type Clock func() time.Time

// TieBreaker picks an index in [0, n). It must be safe for concurrent use.
type TieBreaker interface {
	IntN(n int) int
}

type randomTieBreaker struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewTieBreaker returns a uniform TieBreaker. A zero seed draws one at random,
// any other seed gives a reproducible sequence.
func NewTieBreaker(seed uint64) TieBreaker {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &randomTieBreaker{r: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (t *randomTieBreaker) IntN(n int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.r.IntN(n)
}

// DispatchOption overrides a DispatchService default.
type DispatchOption func(*DispatchService)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) DispatchOption {
	return func(s *DispatchService) { s.now = c }
}

// WithTieBreaker replaces the seeded random choice between equally idle cabs.
func WithTieBreaker(tb TieBreaker) DispatchOption {
	return func(s *DispatchService) { s.tie = tb }
}

// DispatchService is the dispatch engine. It moves cabs between locations
// and states, answers availability queries, books cabs for trips and
// completes trips.
//
// Every mutation runs as load → decide → write under named locks from the
// LockManager, taken in the order trip, location, cab:
//   - "trip:<id>" serializes booking and completion of one trip
//   - "location:<id>" serializes cab selection at one pickup point, so two
//     bookings there never pick the same cab
//   - "cab:<id>" serializes every change to one cab
//
// Cab and trip changes are committed together through Fleet.ApplyCabAndTrip,
// which re-checks availability inside the store transaction. Either both
// records change or neither does.
//
// Failures are returned as the sentinel errors in errors.go and always
// logged with the operation name and the ids involved.
type DispatchService struct {
	fleet    *repository.Fleet
	locks    repository.LockManager
	notifier Notifier
	now      Clock
	tie      TieBreaker
	lockTTL  time.Duration
	lockWait time.Duration
	logger   *slog.Logger
}

// NewDispatchService takes lock TTL, lock wait and the tie-breaker seed from
// cfg.Dispatch.
func NewDispatchService(
	cfg *config.Config,
	fleet *repository.Fleet,
	locks repository.LockManager,
	notifier Notifier,
	logger *slog.Logger,
	opts ...DispatchOption,
) *DispatchService {
	s := &DispatchService{
		fleet:    fleet,
		locks:    locks,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		tie:      NewTieBreaker(cfg.Dispatch.TieBreakSeed),
		lockTTL:  cfg.Dispatch.LockTTL,
		lockWait: cfg.Dispatch.LockWait,
		logger:   logger.With("component", "dispatch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the engine's clock, shared with services that stamp trips.
func (s *DispatchService) Now() time.Time {
	return s.now().UTC()
}

// ChangeCabLocation parks cabID at locationID.
func (s *DispatchService) ChangeCabLocation(ctx context.Context, cabID, locationID int) error {
	const op = "change_cab_location"

	if _, ok := s.fleet.Cabs.GetByID(ctx, cabID); !ok {
		return s.fail(ctx, op, ErrCabNotFound, "cab_id", cabID)
	}
	if _, ok := s.fleet.Locations.GetByID(ctx, locationID); !ok {
		return s.fail(ctx, op, ErrLocationNotFound, "cab_id", cabID, "location_id", locationID)
	}

	unlock, err := s.lock(ctx, repository.CabLockKey(cabID))
	if err != nil {
		return s.fail(ctx, op, err, "cab_id", cabID)
	}
	defer unlock()

	_, err = s.fleet.Cabs.Apply(ctx, cabID, func(cab *entities.Cab) error {
		cab.CurrentLocationID = locationID
		return nil
	})
	if errors.Is(err, repository.ErrRecordNotFound) {
		err = ErrCabNotFound
	}
	if err != nil {
		return s.fail(ctx, op, err, "cab_id", cabID, "location_id", locationID)
	}

	s.logger.InfoContext(ctx, "cab_moved", "cab_id", cabID, "location_id", locationID)
	return nil
}

// ChangeCabState applies an operator state change. IDLE restarts the idle
// clock; any change drops the current trip reference. ON_TRIP can only be
// entered by booking.
func (s *DispatchService) ChangeCabState(ctx context.Context, cabID int, state entities.WorkState) error {
	const op = "change_cab_state"

	if !state.Valid() {
		return s.fail(ctx, op, ErrInvalidState, "cab_id", cabID, "state", string(state))
	}

	unlock, err := s.lock(ctx, repository.CabLockKey(cabID))
	if err != nil {
		return s.fail(ctx, op, err, "cab_id", cabID)
	}
	defer unlock()

	now := s.Now()
	var from entities.WorkState
	_, err = s.fleet.Cabs.Apply(ctx, cabID, func(cab *entities.Cab) error {
		from = cab.WorkState
		return cab.ChangeState(state, now)
	})
	if errors.Is(err, repository.ErrRecordNotFound) {
		err = ErrCabNotFound
	}
	if err != nil {
		return s.fail(ctx, op, err, "cab_id", cabID, "from", string(from), "to", string(state))
	}

	s.logger.InfoContext(ctx, "cab_state_changed", "cab_id", cabID, "from", string(from), "to", string(state))
	return nil
}

// GetAvailableCabsAtLocation returns the IDLE cabs at locationID in storage
// order.
func (s *DispatchService) GetAvailableCabsAtLocation(ctx context.Context, locationID int) []*entities.Cab {
	var available []*entities.Cab
	for _, cab := range s.fleet.Cabs.GetAll(ctx) {
		if cab.IsAvailableAt(locationID) {
			available = append(available, cab)
		}
	}
	return available
}

// BookCabForTrip assigns the longest-idle cab at fromLocationID to tripID.
//
// The algorithm:
//  1. Lock the trip and check it is IN_PROGRESS with no cab yet
//  2. Lock the pickup location and list its IDLE cabs
//  3. Pick the cab with the longest idle duration; ties are broken uniformly
//     at random by the TieBreaker
//  4. Lock that cab and commit cab ON_TRIP + trip assigned/started in one
//     transaction, re-checking inside it that the cab is still IDLE there
//  5. If the cab was taken in between, go back to 2
func (s *DispatchService) BookCabForTrip(ctx context.Context, tripID, fromLocationID int) (*entities.Cab, error) {
	const op = "book_cab_for_trip"

	unlockTrip, err := s.lock(ctx, repository.TripLockKey(tripID))
	if err != nil {
		return nil, s.fail(ctx, op, err, "trip_id", tripID)
	}
	defer unlockTrip()

	trip, ok := s.fleet.Trips.GetByID(ctx, tripID)
	if !ok {
		return nil, s.fail(ctx, op, ErrTripNotFound, "trip_id", tripID)
	}
	if !trip.IsBookable() {
		return nil, s.fail(ctx, op, ErrTripNotBookable, "trip_id", tripID, "status", string(trip.Status))
	}

	unlockLocation, err := s.lock(ctx, repository.LocationLockKey(fromLocationID))
	if err != nil {
		return nil, s.fail(ctx, op, err, "trip_id", tripID, "location_id", fromLocationID)
	}
	defer unlockLocation()

	for attempt := 1; attempt <= maxBookingAttempts; attempt++ {
		candidate := s.selectCab(s.GetAvailableCabsAtLocation(ctx, fromLocationID))
		if candidate == nil {
			break
		}

		cab, booked, err := s.commitBooking(ctx, candidate.ID, tripID, fromLocationID)
		if errors.Is(err, errCabUnavailable) || errors.Is(err, repository.ErrRecordNotFound) {
			s.logger.DebugContext(ctx, "candidate_taken", "op", op, "cab_id", candidate.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, s.fail(ctx, op, err, "trip_id", tripID, "cab_id", candidate.ID)
		}

		s.logger.InfoContext(ctx, "cab_booked",
			"trip_id", tripID, "cab_id", cab.ID, "location_id", fromLocationID)
		s.notify(ctx, op, func() error { return s.notifier.TripBooked(ctx, booked, cab) })
		return cab, nil
	}

	return nil, s.fail(ctx, op, ErrNoCabAvailable, "trip_id", tripID, "location_id", fromLocationID)
}

func (s *DispatchService) commitBooking(ctx context.Context, cabID, tripID, locationID int) (*entities.Cab, *entities.Trip, error) {
	unlock, err := s.lock(ctx, repository.CabLockKey(cabID))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	now := s.Now()
	return s.fleet.ApplyCabAndTrip(ctx, cabID, tripID, func(cab *entities.Cab, trip *entities.Trip) error {
		if !cab.IsAvailableAt(locationID) {
			return errCabUnavailable
		}
		if err := trip.AssignCab(cab.ID, now); err != nil {
			return err
		}
		return cab.AssignTrip(trip.ID)
	})
}

// selectCab returns the candidate with the longest idle duration, choosing
// uniformly among ties, or nil if there are no candidates.
func (s *DispatchService) selectCab(candidates []*entities.Cab) *entities.Cab {
	if len(candidates) == 0 {
		return nil
	}

	now := s.Now()
	var (
		longest time.Duration = -1
		tied    []*entities.Cab
	)
	for _, cab := range candidates {
		idle := cab.IdleDuration(now)
		switch {
		case idle > longest:
			longest = idle
			tied = append(tied[:0], cab)
		case idle == longest:
			tied = append(tied, cab)
		}
	}

	if len(tied) == 1 {
		return tied[0]
	}
	return tied[s.tie.IntN(len(tied))]
}

// CompleteTrip finishes tripID: the trip becomes COMPLETED with an end time
// and its cab returns to IDLE with the trip appended to its history. A trip
// that is not IN_PROGRESS with a cab, including one already completed, is
// rejected.
func (s *DispatchService) CompleteTrip(ctx context.Context, tripID int) error {
	const op = "complete_trip"

	unlockTrip, err := s.lock(ctx, repository.TripLockKey(tripID))
	if err != nil {
		return s.fail(ctx, op, err, "trip_id", tripID)
	}
	defer unlockTrip()

	trip, ok := s.fleet.Trips.GetByID(ctx, tripID)
	if !ok {
		return s.fail(ctx, op, ErrTripNotFound, "trip_id", tripID)
	}
	if !trip.IsActive() {
		return s.fail(ctx, op, ErrTripNotActive, "trip_id", tripID, "status", string(trip.Status))
	}
	cabID := *trip.AssignedCabID
	if _, ok := s.fleet.Cabs.GetByID(ctx, cabID); !ok {
		return s.fail(ctx, op, ErrCabNotFound, "trip_id", tripID, "cab_id", cabID)
	}

	unlockCab, err := s.lock(ctx, repository.CabLockKey(cabID))
	if err != nil {
		return s.fail(ctx, op, err, "trip_id", tripID, "cab_id", cabID)
	}
	defer unlockCab()

	now := s.Now()
	cab, done, err := s.fleet.ApplyCabAndTrip(ctx, cabID, tripID, func(cab *entities.Cab, trip *entities.Trip) error {
		if err := trip.Complete(now); err != nil {
			return err
		}
		cab.FinishTrip(trip.ID, now)
		return nil
	})
	if errors.Is(err, repository.ErrRecordNotFound) {
		err = ErrCabNotFound
	}
	if err != nil {
		return s.fail(ctx, op, err, "trip_id", tripID, "cab_id", cabID)
	}

	s.logger.InfoContext(ctx, "trip_completed", "trip_id", tripID, "cab_id", cabID, "total_trips", cab.TotalTrips())
	s.notify(ctx, op, func() error { return s.notifier.TripCompleted(ctx, done, cab) })
	return nil
}

func (s *DispatchService) lock(ctx context.Context, key string) (func(), error) {
	return repository.Lock(ctx, s.locks, s.logger, key, s.lockTTL, s.lockWait)
}

func (s *DispatchService) notify(ctx context.Context, op string, send func() error) {
	if s.notifier == nil {
		return
	}
	if err := send(); err != nil {
		s.logger.WarnContext(ctx, "notify_failed", "op", op, "error", err)
	}
}

// fail logs err for op and returns it in the form callers match on. Expected
// outcomes (not found, no availability, rejected transitions) are logged as
// warnings; lock and store failures as errors.
func (s *DispatchService) fail(ctx context.Context, op string, err error, attrs ...any) error {
	return logFailure(ctx, s.logger, op, err, attrs...)
}

func logFailure(ctx context.Context, logger *slog.Logger, op string, err error, attrs ...any) error {
	args := append([]any{"op", op, "error", err}, attrs...)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "operation_cancelled", args...)
		return err
	case errors.Is(err, repository.ErrLockTimeout):
		logger.ErrorContext(ctx, "lock_timeout", args...)
		return fmt.Errorf("%w: %v", ErrBusy, err)
	case isDomainError(err):
		logger.WarnContext(ctx, "operation_rejected", args...)
		return err
	default:
		logger.ErrorContext(ctx, "commit_failed", args...)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrCabNotFound, ErrTripNotFound, ErrLocationNotFound, ErrCarNotFound, ErrDriverNotFound,
		ErrNoCabAvailable, ErrTripNotBookable, ErrTripNotActive, ErrInvalidState, ErrInvalidChange,
		entities.ErrCabNotIdle, entities.ErrTripClosed,
		ErrSameLocation, ErrAlreadyAssigned, ErrCabBusy, ErrInUse, ErrInvalidInput, ErrInvalidWindow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
