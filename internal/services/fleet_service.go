package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cabdispatch/internal/config"
	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/repository"
)

// FleetService covers everything around dispatch that an operator does:
// registering cabs, raising trip requests and maintaining the car, driver and
// location records. Decisions about which cab serves a trip stay in
// DispatchService.
type FleetService struct {
	fleet    *repository.Fleet
	dispatch *DispatchService
	locks    repository.LockManager
	lockTTL  time.Duration
	lockWait time.Duration
	logger   *slog.Logger
}

// NewFleetService shares locks with dispatch so that registration and
// removal never race a booking.
func NewFleetService(
	cfg *config.Config,
	fleet *repository.Fleet,
	dispatch *DispatchService,
	locks repository.LockManager,
	logger *slog.Logger,
) *FleetService {
	return &FleetService{
		fleet:    fleet,
		dispatch: dispatch,
		locks:    locks,
		lockTTL:  cfg.Dispatch.LockTTL,
		lockWait: cfg.Dispatch.LockWait,
		logger:   logger.With("component", "fleet"),
	}
}

// RegisterCab creates an IDLE cab for an existing car and driver, parked at an
// existing location. A car or driver can belong to one cab only.
func (s *FleetService) RegisterCab(ctx context.Context, carID, driverID, locationID int) (*entities.Cab, error) {
	const op = "register_cab"
	attrs := []any{"car_id", carID, "driver_id", driverID, "location_id", locationID}

	if _, ok := s.fleet.Cars.GetByID(ctx, carID); !ok {
		return nil, s.fail(ctx, op, ErrCarNotFound, attrs...)
	}
	if _, ok := s.fleet.Drivers.GetByID(ctx, driverID); !ok {
		return nil, s.fail(ctx, op, ErrDriverNotFound, attrs...)
	}
	if _, ok := s.fleet.Locations.GetByID(ctx, locationID); !ok {
		return nil, s.fail(ctx, op, ErrLocationNotFound, attrs...)
	}

	unlockCar, err := s.lock(ctx, "car:"+strconv.Itoa(carID))
	if err != nil {
		return nil, s.fail(ctx, op, err, attrs...)
	}
	defer unlockCar()
	unlockDriver, err := s.lock(ctx, "driver:"+strconv.Itoa(driverID))
	if err != nil {
		return nil, s.fail(ctx, op, err, attrs...)
	}
	defer unlockDriver()

	for _, existing := range s.fleet.Cabs.GetAll(ctx) {
		if existing.CarID == carID || existing.DriverID == driverID {
			return nil, s.fail(ctx, op, ErrAlreadyAssigned, append(attrs, "cab_id", existing.ID)...)
		}
	}

	cab := entities.NewCab(carID, driverID, locationID, s.dispatch.Now())
	if !s.fleet.Cabs.Add(ctx, cab) {
		return nil, s.fail(ctx, op, errWriteFailed, attrs...)
	}

	s.logger.InfoContext(ctx, "cab_registered", append(attrs, "cab_id", cab.ID)...)
	return cab, nil
}

// RequestTrip creates a trip between two different locations and books a cab
// for it. If no cab can be booked the trip is kept as CANCELLED and the
// booking error is returned alongside it.
func (s *FleetService) RequestTrip(ctx context.Context, fromID, toID int) (*entities.Trip, *entities.Cab, error) {
	const op = "request_trip"
	attrs := []any{"from_location_id", fromID, "to_location_id", toID}

	if fromID == toID {
		return nil, nil, s.fail(ctx, op, ErrSameLocation, attrs...)
	}
	from, ok := s.fleet.Locations.GetByID(ctx, fromID)
	if !ok {
		return nil, nil, s.fail(ctx, op, ErrLocationNotFound, attrs...)
	}
	to, ok := s.fleet.Locations.GetByID(ctx, toID)
	if !ok {
		return nil, nil, s.fail(ctx, op, ErrLocationNotFound, attrs...)
	}

	trip := entities.NewTrip(*from, *to, s.dispatch.Now())
	if !s.fleet.Trips.Add(ctx, trip) {
		return nil, nil, s.fail(ctx, op, errWriteFailed, attrs...)
	}

	cab, bookErr := s.dispatch.BookCabForTrip(ctx, trip.ID, fromID)
	if bookErr == nil {
		booked, _ := s.fleet.Trips.GetByID(ctx, trip.ID)
		if booked != nil {
			trip = booked
		}
		return trip, cab, nil
	}

	cancelled, err := s.fleet.Trips.Apply(ctx, trip.ID, func(t *entities.Trip) error {
		return t.Cancel()
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "cancel_failed", "op", op, "trip_id", trip.ID, "error", err)
		return trip, nil, bookErr
	}
	s.logger.InfoContext(ctx, "trip_cancelled", "trip_id", trip.ID, "reason", bookErr.Error())
	return cancelled, nil, bookErr
}

// CancelTrip cancels a trip that has no cab yet.
func (s *FleetService) CancelTrip(ctx context.Context, tripID int) (*entities.Trip, error) {
	const op = "cancel_trip"

	unlock, err := s.lock(ctx, repository.TripLockKey(tripID))
	if err != nil {
		return nil, s.fail(ctx, op, err, "trip_id", tripID)
	}
	defer unlock()

	trip, err := s.fleet.Trips.Apply(ctx, tripID, func(t *entities.Trip) error {
		if t.AssignedCabID != nil {
			return ErrCabBusy
		}
		return t.Cancel()
	})
	if errors.Is(err, repository.ErrRecordNotFound) {
		err = ErrTripNotFound
	}
	if err != nil {
		return nil, s.fail(ctx, op, err, "trip_id", tripID)
	}
	return trip, nil
}

func (s *FleetService) ListCabs(ctx context.Context) []*entities.Cab {
	return s.fleet.Cabs.GetAll(ctx)
}

func (s *FleetService) GetCab(ctx context.Context, id int) (*entities.Cab, error) {
	cab, ok := s.fleet.Cabs.GetByID(ctx, id)
	if !ok {
		return nil, ErrCabNotFound
	}
	return cab, nil
}

// RemoveCab deletes a cab that is not on a trip. A grounded cab still counts
// as busy while a trip assigned to it is in progress.
func (s *FleetService) RemoveCab(ctx context.Context, id int) error {
	const op = "remove_cab"

	unlock, err := s.lock(ctx, repository.CabLockKey(id))
	if err != nil {
		return s.fail(ctx, op, err, "cab_id", id)
	}
	defer unlock()

	cab, ok := s.fleet.Cabs.GetByID(ctx, id)
	if !ok {
		return s.fail(ctx, op, ErrCabNotFound, "cab_id", id)
	}
	if cab.WorkState == entities.WorkStateOnTrip || s.hasActiveTrip(ctx, id) {
		return s.fail(ctx, op, ErrCabBusy, "cab_id", id)
	}
	if !s.fleet.Cabs.Remove(ctx, id) {
		return s.fail(ctx, op, errWriteFailed, "cab_id", id)
	}
	s.logger.InfoContext(ctx, "cab_removed", "cab_id", id)
	return nil
}

func (s *FleetService) hasActiveTrip(ctx context.Context, cabID int) bool {
	for _, trip := range s.fleet.Trips.GetAll(ctx) {
		if trip.IsActive() && *trip.AssignedCabID == cabID {
			return true
		}
	}
	return false
}

func (s *FleetService) ListTrips(ctx context.Context) []*entities.Trip {
	return s.fleet.Trips.GetAll(ctx)
}

func (s *FleetService) GetTrip(ctx context.Context, id int) (*entities.Trip, error) {
	trip, ok := s.fleet.Trips.GetByID(ctx, id)
	if !ok {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// CreateTrip stores an unassigned trip without booking it.
func (s *FleetService) CreateTrip(ctx context.Context, fromID, toID int) (*entities.Trip, error) {
	const op = "create_trip"
	attrs := []any{"from_location_id", fromID, "to_location_id", toID}

	if fromID == toID {
		return nil, s.fail(ctx, op, ErrSameLocation, attrs...)
	}
	from, ok := s.fleet.Locations.GetByID(ctx, fromID)
	if !ok {
		return nil, s.fail(ctx, op, ErrLocationNotFound, attrs...)
	}
	to, ok := s.fleet.Locations.GetByID(ctx, toID)
	if !ok {
		return nil, s.fail(ctx, op, ErrLocationNotFound, attrs...)
	}

	trip := entities.NewTrip(*from, *to, s.dispatch.Now())
	if !s.fleet.Trips.Add(ctx, trip) {
		return nil, s.fail(ctx, op, errWriteFailed, attrs...)
	}
	return trip, nil
}

// Cars

func (s *FleetService) ListCars(ctx context.Context) []*entities.Car {
	return s.fleet.Cars.GetAll(ctx)
}

func (s *FleetService) GetCar(ctx context.Context, id int) (*entities.Car, error) {
	car, ok := s.fleet.Cars.GetByID(ctx, id)
	if !ok {
		return nil, ErrCarNotFound
	}
	return car, nil
}

func (s *FleetService) AddCar(ctx context.Context, car *entities.Car) error {
	if err := validateCar(car); err != nil {
		return s.fail(ctx, "add_car", err)
	}
	car.ID = 0
	return s.add(ctx, "add_car", func() bool { return s.fleet.Cars.Add(ctx, car) })
}

func (s *FleetService) UpdateCar(ctx context.Context, car *entities.Car) error {
	if err := validateCar(car); err != nil {
		return s.fail(ctx, "update_car", err, "car_id", car.ID)
	}
	return update(ctx, s, "update_car", s.fleet.Cars, car, ErrCarNotFound)
}

func (s *FleetService) RemoveCar(ctx context.Context, id int) error {
	return s.removeReferenced(ctx, "remove_car", id, s.fleet.Cars.Remove, ErrCarNotFound,
		func(c *entities.Cab) bool { return c.CarID == id })
}

// Drivers

func (s *FleetService) ListDrivers(ctx context.Context) []*entities.Driver {
	return s.fleet.Drivers.GetAll(ctx)
}

func (s *FleetService) GetDriver(ctx context.Context, id int) (*entities.Driver, error) {
	driver, ok := s.fleet.Drivers.GetByID(ctx, id)
	if !ok {
		return nil, ErrDriverNotFound
	}
	return driver, nil
}

func (s *FleetService) AddDriver(ctx context.Context, driver *entities.Driver) error {
	if err := validateDriver(driver); err != nil {
		return s.fail(ctx, "add_driver", err)
	}
	driver.ID = 0
	return s.add(ctx, "add_driver", func() bool { return s.fleet.Drivers.Add(ctx, driver) })
}

func (s *FleetService) UpdateDriver(ctx context.Context, driver *entities.Driver) error {
	if err := validateDriver(driver); err != nil {
		return s.fail(ctx, "update_driver", err, "driver_id", driver.ID)
	}
	return update(ctx, s, "update_driver", s.fleet.Drivers, driver, ErrDriverNotFound)
}

func (s *FleetService) RemoveDriver(ctx context.Context, id int) error {
	return s.removeReferenced(ctx, "remove_driver", id, s.fleet.Drivers.Remove, ErrDriverNotFound,
		func(c *entities.Cab) bool { return c.DriverID == id })
}

// Locations

func (s *FleetService) ListLocations(ctx context.Context) []*entities.Location {
	return s.fleet.Locations.GetAll(ctx)
}

func (s *FleetService) GetLocation(ctx context.Context, id int) (*entities.Location, error) {
	loc, ok := s.fleet.Locations.GetByID(ctx, id)
	if !ok {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

func (s *FleetService) AddLocation(ctx context.Context, loc *entities.Location) error {
	if err := validateLocation(loc); err != nil {
		return s.fail(ctx, "add_location", err)
	}
	loc.ID = 0
	return s.add(ctx, "add_location", func() bool { return s.fleet.Locations.Add(ctx, loc) })
}

func (s *FleetService) UpdateLocation(ctx context.Context, loc *entities.Location) error {
	if err := validateLocation(loc); err != nil {
		return s.fail(ctx, "update_location", err, "location_id", loc.ID)
	}
	return update(ctx, s, "update_location", s.fleet.Locations, loc, ErrLocationNotFound)
}

// RemoveLocation refuses while any cab is parked there. Trips keep their own
// copy of the location and are not affected.
func (s *FleetService) RemoveLocation(ctx context.Context, id int) error {
	return s.removeReferenced(ctx, "remove_location", id, s.fleet.Locations.Remove, ErrLocationNotFound,
		func(c *entities.Cab) bool { return c.CurrentLocationID == id })
}

var errWriteFailed = errors.New("repository write failed")

func (s *FleetService) add(ctx context.Context, op string, add func() bool) error {
	if !add() {
		return s.fail(ctx, op, errWriteFailed)
	}
	return nil
}

func update[E repository.Record](ctx context.Context, s *FleetService, op string, c *repository.Collection[E], e E, notFound error) error {
	if _, ok := c.GetByID(ctx, e.RecordID()); !ok {
		return s.fail(ctx, op, notFound, "id", e.RecordID())
	}
	if !c.Update(ctx, e) {
		return s.fail(ctx, op, errWriteFailed, "id", e.RecordID())
	}
	return nil
}

func (s *FleetService) removeReferenced(
	ctx context.Context,
	op string,
	id int,
	remove func(context.Context, int) bool,
	notFound error,
	references func(*entities.Cab) bool,
) error {
	for _, cab := range s.fleet.Cabs.GetAll(ctx) {
		if references(cab) {
			return s.fail(ctx, op, ErrInUse, "id", id, "cab_id", cab.ID)
		}
	}
	if !remove(ctx, id) {
		return s.fail(ctx, op, notFound, "id", id)
	}
	return nil
}

func (s *FleetService) lock(ctx context.Context, key string) (func(), error) {
	return repository.Lock(ctx, s.locks, s.logger, key, s.lockTTL, s.lockWait)
}

func (s *FleetService) fail(ctx context.Context, op string, err error, attrs ...any) error {
	return logFailure(ctx, s.logger, op, err, attrs...)
}

func validateCar(car *entities.Car) error {
	if strings.TrimSpace(car.Manufacturer) == "" || strings.TrimSpace(car.Model) == "" {
		return fmt.Errorf("%w: manufacturer and model are required", ErrInvalidInput)
	}
	if car.ManufactureYear < 1900 || car.ManufactureYear > time.Now().Year()+1 {
		return fmt.Errorf("%w: manufacture year %d out of range", ErrInvalidInput, car.ManufactureYear)
	}
	if car.KmDriven < 0 {
		return fmt.Errorf("%w: km driven cannot be negative", ErrInvalidInput)
	}
	return nil
}

func validateDriver(d *entities.Driver) error {
	if strings.TrimSpace(d.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	if !d.DateOfBirth.IsZero() && !d.DateOfJoining.IsZero() && d.DateOfJoining.Before(d.DateOfBirth) {
		return fmt.Errorf("%w: joining date before date of birth", ErrInvalidInput)
	}
	return nil
}

func validateLocation(l *entities.Location) error {
	if strings.TrimSpace(l.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	return nil
}
