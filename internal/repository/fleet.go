package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cabdispatch/internal/domain/entities"
)

// Fleet groups the five collections that make up the fleet state.
type Fleet struct {
	Cabs      *Collection[*entities.Cab]
	Trips     *Collection[*entities.Trip]
	Cars      *Collection[*entities.Car]
	Drivers   *Collection[*entities.Driver]
	Locations *Collection[*entities.Location]

	store  RecordStore
	logger *slog.Logger
}

// NewFleet opens every fleet collection on store.
func NewFleet(store RecordStore, logger *slog.Logger) *Fleet {
	logger = logger.With("component", "repository")
	return &Fleet{
		Cabs:      NewCollection[*entities.Cab](store, CollectionCabs, logger),
		Trips:     NewCollection[*entities.Trip](store, CollectionTrips, logger),
		Cars:      NewCollection[*entities.Car](store, CollectionCars, logger),
		Drivers:   NewCollection[*entities.Driver](store, CollectionDrivers, logger),
		Locations: NewCollection[*entities.Location](store, CollectionLocations, logger),
		store:     store,
		logger:    logger,
	}
}

// ApplyCabAndTrip loads cabID and tripID in one store transaction, lets fn
// mutate both and commits them together. If either record is missing, fn
// fails or the store rejects the write, neither record changes.
func (f *Fleet) ApplyCabAndTrip(
	ctx context.Context,
	cabID, tripID int,
	fn func(cab *entities.Cab, trip *entities.Trip) error,
) (*entities.Cab, *entities.Trip, error) {
	var (
		cab   *entities.Cab
		trip  *entities.Trip
		fnErr error
	)

	names := []string{CollectionCabs, CollectionTrips}
	err := f.store.Update(ctx, names, func(current map[string][]byte) (map[string][]byte, error) {
		cabs, err := decodeRecords[*entities.Cab](current[CollectionCabs])
		if err != nil {
			return nil, err
		}
		trips, err := decodeRecords[*entities.Trip](current[CollectionTrips])
		if err != nil {
			return nil, err
		}

		cabIdx := indexOf(cabs, cabID)
		if cabIdx < 0 {
			return nil, fmt.Errorf("cab %d: %w", cabID, ErrRecordNotFound)
		}
		tripIdx := indexOf(trips, tripID)
		if tripIdx < 0 {
			return nil, fmt.Errorf("trip %d: %w", tripID, ErrRecordNotFound)
		}

		if fnErr = fn(cabs[cabIdx], trips[tripIdx]); fnErr != nil {
			return nil, fnErr
		}
		cab, trip = cabs[cabIdx], trips[tripIdx]

		cabData, err := f.Cabs.encode(cabs)
		if err != nil {
			return nil, err
		}
		tripData, err := f.Trips.encode(trips)
		if err != nil {
			return nil, err
		}
		return map[string][]byte{
			CollectionCabs:  cabData[CollectionCabs],
			CollectionTrips: tripData[CollectionTrips],
		}, nil
	})
	if err != nil {
		if fnErr == nil && !errors.Is(err, ErrRecordNotFound) {
			f.logger.ErrorContext(ctx, "commit_failed",
				"op", "apply_cab_and_trip", "cab_id", cabID, "trip_id", tripID, "error", err)
		}
		return nil, nil, err
	}
	return cab, trip, nil
}

// Close releases the underlying store.
func (f *Fleet) Close() error {
	return f.store.Close()
}
