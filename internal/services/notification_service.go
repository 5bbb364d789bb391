package services

import (
	"context"
	"errors"
	"log/slog"

	"cabdispatch/internal/domain/entities"
)

// Notifier is told about trip lifecycle changes after they are committed.
// A failing notifier never undoes or fails the dispatch operation.
type Notifier interface {
	TripBooked(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error
	TripCompleted(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error
}

// NotificationService writes notifications to the log. It stands in for
// push messages to drivers.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService logs every booking and completion.
func NewNotificationService(logger *slog.Logger) *NotificationService {
	return &NotificationService{logger: logger.With("component", "notification")}
}

func (s *NotificationService) TripBooked(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	s.logger.InfoContext(ctx, "notify_driver_trip_assigned",
		"driver_id", cab.DriverID,
		"cab_id", cab.ID,
		"trip_id", trip.ID,
		"from", trip.FromLocation.Label(),
		"to", trip.ToLocation.Label(),
	)
	return nil
}

func (s *NotificationService) TripCompleted(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	s.logger.InfoContext(ctx, "notify_trip_completed",
		"driver_id", cab.DriverID,
		"cab_id", cab.ID,
		"trip_id", trip.ID,
		"duration", trip.Duration().String(),
	)
	return nil
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) TripBooked(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.TripBooked(ctx, trip, cab))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) TripCompleted(ctx context.Context, trip *entities.Trip, cab *entities.Cab) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.TripCompleted(ctx, trip, cab))
	}
	return errors.Join(errs...)
}
