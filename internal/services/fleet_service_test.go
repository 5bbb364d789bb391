package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cabdispatch/internal/domain/entities"
)

func TestFleetService_RegisterCab(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	loc := env.addLocation(t, "Pune")
	existing := env.addCab(t, loc.ID)

	car := entities.NewCar("Tata", "Nexon", "", 2022, 0)
	if err := env.fleetSvc.AddCar(ctx, car); err != nil {
		t.Fatalf("AddCar failed: %v", err)
	}
	driver := entities.NewDriver("Ravi", "Kumar", "555-0101", "", time.Time{}, time.Time{})
	if err := env.fleetSvc.AddDriver(ctx, driver); err != nil {
		t.Fatalf("AddDriver failed: %v", err)
	}

	tests := []struct {
		name                      string
		carID, driverID, location int
		wantErr                   error
	}{
		{"unknown car", 99, driver.ID, loc.ID, ErrCarNotFound},
		{"unknown driver", car.ID, 99, loc.ID, ErrDriverNotFound},
		{"unknown location", car.ID, driver.ID, 99, ErrLocationNotFound},
		{"car already in a cab", existing.CarID, driver.ID, loc.ID, ErrAlreadyAssigned},
		{"driver already in a cab", car.ID, existing.DriverID, loc.ID, ErrAlreadyAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.fleetSvc.RegisterCab(ctx, tt.carID, tt.driverID, tt.location)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	cab, err := env.fleetSvc.RegisterCab(ctx, car.ID, driver.ID, loc.ID)
	if err != nil {
		t.Fatalf("RegisterCab failed: %v", err)
	}
	if cab.ID != existing.ID+1 {
		t.Errorf("Expected id %d, got %d", existing.ID+1, cab.ID)
	}
	if cab.WorkState != entities.WorkStateIdle || !cab.LastIdleTime.Equal(t0) {
		t.Errorf("Expected idle cab since %v, got %s since %v", t0, cab.WorkState, cab.LastIdleTime)
	}
}

func TestFleetService_RequestTrip(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	pickup := env.addLocation(t, "Pune")
	drop := env.addLocation(t, "Mumbai")

	if _, _, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, pickup.ID); !errors.Is(err, ErrSameLocation) {
		t.Errorf("Expected ErrSameLocation, got %v", err)
	}
	if _, _, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, 99); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Expected ErrLocationNotFound, got %v", err)
	}

	trip, cab, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, drop.ID)
	if !errors.Is(err, ErrNoCabAvailable) {
		t.Fatalf("Expected ErrNoCabAvailable, got %v", err)
	}
	if cab != nil {
		t.Errorf("Expected no cab, got %d", cab.ID)
	}
	if trip == nil || trip.Status != entities.TripStatusCancelled {
		t.Fatalf("Expected cancelled trip, got %+v", trip)
	}
	if stored := env.mustTrip(t, trip.ID); stored.Status != entities.TripStatusCancelled {
		t.Errorf("Expected stored trip cancelled, got %s", stored.Status)
	}

	registered := env.addCab(t, pickup.ID)
	trip, cab, err = env.fleetSvc.RequestTrip(ctx, pickup.ID, drop.ID)
	if err != nil {
		t.Fatalf("RequestTrip failed: %v", err)
	}
	if cab.ID != registered.ID {
		t.Errorf("Expected cab %d, got %d", registered.ID, cab.ID)
	}
	if trip.AssignedCabID == nil || *trip.AssignedCabID != cab.ID || trip.StartTime == nil {
		t.Errorf("Expected returned trip to show the booking, got %+v", trip)
	}
	if trip.FromLocation.City != "Pune" || trip.ToLocation.City != "Mumbai" {
		t.Errorf("Expected Pune -> Mumbai, got %s -> %s", trip.FromLocation.City, trip.ToLocation.City)
	}
}

func TestFleetService_CancelTrip(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	pickup := env.addLocation(t, "Pune")
	drop := env.addLocation(t, "Mumbai")
	env.addCab(t, pickup.ID)

	open, err := env.fleetSvc.CreateTrip(ctx, pickup.ID, drop.ID)
	if err != nil {
		t.Fatalf("CreateTrip failed: %v", err)
	}
	booked, _, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, drop.ID)
	if err != nil {
		t.Fatalf("RequestTrip failed: %v", err)
	}

	cancelled, err := env.fleetSvc.CancelTrip(ctx, open.ID)
	if err != nil {
		t.Fatalf("CancelTrip failed: %v", err)
	}
	if cancelled.Status != entities.TripStatusCancelled {
		t.Errorf("Expected cancelled, got %s", cancelled.Status)
	}
	if _, err := env.fleetSvc.CancelTrip(ctx, open.ID); !errors.Is(err, entities.ErrTripClosed) {
		t.Errorf("Expected ErrTripClosed, got %v", err)
	}
	if _, err := env.fleetSvc.CancelTrip(ctx, booked.ID); !errors.Is(err, ErrCabBusy) {
		t.Errorf("Expected ErrCabBusy for a booked trip, got %v", err)
	}
	if _, err := env.fleetSvc.CancelTrip(ctx, 99); !errors.Is(err, ErrTripNotFound) {
		t.Errorf("Expected ErrTripNotFound, got %v", err)
	}
}

func TestFleetService_RemoveCab(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	pickup := env.addLocation(t, "Pune")
	drop := env.addLocation(t, "Mumbai")
	cab := env.addCab(t, pickup.ID)

	trip, _, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, drop.ID)
	if err != nil {
		t.Fatalf("RequestTrip failed: %v", err)
	}
	if err := env.fleetSvc.RemoveCab(ctx, cab.ID); !errors.Is(err, ErrCabBusy) {
		t.Errorf("Expected ErrCabBusy, got %v", err)
	}
	if err := env.dispatch.CompleteTrip(ctx, trip.ID); err != nil {
		t.Fatalf("CompleteTrip failed: %v", err)
	}
	if err := env.fleetSvc.RemoveCab(ctx, cab.ID); err != nil {
		t.Fatalf("RemoveCab failed: %v", err)
	}
	if _, err := env.fleetSvc.GetCab(ctx, cab.ID); !errors.Is(err, ErrCabNotFound) {
		t.Errorf("Expected ErrCabNotFound after removal, got %v", err)
	}
	if err := env.fleetSvc.RemoveCab(ctx, cab.ID); !errors.Is(err, ErrCabNotFound) {
		t.Errorf("Expected ErrCabNotFound, got %v", err)
	}
}

func TestFleetService_RemoveGroundedCabWithActiveTrip(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	pickup := env.addLocation(t, "Pune")
	drop := env.addLocation(t, "Mumbai")
	cab := env.addCab(t, pickup.ID)

	trip, _, err := env.fleetSvc.RequestTrip(ctx, pickup.ID, drop.ID)
	if err != nil {
		t.Fatalf("RequestTrip failed: %v", err)
	}
	if err := env.dispatch.ChangeCabState(ctx, cab.ID, entities.WorkStateGrounded); err != nil {
		t.Fatalf("ChangeCabState failed: %v", err)
	}

	if err := env.fleetSvc.RemoveCab(ctx, cab.ID); !errors.Is(err, ErrCabBusy) {
		t.Fatalf("Expected ErrCabBusy for a grounded cab with a running trip, got %v", err)
	}
	if err := env.dispatch.CompleteTrip(ctx, trip.ID); err != nil {
		t.Fatalf("CompleteTrip failed: %v", err)
	}
	if got := env.mustTrip(t, trip.ID); got.Status != entities.TripStatusCompleted {
		t.Errorf("Expected trip completed, got %s", got.Status)
	}
	if err := env.fleetSvc.RemoveCab(ctx, cab.ID); err != nil {
		t.Fatalf("RemoveCab after completion failed: %v", err)
	}
	env.checkInvariants(t)
}

func TestFleetService_RemoveReferencedRecords(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	loc := env.addLocation(t, "Pune")
	spare := env.addLocation(t, "Nashik")
	cab := env.addCab(t, loc.ID)

	tests := []struct {
		name   string
		remove func() error
	}{
		{"car", func() error { return env.fleetSvc.RemoveCar(ctx, cab.CarID) }},
		{"driver", func() error { return env.fleetSvc.RemoveDriver(ctx, cab.DriverID) }},
		{"location", func() error { return env.fleetSvc.RemoveLocation(ctx, loc.ID) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.remove(); !errors.Is(err, ErrInUse) {
				t.Errorf("Expected ErrInUse, got %v", err)
			}
		})
	}

	if err := env.fleetSvc.RemoveLocation(ctx, spare.ID); err != nil {
		t.Errorf("RemoveLocation of unused location failed: %v", err)
	}
	if err := env.fleetSvc.RemoveLocation(ctx, spare.ID); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Expected ErrLocationNotFound, got %v", err)
	}
}

func TestFleetService_CarValidationAndUpdate(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	invalid := []*entities.Car{
		entities.NewCar("", "Swift", "", 2020, 0),
		entities.NewCar("Maruti", "Swift", "", 1800, 0),
		entities.NewCar("Maruti", "Swift", "", 2020, -5),
	}
	for _, car := range invalid {
		if err := env.fleetSvc.AddCar(ctx, car); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("AddCar(%+v): expected ErrInvalidInput, got %v", car, err)
		}
	}

	car := entities.NewCar("Maruti", "Swift", "white", 2020, 100)
	car.ID = 40
	if err := env.fleetSvc.AddCar(ctx, car); err != nil {
		t.Fatalf("AddCar failed: %v", err)
	}
	if car.ID != 1 {
		t.Errorf("Expected the service to assign id 1, got %d", car.ID)
	}

	car.KmDriven = 2500
	if err := env.fleetSvc.UpdateCar(ctx, car); err != nil {
		t.Fatalf("UpdateCar failed: %v", err)
	}
	got, err := env.fleetSvc.GetCar(ctx, car.ID)
	if err != nil {
		t.Fatalf("GetCar failed: %v", err)
	}
	if got.KmDriven != 2500 {
		t.Errorf("Expected 2500 km, got %d", got.KmDriven)
	}

	ghost := entities.NewCar("Maruti", "Swift", "", 2020, 0)
	ghost.ID = 12
	if err := env.fleetSvc.UpdateCar(ctx, ghost); !errors.Is(err, ErrCarNotFound) {
		t.Errorf("Expected ErrCarNotFound, got %v", err)
	}
}

func TestFleetService_DriverAndLocationValidation(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	born := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		err  error
	}{
		{"driver without name", env.fleetSvc.AddDriver(ctx, entities.NewDriver(" ", "X", "", "", time.Time{}, time.Time{}))},
		{"driver joined before birth", env.fleetSvc.AddDriver(ctx, entities.NewDriver("A", "B", "", "", born, born.AddDate(-1, 0, 0)))},
		{"location without city", env.fleetSvc.AddLocation(ctx, entities.NewLocation("", "India", 0, 0))},
		{"location off the map", env.fleetSvc.AddLocation(ctx, entities.NewLocation("Pune", "India", 95, 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", tt.err)
			}
		})
	}

	loc := env.addLocation(t, "Pune")
	loc.City = "Pimpri"
	if err := env.fleetSvc.UpdateLocation(ctx, loc); err != nil {
		t.Fatalf("UpdateLocation failed: %v", err)
	}
	if got, _ := env.fleetSvc.GetLocation(ctx, loc.ID); got.City != "Pimpri" {
		t.Errorf("Expected Pimpri, got %s", got.City)
	}
	if n := len(env.fleetSvc.ListLocations(ctx)); n != 1 {
		t.Errorf("Expected 1 location, got %d", n)
	}
}
