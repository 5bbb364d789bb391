package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cabdispatch/internal/domain/entities"
)

var (
	pune   = entities.Location{ID: 1, City: "Pune", Country: "India"}
	mumbai = entities.Location{ID: 2, City: "Mumbai", Country: "India"}
	nashik = entities.Location{ID: 3, City: "Nashik", Country: "India"}
)

// addFinishedTrip stores a trip with the given status and times directly,
// bypassing dispatch.
func (e *testEnv) addFinishedTrip(t *testing.T, cabID int, from, to entities.Location, start, end time.Time, status entities.TripStatus) {
	t.Helper()
	id := cabID
	trip := &entities.Trip{
		FromLocation:  from,
		ToLocation:    to,
		Status:        status,
		AssignedCabID: &id,
		BookingTime:   start,
		StartTime:     &start,
		EndTime:       &end,
	}
	if !e.fleet.Trips.Add(context.Background(), trip) {
		t.Fatalf("seeding trip failed")
	}
}

func TestInsightsService_IdleTime(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	loc := env.addLocation(t, "Pune")
	busy := env.addCab(t, loc.ID)
	quiet := env.addCab(t, loc.ID)
	late := env.addCab(t, loc.ID)

	done := entities.TripStatusCompleted
	env.addFinishedTrip(t, busy.ID, pune, mumbai, t0.Add(-time.Hour), t0.Add(30*time.Minute), done)
	env.addFinishedTrip(t, busy.ID, mumbai, pune, t0.Add(time.Hour), t0.Add(2*time.Hour), done)
	env.addFinishedTrip(t, busy.ID, pune, nashik, t0.Add(9*time.Hour), t0.Add(11*time.Hour), done)
	env.addFinishedTrip(t, busy.ID, pune, nashik, t0.Add(3*time.Hour), t0.Add(4*time.Hour), entities.TripStatusCancelled)
	env.addFinishedTrip(t, late.ID, pune, mumbai, t0.Add(12*time.Hour), t0.Add(13*time.Hour), done)

	report, err := env.insights.IdleTime(ctx, t0, t0.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("IdleTime failed: %v", err)
	}

	want := []CabIdle{
		{CabID: quiet.ID, TripCount: 0, IdleTime: 10 * time.Hour, IdlePercent: 100},
		{CabID: late.ID, TripCount: 0, IdleTime: 10 * time.Hour, IdlePercent: 100},
		{CabID: busy.ID, TripCount: 3, IdleTime: 7*time.Hour + 30*time.Minute, IdlePercent: 75},
	}
	if len(report.Cabs) != len(want) {
		t.Fatalf("Expected %d cabs, got %d", len(want), len(report.Cabs))
	}
	for i, w := range want {
		if report.Cabs[i] != w {
			t.Errorf("row %d: expected %+v, got %+v", i, w, report.Cabs[i])
		}
	}

	if report.TotalIdleTime != 27*time.Hour+30*time.Minute {
		t.Errorf("Expected total idle 27h30m, got %v", report.TotalIdleTime)
	}
	if report.AverageIdleTime != 9*time.Hour+10*time.Minute {
		t.Errorf("Expected average idle 9h10m, got %v", report.AverageIdleTime)
	}
	if report.TotalTrips != 3 || report.AvgTripsPerCab != 1 {
		t.Errorf("Expected 3 trips at 1 per cab, got %d at %v", report.TotalTrips, report.AvgTripsPerCab)
	}
}

func TestInsightsService_IdleTimeRejectsEmptyWindow(t *testing.T) {
	env := setupServices(t)

	if _, err := env.insights.IdleTime(context.Background(), t0, t0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Expected ErrInvalidWindow, got %v", err)
	}
	if _, err := env.insights.IdleTime(context.Background(), t0, t0.Add(-time.Hour)); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("Expected ErrInvalidWindow, got %v", err)
	}
}

func TestInsightsService_LocationHistory(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	loc := env.addLocation(t, "Pune")
	cab := env.addCab(t, loc.ID)
	other := env.addCab(t, loc.ID)

	done := entities.TripStatusCompleted
	env.addFinishedTrip(t, cab.ID, pune, mumbai, t0.Add(5*time.Hour), t0.Add(8*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, pune, mumbai, t0, t0.Add(3*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, mumbai, pune, t0.Add(3*time.Hour), t0.Add(4*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, pune, nashik, t0.Add(9*time.Hour), t0.Add(10*time.Hour), done)
	env.addFinishedTrip(t, other.ID, nashik, pune, t0, t0.Add(time.Hour), done)

	history, err := env.insights.LocationHistory(ctx, cab.ID)
	if err != nil {
		t.Fatalf("LocationHistory failed: %v", err)
	}

	if len(history.Trips) != 4 {
		t.Fatalf("Expected 4 trips, got %d", len(history.Trips))
	}
	for i := 1; i < len(history.Trips); i++ {
		if history.Trips[i].Start.Before(history.Trips[i-1].Start) {
			t.Errorf("trips not in start order at %d", i)
		}
	}
	if history.Trips[0].Duration != 3*time.Hour {
		t.Errorf("Expected first trip to last 3h, got %v", history.Trips[0].Duration)
	}

	wantVisited := []Ranked[string]{
		{Key: "Mumbai, India", Count: 2},
		{Key: "Nashik, India", Count: 1},
		{Key: "Pune, India", Count: 1},
	}
	if len(history.MostVisited) != len(wantVisited) {
		t.Fatalf("Expected %v, got %v", wantVisited, history.MostVisited)
	}
	for i, w := range wantVisited {
		if history.MostVisited[i] != w {
			t.Errorf("most visited %d: expected %+v, got %+v", i, w, history.MostVisited[i])
		}
	}
	if top := history.MostDeparted[0]; top.Key != "Pune, India" || top.Count != 3 {
		t.Errorf("Expected Pune departed 3 times, got %+v", top)
	}
	if history.UniqueFromLocations != 2 || history.UniqueToLocations != 3 {
		t.Errorf("Expected 2 origins and 3 destinations, got %d and %d",
			history.UniqueFromLocations, history.UniqueToLocations)
	}

	if _, err := env.insights.LocationHistory(ctx, 99); !errors.Is(err, ErrCabNotFound) {
		t.Errorf("Expected ErrCabNotFound, got %v", err)
	}
}

func TestInsightsService_Demand(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	if report := env.insights.Demand(ctx); report.TotalTrips != 0 || len(report.PeakHours) != 0 {
		t.Errorf("Expected an empty report, got %+v", report)
	}

	loc := env.addLocation(t, "Pune")
	cab := env.addCab(t, loc.ID)
	done := entities.TripStatusCompleted
	// t0 is Friday 2024-03-01 08:00 UTC.
	env.addFinishedTrip(t, cab.ID, pune, mumbai, t0.Add(time.Hour), t0.Add(2*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, pune, mumbai, t0.Add(90*time.Minute), t0.Add(3*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, mumbai, pune, t0.Add(2*time.Hour), t0.Add(4*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, pune, nashik, t0.Add(25*time.Hour), t0.Add(26*time.Hour), done)
	env.addFinishedTrip(t, cab.ID, nashik, pune, t0.Add(30*time.Hour), t0.Add(31*time.Hour), entities.TripStatusCancelled)

	report := env.insights.Demand(ctx)
	if report.TotalTrips != 4 {
		t.Fatalf("Expected 4 trips, got %d", report.TotalTrips)
	}

	wantCities := []CityDemand{
		{City: "Pune", Departures: 3, Arrivals: 1, Total: 4},
		{City: "Mumbai", Departures: 1, Arrivals: 2, Total: 3},
		{City: "Nashik", Departures: 0, Arrivals: 1, Total: 1},
	}
	if len(report.TopCities) != len(wantCities) {
		t.Fatalf("Expected %v, got %v", wantCities, report.TopCities)
	}
	for i, w := range wantCities {
		if report.TopCities[i] != w {
			t.Errorf("city %d: expected %+v, got %+v", i, w, report.TopCities[i])
		}
	}

	wantHours := []Ranked[int]{{Key: 9, Count: 3}, {Key: 10, Count: 1}}
	if len(report.PeakHours) != 2 || report.PeakHours[0] != wantHours[0] || report.PeakHours[1] != wantHours[1] {
		t.Errorf("Expected peak hours %v, got %v", wantHours, report.PeakHours)
	}
	if report.PeakHourIntensity != 1.5 {
		t.Errorf("Expected intensity 1.5, got %v", report.PeakHourIntensity)
	}

	if len(report.ByWeekday) != 2 || report.ByWeekday[0] != (Ranked[time.Weekday]{Key: time.Friday, Count: 3}) {
		t.Errorf("Expected Friday first with 3 trips, got %v", report.ByWeekday)
	}
	if len(report.ByMonth) != 1 || report.ByMonth[0] != (Ranked[time.Month]{Key: time.March, Count: 4}) {
		t.Errorf("Expected 4 trips in March, got %v", report.ByMonth)
	}

	if len(report.CityPeaks) != 3 {
		t.Fatalf("Expected peaks for 3 cities, got %d", len(report.CityPeaks))
	}
	if mumbaiPeak := report.CityPeaks[1]; mumbaiPeak.City != "Mumbai" || mumbaiPeak.PeakHours[0] != (Ranked[int]{Key: 9, Count: 2}) {
		t.Errorf("Expected Mumbai peak at 9 with 2 trips, got %+v", mumbaiPeak)
	}
}
