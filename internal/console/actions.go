package console

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/pkg/utils"
)

func (c *Console) table(header string, rows func(w *tabwriter.Writer)) {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func optionalID(id *int) string {
	if id == nil {
		return "-"
	}
	return strconv.Itoa(*id)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}

// Cabs

func (c *Console) viewCabs(ctx context.Context) (MenuID, error) {
	cabs := c.fleet.ListCabs(ctx)
	if len(cabs) == 0 {
		c.printf("No cabs registered.\n")
		return MenuMain, nil
	}
	now := c.dispatch.Now()
	c.table("ID\tCAR\tDRIVER\tSTATE\tLOCATION\tTRIP\tIDLE FOR\tTRIPS", func(w *tabwriter.Writer) {
		for _, cab := range cabs {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%s\t%s\t%d\n",
				cab.ID, cab.CarID, cab.DriverID, cab.WorkState.DisplayName(), cab.CurrentLocationID,
				optionalID(cab.CurrentTripID), utils.FormatDuration(cab.IdleDuration(now)), cab.TotalTrips())
		}
	})
	return MenuMain, nil
}

func (c *Console) registerCab(ctx context.Context) (MenuID, error) {
	carID, err := c.readID("Car id")
	if err != nil {
		return MenuMain, err
	}
	driverID, err := c.readID("Driver id")
	if err != nil {
		return MenuMain, err
	}
	locationID, err := c.readID("Location id")
	if err != nil {
		return MenuMain, err
	}
	cab, err := c.fleet.RegisterCab(ctx, carID, driverID, locationID)
	if err != nil {
		return MenuMain, err
	}
	c.printf("Cab %d registered at location %d.\n", cab.ID, cab.CurrentLocationID)
	return MenuMain, nil
}

func (c *Console) removeCab(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Cab id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.RemoveCab(ctx, id); err != nil {
		return MenuMain, err
	}
	c.printf("Cab %d removed.\n", id)
	return MenuMain, nil
}

func (c *Console) changeCabLocation(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Cab id")
	if err != nil {
		return MenuMain, err
	}
	locationID, err := c.readID("New location id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.dispatch.ChangeCabLocation(ctx, id, locationID); err != nil {
		return MenuMain, err
	}
	c.printf("Cab %d is now at location %d.\n", id, locationID)
	return MenuMain, nil
}

func (c *Console) changeCabState(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Cab id")
	if err != nil {
		return MenuMain, err
	}
	raw, err := c.readString("New state (idle, grounded)", "")
	if err != nil {
		return MenuMain, err
	}
	state, err := entities.ParseWorkState(raw)
	if err != nil {
		return MenuMain, err
	}
	if err := c.dispatch.ChangeCabState(ctx, id, state); err != nil {
		return MenuMain, err
	}
	c.printf("Cab %d is now %s.\n", id, state.DisplayName())
	return MenuMain, nil
}

func (c *Console) availableCabs(ctx context.Context) (MenuID, error) {
	locationID, err := c.readID("Location id")
	if err != nil {
		return MenuMain, err
	}
	if _, err := c.fleet.GetLocation(ctx, locationID); err != nil {
		return MenuMain, err
	}
	cabs := c.dispatch.GetAvailableCabsAtLocation(ctx, locationID)
	if len(cabs) == 0 {
		c.printf("No idle cabs at location %d.\n", locationID)
		return MenuMain, nil
	}
	now := c.dispatch.Now()
	c.table("ID\tDRIVER\tIDLE FOR", func(w *tabwriter.Writer) {
		for _, cab := range cabs {
			fmt.Fprintf(w, "%d\t%d\t%s\n", cab.ID, cab.DriverID, utils.FormatDuration(cab.IdleDuration(now)))
		}
	})
	return MenuMain, nil
}

func (c *Console) bookCab(ctx context.Context) (MenuID, error) {
	tripID, err := c.readID("Trip id")
	if err != nil {
		return MenuMain, err
	}
	trip, err := c.fleet.GetTrip(ctx, tripID)
	if err != nil {
		return MenuMain, err
	}
	cab, err := c.dispatch.BookCabForTrip(ctx, tripID, trip.FromLocation.ID)
	if err != nil {
		return MenuMain, err
	}
	c.printf("Cab %d booked for trip %d from %s.\n", cab.ID, tripID, trip.FromLocation.Label())
	return MenuMain, nil
}

func (c *Console) completeTrip(ctx context.Context) (MenuID, error) {
	tripID, err := c.readID("Trip id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.dispatch.CompleteTrip(ctx, tripID); err != nil {
		return MenuMain, err
	}
	c.printf("Trip %d completed.\n", tripID)
	return MenuMain, nil
}

// Cars

func (c *Console) viewCars(ctx context.Context) (MenuID, error) {
	cars := c.fleet.ListCars(ctx)
	if len(cars) == 0 {
		c.printf("No cars.\n")
		return MenuMain, nil
	}
	c.table("ID\tCAR\tKM\tDESCRIPTION", func(w *tabwriter.Writer) {
		for _, car := range cars {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", car.ID, car.DisplayName(), car.KmDriven, orDash(car.Description))
		}
	})
	return MenuMain, nil
}

func (c *Console) readCar(current *entities.Car) (*entities.Car, error) {
	if current == nil {
		current = &entities.Car{}
	}
	manufacturer, err := c.readString("Manufacturer", current.Manufacturer)
	if err != nil {
		return nil, err
	}
	model, err := c.readString("Model", current.Model)
	if err != nil {
		return nil, err
	}
	description, err := c.readOptional("Description", current.Description)
	if err != nil {
		return nil, err
	}
	var yearDef, kmDef *int
	if current.ID != 0 {
		yearDef, kmDef = &current.ManufactureYear, &current.KmDriven
	}
	year, err := c.readInt("Manufacture year", yearDef)
	if err != nil {
		return nil, err
	}
	km, err := c.readInt("Km driven", kmDef)
	if err != nil {
		return nil, err
	}
	car := entities.NewCar(manufacturer, model, description, year, km)
	car.ID = current.ID
	return car, nil
}

func (c *Console) addCar(ctx context.Context) (MenuID, error) {
	car, err := c.readCar(nil)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.AddCar(ctx, car); err != nil {
		return MenuMain, err
	}
	c.printf("Car %d added.\n", car.ID)
	return MenuMain, nil
}

func (c *Console) updateCar(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Car id")
	if err != nil {
		return MenuMain, err
	}
	current, err := c.fleet.GetCar(ctx, id)
	if err != nil {
		return MenuMain, err
	}
	car, err := c.readCar(current)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.UpdateCar(ctx, car); err != nil {
		return MenuMain, err
	}
	c.printf("Car %d updated.\n", car.ID)
	return MenuMain, nil
}

func (c *Console) removeCar(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Car id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.RemoveCar(ctx, id); err != nil {
		return MenuMain, err
	}
	c.printf("Car %d removed.\n", id)
	return MenuMain, nil
}

// Drivers

func (c *Console) viewDrivers(ctx context.Context) (MenuID, error) {
	drivers := c.fleet.ListDrivers(ctx)
	if len(drivers) == 0 {
		c.printf("No drivers.\n")
		return MenuMain, nil
	}
	c.table("ID\tNAME\tCONTACT\tJOINED", func(w *tabwriter.Writer) {
		for _, d := range drivers {
			joined := "-"
			if !d.DateOfJoining.IsZero() {
				joined = d.DateOfJoining.Format(dateLayout)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.FullName(), orDash(d.ContactNumber), joined)
		}
	})
	return MenuMain, nil
}

func (c *Console) readDriver(current *entities.Driver) (*entities.Driver, error) {
	if current == nil {
		current = &entities.Driver{}
	}
	first, err := c.readString("First name", current.FirstName)
	if err != nil {
		return nil, err
	}
	last, err := c.readOptional("Last name", current.LastName)
	if err != nil {
		return nil, err
	}
	contact, err := c.readOptional("Contact number", current.ContactNumber)
	if err != nil {
		return nil, err
	}
	address, err := c.readOptional("Address", current.Address)
	if err != nil {
		return nil, err
	}
	dob, err := c.readDate("Date of birth", current.DateOfBirth)
	if err != nil {
		return nil, err
	}
	joined, err := c.readDate("Date of joining", current.DateOfJoining)
	if err != nil {
		return nil, err
	}
	driver := entities.NewDriver(first, last, contact, address, dob, joined)
	driver.ID = current.ID
	return driver, nil
}

func (c *Console) addDriver(ctx context.Context) (MenuID, error) {
	driver, err := c.readDriver(nil)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.AddDriver(ctx, driver); err != nil {
		return MenuMain, err
	}
	c.printf("Driver %d added.\n", driver.ID)
	return MenuMain, nil
}

func (c *Console) updateDriver(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Driver id")
	if err != nil {
		return MenuMain, err
	}
	current, err := c.fleet.GetDriver(ctx, id)
	if err != nil {
		return MenuMain, err
	}
	driver, err := c.readDriver(current)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.UpdateDriver(ctx, driver); err != nil {
		return MenuMain, err
	}
	c.printf("Driver %d updated.\n", driver.ID)
	return MenuMain, nil
}

func (c *Console) removeDriver(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Driver id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.RemoveDriver(ctx, id); err != nil {
		return MenuMain, err
	}
	c.printf("Driver %d removed.\n", id)
	return MenuMain, nil
}

// Locations

func (c *Console) viewLocations(ctx context.Context) (MenuID, error) {
	locations := c.fleet.ListLocations(ctx)
	if len(locations) == 0 {
		c.printf("No locations.\n")
		return MenuMain, nil
	}
	c.table("ID\tLOCATION\tLAT\tLONG", func(w *tabwriter.Writer) {
		for _, l := range locations {
			fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\n", l.ID, l.Label(), l.Latitude, l.Longitude)
		}
	})
	return MenuMain, nil
}

func (c *Console) readLocation(current *entities.Location) (*entities.Location, error) {
	if current == nil {
		current = &entities.Location{}
	}
	city, err := c.readString("City", current.City)
	if err != nil {
		return nil, err
	}
	country, err := c.readOptional("Country", current.Country)
	if err != nil {
		return nil, err
	}
	lat, err := c.readFloat("Latitude", current.Latitude)
	if err != nil {
		return nil, err
	}
	long, err := c.readFloat("Longitude", current.Longitude)
	if err != nil {
		return nil, err
	}
	loc := entities.NewLocation(city, country, lat, long)
	loc.ID = current.ID
	return loc, nil
}

func (c *Console) addLocation(ctx context.Context) (MenuID, error) {
	loc, err := c.readLocation(nil)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.AddLocation(ctx, loc); err != nil {
		return MenuMain, err
	}
	c.printf("Location %d added.\n", loc.ID)
	return MenuMain, nil
}

func (c *Console) updateLocation(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Location id")
	if err != nil {
		return MenuMain, err
	}
	current, err := c.fleet.GetLocation(ctx, id)
	if err != nil {
		return MenuMain, err
	}
	loc, err := c.readLocation(current)
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.UpdateLocation(ctx, loc); err != nil {
		return MenuMain, err
	}
	c.printf("Location %d updated.\n", loc.ID)
	return MenuMain, nil
}

func (c *Console) removeLocation(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Location id")
	if err != nil {
		return MenuMain, err
	}
	if err := c.fleet.RemoveLocation(ctx, id); err != nil {
		return MenuMain, err
	}
	c.printf("Location %d removed.\n", id)
	return MenuMain, nil
}

// Trips

func (c *Console) viewTrips(ctx context.Context) (MenuID, error) {
	trips := c.fleet.ListTrips(ctx)
	if len(trips) == 0 {
		c.printf("No trips.\n")
		return MenuMain, nil
	}
	c.table("ID\tFROM\tTO\tSTATUS\tCAB\tSTART\tEND", func(w *tabwriter.Writer) {
		for _, t := range trips {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.FromLocation.Label(), t.ToLocation.Label(), t.Status.DisplayName(),
				optionalID(t.AssignedCabID), optionalTime(t.StartTime), optionalTime(t.EndTime))
		}
	})
	return MenuMain, nil
}

func (c *Console) requestTrip(ctx context.Context) (MenuID, error) {
	from, err := c.readID("From location id")
	if err != nil {
		return MenuMain, err
	}
	to, err := c.readID("To location id")
	if err != nil {
		return MenuMain, err
	}
	trip, cab, err := c.fleet.RequestTrip(ctx, from, to)
	if err != nil {
		if trip != nil {
			c.printf("Trip %d was cancelled.\n", trip.ID)
		}
		return MenuMain, err
	}
	c.printf("Trip %d booked with cab %d.\n", trip.ID, cab.ID)
	return MenuMain, nil
}

func (c *Console) cancelTrip(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Trip id")
	if err != nil {
		return MenuMain, err
	}
	if _, err := c.fleet.CancelTrip(ctx, id); err != nil {
		return MenuMain, err
	}
	c.printf("Trip %d cancelled.\n", id)
	return MenuMain, nil
}

// Insights

func (c *Console) idleTimeReport(ctx context.Context) (MenuID, error) {
	from, err := c.readDate("From date", time.Time{})
	if err != nil {
		return MenuMain, err
	}
	to, err := c.readDate("To date", time.Time{})
	if err != nil {
		return MenuMain, err
	}
	// The "to" day is included.
	report, err := c.insights.IdleTime(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return MenuMain, err
	}

	c.printf("\nCab idle time from %s to %s\n", from.Format(dateLayout), to.Format(dateLayout))
	c.table("CAB\tTRIPS\tIDLE\tIDLE %", func(w *tabwriter.Writer) {
		for _, row := range report.Cabs {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n",
				row.CabID, row.TripCount, utils.FormatDuration(row.IdleTime), utils.Percent(row.IdlePercent))
		}
	})
	c.printf("\nTotal idle: %s  Average idle per cab: %s\n",
		utils.FormatDuration(report.TotalIdleTime), utils.FormatDuration(report.AverageIdleTime))
	c.printf("Total trips: %d  Average trips per cab: %.1f\n", report.TotalTrips, report.AvgTripsPerCab)
	return MenuMain, nil
}

func (c *Console) locationHistory(ctx context.Context) (MenuID, error) {
	id, err := c.readID("Cab id")
	if err != nil {
		return MenuMain, err
	}
	history, err := c.insights.LocationHistory(ctx, id)
	if err != nil {
		return MenuMain, err
	}
	if len(history.Trips) == 0 {
		c.printf("Cab %d has no completed trips.\n", id)
		return MenuMain, nil
	}

	c.printf("\nTrips of cab %d\n", id)
	c.table("TRIP\tFROM\tTO\tSTART\tDURATION", func(w *tabwriter.Writer) {
		for _, leg := range history.Trips {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				leg.TripID, leg.From.Label(), leg.To.Label(), leg.Start.Format(time.DateTime), utils.FormatDuration(leg.Duration))
		}
	})
	c.printf("\nMost visited:\n")
	for _, r := range history.MostVisited {
		c.printf("  %-30s %d\n", r.Key, r.Count)
	}
	c.printf("Most departed from:\n")
	for _, r := range history.MostDeparted {
		c.printf("  %-30s %d\n", r.Key, r.Count)
	}
	c.printf("Unique pickup points: %d  Unique destinations: %d\n",
		history.UniqueFromLocations, history.UniqueToLocations)
	return MenuMain, nil
}

func (c *Console) demandReport(ctx context.Context) (MenuID, error) {
	report := c.insights.Demand(ctx)
	if report.TotalTrips == 0 {
		c.printf("No completed trips to analyse.\n")
		return MenuMain, nil
	}

	c.printf("\nDemand over %d completed trips\n", report.TotalTrips)
	c.table("CITY\tDEPARTURES\tARRIVALS\tTOTAL", func(w *tabwriter.Writer) {
		for _, city := range report.TopCities {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", city.City, city.Departures, city.Arrivals, city.Total)
		}
	})
	c.printf("\nPeak hours (UTC):\n")
	for _, h := range report.PeakHours {
		c.printf("  %02d:00  %d trips\n", h.Key, h.Count)
	}
	c.printf("By weekday:\n")
	for _, d := range report.ByWeekday {
		c.printf("  %-10s %d\n", d.Key, d.Count)
	}
	c.printf("By month:\n")
	for _, m := range report.ByMonth {
		c.printf("  %-10s %d\n", m.Key, m.Count)
	}
	for _, cp := range report.CityPeaks {
		c.printf("Peak hours in %s:", cp.City)
		for _, h := range cp.PeakHours {
			c.printf(" %02d:00 (%d)", h.Key, h.Count)
		}
		c.printf("\n")
	}
	c.printf("Peak hour intensity: %.2fx the average hour\n", report.PeakHourIntensity)
	return MenuMain, nil
}
