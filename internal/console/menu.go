// Package console is the interactive operator menu. It reads choices from an
// io.Reader and writes menus, tables and reports to an io.Writer, so it can
// run on a terminal or be driven by tests.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cabdispatch/internal/services"
)

// MenuID names one menu screen.
type MenuID int

const (
	MenuMain MenuID = iota
	MenuCab
	MenuCar
	MenuDriver
	MenuTrip
	MenuLocation
	MenuInsights
)

// Stop is returned by an action to end Run.
const Stop MenuID = -1

func (m MenuID) String() string {
	switch m {
	case MenuMain:
		return "Main Menu"
	case MenuCab:
		return "Cab Management"
	case MenuCar:
		return "Car Management"
	case MenuDriver:
		return "Driver Management"
	case MenuTrip:
		return "Trip Management"
	case MenuLocation:
		return "Location Management"
	case MenuInsights:
		return "Insights"
	case Stop:
		return "Stop"
	}
	return fmt.Sprintf("MenuID(%d)", int(m))
}

// handler runs one action and names the menu to show next.
type handler func(c *Console, ctx context.Context) (MenuID, error)

// Action is one selectable menu entry.
type Action struct {
	Key         string
	Title       string
	Description string
	run         handler
}

func open(m MenuID) handler {
	return func(*Console, context.Context) (MenuID, error) { return m, nil }
}

func stop(*Console, context.Context) (MenuID, error) { return Stop, nil }

var back = Action{Key: "0", Title: "Back", Description: "Return to the main menu", run: open(MenuMain)}

// menus is the static menu table. Actions in a sub-menu return MenuMain, so
// the main menu is shown again after every sub-menu action.
var menus = map[MenuID][]Action{
	MenuMain: {
		{Key: "1", Title: "Cabs", Description: "Register, move, ground and book cabs", run: open(MenuCab)},
		{Key: "2", Title: "Cars", Description: "Maintain the car records", run: open(MenuCar)},
		{Key: "3", Title: "Drivers", Description: "Maintain the driver records", run: open(MenuDriver)},
		{Key: "4", Title: "Trips", Description: "Request and cancel trips", run: open(MenuTrip)},
		{Key: "5", Title: "Locations", Description: "Maintain pickup and drop-off points", run: open(MenuLocation)},
		{Key: "6", Title: "Insights", Description: "Idle time, location history and demand reports", run: open(MenuInsights)},
		{Key: "0", Title: "Exit", Description: "Quit the application", run: stop},
	},
	MenuCab: {
		{Key: "1", Title: "View cabs", Description: "List every cab", run: (*Console).viewCabs},
		{Key: "2", Title: "Register cab", Description: "Pair a car and a driver at a location", run: (*Console).registerCab},
		{Key: "3", Title: "Remove cab", Description: "Delete a cab that is not on a trip", run: (*Console).removeCab},
		{Key: "4", Title: "Change cab location", Description: "Park a cab at another location", run: (*Console).changeCabLocation},
		{Key: "5", Title: "Change cab state", Description: "Set a cab idle or grounded", run: (*Console).changeCabState},
		{Key: "6", Title: "Available cabs", Description: "List idle cabs at a location", run: (*Console).availableCabs},
		{Key: "7", Title: "Book cab", Description: "Book the longest-idle cab for an open trip", run: (*Console).bookCab},
		{Key: "8", Title: "Complete trip", Description: "Finish a trip and free its cab", run: (*Console).completeTrip},
		back,
	},
	MenuCar: {
		{Key: "1", Title: "View cars", Description: "List every car", run: (*Console).viewCars},
		{Key: "2", Title: "Add car", Description: "Create a car record", run: (*Console).addCar},
		{Key: "3", Title: "Update car", Description: "Edit a car record", run: (*Console).updateCar},
		{Key: "4", Title: "Remove car", Description: "Delete a car no cab uses", run: (*Console).removeCar},
		back,
	},
	MenuDriver: {
		{Key: "1", Title: "View drivers", Description: "List every driver", run: (*Console).viewDrivers},
		{Key: "2", Title: "Add driver", Description: "Create a driver record", run: (*Console).addDriver},
		{Key: "3", Title: "Update driver", Description: "Edit a driver record", run: (*Console).updateDriver},
		{Key: "4", Title: "Remove driver", Description: "Delete a driver no cab uses", run: (*Console).removeDriver},
		back,
	},
	MenuTrip: {
		{Key: "1", Title: "View trips", Description: "List every trip", run: (*Console).viewTrips},
		{Key: "2", Title: "Request trip", Description: "Create a trip and book a cab for it", run: (*Console).requestTrip},
		{Key: "3", Title: "Cancel trip", Description: "Cancel a trip that has no cab", run: (*Console).cancelTrip},
		back,
	},
	MenuLocation: {
		{Key: "1", Title: "View locations", Description: "List every location", run: (*Console).viewLocations},
		{Key: "2", Title: "Add location", Description: "Create a location", run: (*Console).addLocation},
		{Key: "3", Title: "Update location", Description: "Edit a location", run: (*Console).updateLocation},
		{Key: "4", Title: "Remove location", Description: "Delete a location with no cabs", run: (*Console).removeLocation},
		back,
	},
	MenuInsights: {
		{Key: "1", Title: "Cab idle time", Description: "Idle time per cab over a date range", run: (*Console).idleTimeReport},
		{Key: "2", Title: "Cab location history", Description: "Trips and frequent places of one cab", run: (*Console).locationHistory},
		{Key: "3", Title: "Demand analysis", Description: "Busy cities, hours and days", run: (*Console).demandReport},
		back,
	},
}

// Actions returns the entries of menu m in display order.
func Actions(m MenuID) []Action {
	return menus[m]
}

// Console is the numbered operator menu over the same services as the HTTP
// API.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	fleet    *services.FleetService
	dispatch *services.DispatchService
	insights *services.InsightsService
	logger   *slog.Logger
}

// New reads commands from in and writes prompts and tables to out.
func New(
	in io.Reader,
	out io.Writer,
	fleet *services.FleetService,
	dispatch *services.DispatchService,
	insights *services.InsightsService,
	logger *slog.Logger,
) *Console {
	return &Console{
		in:       bufio.NewScanner(in),
		out:      out,
		fleet:    fleet,
		dispatch: dispatch,
		insights: insights,
		logger:   logger.With("component", "console"),
	}
}

// Run shows menus until an action returns Stop, the input ends or ctx is
// done. Action failures are printed and the main menu is shown again.
func (c *Console) Run(ctx context.Context) error {
	current := MenuMain
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		actions := menus[current]
		c.render(current, actions)

		choice, err := c.readLine("Choice")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		action, ok := find(actions, choice)
		if !ok {
			c.printf("Invalid choice: %q\n", choice)
			continue
		}

		next, err := action.run(c, ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			c.logger.DebugContext(ctx, "action_failed", "menu", current.String(), "action", action.Title, "error", err)
			c.printf("Error: %v\n", err)
			next = MenuMain
		}
		if next == Stop {
			c.printf("Goodbye.\n")
			return nil
		}
		current = next
	}
}

func find(actions []Action, key string) (Action, bool) {
	for _, a := range actions {
		if strings.EqualFold(a.Key, key) {
			return a, true
		}
	}
	return Action{}, false
}

func (c *Console) render(m MenuID, actions []Action) {
	c.printf("\n=== %s ===\n", m)
	for _, a := range actions {
		c.printf("  %s. %-22s %s\n", a.Key, a.Title, a.Description)
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
