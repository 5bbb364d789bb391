package services

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/repository"
)

// InsightsService computes read-only reports from the fleet history. It never
// writes and never takes locks; each report works on one snapshot of the
// collections it reads.
type InsightsService struct {
	fleet  *repository.Fleet
	logger *slog.Logger
}

// NewInsightsService reads from fleet and never writes.
func NewInsightsService(fleet *repository.Fleet, logger *slog.Logger) *InsightsService {
	return &InsightsService{
		fleet:  fleet,
		logger: logger.With("component", "insights"),
	}
}

// Ranked is one row of a "top N" table.
type Ranked[K cmp.Ordered] struct {
	Key   K   `json:"key"`
	Count int `json:"count"`
}

// topN sorts counts by count descending, key ascending, and keeps n rows
// (all rows when n <= 0).
func topN[K cmp.Ordered](counts map[K]int, n int) []Ranked[K] {
	rows := make([]Ranked[K], 0, len(counts))
	for k, c := range counts {
		rows = append(rows, Ranked[K]{Key: k, Count: c})
	}
	slices.SortFunc(rows, func(a, b Ranked[K]) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func completedTrips(trips []*entities.Trip) []*entities.Trip {
	var out []*entities.Trip
	for _, t := range trips {
		if t.Status == entities.TripStatusCompleted && t.StartTime != nil && t.EndTime != nil {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *entities.Trip) int {
		return a.StartTime.Compare(*b.StartTime)
	})
	return out
}

// CabIdle is one cab's line in the idle-time report.
type CabIdle struct {
	CabID       int           `json:"cab_id"`
	TripCount   int           `json:"trip_count"`
	IdleTime    time.Duration `json:"idle_time"`
	IdlePercent float64       `json:"idle_percent"`
}

type IdleTimeReport struct {
	From            time.Time     `json:"from"`
	To              time.Time     `json:"to"`
	Cabs            []CabIdle     `json:"cabs"`
	TotalIdleTime   time.Duration `json:"total_idle_time"`
	AverageIdleTime time.Duration `json:"average_idle_time"`
	TotalTrips      int           `json:"total_trips"`
	AvgTripsPerCab  float64       `json:"avg_trips_per_cab"`
}

// IdleTime reports how long each cab spent without a trip inside [from, to).
// Completed trips overlapping the window are clipped to it; the idle time is
// the window minus the clipped trip time, i.e. before the first trip, between
// trips and after the last. A cab with no trips was idle for the whole
// window. Cabs are ordered by idle time, longest first.
func (s *InsightsService) IdleTime(ctx context.Context, from, to time.Time) (*IdleTimeReport, error) {
	from, to = from.UTC(), to.UTC()
	if !from.Before(to) {
		return nil, logFailure(ctx, s.logger, "idle_time", ErrInvalidWindow, "from", from, "to", to)
	}
	window := to.Sub(from)

	byCab := make(map[int][]*entities.Trip)
	for _, t := range completedTrips(s.fleet.Trips.GetAll(ctx)) {
		if t.AssignedCabID == nil || !t.StartTime.Before(to) || !t.EndTime.After(from) {
			continue
		}
		byCab[*t.AssignedCabID] = append(byCab[*t.AssignedCabID], t)
	}

	report := &IdleTimeReport{From: from, To: to}
	for _, cab := range s.fleet.Cabs.GetAll(ctx) {
		trips := byCab[cab.ID]
		idle := idleWithin(trips, from, to)
		report.Cabs = append(report.Cabs, CabIdle{
			CabID:       cab.ID,
			TripCount:   len(trips),
			IdleTime:    idle,
			IdlePercent: 100 * float64(idle) / float64(window),
		})
		report.TotalIdleTime += idle
		report.TotalTrips += len(trips)
	}

	slices.SortStableFunc(report.Cabs, func(a, b CabIdle) int {
		if c := cmp.Compare(b.IdleTime, a.IdleTime); c != 0 {
			return c
		}
		return cmp.Compare(a.CabID, b.CabID)
	})
	if n := len(report.Cabs); n > 0 {
		report.AverageIdleTime = report.TotalIdleTime / time.Duration(n)
		report.AvgTripsPerCab = float64(report.TotalTrips) / float64(n)
	}
	return report, nil
}

// idleWithin walks trips (sorted by start) and sums the gaps not covered by
// any trip inside [from, to).
func idleWithin(trips []*entities.Trip, from, to time.Time) time.Duration {
	var idle time.Duration
	cursor := from
	for _, t := range trips {
		start, end := *t.StartTime, *t.EndTime
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		if start.After(cursor) {
			idle += start.Sub(cursor)
		}
		if end.After(cursor) {
			cursor = end
		}
	}
	if to.After(cursor) {
		idle += to.Sub(cursor)
	}
	return idle
}

// TripLeg is one completed trip in a cab's history.
type TripLeg struct {
	TripID   int               `json:"trip_id"`
	From     entities.Location `json:"from"`
	To       entities.Location `json:"to"`
	Start    time.Time         `json:"start"`
	End      time.Time         `json:"end"`
	Duration time.Duration     `json:"duration"`
}

type LocationHistory struct {
	CabID               int              `json:"cab_id"`
	Trips               []TripLeg        `json:"trips"`
	MostVisited         []Ranked[string] `json:"most_visited"`
	MostDeparted        []Ranked[string] `json:"most_departed"`
	UniqueFromLocations int              `json:"unique_from_locations"`
	UniqueToLocations   int              `json:"unique_to_locations"`
}

// LocationHistory lists cabID's completed trips in start order with its most
// frequent destinations and pickup points (top 5 each, by location label).
func (s *InsightsService) LocationHistory(ctx context.Context, cabID int) (*LocationHistory, error) {
	if _, ok := s.fleet.Cabs.GetByID(ctx, cabID); !ok {
		return nil, logFailure(ctx, s.logger, "location_history", ErrCabNotFound, "cab_id", cabID)
	}

	history := &LocationHistory{CabID: cabID, Trips: []TripLeg{}}
	arrivals := map[string]int{}
	departures := map[string]int{}
	fromIDs := map[int]bool{}
	toIDs := map[int]bool{}

	for _, t := range completedTrips(s.fleet.Trips.GetAll(ctx)) {
		if t.AssignedCabID == nil || *t.AssignedCabID != cabID {
			continue
		}
		history.Trips = append(history.Trips, TripLeg{
			TripID:   t.ID,
			From:     t.FromLocation,
			To:       t.ToLocation,
			Start:    *t.StartTime,
			End:      *t.EndTime,
			Duration: t.Duration(),
		})
		arrivals[t.ToLocation.Label()]++
		departures[t.FromLocation.Label()]++
		fromIDs[t.FromLocation.ID] = true
		toIDs[t.ToLocation.ID] = true
	}

	history.MostVisited = topN(arrivals, 5)
	history.MostDeparted = topN(departures, 5)
	history.UniqueFromLocations = len(fromIDs)
	history.UniqueToLocations = len(toIDs)
	return history, nil
}

// CityDemand counts trips touching one city.
type CityDemand struct {
	City       string `json:"city"`
	Departures int    `json:"departures"`
	Arrivals   int    `json:"arrivals"`
	Total      int    `json:"total"`
}

type CityPeak struct {
	City      string        `json:"city"`
	PeakHours []Ranked[int] `json:"peak_hours"`
}

type DemandReport struct {
	TotalTrips        int                    `json:"total_trips"`
	TopCities         []CityDemand           `json:"top_cities"`
	PeakHours         []Ranked[int]          `json:"peak_hours"`
	ByWeekday         []Ranked[time.Weekday] `json:"by_weekday"`
	ByMonth           []Ranked[time.Month]   `json:"by_month"`
	CityPeaks         []CityPeak             `json:"city_peaks"`
	PeakHourIntensity float64                `json:"peak_hour_intensity"`
}

// Demand analyses completed trips by start time (UTC) and by city: the top 10
// cities by departures plus arrivals, the 5 busiest hours, weekday and month
// counts, the 3 busiest hours of the top 3 cities, and how much busier the
// peak hour is than the average active hour.
func (s *InsightsService) Demand(ctx context.Context) *DemandReport {
	trips := completedTrips(s.fleet.Trips.GetAll(ctx))
	report := &DemandReport{TotalTrips: len(trips)}
	if len(trips) == 0 {
		return report
	}

	departures := map[string]int{}
	arrivals := map[string]int{}
	hourly := map[int]int{}
	weekday := map[time.Weekday]int{}
	monthly := map[time.Month]int{}
	cityHourly := map[string]map[int]int{}

	touch := func(city string, hour int) {
		if cityHourly[city] == nil {
			cityHourly[city] = map[int]int{}
		}
		cityHourly[city][hour]++
	}

	for _, t := range trips {
		start := t.StartTime.UTC()
		from, to := t.FromLocation.City, t.ToLocation.City
		departures[from]++
		arrivals[to]++
		hourly[start.Hour()]++
		weekday[start.Weekday()]++
		monthly[start.Month()]++
		touch(from, start.Hour())
		if to != from {
			touch(to, start.Hour())
		}
	}

	totals := map[string]int{}
	for city, n := range departures {
		totals[city] += n
	}
	for city, n := range arrivals {
		totals[city] += n
	}
	for _, row := range topN(totals, 10) {
		report.TopCities = append(report.TopCities, CityDemand{
			City:       row.Key,
			Departures: departures[row.Key],
			Arrivals:   arrivals[row.Key],
			Total:      row.Count,
		})
	}

	report.PeakHours = topN(hourly, 5)
	report.ByWeekday = topN(weekday, 0)
	report.ByMonth = topN(monthly, 0)

	for i, city := range report.TopCities {
		if i == 3 {
			break
		}
		report.CityPeaks = append(report.CityPeaks, CityPeak{
			City:      city.City,
			PeakHours: topN(cityHourly[city.City], 3),
		})
	}

	average := float64(len(trips)) / float64(len(hourly))
	report.PeakHourIntensity = float64(report.PeakHours[0].Count) / average
	return report
}
