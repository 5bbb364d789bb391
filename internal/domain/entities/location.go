package entities

import "fmt"

// Location is a named pickup/drop-off point. Trips store a full copy of their
// from/to locations, so editing or removing a Location later does not rewrite
// trip history.
//
// Coordinates are informational only; matching is by location id.
type Location struct {
	ID        int     `json:"id"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// NewLocation creates a Location value with no id.
func NewLocation(city, country string, lat, long float64) *Location {
	return &Location{
		City:      city,
		Country:   country,
		Latitude:  lat,
		Longitude: long,
	}
}

// Label renders the location the way listings and reports show it.
func (l Location) Label() string {
	if l.Country == "" {
		return l.City
	}
	return fmt.Sprintf("%s, %s", l.City, l.Country)
}

func (l *Location) RecordID() int      { return l.ID }
func (l *Location) SetRecordID(id int) { l.ID = id }
