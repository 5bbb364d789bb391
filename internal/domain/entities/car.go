package entities

import "fmt"

// Car is the vehicle half of a cab.
type Car struct {
	ID              int    `json:"id"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	Description     string `json:"description,omitempty"`
	ManufactureYear int    `json:"manufacture_year"`
	KmDriven        int    `json:"km_driven"`
}

func NewCar(manufacturer, model, description string, year, km int) *Car {
	return &Car{
		Manufacturer:    manufacturer,
		Model:           model,
		Description:     description,
		ManufactureYear: year,
		KmDriven:        km,
	}
}

// DisplayName is "<manufacturer> <model> (<year>)".
func (c *Car) DisplayName() string {
	return fmt.Sprintf("%s %s (%d)", c.Manufacturer, c.Model, c.ManufactureYear)
}

func (c *Car) RecordID() int      { return c.ID }
func (c *Car) SetRecordID(id int) { c.ID = id }
