// Package entities defines the core domain models for the cab dispatch system.
// These structs represent the business concepts (Cab, Trip, Car, Driver,
// Location) and live in the innermost layer of the architecture: they have no
// dependencies on storage, HTTP, or console code.
//
// Every persisted entity carries an integer id assigned by the fleet
// repository (max existing id + 1), exposed through RecordID/SetRecordID so a
// single generic collection type can manage all five kinds of record.
package entities

import (
	"strings"
	"time"
)

// Driver is an employee who drives one cab. It is a flat reference record:
// the dispatch logic never mutates it.
type Driver struct {
	ID            int       `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	ContactNumber string    `json:"contact_number"`
	Address       string    `json:"address"`
	DateOfBirth   time.Time `json:"date_of_birth"`
	DateOfJoining time.Time `json:"date_of_joining"`
}

// NewDriver creates a Driver with no id; the repository assigns one on Add.
func NewDriver(firstName, lastName, contact, address string, dob, joined time.Time) *Driver {
	return &Driver{
		FirstName:     strings.TrimSpace(firstName),
		LastName:      strings.TrimSpace(lastName),
		ContactNumber: strings.TrimSpace(contact),
		Address:       strings.TrimSpace(address),
		DateOfBirth:   dob.UTC(),
		DateOfJoining: joined.UTC(),
	}
}

// FullName joins first and last name for listings.
func (d *Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d *Driver) RecordID() int      { return d.ID }
func (d *Driver) SetRecordID(id int) { d.ID = id }
