// Package utils holds small helpers shared by the HTTP API and the console.
package utils

import (
	"github.com/google/uuid"
)

// NewRequestID returns a random UUID v4 string used to correlate one request
// across log lines.
//
// Go Learning Note: github.com/google/uuid.
// uuid.New() panics if the system's random source fails. uuid.NewRandom()
// returns the error instead; for a correlation id the panic form is fine.
func NewRequestID() string {
	return uuid.New().String()
}

// ValidRequestID reports whether id parses as a UUID, so a caller-supplied
// X-Request-ID can be reused instead of minting a new one.
func ValidRequestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
