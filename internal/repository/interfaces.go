package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// Collection names. Each one is persisted as a single serialized unit.
const (
	CollectionCabs      = "cabs"
	CollectionTrips     = "trips"
	CollectionCars      = "cars"
	CollectionDrivers   = "drivers"
	CollectionLocations = "locations"
)

// TxFunc receives the current serialized value of every requested collection
// (nil for a collection never written) and returns the values to store. Names
// missing from the returned map are left untouched.
//
// An error from fn aborts the Update and is returned unchanged. A store may
// call fn more than once when it retries after a conflicting
// write, so fn must not have side effects beyond building its result.
type TxFunc func(current map[string][]byte) (map[string][]byte, error)

// RecordStore persists one serialized blob per collection name.
type RecordStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	// Update reads names, applies fn and writes its result atomically: either
	// every returned collection is stored or none is.
	Update(ctx context.Context, names []string, fn TxFunc) error
	Close() error
}

// LockManager hands out named, expiring locks. AcquireLock never blocks; use
// Lock for a waiting acquisition.
//
// Every successful acquisition returns a fresh token. ReleaseLock frees key
// only while it is still held under that token, so a holder whose lock
// expired cannot release the next holder's lock.
type LockManager interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
	IsLocked(ctx context.Context, key string) (bool, error)
}

// ErrUnexpectedCollection is returned by a store when a TxFunc result names a
// collection that was not part of the Update call.
var ErrUnexpectedCollection = errors.New("tx result names a collection outside the update")

// CheckTxResult verifies that next only touches collections listed in names.
func CheckTxResult(names []string, next map[string][]byte) error {
	for name := range next {
		if !slices.Contains(names, name) {
			return fmt.Errorf("%s: %w", name, ErrUnexpectedCollection)
		}
	}
	return nil
}
