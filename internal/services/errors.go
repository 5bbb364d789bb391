package services

import (
	"errors"

	"cabdispatch/internal/domain/entities"
)

var (
	ErrCabNotFound      = errors.New("cab not found")
	ErrTripNotFound     = errors.New("trip not found")
	ErrLocationNotFound = errors.New("location not found")
	ErrCarNotFound      = errors.New("car not found")
	ErrDriverNotFound   = errors.New("driver not found")

	ErrNoCabAvailable  = errors.New("no idle cab at location")
	ErrTripNotBookable = entities.ErrTripNotBookable
	ErrTripNotActive   = entities.ErrTripNotActive
	ErrInvalidState    = entities.ErrInvalidWorkState
	ErrInvalidChange   = entities.ErrInvalidTransition

	ErrSameLocation    = errors.New("pickup and drop-off locations must differ")
	ErrAlreadyAssigned = errors.New("car or driver already belongs to another cab")
	ErrCabBusy         = errors.New("cab is on a trip")
	ErrInUse           = errors.New("record is still referenced by a cab")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidWindow   = errors.New("window start must be before its end")

	// ErrBusy means a lock could not be taken within the configured wait.
	ErrBusy = errors.New("resource busy, try again")
	// ErrPersistence wraps any store failure during a write.
	ErrPersistence = errors.New("fleet state could not be persisted")
)
