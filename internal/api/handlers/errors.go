package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/services"
)

var errBadID = errors.New("id must be a positive integer")

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrCabNotFound),
		errors.Is(err, services.ErrTripNotFound),
		errors.Is(err, services.ErrLocationNotFound),
		errors.Is(err, services.ErrCarNotFound),
		errors.Is(err, services.ErrDriverNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrNoCabAvailable),
		errors.Is(err, services.ErrBusy),
		errors.Is(err, services.ErrTripNotBookable),
		errors.Is(err, services.ErrTripNotActive),
		errors.Is(err, services.ErrInvalidChange),
		errors.Is(err, services.ErrCabBusy),
		errors.Is(err, services.ErrInUse),
		errors.Is(err, services.ErrAlreadyAssigned),
		errors.Is(err, entities.ErrCabNotIdle),
		errors.Is(err, entities.ErrTripClosed):
		return http.StatusConflict

	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrSameLocation),
		errors.Is(err, services.ErrInvalidWindow),
		errors.Is(err, errBadID):
		return http.StatusBadRequest

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError records err for the request log and writes it as JSON.
// Internal failures are not echoed to the client.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// pathID parses the :name path parameter as a record id.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, errBadID)
		return 0, false
	}
	return id, true
}
