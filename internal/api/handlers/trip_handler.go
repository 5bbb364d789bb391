package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/services"
)

// TripHandler serves /trips.
type TripHandler struct {
	fleetService    *services.FleetService
	dispatchService *services.DispatchService
}

// NewTripHandler creates a new trip handler.
func NewTripHandler(fleetService *services.FleetService, dispatchService *services.DispatchService) *TripHandler {
	return &TripHandler{
		fleetService:    fleetService,
		dispatchService: dispatchService,
	}
}

// ListTrips handles GET /trips
func (h *TripHandler) ListTrips(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleetService.ListTrips(c.Request.Context()))
}

// GetTrip handles GET /trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := h.fleetService.GetTrip(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// RequestTripRequest is the body of POST /trips.
type RequestTripRequest struct {
	FromLocationID int `json:"from_location_id" binding:"required"`
	ToLocationID   int `json:"to_location_id" binding:"required"`
	// Book defaults to true; false only stores the trip.
	Book *bool `json:"book"`
}

// RequestTrip handles POST /trips
//
// With booking, a trip that found no cab is still returned (as cancelled)
// alongside the error status so the caller learns its id.
func (h *TripHandler) RequestTrip(c *gin.Context) {
	var req RequestTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if req.Book != nil && !*req.Book {
		trip, err := h.fleetService.CreateTrip(ctx, req.FromLocationID, req.ToLocationID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"trip": trip})
		return
	}

	trip, cab, err := h.fleetService.RequestTrip(ctx, req.FromLocationID, req.ToLocationID)
	if err != nil {
		_ = c.Error(err)
		body := gin.H{"error": err.Error()}
		if trip != nil {
			body["trip"] = trip
		}
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			body["error"] = "internal error"
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip": trip, "cab": cab})
}

// BookTrip handles POST /trips/:id/book
func (h *TripHandler) BookTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	trip, err := h.fleetService.GetTrip(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	cab, err := h.dispatchService.BookCabForTrip(ctx, id, trip.FromLocation.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	booked, err := h.fleetService.GetTrip(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip": booked, "cab": cab})
}

// CompleteTrip handles POST /trips/:id/complete
func (h *TripHandler) CompleteTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.dispatchService.CompleteTrip(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	trip, err := h.fleetService.GetTrip(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// CancelTrip handles POST /trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	trip, err := h.fleetService.CancelTrip(c.Request.Context(), id)
	if errors.Is(err, services.ErrCabBusy) {
		_ = c.Error(err)
		c.JSON(http.StatusConflict, gin.H{"error": "trip already has a cab; complete it instead"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}
