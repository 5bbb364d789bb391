package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/services"
)

// LocationHandler serves /locations.
type LocationHandler struct {
	fleetService *services.FleetService
}

// NewLocationHandler creates a new location handler.
func NewLocationHandler(fleetService *services.FleetService) *LocationHandler {
	return &LocationHandler{fleetService: fleetService}
}

// LocationRequest is the body of POST /locations.
type LocationRequest struct {
	City    string  `json:"city" binding:"required"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Long    float64 `json:"long"`
}

// ListLocations handles GET /locations
func (h *LocationHandler) ListLocations(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleetService.ListLocations(c.Request.Context()))
}

// GetLocation handles GET /locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loc, err := h.fleetService.GetLocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// AddLocation handles POST /locations
func (h *LocationHandler) AddLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc := entities.NewLocation(req.City, req.Country, req.Lat, req.Long)
	if err := h.fleetService.AddLocation(c.Request.Context(), loc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

// UpdateLocation handles PUT /locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc := entities.NewLocation(req.City, req.Country, req.Lat, req.Long)
	loc.ID = id
	if err := h.fleetService.UpdateLocation(c.Request.Context(), loc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loc)
}

// RemoveLocation handles DELETE /locations/:id
func (h *LocationHandler) RemoveLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleetService.RemoveLocation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
