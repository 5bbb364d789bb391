package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/services"
)

// CabHandler serves /cabs.
type CabHandler struct {
	fleetService    *services.FleetService
	dispatchService *services.DispatchService
}

// NewCabHandler creates a new cab handler.
func NewCabHandler(fleetService *services.FleetService, dispatchService *services.DispatchService) *CabHandler {
	return &CabHandler{
		fleetService:    fleetService,
		dispatchService: dispatchService,
	}
}

// CabResponse adds derived fields to a stored cab.
type CabResponse struct {
	*entities.Cab
	State      string  `json:"state"`
	TotalTrips int     `json:"total_trips"`
	IdleSecs   float64 `json:"idle_seconds"`
}

func (h *CabHandler) present(cab *entities.Cab) CabResponse {
	return CabResponse{
		Cab:        cab,
		State:      cab.WorkState.DisplayName(),
		TotalTrips: cab.TotalTrips(),
		IdleSecs:   cab.IdleDuration(h.dispatchService.Now()).Seconds(),
	}
}

func (h *CabHandler) presentAll(cabs []*entities.Cab) []CabResponse {
	out := make([]CabResponse, 0, len(cabs))
	for _, cab := range cabs {
		out = append(out, h.present(cab))
	}
	return out
}

// ListCabs handles GET /cabs
func (h *CabHandler) ListCabs(c *gin.Context) {
	c.JSON(http.StatusOK, h.presentAll(h.fleetService.ListCabs(c.Request.Context())))
}

// GetCab handles GET /cabs/:id
func (h *CabHandler) GetCab(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cab, err := h.fleetService.GetCab(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present(cab))
}

// RegisterCabRequest is the body of POST /cabs.
type RegisterCabRequest struct {
	CarID      int `json:"car_id" binding:"required"`
	DriverID   int `json:"driver_id" binding:"required"`
	LocationID int `json:"location_id" binding:"required"`
}

// RegisterCab handles POST /cabs
func (h *CabHandler) RegisterCab(c *gin.Context) {
	var req RegisterCabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cab, err := h.fleetService.RegisterCab(c.Request.Context(), req.CarID, req.DriverID, req.LocationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.present(cab))
}

// RemoveCab handles DELETE /cabs/:id
func (h *CabHandler) RemoveCab(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleetService.RemoveCab(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeLocationRequest is the body of PATCH /cabs/:id/location.
type ChangeLocationRequest struct {
	LocationID int `json:"location_id" binding:"required"`
}

// ChangeLocation handles PATCH /cabs/:id/location
func (h *CabHandler) ChangeLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.dispatchService.ChangeCabLocation(ctx, id, req.LocationID); err != nil {
		respondError(c, err)
		return
	}
	h.respondCab(c, id)
}

// ChangeStateRequest is the body of PATCH /cabs/:id/state. State is
// "idle" or "grounded".
type ChangeStateRequest struct {
	State string `json:"state" binding:"required"`
}

// ChangeState handles PATCH /cabs/:id/state
func (h *CabHandler) ChangeState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ChangeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	state, err := entities.ParseWorkState(req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.dispatchService.ChangeCabState(c.Request.Context(), id, state); err != nil {
		respondError(c, err)
		return
	}
	h.respondCab(c, id)
}

// AvailableAtLocation handles GET /locations/:id/available-cabs
func (h *CabHandler) AvailableAtLocation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.fleetService.GetLocation(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.presentAll(h.dispatchService.GetAvailableCabsAtLocation(ctx, id)))
}

func (h *CabHandler) respondCab(c *gin.Context, id int) {
	cab, err := h.fleetService.GetCab(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.present(cab))
}
