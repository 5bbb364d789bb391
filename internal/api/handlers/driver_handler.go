package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/services"
)

const dateLayout = "2006-01-02"

// DriverHandler serves /drivers.
type DriverHandler struct {
	fleetService *services.FleetService
}

// NewDriverHandler creates a new driver handler.
func NewDriverHandler(fleetService *services.FleetService) *DriverHandler {
	return &DriverHandler{fleetService: fleetService}
}

// DriverRequest takes dates as YYYY-MM-DD; empty dates stay unset.
type DriverRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
	DateOfBirth   string `json:"date_of_birth"`
	DateOfJoining string `json:"date_of_joining"`
}

func (r DriverRequest) toDriver() (*entities.Driver, error) {
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth: %v", services.ErrInvalidInput, err)
	}
	joined, err := parseDate(r.DateOfJoining)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_joining: %v", services.ErrInvalidInput, err)
	}
	return entities.NewDriver(r.FirstName, r.LastName, r.ContactNumber, r.Address, dob, joined), nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

// ListDrivers handles GET /drivers
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleetService.ListDrivers(c.Request.Context()))
}

// GetDriver handles GET /drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	driver, err := h.fleetService.GetDriver(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

// AddDriver handles POST /drivers
func (h *DriverHandler) AddDriver(c *gin.Context) {
	var req DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	driver, err := req.toDriver()
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.fleetService.AddDriver(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

// UpdateDriver handles PUT /drivers/:id
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req DriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	driver, err := req.toDriver()
	if err != nil {
		respondError(c, err)
		return
	}
	driver.ID = id
	if err := h.fleetService.UpdateDriver(c.Request.Context(), driver); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

// RemoveDriver handles DELETE /drivers/:id
func (h *DriverHandler) RemoveDriver(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleetService.RemoveDriver(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
