package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/domain/entities"
	"cabdispatch/internal/services"
)

// CarHandler serves /cars.
type CarHandler struct {
	fleetService *services.FleetService
}

// NewCarHandler creates a new car handler.
func NewCarHandler(fleetService *services.FleetService) *CarHandler {
	return &CarHandler{fleetService: fleetService}
}

// CarRequest is the body of POST /cars.
type CarRequest struct {
	Manufacturer    string `json:"manufacturer" binding:"required"`
	Model           string `json:"model" binding:"required"`
	Description     string `json:"description"`
	ManufactureYear int    `json:"manufacture_year" binding:"required"`
	KmDriven        int    `json:"km_driven"`
}

func (r CarRequest) toCar() *entities.Car {
	return entities.NewCar(r.Manufacturer, r.Model, r.Description, r.ManufactureYear, r.KmDriven)
}

// ListCars handles GET /cars
func (h *CarHandler) ListCars(c *gin.Context) {
	c.JSON(http.StatusOK, h.fleetService.ListCars(c.Request.Context()))
}

// GetCar handles GET /cars/:id
func (h *CarHandler) GetCar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	car, err := h.fleetService.GetCar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// AddCar handles POST /cars
func (h *CarHandler) AddCar(c *gin.Context) {
	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	car := req.toCar()
	if err := h.fleetService.AddCar(c.Request.Context(), car); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, car)
}

// UpdateCar handles PUT /cars/:id
func (h *CarHandler) UpdateCar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	car := req.toCar()
	car.ID = id
	if err := h.fleetService.UpdateCar(c.Request.Context(), car); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// RemoveCar handles DELETE /cars/:id
func (h *CarHandler) RemoveCar(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.fleetService.RemoveCar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
