package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/services"
)

// InsightsHandler serves the read-only /insights reports.
type InsightsHandler struct {
	insightsService *services.InsightsService
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insightsService *services.InsightsService) *InsightsHandler {
	return &InsightsHandler{insightsService: insightsService}
}

// IdleTime handles GET /insights/idle-time?from=YYYY-MM-DD&to=YYYY-MM-DD
//
// Both dates are whole UTC days and the window includes the whole "to" day.
func (h *InsightsHandler) IdleTime(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: from: %v", services.ErrInvalidInput, err))
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: to: %v", services.ErrInvalidInput, err))
		return
	}

	report, err := h.insightsService.IdleTime(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// LocationHistory handles GET /insights/cabs/:id/history
func (h *InsightsHandler) LocationHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.insightsService.LocationHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Demand handles GET /insights/demand
func (h *InsightsHandler) Demand(c *gin.Context) {
	c.JSON(http.StatusOK, h.insightsService.Demand(c.Request.Context()))
}
