package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/services"
)

// DashboardHandler serves the management landing page.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetDashboard returns the environment badge, the user cards and the
// latest audit entries.
// @Summary     Management dashboard
// @Tags        management
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Dashboard
// @Failure     403 {object} ErrorResponse "Staff access required"
// @Router      /admin/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.GetDashboard(time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
