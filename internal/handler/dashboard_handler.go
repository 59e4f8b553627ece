package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", middleware.RequireAuth(), h.GetStats)
}

// GetStats returns tier-scoped counts and the most recent requests
// @Summary Dashboard statistics
// @Tags dashboard
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/dashboard [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	stats, err := h.dashboardService.GetStats(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
