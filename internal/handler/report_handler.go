package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/reports",
		middleware.RequireAuth(),
		middleware.RequireTier(model.TierManager),
		h.GetReport,
	)
}

// GetReport returns a filtered request summary for managers and admins
// @Summary Request report
// @Tags reports
// @Produce json
// @Param status query string false "Request status"
// @Param type query string false "Request type name"
// @Param group_id query string false "Owning group id"
// @Param from query string false "Created-after date (RFC3339 or 2006-01-02)"
// @Param to query string false "Created-before date (RFC3339 or 2006-01-02)"
// @Success 200 {object} response.Response
// @Router /api/reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	filter := service.ReportFilter{
		Status:   c.Query("status"),
		TypeName: c.Query("type"),
		GroupID:  c.Query("group_id"),
	}

	if raw := c.Query("from"); raw != "" {
		from, err := parseReportDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid from date"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseReportDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid to date"))
			return
		}
		// A bare date means "through the end of that day"
		if len(raw) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	report, err := h.reportService.GetReport(c.Request.Context(), principal, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

func parseReportDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
