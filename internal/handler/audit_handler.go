package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/audit-logs",
		middleware.RequireAuth(),
		middleware.RequireTier(model.TierAdmin),
		h.ListLogs,
	)
}

// ListLogs returns paginated audit entries, newest first
func (h *AuditHandler) ListLogs(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	params := pagination.Parse(c)
	logs, total, err := h.auditService.ListLogs(c.Request.Context(), principal, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   logs,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}
