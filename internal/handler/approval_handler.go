package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	approvals.Use(middleware.RequireAuth())
	{
		approvals.GET("", h.ListPendingApprovals)
		approvals.PATCH("/:id", middleware.RequireTier(model.TierManager), h.DecideApproval)
		approvals.DELETE("/:id", middleware.RequireTier(model.TierAdmin), h.DeleteApproval)
	}
}

// ListPendingApprovals returns the pending approvals the caller may act on
// @Summary List pending approvals
// @Tags approvals
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/approvals [get]
func (h *ApprovalHandler) ListPendingApprovals(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	approvals, err := h.approvalService.ListPendingApprovals(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, approvals))
}

// DecideApproval applies an approve or reject verdict
// @Summary Decide an approval
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval id"
// @Param body body service.DecideApprovalInput true "Verdict"
// @Success 200 {object} response.Response
// @Router /api/approvals/{id} [patch]
func (h *ApprovalHandler) DecideApproval(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	var input service.DecideApprovalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	request, err := h.approvalService.DecideApproval(c.Request.Context(), principal, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// DeleteApproval removes an approval row (admin only)
func (h *ApprovalHandler) DeleteApproval(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	if err := h.approvalService.DeleteApproval(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "approval deleted"}))
}
