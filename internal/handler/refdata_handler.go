package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RefDataHandler struct {
	refDataService service.RefDataService
}

func NewRefDataHandler(refDataService service.RefDataService) *RefDataHandler {
	return &RefDataHandler{refDataService: refDataService}
}

func (h *RefDataHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/groups", middleware.RequireAuth(), h.ListGroups)
	router.GET("/api/request-types", middleware.RequireAuth(), h.ListRequestTypes)
}

// ListGroups returns all groups
func (h *RefDataHandler) ListGroups(c *gin.Context) {
	groups, err := h.refDataService.ListGroups(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, groups))
}

// ListRequestTypes returns the request types the caller may submit against
func (h *RefDataHandler) ListRequestTypes(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	types, err := h.refDataService.ListRequestTypes(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}
