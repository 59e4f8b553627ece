package handler

import (
	"net/http"
	"strings"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	requests.Use(middleware.RequireAuth())
	{
		requests.POST("", h.SubmitRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
	}
}

// SubmitRequest creates a request with its initial approval
// @Summary Submit a request
// @Tags requests
// @Accept json
// @Produce json
// @Param body body service.SubmitRequestInput true "Request payload"
// @Success 201 {object} response.Response
// @Router /api/requests [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	created, err := h.requestService.SubmitRequest(c.Request.Context(), principal, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, created))
}

// ListRequests returns visible requests with optional filters
// @Summary List requests
// @Tags requests
// @Produce json
// @Param group_ids query string false "Comma-separated group ids"
// @Param type query string false "Request type name"
// @Param search query string false "Title substring"
// @Success 200 {object} response.Response
// @Router /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)
	params := pagination.Parse(c)

	filter := service.RequestFilter{
		TypeName: c.Query("type"),
		Search:   c.Query("search"),
		Page:     params.Page,
		Limit:    params.Limit,
	}
	if raw := c.Query("group_ids"); raw != "" {
		filter.GroupIDs = strings.Split(raw, ",")
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), principal, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   requests,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetRequest returns a single request if visible to the caller
func (h *RequestHandler) GetRequest(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	request, err := h.requestService.GetRequest(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}
