package handler

import (
	"net/http"
	"os"
	"strings"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	fileService service.FileService
}

func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

func (h *FileHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/upload", middleware.RequireAuth(), h.Upload)

	files := router.Group("/api/files")
	{
		files.POST("/token", middleware.RequireAuth(), h.IssueToken)
		// Download is authorized by token possession, not by session
		files.GET("/download", h.Download)
	}

	router.GET("/api/cron/cleanup", h.Cleanup)
}

// Upload stores a multipart file and returns its storage id
// @Summary Upload a file
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} response.Response
// @Router /api/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "file is required"))
		return
	}

	uploaded, err := h.fileService.Upload(c.Request.Context(), header)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, uploaded))
}

// IssueToken mints a short-lived download token for a stored file
func (h *FileHandler) IssueToken(c *gin.Context) {
	principal, _ := middleware.CurrentPrincipal(c)

	var req service.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	token, err := h.fileService.IssueToken(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, token))
}

// Download streams the file referenced by a valid token
func (h *FileHandler) Download(c *gin.Context) {
	resolved, err := h.fileService.ResolveToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", resolved.FileType)
	c.FileAttachment(resolved.Path, resolved.FileName)
}

// Cleanup runs the expired-token sweep. Protected by a shared secret so
// only the scheduler (or an operator holding the secret) can trigger it.
func (h *FileHandler) Cleanup(c *gin.Context) {
	secret := os.Getenv("CRON_SECRET")
	if secret == "" {
		c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "cleanup is not configured"))
		return
	}

	auth := c.GetHeader("Authorization")
	if auth != "Bearer "+secret {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid cleanup credentials"))
		return
	}

	force := strings.EqualFold(c.Query("force"), "true")
	result, err := h.fileService.Cleanup(c.Request.Context(), force)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
