package handler

import (
	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps any error onto the standard envelope using its
// apperror code; unknown errors become a generic 500.
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	c.JSON(appErr.HTTPStatus, response.FromAppError(appErr))
}
