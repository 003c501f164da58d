package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "dashboard/internal/errors"
)

// abortWithAppError stops the chain with the JSON error body used by every
// handler.
func abortWithAppError(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.StatusCode, gin.H{
		"error": gin.H{
			"code":    err.Code,
			"message": err.Message,
		},
	})
}
