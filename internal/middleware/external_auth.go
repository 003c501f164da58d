package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dashboard/internal/errors"
)

var (
	errExternalNotConfigured = &apperrors.AppError{Code: "EXTERNAL_API_NOT_CONFIGURED", Message: "External endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
	errInvalidAPIKey         = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// ExternalAPIKeyMiddleware guards the external integration routes. The
// X-API-Key header must equal the configured key; with no key configured
// the routes are closed.
func ExternalAPIKeyMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, errExternalNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithAppError(c, errInvalidAPIKey)
			return
		}
		c.Next()
	}
}
