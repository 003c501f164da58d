package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "dashboard/internal/errors"
)

// NotFound answers unmatched routes. Paths under /admin/ are redirected to
// redirectURL when one is configured; everything else gets a JSON 404.
func NotFound(redirectURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redirectURL != "" && strings.HasPrefix(c.Request.URL.Path, "/admin/") {
			c.Redirect(http.StatusFound, redirectURL)
			c.Abort()
			return
		}
		abortWithAppError(c, apperrors.ErrNotFound)
	}
}
