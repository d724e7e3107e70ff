// README: Recovery middleware; turns panics into a logged 500.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/logger"
)

func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(map[string]any{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				}).Errorf("panic: %v", rec)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
			}
		}()
		c.Next()
	}
}
