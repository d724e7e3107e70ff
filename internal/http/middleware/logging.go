// README: Request logging middleware.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/logger"
)

func Logging(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		entry := log
		if len(c.Errors) > 0 {
			entry = log.WithField("errors", c.Errors.String())
		}
		entry.LogAPIRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), CallerUID(c))
	}
}
