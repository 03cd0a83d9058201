package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"deal-chain.backend/pkg/logger"
)

// Paths probed by infrastructure; logging every scrape only adds noise.
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// LoggerMiddleware emits one structured log line per request. The request id
// is read from the request context placed there by RequestIDMiddleware.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, quiet := quietPaths[path]; quiet {
			return
		}

		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
