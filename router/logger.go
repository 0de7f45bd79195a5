package router

import (
	"time"

	"wawebhook/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const REQUEST_ID_HEADER = "X-Request-ID"

// Logger logs method, path, status and latency, tagging each request with an id.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(REQUEST_ID_HEADER)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(REQUEST_ID_HEADER, requestID)

		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"request_id", requestID,
		)
	}
}
