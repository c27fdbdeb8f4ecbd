// Package events provides middleware for request logging
package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/logger"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// CreateEvent returns a middleware function that logs request details
func CreateEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		log := logger.HTTP()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		log.Debug("Request started",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		logLevel := log.Info
		if status >= 500 {
			logLevel = log.Error
		} else if status >= 400 {
			logLevel = log.Warn
		}

		// tokens and organizer keys travel in headers, never in the path
		logLevel("Request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency", latency,
			"size", c.Writer.Size(),
		)
	}
}
