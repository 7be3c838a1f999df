package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/workspace-task-api/internal/constants"
)

const contextKeyLogger = "logger"

// RequestLogger tags every request with an id and logs one line when it completes.
// An incoming X-Request-ID header is reused.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Header(constants.HeaderRequestID, requestID)

		entry := log.WithField("request_id", requestID)
		c.Set(contextKeyLogger, entry)

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"ip":       c.ClientIP(),
		}
		if userID, ok := GetUserID(c); ok {
			fields["user_id"] = userID
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.WithFields(fields).Error("request failed")
		case status >= 400:
			entry.WithFields(fields).Warn("request rejected")
		default:
			entry.WithFields(fields).Info("request completed")
		}
	}
}

// Logger returns the request-scoped logger, or the standard logrus logger outside RequestLogger.
func Logger(c *gin.Context) logrus.FieldLogger {
	if value, exists := c.Get(contextKeyLogger); exists {
		if entry, ok := value.(logrus.FieldLogger); ok {
			return entry
		}
	}
	return logrus.StandardLogger()
}
