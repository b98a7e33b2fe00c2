package middlewares

import (
	"time"

	"catalogadmin/catalog"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

// RequestID reuses the caller's X-Request-ID or assigns one, echoes it back
// and stores it in the request context for backend calls and the audit journal.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(catalog.RequestIDHeader)
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}

		c.Writer.Header().Set(catalog.RequestIDHeader, id)
		c.Request = c.Request.WithContext(catalog.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  time.Since(startTime).Milliseconds(),
		})
		if reqID := c.Writer.Header().Get(catalog.RequestIDHeader); reqID != "" {
			entry = entry.WithField("request_id", reqID)
		}

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= 500:
			entry.Error("Request completed with server error")
		case statusCode >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
