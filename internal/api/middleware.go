package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// loggerKey is the gin context key under which the request-scoped logger is
// stored.
const loggerKey = "megamarket.logger"

// RequestLogger tags every request with an id, installs a request-scoped
// logger in the context, and logs the outcome with latency.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		reqLogger := base.With("request_id", requestID)

		c.Set(loggerKey, reqLogger)
		c.Header("X-Request-Id", requestID)

		start := time.Now()
		c.Next()

		reqLogger.Info("request handled",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
