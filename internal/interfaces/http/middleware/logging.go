package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
)

// RequestLogging logs one line per handled request.
func RequestLogging(logger logging.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		if userID := ContextUserID(c); userID != "" {
			fields = append(fields, logging.String("user_id", string(userID)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request failed", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request handled", fields...)
		}
	}
}

// Metrics records request counters and latency.  The route template is used
// as the label so path parameters do not explode cardinality.
type httpMetrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// MetricsRecorder observes every handled request.
func MetricsRecorder(m httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
