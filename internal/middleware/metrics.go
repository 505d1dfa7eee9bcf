// metrics.go records Prometheus request metrics for every routed request.
// The path label uses c.FullPath() (the Gin route template, e.g.
// /v1/companies/:id) rather than the raw URL so user-supplied path segments
// cannot inflate label cardinality. Unrouted requests use "<no-route>".
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds. Register after gin.Recovery() so statuses
// set by error handlers are captured.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
