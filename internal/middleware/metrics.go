// Package middleware holds the Gin middleware shared by every goal tracker
// route: request ids, Prometheus request metrics, security headers, rate
// limiting and API key extraction. Everything here is registered in
// internal/api/router.go ahead of the handlers.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// MetricsMiddleware records http_requests_total and
// http_request_duration_seconds for every request.
//
// The path label is the matched route template (c.FullPath()), e.g.
// /api/goal_data/new, so ids in query strings never reach label values.
// Unmatched requests are recorded under "<no-route>".
//
// Register it after gin.Recovery() and RequestIDMiddleware so the final status
// written by error handlers is the one observed.
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
