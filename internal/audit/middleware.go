package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/middleware"
)

const shipTimeout = 5 * time.Second

// Middleware ships one Entry for every request to the wrapped route once the
// handler has answered. Shipping failures are logged and never change the
// response.
func Middleware(s Shipper, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		entry := &Entry{
			Timestamp: time.Now().UTC(),
			Action:    action,
			Outcome:   "success",
			Status:    status,
			IPAddress: c.ClientIP(),
			RequestID: c.GetString(middleware.RequestIDKey),
			UserAgent: c.Request.UserAgent(),
		}
		if status >= 300 {
			entry.Outcome = "failure"
		}
		if kind, ok := c.Get(apierr.ContextKey); ok {
			if k, ok := kind.(apierr.Kind); ok {
				entry.ErrorKind = string(k)
			}
		}

		// the client may already be gone
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), shipTimeout)
		defer cancel()
		if err := s.Ship(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "failed to ship audit entry", "action", action, "error", err)
		}
	}
}
