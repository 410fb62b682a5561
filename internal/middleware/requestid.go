package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier in both directions.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the identifier. apierr.Respond
	// reads it when logging unclassified errors.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware reuses an inbound X-Request-ID or generates a UUID v4,
// stores it under RequestIDKey and echoes it in the response so clients can
// quote it when reporting a failed credential operation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
