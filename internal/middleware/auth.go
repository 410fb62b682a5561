package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
)

const (
	// APIKeyParam is the query or form parameter that may carry the key.
	APIKeyParam = "apiKey"

	// APIKeyContextKey holds the raw presented key in gin.Context.
	APIKeyContextKey = "raw_api_key"
)

// APIKeyMiddleware extracts the presenting API key from
// "Authorization: Bearer <key>" or the apiKey parameter and stores it under
// APIKeyContextKey. It does not validate the key: the credential and tracking
// services check validity against the key log at the moment of the operation.
//
// A present but malformed Authorization header is rejected outright so that a
// client typo is not silently treated as an anonymous request.
func APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			key, err := auth.ExtractAPIKeyFromHeader(header)
			if err != nil {
				apierr.Respond(c, apierr.New(apierr.Unauthorized, err.Error()))
				return
			}
			c.Set(APIKeyContextKey, key)
			c.Next()
			return
		}

		if key := c.Query(APIKeyParam); key != "" {
			c.Set(APIKeyContextKey, key)
		} else if key := c.PostForm(APIKeyParam); key != "" {
			c.Set(APIKeyContextKey, key)
		}
		c.Next()
	}
}

// PresentedAPIKey returns the key stored by APIKeyMiddleware, or "".
func PresentedAPIKey(c *gin.Context) string {
	return c.GetString(APIKeyContextKey)
}
