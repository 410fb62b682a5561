// Package apiutil holds the request binding and response helpers shared by the
// accounts and tracker handlers.
package apiutil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/middleware"
)

// Bind decodes query, form or JSON parameters into dst. On failure it writes
// an INVALID_ARGUMENT response and returns false.
func Bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		apierr.Respond(c, apierr.Newf(apierr.InvalidArgument, "invalid parameters: %v", err))
		return false
	}
	return true
}

// PresentedKey returns the key extracted by middleware.APIKeyMiddleware,
// falling back to a key decoded from a JSON body.
func PresentedKey(c *gin.Context, bodyKey string) string {
	if key := middleware.PresentedAPIKey(c); key != "" {
		return key
	}
	return bodyKey
}

// ParseEnum parses an optional enum parameter. An empty raw value yields nil.
func ParseEnum[T any](c *gin.Context, raw string, parse func(string) (T, error)) (*T, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := parse(raw)
	if err != nil {
		apierr.Respond(c, apierr.New(apierr.InvalidArgument, err.Error()))
		return nil, false
	}
	return &v, true
}

// Result writes v, or the classified error.
func Result[T any](c *gin.Context, v T, err error) {
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// List writes items as a JSON array, never null.
func List[T any](c *gin.Context, items []T, err error) {
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, items)
}
