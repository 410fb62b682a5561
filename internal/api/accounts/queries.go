package accounts

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

type listUsersRequest struct {
	repositories.UserFilter
	APIKey string `form:"-" json:"apiKey"`
}

// ListUsers GET /api/user/
func (h *Handlers) ListUsers(c *gin.Context) {
	var req listUsersRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	users, err := h.svc.ListUsers(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.UserFilter)
	apiutil.List(c, users, err)
}

type listPasswordsRequest struct {
	repositories.PasswordFilter
	PasswordKind string `form:"passwordKind" json:"passwordKind"`
	APIKey       string `form:"-" json:"apiKey"`
}

// ListPasswords GET /api/password/
func (h *Handlers) ListPasswords(c *gin.Context) {
	var req listPasswordsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	kind, ok := apiutil.ParseEnum(c, req.PasswordKind, models.ParsePasswordKind)
	if !ok {
		return
	}
	req.PasswordFilter.Kind = kind
	pws, err := h.svc.ListPasswords(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.PasswordFilter)
	apiutil.List(c, pws, err)
}

type listAPIKeysRequest struct {
	repositories.APIKeyFilter
	APIKeyKind string `form:"apiKeyKind" json:"apiKeyKind"`
	APIKey     string `form:"-" json:"apiKey"`
}

// ListAPIKeys GET /api/apiKey/
func (h *Handlers) ListAPIKeys(c *gin.Context) {
	var req listAPIKeysRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	kind, ok := apiutil.ParseEnum(c, req.APIKeyKind, models.ParseAPIKeyKind)
	if !ok {
		return
	}
	req.APIKeyFilter.Kind = kind
	keys, err := h.svc.ListAPIKeys(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.APIKeyFilter)
	apiutil.List(c, keys, err)
}
