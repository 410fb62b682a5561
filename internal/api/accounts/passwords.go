package accounts

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
)

type changePasswordRequest struct {
	UserID      int64  `form:"userId" json:"userId"`
	NewPassword string `form:"newPassword" json:"newPassword"`
	APIKey      string `form:"-" json:"apiKey"`
}

// ChangePassword appends a CHANGE row for the presenting key's own user.
// POST /api/password/newChange
func (h *Handlers) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	pw, err := h.svc.ChangePassword(c.Request.Context(), req.UserID, req.NewPassword, apiutil.PresentedKey(c, req.APIKey))
	apiutil.Result(c, pw, err)
}

type cancelPasswordRequest struct {
	UserID int64  `form:"userId" json:"userId"`
	APIKey string `form:"-" json:"apiKey"`
}

// CancelPassword disables password login until a reset or change.
// POST /api/password/newCancel
func (h *Handlers) CancelPassword(c *gin.Context) {
	var req cancelPasswordRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	pw, err := h.svc.CancelPassword(c.Request.Context(), req.UserID, apiutil.PresentedKey(c, req.APIKey))
	apiutil.Result(c, pw, err)
}

type requestResetRequest struct {
	UserEmail string `form:"userEmail" json:"userEmail"`
}

// RequestPasswordReset mails a reset key. The key is not in the response.
// POST /api/passwordReset/new
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req requestResetRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	pr, err := h.svc.RequestPasswordReset(c.Request.Context(), req.UserEmail)
	apiutil.Result(c, pr, err)
}

type applyResetRequest struct {
	PasswordResetKey string `form:"passwordResetKey" json:"passwordResetKey"`
	NewPassword      string `form:"newPassword" json:"newPassword"`
}

// ApplyPasswordReset consumes a reset key.
// POST /api/password/newReset
func (h *Handlers) ApplyPasswordReset(c *gin.Context) {
	var req applyResetRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	pw, err := h.svc.ApplyPasswordReset(c.Request.Context(), req.PasswordResetKey, req.NewPassword)
	apiutil.Result(c, pw, err)
}
