// Package accounts implements the HTTP handlers for registration, passwords,
// password resets, API keys and the credential queries. Every handler is a thin
// adapter: it binds parameters, calls the credential service and lets
// apierr.Respond classify failures.
package accounts

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// CredentialService is implemented by *credentials.Service.
type CredentialService interface {
	NewChallenge(ctx context.Context, name, email, phrase string) (*models.VerificationChallenge, error)
	FinalizeRegistration(ctx context.Context, rawKey string) (*models.User, error)
	IssueAPIKey(ctx context.Context, email, phrase string, duration int64) (*models.APIKey, error)
	CancelAPIKey(ctx context.Context, rawToCancel, rawPresenting string) (*models.APIKey, error)
	ChangePassword(ctx context.Context, userID int64, newPhrase, rawKey string) (*models.Password, error)
	CancelPassword(ctx context.Context, userID int64, rawKey string) (*models.Password, error)
	RequestPasswordReset(ctx context.Context, email string) (*models.PasswordReset, error)
	ApplyPasswordReset(ctx context.Context, rawKey, newPhrase string) (*models.Password, error)
	ListUsers(ctx context.Context, rawKey string, f repositories.UserFilter) ([]models.User, error)
	ListPasswords(ctx context.Context, rawKey string, f repositories.PasswordFilter) ([]models.Password, error)
	ListAPIKeys(ctx context.Context, rawKey string, f repositories.APIKeyFilter) ([]models.APIKey, error)
}

// Handlers serves the /api account routes.
type Handlers struct {
	svc CredentialService
}

func NewHandlers(svc CredentialService) *Handlers {
	return &Handlers{svc: svc}
}

type newChallengeRequest struct {
	UserName     string `form:"userName" json:"userName"`
	UserEmail    string `form:"userEmail" json:"userEmail"`
	UserPassword string `form:"userPassword" json:"userPassword"`
}

// NewChallenge starts a registration and mails the verification link.
// The response never contains the challenge key.
// POST /api/verificationChallenge/new
func (h *Handlers) NewChallenge(c *gin.Context) {
	var req newChallengeRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	ch, err := h.svc.NewChallenge(c.Request.Context(), req.UserName, req.UserEmail, req.UserPassword)
	apiutil.Result(c, ch, err)
}

type finalizeRequest struct {
	VerificationChallengeKey string `form:"verificationChallengeKey" json:"verificationChallengeKey"`
}

// FinalizeRegistration consumes a verification challenge.
// POST /api/user/new
func (h *Handlers) FinalizeRegistration(c *gin.Context) {
	var req finalizeRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	user, err := h.svc.FinalizeRegistration(c.Request.Context(), req.VerificationChallengeKey)
	apiutil.Result(c, user, err)
}

type issueAPIKeyRequest struct {
	UserEmail    string `form:"userEmail" json:"userEmail"`
	UserPassword string `form:"userPassword" json:"userPassword"`
	Duration     int64  `form:"duration" json:"duration"`
}

// IssueAPIKey exchanges an email and password for a new key. This is the only
// response that ever carries a raw key.
// POST /api/apiKey/newValid
func (h *Handlers) IssueAPIKey(c *gin.Context) {
	var req issueAPIKeyRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	key, err := h.svc.IssueAPIKey(c.Request.Context(), req.UserEmail, req.UserPassword, req.Duration)
	apiutil.Result(c, key, err)
}

type cancelAPIKeyRequest struct {
	APIKeyToCancel string `form:"apiKeyToCancel" json:"apiKeyToCancel"`
	APIKey         string `form:"-" json:"apiKey"`
}

// CancelAPIKey revokes a key owned by the presenting key's user.
// POST /api/apiKey/newCancel
func (h *Handlers) CancelAPIKey(c *gin.Context) {
	var req cancelAPIKeyRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	key, err := h.svc.CancelAPIKey(c.Request.Context(), req.APIKeyToCancel, apiutil.PresentedKey(c, req.APIKey))
	apiutil.Result(c, key, err)
}
