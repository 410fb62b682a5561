package credentials

import (
	"context"
	"log/slog"
	"time"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/db/models"
)

// ownerKey authenticates rawKey and requires it to belong to userID.
func (s *Service) ownerKey(ctx context.Context, userID int64, rawKey string) (*models.APIKey, error) {
	key, err := s.Authenticate(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if key.CreatorUserID != userID {
		return nil, apierr.New(apierr.Unauthorized, "cannot change the password of another user")
	}
	return key, nil
}

// ChangePassword appends a CHANGE row for userID. rawKey must be a valid key
// owned by userID.
func (s *Service) ChangePassword(ctx context.Context, userID int64, newPhrase, rawKey string) (_ *models.Password, err error) {
	defer record("change_password", &err)

	key, err := s.ownerKey(ctx, userID, rawKey)
	if err != nil {
		return nil, err
	}
	if !auth.PasswordPolicy(newPhrase) {
		return nil, apierr.Newf(apierr.PolicyViolation,
			"password must be at least %d characters and contain a digit", auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(newPhrase)
	if err != nil {
		return nil, apierr.Wrap(err, "failed to hash password")
	}

	p := &models.Password{
		CreationTime:  s.now(),
		CreatorUserID: key.CreatorUserID,
		UserID:        userID,
		Kind:          models.PasswordKindChange,
		PasswordHash:  hash,
	}
	if err := s.store.CreatePassword(ctx, p); err != nil {
		return nil, storeErr(err, "failed to create password")
	}
	return p, nil
}

// CancelPassword appends a CANCEL row for userID, after which no phrase
// validates until a new CHANGE or RESET row is appended.
func (s *Service) CancelPassword(ctx context.Context, userID int64, rawKey string) (_ *models.Password, err error) {
	defer record("cancel_password", &err)

	key, err := s.ownerKey(ctx, userID, rawKey)
	if err != nil {
		return nil, err
	}

	p := &models.Password{
		CreationTime:  s.now(),
		CreatorUserID: key.CreatorUserID,
		UserID:        userID,
		Kind:          models.PasswordKindCancel,
	}
	if err := s.store.CreatePassword(ctx, p); err != nil {
		return nil, storeErr(err, "failed to create password")
	}
	return p, nil
}

// RequestPasswordReset stores a reset token for the user registered under
// email and mails its raw key. Earlier unexpired tokens stay usable. The
// token is stored before sending; a delivery failure is logged only.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (_ *models.PasswordReset, err error) {
	defer record("request_password_reset", &err)

	if s.mailer.IsBlacklisted(ctx, email) {
		return nil, apierr.New(apierr.Blacklisted, "this email address cannot receive mail")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "failed to look up user")
	}
	if user == nil {
		return nil, apierr.New(apierr.NotFound, "no user with this email")
	}

	rawKey, err := auth.GenerateKey()
	if err != nil {
		return nil, apierr.Wrap(err, "failed to generate reset key")
	}
	pr := &models.PasswordReset{
		KeyHash:       auth.HashKey(rawKey),
		CreationTime:  s.now(),
		CreatorUserID: user.UserID,
	}
	if err := s.store.CreatePasswordReset(ctx, pr); err != nil {
		return nil, storeErr(err, "failed to create password reset")
	}

	validity := time.Duration(s.resetTTL) * time.Millisecond
	if sendErr := s.mailer.SendPasswordReset(ctx, user.Email, rawKey, validity); sendErr != nil {
		slog.Error("failed to send password reset email", "email", user.Email, "error", sendErr)
	}
	return pr, nil
}

// ApplyPasswordReset consumes the reset token identified by rawKey and appends
// a RESET row. Each token produces at most one password; the database enforces
// this with a unique index so concurrent submissions cannot both succeed.
func (s *Service) ApplyPasswordReset(ctx context.Context, rawKey, newPhrase string) (_ *models.Password, err error) {
	defer record("apply_password_reset", &err)

	keyHash := auth.HashKey(rawKey)
	pr, err := s.store.GetPasswordReset(ctx, keyHash)
	if err != nil {
		return nil, storeErr(err, "failed to look up password reset")
	}
	if pr == nil {
		return nil, apierr.New(apierr.NotFound, "password reset not found")
	}

	now := s.now()
	if pr.ExpiredAt(now, s.resetTTL) {
		return nil, apierr.New(apierr.Expired, "password reset has expired")
	}

	used, err := s.store.PasswordExistsByResetHash(ctx, keyHash)
	if err != nil {
		return nil, storeErr(err, "failed to check password reset use")
	}
	if used {
		return nil, apierr.New(apierr.Conflict, "password reset has already been used")
	}

	if !auth.PasswordPolicy(newPhrase) {
		return nil, apierr.Newf(apierr.PolicyViolation,
			"password must be at least %d characters and contain a digit", auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(newPhrase)
	if err != nil {
		return nil, apierr.Wrap(err, "failed to hash password")
	}

	p := &models.Password{
		CreationTime:         now,
		CreatorUserID:        pr.CreatorUserID,
		UserID:               pr.CreatorUserID,
		Kind:                 models.PasswordKindReset,
		PasswordHash:         hash,
		PasswordResetKeyHash: keyHash,
	}
	if err := s.store.CreatePassword(ctx, p); err != nil {
		if isUniqueViolation(err) {
			return nil, apierr.New(apierr.Conflict, "password reset has already been used")
		}
		return nil, storeErr(err, "failed to create password")
	}
	return p, nil
}
