package credentials

import (
	"context"
	"math"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/db/models"
)

// IssueAPIKey verifies the password of the user registered under email and
// issues a key valid for duration milliseconds. The raw key is set on the
// returned row and is not retrievable afterwards.
func (s *Service) IssueAPIKey(ctx context.Context, email, phrase string, duration int64) (_ *models.APIKey, err error) {
	defer record("issue_api_key", &err)

	if duration < 0 {
		return nil, apierr.New(apierr.InvalidArgument, "duration must not be negative")
	}
	if s.maxKeyDuration > 0 && duration > s.maxKeyDuration {
		return nil, apierr.Newf(apierr.InvalidArgument, "duration must not exceed %d ms", s.maxKeyDuration)
	}
	now := s.now()
	if duration > math.MaxInt64-now {
		return nil, apierr.New(apierr.InvalidArgument, "duration is too large")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "failed to look up user")
	}
	if user == nil {
		return nil, apierr.New(apierr.NotFound, "no user with this email")
	}

	ok, err := s.gate.IsValidPassword(ctx, user.UserID, phrase)
	if err != nil {
		return nil, storeErr(err, "failed to verify password")
	}
	if !ok {
		return nil, apierr.New(apierr.Incorrect, "incorrect password")
	}

	rawKey, err := auth.GenerateKey()
	if err != nil {
		return nil, apierr.Wrap(err, "failed to generate api key")
	}
	k := &models.APIKey{
		CreationTime:  now,
		CreatorUserID: user.UserID,
		APIKeyHash:    auth.HashKey(rawKey),
		Kind:          models.APIKeyKindValid,
		Duration:      duration,
	}
	if err := s.store.CreateAPIKey(ctx, k); err != nil {
		return nil, storeErr(err, "failed to create api key")
	}
	k.Key = rawKey
	return k, nil
}

// CancelAPIKey expires rawToCancel by appending a zero-duration row for its
// hash. Both keys must currently validate and belong to the same user.
func (s *Service) CancelAPIKey(ctx context.Context, rawToCancel, rawPresenting string) (_ *models.APIKey, err error) {
	defer record("cancel_api_key", &err)

	presenting, err := s.Authenticate(ctx, rawPresenting)
	if err != nil {
		return nil, err
	}

	target, err := s.gate.CurrentlyValid(ctx, rawToCancel)
	if err != nil {
		return nil, storeErr(err, "failed to validate api key")
	}
	if target == nil {
		return nil, apierr.New(apierr.NotFound, "api key to cancel is not valid")
	}
	if target.CreatorUserID != presenting.CreatorUserID {
		return nil, apierr.New(apierr.Unauthorized, "cannot cancel the api key of another user")
	}

	k := &models.APIKey{
		CreationTime:  s.now(),
		CreatorUserID: presenting.CreatorUserID,
		APIKeyHash:    target.APIKeyHash,
		Kind:          models.APIKeyKindValid,
		Duration:      0,
	}
	if err := s.store.CreateAPIKey(ctx, k); err != nil {
		return nil, storeErr(err, "failed to create api key")
	}
	return k, nil
}
