// Package tracking stores the user-authored planning data: goals, past events,
// time utility functions and subscriptions. Each entity is an identity row
// plus an append-only log of versions; the server stores the values as given
// and interprets none of them beyond ownership of the parent row.
package tracking

import (
	"context"
	"errors"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// Authenticator resolves a raw API key to its current VALID row.
type Authenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error)
}

// Service implements create and list for the tracking entities.
type Service struct {
	store *repositories.Store
	authn Authenticator
	now   auth.Clock
}

// NewService creates a Service. A nil clock uses auth.SystemClock.
func NewService(store *repositories.Store, authn Authenticator, now auth.Clock) *Service {
	if now == nil {
		now = auth.SystemClock
	}
	return &Service{store: store, authn: authn, now: now}
}

// caller returns the user id owning rawKey.
func (s *Service) caller(ctx context.Context, rawKey string) (int64, error) {
	k, err := s.authn.Authenticate(ctx, rawKey)
	if err != nil {
		return 0, err
	}
	return k.CreatorUserID, nil
}

// checkParent fails with NotFound when the parent row is absent and with
// Unauthorized when it belongs to another user.
func checkParent(found bool, ownerID, callerID int64, what string) error {
	if !found {
		return apierr.Newf(apierr.NotFound, "%s not found", what)
	}
	if ownerID != callerID {
		return apierr.Newf(apierr.Unauthorized, "%s belongs to another user", what)
	}
	return nil
}

func storeErr(err error, message string) error {
	if errors.Is(err, query.ErrInvalidPage) {
		return apierr.New(apierr.InvalidArgument, err.Error())
	}
	return apierr.Wrap(err, message)
}
