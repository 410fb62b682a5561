// Package credentials implements the identity and credential lifecycle:
// email-verified registration, the password event log with self-service
// resets, and the API key event log. Every mutation appends a row; the
// current state of a password or key is its newest row.
package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// Mailer delivers the messages carrying raw challenge and reset keys.
type Mailer interface {
	IsBlacklisted(ctx context.Context, email string) bool
	SendVerification(ctx context.Context, email, name, rawKey string, validity time.Duration) error
	SendPasswordReset(ctx context.Context, email, rawKey string, validity time.Duration) error
}

// Service is the single writer of the credential tables.
type Service struct {
	store  Store
	mailer Mailer
	gate   *auth.Gate
	now    auth.Clock

	challengeTTL      int64
	challengeInterval int64
	resetTTL          int64
	maxKeyDuration    int64
}

// NewService creates a Service. Windows are taken from cfg; a nil clock uses
// auth.SystemClock.
func NewService(store Store, mailer Mailer, cfg config.CredentialsConfig, now auth.Clock) *Service {
	if now == nil {
		now = auth.SystemClock
	}
	return &Service{
		store:             store,
		mailer:            mailer,
		gate:              auth.NewGate(store, store, now),
		now:               now,
		challengeTTL:      cfg.ChallengeTTL.Milliseconds(),
		challengeInterval: cfg.ChallengeInterval.Milliseconds(),
		resetTTL:          cfg.ResetTTL.Milliseconds(),
		maxKeyDuration:    cfg.MaxAPIKeyDuration.Milliseconds(),
	}
}

// Gate returns the validator bound to this service's store and clock.
func (s *Service) Gate() *auth.Gate {
	return s.gate
}

// Authenticate resolves rawKey to its current VALID row or fails with
// Unauthorized.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*models.APIKey, error) {
	k, err := s.gate.CurrentlyValid(ctx, rawKey)
	if err != nil {
		return nil, apierr.Wrap(err, "failed to validate api key")
	}
	if k == nil {
		return nil, apierr.New(apierr.Unauthorized, "api key is not valid")
	}
	return k, nil
}

// storeErr classifies a repository failure. Errors already carrying a kind
// pass through unchanged.
func storeErr(err error, message string) error {
	var e *apierr.Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, query.ErrInvalidPage):
		return apierr.New(apierr.InvalidArgument, err.Error())
	default:
		return apierr.Wrap(err, message)
	}
}

// record is deferred by each operation to count its outcome.
func record(event string, err *error) {
	telemetry.RecordCredentialEvent(event, *err)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, repositories.ErrUniqueViolation)
}
