package auth

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
)

// KeyLookup returns the newest api key row for a key hash, or nil.
type KeyLookup interface {
	LatestAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error)
}

// PasswordLookup returns the newest password row for a user, or nil.
type PasswordLookup interface {
	LatestPassword(ctx context.Context, userID int64) (*models.Password, error)
}

// Gate validates bearer keys and passwords against the credential logs.
// It holds no state of its own.
type Gate struct {
	keys      KeyLookup
	passwords PasswordLookup
	now       Clock
}

// NewGate creates a Gate. A nil clock uses SystemClock.
func NewGate(keys KeyLookup, passwords PasswordLookup, now Clock) *Gate {
	if now == nil {
		now = SystemClock
	}
	return &Gate{keys: keys, passwords: passwords, now: now}
}

// CurrentlyValid returns the newest row for rawKey if it is VALID and not yet
// expired, and nil otherwise. Cancellation appends a zero-duration row, so a
// cancelled key fails the expiry check.
func (g *Gate) CurrentlyValid(ctx context.Context, rawKey string) (*models.APIKey, error) {
	if rawKey == "" {
		return nil, nil
	}
	k, err := g.keys.LatestAPIKey(ctx, HashKey(rawKey))
	if err != nil || k == nil {
		return nil, err
	}
	if !k.ValidAt(g.now()) {
		return nil, nil
	}
	return k, nil
}

// IsValidPassword reports whether phrase matches the user's current password,
// which is the newest row of the user's password log. A CANCEL row or a
// missing log means no phrase is valid.
func (g *Gate) IsValidPassword(ctx context.Context, userID int64, phrase string) (bool, error) {
	p, err := g.passwords.LatestPassword(ctx, userID)
	if err != nil || p == nil {
		return false, err
	}
	if p.Kind == models.PasswordKindCancel {
		return false, nil
	}
	return MatchesPassword(phrase, p.PasswordHash), nil
}
