package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
)

// VerificationChallengeRepository stores pending email verifications.
type VerificationChallengeRepository struct {
	db DBTX
}

// NewVerificationChallengeRepository creates a verification challenge repository.
func NewVerificationChallengeRepository(db DBTX) *VerificationChallengeRepository {
	return &VerificationChallengeRepository{db: db}
}

// Get returns the challenge with keyHash or nil if absent.
func (r *VerificationChallengeRepository) Get(ctx context.Context, keyHash string) (*models.VerificationChallenge, error) {
	var c models.VerificationChallenge
	err := r.db.GetContext(ctx, &c, `
		SELECT verification_challenge_key_hash, creation_time, name, email, password_hash
		FROM verification_challenges
		WHERE verification_challenge_key_hash = $1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification challenge: %w", err)
	}
	return &c, nil
}

// LastCreationTime returns the creation time of the newest challenge for
// email. ok is false when no challenge exists.
func (r *VerificationChallengeRepository) LastCreationTime(ctx context.Context, email string) (ts int64, ok bool, err error) {
	var last sql.NullInt64
	err = r.db.GetContext(ctx, &last,
		`SELECT MAX(creation_time) FROM verification_challenges WHERE email = $1`, email)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get last challenge time: %w", err)
	}
	return last.Int64, last.Valid, nil
}

// Create inserts c.
func (r *VerificationChallengeRepository) Create(ctx context.Context, c *models.VerificationChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_challenges (verification_challenge_key_hash, creation_time, name, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)`,
		c.KeyHash, c.CreationTime, c.Name, c.Email, c.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification challenge: %w", mapErr(err))
	}
	return nil
}
