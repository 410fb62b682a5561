// password_repository.go implements PasswordRepository over the append-only
// passwords log and the password_resets token table.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

const passwordColumns = `password_id, creation_time, creator_user_id, user_id, password_kind, password_hash, password_reset_key_hash`

var passwordSelect = []string{
	"password_id", "creation_time", "creator_user_id", "user_id",
	"password_kind", "password_hash", "password_reset_key_hash",
}

// PasswordFilter selects password log rows for List.
type PasswordFilter struct {
	PasswordID      *int64               `form:"passwordId" json:"passwordId"`
	CreationTime    *int64               `form:"creationTime" json:"creationTime"`
	MinCreationTime *int64               `form:"minCreationTime" json:"minCreationTime"`
	MaxCreationTime *int64               `form:"maxCreationTime" json:"maxCreationTime"`
	CreatorUserID   *int64               `form:"creatorUserId" json:"creatorUserId"`
	UserID          *int64               `form:"userId" json:"userId"`
	Kind            *models.PasswordKind `form:"-" json:"-"`
	OnlyRecent      bool                 `form:"onlyRecent" json:"onlyRecent"`
	Offset          *int64               `form:"offset" json:"offset"`
	Count           *int64               `form:"count" json:"count"`
}

// PasswordRepository handles the password event log.
type PasswordRepository struct {
	db     DBTX
	limits query.Limits
}

// NewPasswordRepository creates a password repository.
func NewPasswordRepository(db DBTX, limits query.Limits) *PasswordRepository {
	return &PasswordRepository{db: db, limits: limits}
}

// Latest returns the newest password row for userID, or nil if the user has
// never had one.
func (r *PasswordRepository) Latest(ctx context.Context, userID int64) (*models.Password, error) {
	var p models.Password
	err := r.db.GetContext(ctx, &p, `
		SELECT `+passwordColumns+`
		FROM passwords
		WHERE user_id = $1
		ORDER BY password_id DESC
		LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest password: %w", err)
	}
	return &p, nil
}

// ExistsByResetHash reports whether a reset token has already been consumed.
func (r *PasswordRepository) ExistsByResetHash(ctx context.Context, resetKeyHash string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM passwords WHERE password_reset_key_hash = $1)`, resetKeyHash)
	if err != nil {
		return false, fmt.Errorf("failed to check password reset usage: %w", err)
	}
	return exists, nil
}

// Create appends p and sets its PasswordID. Reusing a reset key hash yields
// ErrUniqueViolation.
func (r *PasswordRepository) Create(ctx context.Context, p *models.Password) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO passwords (creation_time, creator_user_id, user_id, password_kind, password_hash, password_reset_key_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING password_id`,
		p.CreationTime, p.CreatorUserID, p.UserID, int16(p.Kind), p.PasswordHash, p.PasswordResetKeyHash,
	).Scan(&p.PasswordID)
	if err != nil {
		return fmt.Errorf("failed to create password: %w", mapErr(err))
	}
	return nil
}

// List returns one page of password rows matching f.
func (r *PasswordRepository) List(ctx context.Context, f PasswordFilter) ([]models.Password, error) {
	b := query.New("passwords", "password_id", passwordSelect...).WithLimits(r.limits)
	query.Equal(b, "password_id", f.PasswordID)
	query.Equal(b, "creation_time", f.CreationTime)
	query.Between(b, "creation_time", f.MinCreationTime, f.MaxCreationTime)
	query.Equal(b, "creator_user_id", f.CreatorUserID)
	query.Equal(b, "user_id", f.UserID)
	if f.Kind != nil {
		b.Where("password_kind", query.Eq, int16(*f.Kind))
	}
	b.OnlyRecent("user_id", f.OnlyRecent).Page(f.Offset, f.Count)

	return query.Run[models.Password](ctx, r.db, b)
}

// PasswordResetRepository stores issued reset tokens.
type PasswordResetRepository struct {
	db DBTX
}

// NewPasswordResetRepository creates a password reset repository.
func NewPasswordResetRepository(db DBTX) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Get returns the reset token with keyHash or nil if absent.
func (r *PasswordResetRepository) Get(ctx context.Context, keyHash string) (*models.PasswordReset, error) {
	var pr models.PasswordReset
	err := r.db.GetContext(ctx, &pr, `
		SELECT password_reset_key_hash, creation_time, creator_user_id
		FROM password_resets
		WHERE password_reset_key_hash = $1`, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	return &pr, nil
}

// Create inserts pr.
func (r *PasswordResetRepository) Create(ctx context.Context, pr *models.PasswordReset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (password_reset_key_hash, creation_time, creator_user_id)
		VALUES ($1, $2, $3)`,
		pr.KeyHash, pr.CreationTime, pr.CreatorUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", mapErr(err))
	}
	return nil
}
