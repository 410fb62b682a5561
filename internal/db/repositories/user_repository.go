// user_repository.go implements UserRepository: account lookup by email, id and
// consumed challenge, creation, and the filtered user listing.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

const userColumns = `user_id, creation_time, name, email, verification_challenge_key_hash`

var userSelect = []string{"user_id", "creation_time", "name", "email", "verification_challenge_key_hash"}

// UserFilter selects users for List. Nil fields are not filtered on.
type UserFilter struct {
	UserID          *int64  `form:"userId" json:"userId"`
	CreationTime    *int64  `form:"creationTime" json:"creationTime"`
	MinCreationTime *int64  `form:"minCreationTime" json:"minCreationTime"`
	MaxCreationTime *int64  `form:"maxCreationTime" json:"maxCreationTime"`
	Name            *string `form:"userName" json:"userName"`
	PartialName     *string `form:"partialUserName" json:"partialUserName"`
	Email           *string `form:"userEmail" json:"userEmail"`
	Offset          *int64  `form:"offset" json:"offset"`
	Count           *int64  `form:"count" json:"count"`
}

// UserRepository handles user database operations
type UserRepository struct {
	db     DBTX
	limits query.Limits
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX, limits query.Limits) *UserRepository {
	return &UserRepository{db: db, limits: limits}
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where+` = $1`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByID returns the user or nil if absent.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	return r.getOne(ctx, "user_id", userID)
}

// GetByEmail returns the user registered with email or nil if absent.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email", email)
}

// ExistsByChallengeHash reports whether a user was created from the challenge.
func (r *UserRepository) ExistsByChallengeHash(ctx context.Context, keyHash string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE verification_challenge_key_hash = $1)`, keyHash)
	if err != nil {
		return false, fmt.Errorf("failed to check user challenge: %w", err)
	}
	return exists, nil
}

// Create inserts u and sets its UserID. Duplicate email or challenge hash
// yields ErrUniqueViolation.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (creation_time, name, email, verification_challenge_key_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id`,
		u.CreationTime, u.Name, u.Email, u.VerificationChallengeKeyHash,
	).Scan(&u.UserID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapErr(err))
	}
	return nil
}

// GetByIDs returns the users with the given ids keyed by id.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	out := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users WHERE user_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for i := range users {
		out[users[i].UserID] = &users[i]
	}
	return out, nil
}

// List returns one page of users matching f in ascending id order.
func (r *UserRepository) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	b := query.New("users", "user_id", userSelect...).WithLimits(r.limits)
	query.Equal(b, "user_id", f.UserID)
	query.Equal(b, "creation_time", f.CreationTime)
	query.Between(b, "creation_time", f.MinCreationTime, f.MaxCreationTime)
	query.Equal(b, "name", f.Name)
	query.Partial(b, "name", f.PartialName)
	query.Equal(b, "email", f.Email)
	b.Page(f.Offset, f.Count)

	return query.Run[models.User](ctx, r.db, b)
}
