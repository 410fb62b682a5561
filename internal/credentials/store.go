package credentials

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// Store is the persistence the credential lifecycle needs. It is implemented
// over PostgreSQL by NewSQLStore and by in-memory fakes in tests.
type Store interface {
	// WithTx runs fn against a Store whose operations commit or roll back
	// together.
	WithTx(ctx context.Context, fn func(Store) error) error
	// LockEmail serializes transactions working on the same address. Only
	// valid inside WithTx.
	LockEmail(ctx context.Context, email string) error

	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExistsByChallengeHash(ctx context.Context, keyHash string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
	ListUsers(ctx context.Context, f repositories.UserFilter) ([]models.User, error)

	GetChallenge(ctx context.Context, keyHash string) (*models.VerificationChallenge, error)
	LastChallengeTime(ctx context.Context, email string) (int64, bool, error)
	CreateChallenge(ctx context.Context, c *models.VerificationChallenge) error

	LatestPassword(ctx context.Context, userID int64) (*models.Password, error)
	PasswordExistsByResetHash(ctx context.Context, resetKeyHash string) (bool, error)
	CreatePassword(ctx context.Context, p *models.Password) error
	ListPasswords(ctx context.Context, f repositories.PasswordFilter) ([]models.Password, error)

	GetPasswordReset(ctx context.Context, keyHash string) (*models.PasswordReset, error)
	CreatePasswordReset(ctx context.Context, pr *models.PasswordReset) error

	LatestAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error)
	CreateAPIKey(ctx context.Context, k *models.APIKey) error
	ListAPIKeys(ctx context.Context, f repositories.APIKeyFilter) ([]models.APIKey, error)
}

type sqlStore struct {
	s *repositories.Store
}

// NewSQLStore adapts a repositories.Store to Store.
func NewSQLStore(s *repositories.Store) Store {
	return &sqlStore{s: s}
}

func (st *sqlStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return st.s.WithTx(ctx, func(tx *repositories.Store) error {
		return fn(&sqlStore{s: tx})
	})
}

func (st *sqlStore) LockEmail(ctx context.Context, email string) error {
	return st.s.LockEmail(ctx, email)
}

func (st *sqlStore) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	return st.s.Users.GetByID(ctx, userID)
}

func (st *sqlStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return st.s.Users.GetByEmail(ctx, email)
}

func (st *sqlStore) UserExistsByChallengeHash(ctx context.Context, keyHash string) (bool, error) {
	return st.s.Users.ExistsByChallengeHash(ctx, keyHash)
}

func (st *sqlStore) CreateUser(ctx context.Context, u *models.User) error {
	return st.s.Users.Create(ctx, u)
}

func (st *sqlStore) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	return st.s.Users.GetByIDs(ctx, ids)
}

func (st *sqlStore) ListUsers(ctx context.Context, f repositories.UserFilter) ([]models.User, error) {
	return st.s.Users.List(ctx, f)
}

func (st *sqlStore) GetChallenge(ctx context.Context, keyHash string) (*models.VerificationChallenge, error) {
	return st.s.Challenges.Get(ctx, keyHash)
}

func (st *sqlStore) LastChallengeTime(ctx context.Context, email string) (int64, bool, error) {
	return st.s.Challenges.LastCreationTime(ctx, email)
}

func (st *sqlStore) CreateChallenge(ctx context.Context, c *models.VerificationChallenge) error {
	return st.s.Challenges.Create(ctx, c)
}

func (st *sqlStore) LatestPassword(ctx context.Context, userID int64) (*models.Password, error) {
	return st.s.Passwords.Latest(ctx, userID)
}

func (st *sqlStore) PasswordExistsByResetHash(ctx context.Context, resetKeyHash string) (bool, error) {
	return st.s.Passwords.ExistsByResetHash(ctx, resetKeyHash)
}

func (st *sqlStore) CreatePassword(ctx context.Context, p *models.Password) error {
	return st.s.Passwords.Create(ctx, p)
}

func (st *sqlStore) ListPasswords(ctx context.Context, f repositories.PasswordFilter) ([]models.Password, error) {
	return st.s.Passwords.List(ctx, f)
}

func (st *sqlStore) GetPasswordReset(ctx context.Context, keyHash string) (*models.PasswordReset, error) {
	return st.s.PasswordResets.Get(ctx, keyHash)
}

func (st *sqlStore) CreatePasswordReset(ctx context.Context, pr *models.PasswordReset) error {
	return st.s.PasswordResets.Create(ctx, pr)
}

func (st *sqlStore) LatestAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	return st.s.APIKeys.Latest(ctx, keyHash)
}

func (st *sqlStore) CreateAPIKey(ctx context.Context, k *models.APIKey) error {
	return st.s.APIKeys.Create(ctx, k)
}

func (st *sqlStore) ListAPIKeys(ctx context.Context, f repositories.APIKeyFilter) ([]models.APIKey, error) {
	return st.s.APIKeys.List(ctx, f)
}
