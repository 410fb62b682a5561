package credentials

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

func init() {
	auth.BcryptCost = bcrypt.MinCost
}

const minute = int64(60 * 1000)

type fakeClock struct{ ms int64 }

func (c *fakeClock) Now() int64              { return c.ms }
func (c *fakeClock) Advance(d time.Duration) { c.ms += d.Milliseconds() }

// memStore mirrors the database constraints the service relies on: unique
// user email, unique challenge back-reference and unique non-empty reset hash.
type memStore struct {
	mu         sync.Mutex
	users      []models.User
	challenges []models.VerificationChallenge
	passwords  []models.Password
	resets     []models.PasswordReset
	apiKeys    []models.APIKey
	locked     []string

	listErr error
}

func newMemStore() *memStore { return &memStore{} }

func (m *memStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *memStore) LockEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = append(m.locked, email)
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].UserID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == email {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memStore) UserExistsByChallengeHash(_ context.Context, h string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].VerificationChallengeKeyHash == h {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Email == u.Email || m.users[i].VerificationChallengeKeyHash == u.VerificationChallengeKeyHash {
			return repositories.ErrUniqueViolation
		}
	}
	u.UserID = int64(len(m.users) + 1)
	m.users = append(m.users, *u)
	return nil
}

func (m *memStore) GetUsersByIDs(_ context.Context, ids []int64) (map[int64]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]*models.User)
	for _, id := range ids {
		for i := range m.users {
			if m.users[i].UserID == id {
				u := m.users[i]
				out[id] = &u
			}
		}
	}
	return out, nil
}

func (m *memStore) ListUsers(_ context.Context, f repositories.UserFilter) ([]models.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, u := range m.users {
		if f.UserID != nil && u.UserID != *f.UserID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memStore) GetChallenge(_ context.Context, h string) (*models.VerificationChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.challenges {
		if m.challenges[i].KeyHash == h {
			c := m.challenges[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) LastChallengeTime(_ context.Context, email string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		last  int64
		found bool
	)
	for _, c := range m.challenges {
		if c.Email == email && (!found || c.CreationTime > last) {
			last, found = c.CreationTime, true
		}
	}
	return last, found, nil
}

func (m *memStore) CreateChallenge(_ context.Context, c *models.VerificationChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges = append(m.challenges, *c)
	return nil
}

func (m *memStore) LatestPassword(_ context.Context, userID int64) (*models.Password, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Password
	for i := range m.passwords {
		if m.passwords[i].UserID == userID && (latest == nil || m.passwords[i].PasswordID > latest.PasswordID) {
			p := m.passwords[i]
			latest = &p
		}
	}
	return latest, nil
}

func (m *memStore) PasswordExistsByResetHash(_ context.Context, h string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.passwords {
		if p.PasswordResetKeyHash == h {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreatePassword(_ context.Context, p *models.Password) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.PasswordResetKeyHash != "" {
		for _, existing := range m.passwords {
			if existing.PasswordResetKeyHash == p.PasswordResetKeyHash {
				return repositories.ErrUniqueViolation
			}
		}
	}
	p.PasswordID = int64(len(m.passwords) + 1)
	m.passwords = append(m.passwords, *p)
	return nil
}

func (m *memStore) ListPasswords(_ context.Context, f repositories.PasswordFilter) ([]models.Password, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.passwords
	if f.OnlyRecent {
		rows = latestPerGroup(rows, func(p models.Password) int64 { return p.UserID },
			func(p models.Password) int64 { return p.PasswordID })
	}
	out := []models.Password{}
	for _, p := range rows {
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetPasswordReset(_ context.Context, h string) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.resets {
		if m.resets[i].KeyHash == h {
			r := m.resets[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreatePasswordReset(_ context.Context, pr *models.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, *pr)
	return nil
}

func (m *memStore) LatestAPIKey(_ context.Context, h string) (*models.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.APIKey
	for i := range m.apiKeys {
		if m.apiKeys[i].APIKeyHash == h && (latest == nil || m.apiKeys[i].APIKeyID > latest.APIKeyID) {
			k := m.apiKeys[i]
			latest = &k
		}
	}
	return latest, nil
}

func (m *memStore) CreateAPIKey(_ context.Context, k *models.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k.APIKeyID = int64(len(m.apiKeys) + 1)
	m.apiKeys = append(m.apiKeys, *k)
	return nil
}

func (m *memStore) ListAPIKeys(_ context.Context, f repositories.APIKeyFilter) ([]models.APIKey, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.apiKeys
	if f.OnlyRecent {
		rows = latestPerGroup(rows, func(k models.APIKey) string { return k.APIKeyHash },
			func(k models.APIKey) int64 { return k.APIKeyID })
	}
	out := []models.APIKey{}
	for _, k := range rows {
		if f.CreatorUserID != nil && k.CreatorUserID != *f.CreatorUserID {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].APIKeyID < out[j].APIKeyID })
	return out, nil
}

// latestPerGroup keeps the highest-id row of each group, in id order. It is
// the in-memory form of the MAX(id) GROUP BY join that onlyRecent renders.
func latestPerGroup[T any, K comparable](rows []T, group func(T) K, id func(T) int64) []T {
	newest := map[K]int64{}
	for _, r := range rows {
		if cur, ok := newest[group(r)]; !ok || id(r) > cur {
			newest[group(r)] = id(r)
		}
	}
	out := []T{}
	for _, r := range rows {
		if newest[group(r)] == id(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return id(out[i]) < id(out[j]) })
	return out
}

type sentMail struct {
	template string
	email    string
	name     string
	rawKey   string
}

type fakeMailer struct {
	blacklist map[string]bool
	sendErr   error
	sent      []sentMail
}

func (f *fakeMailer) IsBlacklisted(_ context.Context, email string) bool {
	return f.blacklist[email]
}

func (f *fakeMailer) SendVerification(_ context.Context, email, name, rawKey string, _ time.Duration) error {
	f.sent = append(f.sent, sentMail{"verification", email, name, rawKey})
	return f.sendErr
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, email, rawKey string, _ time.Duration) error {
	f.sent = append(f.sent, sentMail{"password_reset", email, "", rawKey})
	return f.sendErr
}

func (f *fakeMailer) last() sentMail {
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	store  *memStore
	mailer *fakeMailer
	clock  *fakeClock
	svc    *Service
}

func testCredentialsConfig() config.CredentialsConfig {
	return config.CredentialsConfig{
		ChallengeTTL:      15 * time.Minute,
		ChallengeInterval: 5 * time.Minute,
		ResetTTL:          15 * time.Minute,
	}
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		mailer: &fakeMailer{blacklist: map[string]bool{}},
		clock:  &fakeClock{ms: 1_700_000_000_000},
	}
	f.svc = NewService(f.store, f.mailer, testCredentialsConfig(), f.clock.Now)
	return f
}

var errStore = errors.New("store unavailable")
