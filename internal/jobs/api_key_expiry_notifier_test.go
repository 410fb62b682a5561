package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

const nowMillis = int64(1_700_000_000_000)

func fixedClock() int64 { return nowMillis }

type reminder struct {
	email, name          string
	createdAt, expiresAt time.Time
}

type fakeMailer struct {
	sent []reminder
	err  error
}

func (m *fakeMailer) SendAPIKeyExpiry(_ context.Context, email, name string, createdAt, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, reminder{email, name, createdAt, expiresAt})
	return nil
}

func newNotifierConfig() *config.NotificationsConfig {
	return &config.NotificationsConfig{
		Enabled:                   true,
		APIKeyExpiryWarning:       24 * time.Hour,
		APIKeyExpiryCheckInterval: time.Hour,
	}
}

func newMockStore(t *testing.T) (*repositories.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repositories.NewStore(sqlx.NewDb(db, "sqlmock"), query.DefaultLimits()), mock
}

var (
	keyColumns  = []string{"api_key_id", "creation_time", "creator_user_id", "api_key_hash", "api_key_kind", "duration"}
	userColumns = []string{"user_id", "creation_time", "name", "email", "verification_challenge_key_hash"}
)

func TestNewAPIKeyExpiryNotifier_Defaults(t *testing.T) {
	n := NewAPIKeyExpiryNotifier(nil, nil, nil, NewMemoryDeduper(), &config.NotificationsConfig{}, fixedClock)
	assert.Equal(t, time.Hour, n.interval)
	assert.Equal(t, 72*time.Hour, n.warning)

	n = NewAPIKeyExpiryNotifier(nil, nil, nil, NewMemoryDeduper(), newNotifierConfig(), fixedClock)
	assert.Equal(t, 24*time.Hour, n.warning)
}

func TestRunCheck_SendsOncePerKey(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, mailer, NewMemoryDeduper(), newNotifierConfig(), fixedClock)

	created := nowMillis - 1000
	duration := int64(2 * time.Hour / time.Millisecond)
	window := (24 * time.Hour).Milliseconds()

	for range 2 {
		mock.ExpectQuery("FROM api_keys a").
			WithArgs(int64(models.APIKeyKindValid), nowMillis, nowMillis+window).
			WillReturnRows(sqlmock.NewRows(keyColumns).AddRow(int64(11), created, int64(3), "hash", int64(0), duration))
	}
	mock.ExpectQuery("FROM users WHERE user_id").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(3), int64(1), "Ann", "ann@example.com", "vh"))

	assert.Equal(t, 1, n.RunCheck(context.Background()))
	assert.Equal(t, 0, n.RunCheck(context.Background()), "second run must not repeat the reminder")
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, mailer.sent, 1)
	r := mailer.sent[0]
	assert.Equal(t, "ann@example.com", r.email)
	assert.Equal(t, "Ann", r.name)
	assert.Equal(t, time.UnixMilli(created), r.createdAt)
	assert.Equal(t, time.UnixMilli(created+duration), r.expiresAt)
}

func TestRunCheck_SkipsMissingOwner(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, mailer, NewMemoryDeduper(), newNotifierConfig(), fixedClock)

	mock.ExpectQuery("FROM api_keys a").
		WillReturnRows(sqlmock.NewRows(keyColumns).AddRow(int64(12), nowMillis, int64(99), "hash", int64(0), int64(1000)))
	mock.ExpectQuery("FROM users WHERE user_id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	assert.Equal(t, 0, n.RunCheck(context.Background()))
	assert.Empty(t, mailer.sent)
}

func TestRunCheck_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{}
	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, mailer, NewMemoryDeduper(), newNotifierConfig(), fixedClock)

	mock.ExpectQuery("FROM api_keys a").WillReturnError(errors.New("connection reset"))

	assert.Equal(t, 0, n.RunCheck(context.Background()))
	assert.Empty(t, mailer.sent)
}

func TestRunCheck_SendFailureNotCounted(t *testing.T) {
	store, mock := newMockStore(t)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, mailer, NewMemoryDeduper(), newNotifierConfig(), fixedClock)

	mock.ExpectQuery("FROM api_keys a").
		WillReturnRows(sqlmock.NewRows(keyColumns).AddRow(int64(13), nowMillis, int64(3), "hash", int64(0), int64(1000)))
	mock.ExpectQuery("FROM users WHERE user_id").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(int64(3), int64(1), "Ann", "ann@example.com", "vh"))

	assert.Equal(t, 0, n.RunCheck(context.Background()))
}

func TestStartStop(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM api_keys a").WillReturnRows(sqlmock.NewRows(keyColumns))

	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, &fakeMailer{}, NewMemoryDeduper(), newNotifierConfig(), fixedClock)

	done := make(chan struct{})
	go func() {
		n.Start(context.Background())
		close(done)
	}()

	n.Stop()
	n.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStart_ContextCancel(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM api_keys a").WillReturnRows(sqlmock.NewRows(keyColumns))

	n := NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, &fakeMailer{}, NewMemoryDeduper(), newNotifierConfig(), fixedClock)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		n.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestMemoryDeduper_Expiry(t *testing.T) {
	d := NewMemoryDeduper()
	clock := time.Unix(0, 0)
	d.now = func() time.Time { return clock }
	ctx := context.Background()

	assert.True(t, d.FirstTime(ctx, "k", time.Minute))
	assert.False(t, d.FirstTime(ctx, "k", time.Minute))
	assert.True(t, d.FirstTime(ctx, "other", time.Minute))

	clock = clock.Add(2 * time.Minute)
	assert.True(t, d.FirstTime(ctx, "k", time.Minute))
}

type fakeSetNX struct {
	claimed map[string]bool
	err     error
}

func (f *fakeSetNX) SetNX(ctx context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if f.claimed[key] {
		return redis.NewBoolResult(false, nil)
	}
	f.claimed[key] = true
	return redis.NewBoolResult(true, nil)
}

func TestRedisDeduper(t *testing.T) {
	ctx := context.Background()

	d := NewRedisDeduper(&fakeSetNX{claimed: map[string]bool{}})
	assert.True(t, d.FirstTime(ctx, "notify:expiry:1", time.Hour))
	assert.False(t, d.FirstTime(ctx, "notify:expiry:1", time.Hour))

	down := NewRedisDeduper(&fakeSetNX{err: errors.New("dial tcp: connection refused")})
	assert.False(t, down.FirstTime(ctx, "notify:expiry:2", time.Hour))
}
