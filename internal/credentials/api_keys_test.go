package credentials

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/db/models"
)

func TestIssueAPIKey_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	user := f.register(t, "a", "a@example.com", "alice111")

	k, err := f.svc.IssueAPIKey(ctx, "a@example.com", "alice111", 10*minute)
	require.NoError(t, err)
	assert.NotEmpty(t, k.Key)
	assert.Equal(t, auth.HashKey(k.Key), k.APIKeyHash)
	assert.Equal(t, models.APIKeyKindValid, k.Kind)
	assert.Equal(t, user.UserID, k.CreatorUserID)
	assert.Equal(t, 10*minute, k.Duration)

	require.Len(t, f.store.apiKeys, 1)
	assert.NotEqual(t, k.Key, f.store.apiKeys[0].APIKeyHash)
}

func TestIssueAPIKey_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a", "a@example.com", "alice111")

	_, err := f.svc.IssueAPIKey(ctx, "nobody@example.com", "alice111", minute)
	assert.True(t, apierr.IsKind(err, apierr.NotFound), "got %v", err)

	_, err = f.svc.IssueAPIKey(ctx, "a@example.com", "wrong1111", minute)
	assert.True(t, apierr.IsKind(err, apierr.Incorrect), "got %v", err)

	_, err = f.svc.IssueAPIKey(ctx, "a@example.com", "alice111", -1)
	assert.True(t, apierr.IsKind(err, apierr.InvalidArgument), "got %v", err)
}

func TestIssueAPIKey_MaxDuration(t *testing.T) {
	f := newFixture()
	cfg := testCredentialsConfig()
	cfg.MaxAPIKeyDuration = time.Hour
	f.svc = NewService(f.store, f.mailer, cfg, f.clock.Now)
	f.register(t, "a", "a@example.com", "alice111")

	_, err := f.svc.IssueAPIKey(context.Background(), "a@example.com", "alice111", 60*minute+1)
	assert.True(t, apierr.IsKind(err, apierr.InvalidArgument), "got %v", err)

	_, err = f.svc.IssueAPIKey(context.Background(), "a@example.com", "alice111", 60*minute)
	assert.NoError(t, err)
}

func TestIssueAPIKey_DurationOverflowRejected(t *testing.T) {
	f := newFixture()
	f.register(t, "a", "a@example.com", "alice111")

	_, err := f.svc.IssueAPIKey(context.Background(), "a@example.com", "alice111", math.MaxInt64)
	assert.True(t, apierr.IsKind(err, apierr.InvalidArgument), "got %v", err)
	assert.Empty(t, f.store.apiKeys)

	k, err := f.svc.IssueAPIKey(context.Background(), "a@example.com", "alice111", math.MaxInt64-f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), k.ExpiresAt())
}

func TestAPIKey_ExpiresAfterDuration(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a", "a@example.com", "alice111")
	k, err := f.svc.IssueAPIKey(ctx, "a@example.com", "alice111", minute)
	require.NoError(t, err)

	f.clock.ms = k.CreationTime + minute - 1
	got, err := f.svc.Gate().CurrentlyValid(ctx, k.Key)
	require.NoError(t, err)
	assert.NotNil(t, got)

	f.clock.ms = k.CreationTime + minute
	got, err = f.svc.Gate().CurrentlyValid(ctx, k.Key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCancelAPIKey_InvalidatesKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a", "a@example.com", "alice111")
	target := f.issue(t, "a@example.com", "alice111")
	owner := f.issue(t, "a@example.com", "alice111")

	row, err := f.svc.CancelAPIKey(ctx, target, owner)
	require.NoError(t, err)
	assert.Equal(t, models.APIKeyKindValid, row.Kind)
	assert.Equal(t, int64(0), row.Duration)
	assert.Equal(t, auth.HashKey(target), row.APIKeyHash)
	assert.Empty(t, row.Key, "the cancelled key must not be echoed")

	got, err := f.svc.Gate().CurrentlyValid(ctx, target)
	require.NoError(t, err)
	assert.Nil(t, got, "cancelled key must not validate even though its issuance row has a future expiry")

	got, err = f.svc.Gate().CurrentlyValid(ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, got)

	_, err = f.svc.CancelAPIKey(ctx, target, owner)
	assert.True(t, apierr.IsKind(err, apierr.NotFound), "already cancelled: got %v", err)
}

func TestCancelAPIKey_SelfCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a", "a@example.com", "alice111")
	key := f.issue(t, "a@example.com", "alice111")

	_, err := f.svc.CancelAPIKey(ctx, key, key)
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, key)
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "got %v", err)
}

func TestCancelAPIKey_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.register(t, "a", "a@example.com", "alice111")
	f.clock.ms += 6 * minute
	f.register(t, "b", "b@example.com", "bobpass22")
	aliceKey := f.issue(t, "a@example.com", "alice111")
	bobKey := f.issue(t, "b@example.com", "bobpass22")

	_, err := f.svc.CancelAPIKey(ctx, aliceKey, "bogus")
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "invalid presenting key: got %v", err)

	_, err = f.svc.CancelAPIKey(ctx, "bogus", aliceKey)
	assert.True(t, apierr.IsKind(err, apierr.NotFound), "invalid target: got %v", err)

	_, err = f.svc.CancelAPIKey(ctx, bobKey, aliceKey)
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "other owner: got %v", err)

	got, err := f.svc.Gate().CurrentlyValid(ctx, bobKey)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
