package tracking

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

const (
	now       = int64(1_700_000_000_000)
	callerID  = int64(1)
	otherID   = int64(2)
	callerKey = "caller-key"
)

// keyAuth accepts callerKey only.
type keyAuth struct{}

func (keyAuth) Authenticate(_ context.Context, rawKey string) (*models.APIKey, error) {
	if rawKey != callerKey {
		return nil, apierr.New(apierr.Unauthorized, "api key is not valid")
	}
	return &models.APIKey{CreatorUserID: callerID}, nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := repositories.NewStore(sqlx.NewDb(db, "sqlmock"), query.DefaultLimits())
	return NewService(store, keyAuth{}, func() int64 { return now }), mock
}

func identityRow(idColumn string, id, creator int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{idColumn, "creation_time", "creator_user_id"}).AddRow(id, now, creator)
}

func TestCreateGoal(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("INSERT INTO goals").WithArgs(now, callerID).
		WillReturnRows(sqlmock.NewRows([]string{"goal_id"}).AddRow(10))

	g, err := svc.CreateGoal(context.Background(), callerKey)
	require.NoError(t, err)
	assert.Equal(t, int64(10), g.GoalID)
	assert.Equal(t, callerID, g.CreatorUserID)
	assert.Equal(t, now, g.CreationTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_RequiresValidKey(t *testing.T) {
	svc, mock := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateGoal(ctx, "bogus")
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized))
	_, err = svc.CreatePastEvent(ctx, "")
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized))
	_, err = svc.CreateTimeUtilityFunction(ctx, "bogus")
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized))
	_, err = svc.IsSubscriber(ctx, "bogus")
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized))
	assert.NoError(t, mock.ExpectationsWereMet(), "no query may run for an unauthenticated caller")
}

func TestCreateGoalData(t *testing.T) {
	in := GoalDataInput{
		GoalID:                10,
		Name:                  "write report",
		Description:           "q3",
		DurationEstimate:      3600000,
		TimeUtilityFunctionID: 20,
		Status:                models.GoalStatusPending,
	}

	t.Run("success", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("FROM goals WHERE goal_id").WithArgs(int64(10)).WillReturnRows(identityRow("goal_id", 10, callerID))
		mock.ExpectQuery("FROM time_utility_functions WHERE time_utility_function_id").WithArgs(int64(20)).
			WillReturnRows(identityRow("time_utility_function_id", 20, callerID))
		mock.ExpectQuery("INSERT INTO goal_data").
			WithArgs(now, callerID, int64(10), "write report", "q3", int64(3600000), int64(20), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"goal_data_id"}).AddRow(5))

		d, err := svc.CreateGoalData(context.Background(), callerKey, in)
		require.NoError(t, err)
		assert.Equal(t, int64(5), d.GoalDataID)
		assert.Equal(t, callerID, d.CreatorUserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing goal", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("FROM goals WHERE goal_id").WillReturnRows(sqlmock.NewRows([]string{"goal_id"}))

		_, err := svc.CreateGoalData(context.Background(), callerKey, in)
		assert.True(t, apierr.IsKind(err, apierr.NotFound), "got %v", err)
	})

	t.Run("goal of another user", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("FROM goals WHERE goal_id").WillReturnRows(identityRow("goal_id", 10, otherID))

		_, err := svc.CreateGoalData(context.Background(), callerKey, in)
		assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "got %v", err)
	})

	t.Run("utility function of another user", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.ExpectQuery("FROM goals WHERE goal_id").WillReturnRows(identityRow("goal_id", 10, callerID))
		mock.ExpectQuery("FROM time_utility_functions").WillReturnRows(identityRow("time_utility_function_id", 20, otherID))

		_, err := svc.CreateGoalData(context.Background(), callerKey, in)
		assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "got %v", err)
	})
}

func TestCreatePastEventData_MissingParent(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("FROM past_events WHERE past_event_id").WillReturnRows(sqlmock.NewRows([]string{"past_event_id"}))

	_, err := svc.CreatePastEventData(context.Background(), callerKey, PastEventDataInput{PastEventID: 3})
	assert.True(t, apierr.IsKind(err, apierr.NotFound), "got %v", err)
}

func TestCreatePastEventData(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("FROM past_events WHERE past_event_id").WillReturnRows(identityRow("past_event_id", 3, callerID))
	mock.ExpectQuery("INSERT INTO past_event_data").
		WithArgs(now, callerID, int64(3), "run", "", int64(100), int64(50), true).
		WillReturnRows(sqlmock.NewRows([]string{"past_event_data_id"}).AddRow(8))

	d, err := svc.CreatePastEventData(context.Background(), callerKey, PastEventDataInput{
		PastEventID: 3, Name: "run", StartTime: 100, Duration: 50, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), d.PastEventDataID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTimeUtilityFunctionPoint_OtherOwner(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("FROM time_utility_functions").WillReturnRows(identityRow("time_utility_function_id", 20, otherID))

	_, err := svc.CreateTimeUtilityFunctionPoint(context.Background(), callerKey, TimeUtilityFunctionPointInput{TimeUtilityFunctionID: 20})
	assert.True(t, apierr.IsKind(err, apierr.Unauthorized), "got %v", err)
}

func TestListGoalData_InvalidPage(t *testing.T) {
	svc, _ := newTestService(t)
	offset := int64(-1)
	f := repositories.GoalDataFilter{}
	f.Offset = &offset

	_, err := svc.ListGoalData(context.Background(), callerKey, f)
	assert.True(t, apierr.IsKind(err, apierr.InvalidArgument), "got %v", err)
}

var subscriptionCols = []string{"subscription_id", "creation_time", "creator_user_id", "subscription_kind", "max_uses"}

func TestIsSubscriber(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		want bool
	}{
		{"no subscription", sqlmock.NewRows(subscriptionCols), false},
		{"newest is valid", sqlmock.NewRows(subscriptionCols).AddRow(2, now, callerID, 0, 1), true},
		{"newest is cancel", sqlmock.NewRows(subscriptionCols).AddRow(3, now, callerID, 1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			mock.ExpectQuery("ORDER BY subscription_id DESC").WithArgs(callerID).WillReturnRows(tt.rows)

			got, err := svc.IsSubscriber(context.Background(), callerKey)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSubscription_DefaultsMaxUses(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectQuery("INSERT INTO subscriptions").WithArgs(now, callerID, int64(0), int64(DefaultMaxUses)).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id"}).AddRow(4))
	mock.ExpectQuery("FROM users WHERE user_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "creation_time", "name", "email", "verification_challenge_key_hash"}).
			AddRow(callerID, now, "ALICE", "a@example.com", "h"))

	sub, err := svc.CreateSubscription(context.Background(), callerKey, models.SubscriptionKindValid, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sub.SubscriptionID)
	assert.Equal(t, int64(DefaultMaxUses), sub.MaxUses)
	require.NotNil(t, sub.Creator)
	assert.Equal(t, "ALICE", sub.Creator.Name)
	assert.Empty(t, sub.Creator.Email)
}

func TestCreateSubscription_NegativeMaxUses(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateSubscription(context.Background(), callerKey, models.SubscriptionKindValid, -1)
	assert.True(t, apierr.IsKind(err, apierr.InvalidArgument), "got %v", err)
}
