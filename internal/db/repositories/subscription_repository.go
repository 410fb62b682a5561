package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

var subscriptionSelect = []string{"subscription_id", "creation_time", "creator_user_id", "subscription_kind", "max_uses"}

type SubscriptionFilter struct {
	SubscriptionID *int64                   `form:"subscriptionId" json:"subscriptionId"`
	Kind           *models.SubscriptionKind `form:"-" json:"-"`
	MaxUses        *int64                   `form:"maxUses" json:"maxUses"`
	OnlyRecent     bool                     `form:"onlyRecent" json:"onlyRecent"`
	CommonFilter
}

// SubscriptionRepository handles the subscription event log.
type SubscriptionRepository struct {
	db     DBTX
	limits query.Limits
}

// NewSubscriptionRepository creates a subscription repository.
func NewSubscriptionRepository(db DBTX, limits query.Limits) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, limits: limits}
}

// Create appends a subscription row and sets its id.
func (r *SubscriptionRepository) Create(ctx context.Context, s *models.Subscription) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO subscriptions (creation_time, creator_user_id, subscription_kind, max_uses)
		VALUES ($1, $2, $3, $4)
		RETURNING subscription_id`,
		s.CreationTime, s.CreatorUserID, int16(s.Kind), s.MaxUses,
	).Scan(&s.SubscriptionID)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", mapErr(err))
	}
	return nil
}

// Latest returns the newest subscription row created by userID, or nil.
func (r *SubscriptionRepository) Latest(ctx context.Context, userID int64) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT subscription_id, creation_time, creator_user_id, subscription_kind, max_uses
		FROM subscriptions
		WHERE creator_user_id = $1
		ORDER BY subscription_id DESC
		LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &s, nil
}

// List returns one page of subscription rows matching f.
func (r *SubscriptionRepository) List(ctx context.Context, f SubscriptionFilter) ([]models.Subscription, error) {
	b := query.New("subscriptions", "subscription_id", subscriptionSelect...).WithLimits(r.limits)
	query.Equal(b, "subscription_id", f.SubscriptionID)
	if f.Kind != nil {
		b.Where("subscription_kind", query.Eq, int16(*f.Kind))
	}
	query.Equal(b, "max_uses", f.MaxUses)
	b.OnlyRecent("creator_user_id", f.OnlyRecent)
	f.CommonFilter.apply(b)
	return query.Run[models.Subscription](ctx, r.db, b)
}
