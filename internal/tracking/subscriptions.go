package tracking

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// DefaultMaxUses is recorded when a subscription is created without maxUses.
const DefaultMaxUses = 1

// CreateSubscription appends a subscription event for the caller. A maxUses
// of 0 records DefaultMaxUses.
func (s *Service) CreateSubscription(ctx context.Context, rawKey string, kind models.SubscriptionKind, maxUses int64) (*models.Subscription, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if maxUses < 0 {
		return nil, apierr.New(apierr.InvalidArgument, "maxUses must not be negative")
	}
	if maxUses == 0 {
		maxUses = DefaultMaxUses
	}

	sub := &models.Subscription{
		CreationTime:  s.now(),
		CreatorUserID: userID,
		Kind:          kind,
		MaxUses:       maxUses,
	}
	if err := s.store.Subscriptions.Create(ctx, sub); err != nil {
		return nil, storeErr(err, "failed to create subscription")
	}
	if err := s.embedCreators(ctx, []*models.Subscription{sub}); err != nil {
		return nil, err
	}
	return sub, nil
}

// ListSubscriptions returns the subscription rows matching f.
func (s *Service) ListSubscriptions(ctx context.Context, rawKey string, f repositories.SubscriptionFilter) ([]models.Subscription, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.Subscriptions.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list subscriptions")
	}
	ptrs := make([]*models.Subscription, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	if err := s.embedCreators(ctx, ptrs); err != nil {
		return nil, err
	}
	return rows, nil
}

// IsSubscriber reports whether the caller's newest subscription event exists
// and is not CANCEL.
func (s *Service) IsSubscriber(ctx context.Context, rawKey string) (bool, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return false, err
	}
	sub, err := s.store.Subscriptions.Latest(ctx, userID)
	if err != nil {
		return false, storeErr(err, "failed to get subscription")
	}
	return sub != nil && sub.Kind != models.SubscriptionKindCancel, nil
}

func (s *Service) embedCreators(ctx context.Context, subs []*models.Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.CreatorUserID)
	}
	users, err := s.store.Users.GetByIDs(ctx, ids)
	if err != nil {
		return storeErr(err, "failed to load creators")
	}
	for _, sub := range subs {
		sub.Creator = users[sub.CreatorUserID].Public()
	}
	return nil
}
