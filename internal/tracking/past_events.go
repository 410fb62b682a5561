package tracking

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// PastEventDataInput holds the client-supplied fields of a past event version.
type PastEventDataInput struct {
	PastEventID int64
	Name        string
	Description string
	StartTime   int64
	Duration    int64
	Active      bool
}

// CreatePastEvent creates an empty past event owned by the key holder.
func (s *Service) CreatePastEvent(ctx context.Context, rawKey string) (*models.PastEvent, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	e := &models.PastEvent{CreationTime: s.now(), CreatorUserID: userID}
	if err := s.store.PastEvents.Create(ctx, e); err != nil {
		return nil, storeErr(err, "failed to create past event")
	}
	return e, nil
}

// ListPastEvents returns the past events matching f.
func (s *Service) ListPastEvents(ctx context.Context, rawKey string, f repositories.PastEventFilter) ([]models.PastEvent, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.PastEvents.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list past events")
	}
	return rows, nil
}

// CreatePastEventData appends a version of a past event owned by the caller.
func (s *Service) CreatePastEventData(ctx context.Context, rawKey string, in PastEventDataInput) (*models.PastEventData, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	event, err := s.store.PastEvents.Get(ctx, in.PastEventID)
	if err != nil {
		return nil, storeErr(err, "failed to get past event")
	}
	var owner int64
	if event != nil {
		owner = event.CreatorUserID
	}
	if err := checkParent(event != nil, owner, userID, "past event"); err != nil {
		return nil, err
	}

	d := &models.PastEventData{
		CreationTime:  s.now(),
		CreatorUserID: userID,
		PastEventID:   in.PastEventID,
		Name:          in.Name,
		Description:   in.Description,
		StartTime:     in.StartTime,
		Duration:      in.Duration,
		Active:        in.Active,
	}
	if err := s.store.PastEvents.CreateData(ctx, d); err != nil {
		return nil, storeErr(err, "failed to create past event data")
	}
	return d, nil
}

// ListPastEventData returns past event data versions matching f.
func (s *Service) ListPastEventData(ctx context.Context, rawKey string, f repositories.PastEventDataFilter) ([]models.PastEventData, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.PastEvents.ListData(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list past event data")
	}
	return rows, nil
}
