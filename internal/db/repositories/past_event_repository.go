package repositories

import (
	"context"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

var pastEventDataSelect = []string{
	"past_event_data_id", "creation_time", "creator_user_id", "past_event_id", "name", "description",
	"start_time", "duration", "active",
}

type PastEventFilter struct {
	PastEventID *int64 `form:"pastEventId" json:"pastEventId"`
	CommonFilter
}

type PastEventDataFilter struct {
	PastEventDataID    *int64  `form:"pastEventDataId" json:"pastEventDataId"`
	PastEventID        *int64  `form:"pastEventId" json:"pastEventId"`
	Name               *string `form:"name" json:"name"`
	PartialName        *string `form:"partialName" json:"partialName"`
	Description        *string `form:"description" json:"description"`
	PartialDescription *string `form:"partialDescription" json:"partialDescription"`
	StartTime          *int64  `form:"startTime" json:"startTime"`
	MinStartTime       *int64  `form:"minStartTime" json:"minStartTime"`
	MaxStartTime       *int64  `form:"maxStartTime" json:"maxStartTime"`
	Duration           *int64  `form:"duration" json:"duration"`
	MinDuration        *int64  `form:"minDuration" json:"minDuration"`
	MaxDuration        *int64  `form:"maxDuration" json:"maxDuration"`
	Active             *bool   `form:"active" json:"active"`
	OnlyRecent         bool    `form:"onlyRecent" json:"onlyRecent"`
	CommonFilter
}

// PastEventRepository handles past events and their versions.
type PastEventRepository struct {
	db     DBTX
	limits query.Limits
}

// NewPastEventRepository creates a past event repository.
func NewPastEventRepository(db DBTX, limits query.Limits) *PastEventRepository {
	return &PastEventRepository{db: db, limits: limits}
}

// Create inserts e and sets its id.
func (r *PastEventRepository) Create(ctx context.Context, e *models.PastEvent) error {
	id, err := insertIdentity(ctx, r.db, "past_events", "past_event_id", e.CreationTime, e.CreatorUserID)
	if err != nil {
		return err
	}
	e.PastEventID = id
	return nil
}

// Get returns the past event or nil if absent.
func (r *PastEventRepository) Get(ctx context.Context, pastEventID int64) (*models.PastEvent, error) {
	var e models.PastEvent
	ok, err := getRow(ctx, r.db, &e, "past_events", "past_event_id", "past_event_id, creation_time, creator_user_id", pastEventID)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

// List returns one page of past events matching f.
func (r *PastEventRepository) List(ctx context.Context, f PastEventFilter) ([]models.PastEvent, error) {
	b := query.New("past_events", "past_event_id", "past_event_id", "creation_time", "creator_user_id").WithLimits(r.limits)
	query.Equal(b, "past_event_id", f.PastEventID)
	f.CommonFilter.apply(b)
	return query.Run[models.PastEvent](ctx, r.db, b)
}

// CreateData appends a version of a past event and sets its id.
func (r *PastEventRepository) CreateData(ctx context.Context, d *models.PastEventData) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO past_event_data (creation_time, creator_user_id, past_event_id, name, description, start_time, duration, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING past_event_data_id`,
		d.CreationTime, d.CreatorUserID, d.PastEventID, d.Name, d.Description,
		d.StartTime, d.Duration, d.Active,
	).Scan(&d.PastEventDataID)
	if err != nil {
		return fmt.Errorf("failed to create past event data: %w", mapErr(err))
	}
	return nil
}

// ListData returns one page of past event data rows matching f.
func (r *PastEventRepository) ListData(ctx context.Context, f PastEventDataFilter) ([]models.PastEventData, error) {
	b := query.New("past_event_data", "past_event_data_id", pastEventDataSelect...).WithLimits(r.limits)
	query.Equal(b, "past_event_data_id", f.PastEventDataID)
	query.Equal(b, "past_event_id", f.PastEventID)
	query.Equal(b, "name", f.Name)
	query.Partial(b, "name", f.PartialName)
	query.Equal(b, "description", f.Description)
	query.Partial(b, "description", f.PartialDescription)
	query.Equal(b, "start_time", f.StartTime)
	query.Between(b, "start_time", f.MinStartTime, f.MaxStartTime)
	query.Equal(b, "duration", f.Duration)
	query.Between(b, "duration", f.MinDuration, f.MaxDuration)
	query.Equal(b, "active", f.Active)
	b.OnlyRecent("past_event_id", f.OnlyRecent)
	f.CommonFilter.apply(b)
	return query.Run[models.PastEventData](ctx, r.db, b)
}
