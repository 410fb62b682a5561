package repositories

import (
	"context"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

var tufPointSelect = []string{
	"time_utility_function_point_id", "creation_time", "creator_user_id",
	"time_utility_function_id", "start_time", "utils", "active",
}

type TimeUtilityFunctionFilter struct {
	TimeUtilityFunctionID *int64 `form:"timeUtilityFunctionId" json:"timeUtilityFunctionId"`
	CommonFilter
}

type TimeUtilityFunctionPointFilter struct {
	TimeUtilityFunctionPointID *int64 `form:"timeUtilityFunctionPointId" json:"timeUtilityFunctionPointId"`
	TimeUtilityFunctionID      *int64 `form:"timeUtilityFunctionId" json:"timeUtilityFunctionId"`
	StartTime                  *int64 `form:"startTime" json:"startTime"`
	MinStartTime               *int64 `form:"minStartTime" json:"minStartTime"`
	MaxStartTime               *int64 `form:"maxStartTime" json:"maxStartTime"`
	Utils                      *int64 `form:"utils" json:"utils"`
	Active                     *bool  `form:"active" json:"active"`
	OnlyRecent                 bool   `form:"onlyRecent" json:"onlyRecent"`
	CommonFilter
}

// TimeUtilityFunctionRepository handles utility functions and their points.
type TimeUtilityFunctionRepository struct {
	db     DBTX
	limits query.Limits
}

// NewTimeUtilityFunctionRepository creates a time utility function repository.
func NewTimeUtilityFunctionRepository(db DBTX, limits query.Limits) *TimeUtilityFunctionRepository {
	return &TimeUtilityFunctionRepository{db: db, limits: limits}
}

// Create inserts f and sets its id.
func (r *TimeUtilityFunctionRepository) Create(ctx context.Context, f *models.TimeUtilityFunction) error {
	id, err := insertIdentity(ctx, r.db, "time_utility_functions", "time_utility_function_id", f.CreationTime, f.CreatorUserID)
	if err != nil {
		return err
	}
	f.TimeUtilityFunctionID = id
	return nil
}

// Get returns the function or nil if absent.
func (r *TimeUtilityFunctionRepository) Get(ctx context.Context, id int64) (*models.TimeUtilityFunction, error) {
	var f models.TimeUtilityFunction
	ok, err := getRow(ctx, r.db, &f, "time_utility_functions", "time_utility_function_id",
		"time_utility_function_id, creation_time, creator_user_id", id)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

// List returns one page of functions matching f.
func (r *TimeUtilityFunctionRepository) List(ctx context.Context, f TimeUtilityFunctionFilter) ([]models.TimeUtilityFunction, error) {
	b := query.New("time_utility_functions", "time_utility_function_id",
		"time_utility_function_id", "creation_time", "creator_user_id").WithLimits(r.limits)
	query.Equal(b, "time_utility_function_id", f.TimeUtilityFunctionID)
	f.CommonFilter.apply(b)
	return query.Run[models.TimeUtilityFunction](ctx, r.db, b)
}

// CreatePoint appends a point and sets its id.
func (r *TimeUtilityFunctionRepository) CreatePoint(ctx context.Context, p *models.TimeUtilityFunctionPoint) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO time_utility_function_points (creation_time, creator_user_id, time_utility_function_id, start_time, utils, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING time_utility_function_point_id`,
		p.CreationTime, p.CreatorUserID, p.TimeUtilityFunctionID, p.StartTime, p.Utils, p.Active,
	).Scan(&p.TimeUtilityFunctionPointID)
	if err != nil {
		return fmt.Errorf("failed to create time utility function point: %w", mapErr(err))
	}
	return nil
}

// ListPoints returns one page of points matching f.
func (r *TimeUtilityFunctionRepository) ListPoints(ctx context.Context, f TimeUtilityFunctionPointFilter) ([]models.TimeUtilityFunctionPoint, error) {
	b := query.New("time_utility_function_points", "time_utility_function_point_id", tufPointSelect...).WithLimits(r.limits)
	query.Equal(b, "time_utility_function_point_id", f.TimeUtilityFunctionPointID)
	query.Equal(b, "time_utility_function_id", f.TimeUtilityFunctionID)
	query.Equal(b, "start_time", f.StartTime)
	query.Between(b, "start_time", f.MinStartTime, f.MaxStartTime)
	query.Equal(b, "utils", f.Utils)
	query.Equal(b, "active", f.Active)
	b.OnlyRecent("time_utility_function_id", f.OnlyRecent)
	f.CommonFilter.apply(b)
	return query.Run[models.TimeUtilityFunctionPoint](ctx, r.db, b)
}
