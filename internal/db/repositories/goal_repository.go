package repositories

import (
	"context"
	"fmt"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/query"
)

var goalDataSelect = []string{
	"goal_data_id", "creation_time", "creator_user_id", "goal_id", "name", "description",
	"duration_estimate", "time_utility_function_id", "status",
}

// GoalFilter selects goals for ListGoals.
type GoalFilter struct {
	GoalID *int64 `form:"goalId" json:"goalId"`
	CommonFilter
}

// GoalDataFilter selects goal versions for ListData.
type GoalDataFilter struct {
	GoalDataID            *int64                 `form:"goalDataId" json:"goalDataId"`
	GoalID                *int64                 `form:"goalId" json:"goalId"`
	Name                  *string                `form:"name" json:"name"`
	PartialName           *string                `form:"partialName" json:"partialName"`
	Description           *string                `form:"description" json:"description"`
	PartialDescription    *string                `form:"partialDescription" json:"partialDescription"`
	DurationEstimate      *int64                 `form:"durationEstimate" json:"durationEstimate"`
	MinDurationEstimate   *int64                 `form:"minDurationEstimate" json:"minDurationEstimate"`
	MaxDurationEstimate   *int64                 `form:"maxDurationEstimate" json:"maxDurationEstimate"`
	TimeUtilityFunctionID *int64                 `form:"timeUtilityFunctionId" json:"timeUtilityFunctionId"`
	Status                *models.GoalDataStatus `form:"-" json:"-"`
	OnlyRecent            bool                   `form:"onlyRecent" json:"onlyRecent"`
	CommonFilter
}

// GoalRepository handles goals and their versions.
type GoalRepository struct {
	db     DBTX
	limits query.Limits
}

// NewGoalRepository creates a goal repository.
func NewGoalRepository(db DBTX, limits query.Limits) *GoalRepository {
	return &GoalRepository{db: db, limits: limits}
}

// Create inserts g and sets its GoalID.
func (r *GoalRepository) Create(ctx context.Context, g *models.Goal) error {
	id, err := insertIdentity(ctx, r.db, "goals", "goal_id", g.CreationTime, g.CreatorUserID)
	if err != nil {
		return err
	}
	g.GoalID = id
	return nil
}

// Get returns the goal or nil if absent.
func (r *GoalRepository) Get(ctx context.Context, goalID int64) (*models.Goal, error) {
	var g models.Goal
	ok, err := getRow(ctx, r.db, &g, "goals", "goal_id", "goal_id, creation_time, creator_user_id", goalID)
	if err != nil || !ok {
		return nil, err
	}
	return &g, nil
}

// List returns one page of goals matching f.
func (r *GoalRepository) List(ctx context.Context, f GoalFilter) ([]models.Goal, error) {
	b := query.New("goals", "goal_id", "goal_id", "creation_time", "creator_user_id").WithLimits(r.limits)
	query.Equal(b, "goal_id", f.GoalID)
	f.CommonFilter.apply(b)
	return query.Run[models.Goal](ctx, r.db, b)
}

// CreateData appends a goal version and sets its GoalDataID.
func (r *GoalRepository) CreateData(ctx context.Context, d *models.GoalData) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO goal_data (creation_time, creator_user_id, goal_id, name, description, duration_estimate, time_utility_function_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING goal_data_id`,
		d.CreationTime, d.CreatorUserID, d.GoalID, d.Name, d.Description,
		d.DurationEstimate, d.TimeUtilityFunctionID, int16(d.Status),
	).Scan(&d.GoalDataID)
	if err != nil {
		return fmt.Errorf("failed to create goal data: %w", mapErr(err))
	}
	return nil
}

// ListData returns one page of goal data rows matching f. With OnlyRecent
// only the newest version of each goal is considered.
func (r *GoalRepository) ListData(ctx context.Context, f GoalDataFilter) ([]models.GoalData, error) {
	b := query.New("goal_data", "goal_data_id", goalDataSelect...).WithLimits(r.limits)
	query.Equal(b, "goal_data_id", f.GoalDataID)
	query.Equal(b, "goal_id", f.GoalID)
	query.Equal(b, "name", f.Name)
	query.Partial(b, "name", f.PartialName)
	query.Equal(b, "description", f.Description)
	query.Partial(b, "description", f.PartialDescription)
	query.Equal(b, "duration_estimate", f.DurationEstimate)
	query.Between(b, "duration_estimate", f.MinDurationEstimate, f.MaxDurationEstimate)
	query.Equal(b, "time_utility_function_id", f.TimeUtilityFunctionID)
	if f.Status != nil {
		b.Where("status", query.Eq, int16(*f.Status))
	}
	b.OnlyRecent("goal_id", f.OnlyRecent)
	f.CommonFilter.apply(b)
	return query.Run[models.GoalData](ctx, r.db, b)
}
