package tracking

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// GoalDataInput holds the client-supplied fields of a goal version.
type GoalDataInput struct {
	GoalID                int64
	Name                  string
	Description           string
	DurationEstimate      int64
	TimeUtilityFunctionID int64
	Status                models.GoalDataStatus
}

// CreateGoal creates an empty goal owned by the key holder.
func (s *Service) CreateGoal(ctx context.Context, rawKey string) (*models.Goal, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	g := &models.Goal{CreationTime: s.now(), CreatorUserID: userID}
	if err := s.store.Goals.Create(ctx, g); err != nil {
		return nil, storeErr(err, "failed to create goal")
	}
	return g, nil
}

// ListGoals returns the goals matching f.
func (s *Service) ListGoals(ctx context.Context, rawKey string, f repositories.GoalFilter) ([]models.Goal, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.Goals.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list goals")
	}
	return rows, nil
}

// CreateGoalData appends a version of a goal owned by the caller. The
// referenced time utility function must also be the caller's.
func (s *Service) CreateGoalData(ctx context.Context, rawKey string, in GoalDataInput) (*models.GoalData, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	goal, err := s.store.Goals.Get(ctx, in.GoalID)
	if err != nil {
		return nil, storeErr(err, "failed to get goal")
	}
	var goalOwner int64
	if goal != nil {
		goalOwner = goal.CreatorUserID
	}
	if err := checkParent(goal != nil, goalOwner, userID, "goal"); err != nil {
		return nil, err
	}

	fn, err := s.store.TimeUtilityFunctions.Get(ctx, in.TimeUtilityFunctionID)
	if err != nil {
		return nil, storeErr(err, "failed to get time utility function")
	}
	var fnOwner int64
	if fn != nil {
		fnOwner = fn.CreatorUserID
	}
	if err := checkParent(fn != nil, fnOwner, userID, "time utility function"); err != nil {
		return nil, err
	}

	d := &models.GoalData{
		CreationTime:          s.now(),
		CreatorUserID:         userID,
		GoalID:                in.GoalID,
		Name:                  in.Name,
		Description:           in.Description,
		DurationEstimate:      in.DurationEstimate,
		TimeUtilityFunctionID: in.TimeUtilityFunctionID,
		Status:                in.Status,
	}
	if err := s.store.Goals.CreateData(ctx, d); err != nil {
		return nil, storeErr(err, "failed to create goal data")
	}
	return d, nil
}

// ListGoalData returns goal data versions matching f.
func (s *Service) ListGoalData(ctx context.Context, rawKey string, f repositories.GoalDataFilter) ([]models.GoalData, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.Goals.ListData(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list goal data")
	}
	return rows, nil
}
