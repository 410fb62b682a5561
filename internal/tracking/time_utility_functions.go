package tracking

import (
	"context"

	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

// TimeUtilityFunctionPointInput holds the client-supplied fields of a point.
type TimeUtilityFunctionPointInput struct {
	TimeUtilityFunctionID int64
	StartTime             int64
	Utils                 int64
	Active                bool
}

// CreateTimeUtilityFunction creates an empty function owned by the key holder.
func (s *Service) CreateTimeUtilityFunction(ctx context.Context, rawKey string) (*models.TimeUtilityFunction, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	fn := &models.TimeUtilityFunction{CreationTime: s.now(), CreatorUserID: userID}
	if err := s.store.TimeUtilityFunctions.Create(ctx, fn); err != nil {
		return nil, storeErr(err, "failed to create time utility function")
	}
	return fn, nil
}

// ListTimeUtilityFunctions returns the functions matching f.
func (s *Service) ListTimeUtilityFunctions(ctx context.Context, rawKey string, f repositories.TimeUtilityFunctionFilter) ([]models.TimeUtilityFunction, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.TimeUtilityFunctions.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list time utility functions")
	}
	return rows, nil
}

// CreateTimeUtilityFunctionPoint appends a point to a function owned by the
// caller.
func (s *Service) CreateTimeUtilityFunctionPoint(ctx context.Context, rawKey string, in TimeUtilityFunctionPointInput) (*models.TimeUtilityFunctionPoint, error) {
	userID, err := s.caller(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	fn, err := s.store.TimeUtilityFunctions.Get(ctx, in.TimeUtilityFunctionID)
	if err != nil {
		return nil, storeErr(err, "failed to get time utility function")
	}
	var owner int64
	if fn != nil {
		owner = fn.CreatorUserID
	}
	if err := checkParent(fn != nil, owner, userID, "time utility function"); err != nil {
		return nil, err
	}

	p := &models.TimeUtilityFunctionPoint{
		CreationTime:          s.now(),
		CreatorUserID:         userID,
		TimeUtilityFunctionID: in.TimeUtilityFunctionID,
		StartTime:             in.StartTime,
		Utils:                 in.Utils,
		Active:                in.Active,
	}
	if err := s.store.TimeUtilityFunctions.CreatePoint(ctx, p); err != nil {
		return nil, storeErr(err, "failed to create time utility function point")
	}
	return p, nil
}

// ListTimeUtilityFunctionPoints returns the points matching f.
func (s *Service) ListTimeUtilityFunctionPoints(ctx context.Context, rawKey string, f repositories.TimeUtilityFunctionPointFilter) ([]models.TimeUtilityFunctionPoint, error) {
	if _, err := s.caller(ctx, rawKey); err != nil {
		return nil, err
	}
	rows, err := s.store.TimeUtilityFunctions.ListPoints(ctx, f)
	if err != nil {
		return nil, storeErr(err, "failed to list time utility function points")
	}
	return rows, nil
}
