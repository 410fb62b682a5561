package tracker

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/tracking"
)

func (h *Handlers) CreateGoal(c *gin.Context) {
	create(c, h.svc.CreateGoal)
}

type listGoalsRequest struct {
	repositories.GoalFilter
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListGoals(c *gin.Context) {
	var req listGoalsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	rows, err := h.svc.ListGoals(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.GoalFilter)
	apiutil.List(c, rows, err)
}

type createGoalDataRequest struct {
	GoalID                int64  `form:"goalId" json:"goalId"`
	Name                  string `form:"name" json:"name"`
	Description           string `form:"description" json:"description"`
	DurationEstimate      int64  `form:"durationEstimate" json:"durationEstimate"`
	TimeUtilityFunctionID int64  `form:"timeUtilityFunctionId" json:"timeUtilityFunctionId"`
	// Status defaults to PENDING
	Status string `form:"status" json:"status"`
	APIKey string `form:"-" json:"apiKey"`
}

// CreateGoalData appends a version to a goal the caller owns.
func (h *Handlers) CreateGoalData(c *gin.Context) {
	var req createGoalDataRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	status, ok := apiutil.ParseEnum(c, req.Status, models.ParseGoalDataStatus)
	if !ok {
		return
	}
	in := tracking.GoalDataInput{
		GoalID:                req.GoalID,
		Name:                  req.Name,
		Description:           req.Description,
		DurationEstimate:      req.DurationEstimate,
		TimeUtilityFunctionID: req.TimeUtilityFunctionID,
		Status:                models.GoalStatusPending,
	}
	if status != nil {
		in.Status = *status
	}
	row, err := h.svc.CreateGoalData(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), in)
	apiutil.Result(c, row, err)
}

type listGoalDataRequest struct {
	repositories.GoalDataFilter
	StatusName string `form:"status" json:"status"`
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListGoalData(c *gin.Context) {
	var req listGoalDataRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	status, ok := apiutil.ParseEnum(c, req.StatusName, models.ParseGoalDataStatus)
	if !ok {
		return
	}
	req.GoalDataFilter.Status = status
	rows, err := h.svc.ListGoalData(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.GoalDataFilter)
	apiutil.List(c, rows, err)
}
