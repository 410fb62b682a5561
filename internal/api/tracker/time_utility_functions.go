package tracker

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/tracking"
)

func (h *Handlers) CreateTimeUtilityFunction(c *gin.Context) {
	create(c, h.svc.CreateTimeUtilityFunction)
}

type listTimeUtilityFunctionsRequest struct {
	repositories.TimeUtilityFunctionFilter
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListTimeUtilityFunctions(c *gin.Context) {
	var req listTimeUtilityFunctionsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	rows, err := h.svc.ListTimeUtilityFunctions(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.TimeUtilityFunctionFilter)
	apiutil.List(c, rows, err)
}

type createPointRequest struct {
	TimeUtilityFunctionID int64  `form:"timeUtilityFunctionId" json:"timeUtilityFunctionId"`
	StartTime             int64  `form:"startTime" json:"startTime"`
	Utils                 int64  `form:"utils" json:"utils"`
	Active                bool   `form:"active" json:"active"`
	APIKey                string `form:"-" json:"apiKey"`
}

func (h *Handlers) CreateTimeUtilityFunctionPoint(c *gin.Context) {
	var req createPointRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	row, err := h.svc.CreateTimeUtilityFunctionPoint(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), tracking.TimeUtilityFunctionPointInput{
		TimeUtilityFunctionID: req.TimeUtilityFunctionID,
		StartTime:             req.StartTime,
		Utils:                 req.Utils,
		Active:                req.Active,
	})
	apiutil.Result(c, row, err)
}

type listPointsRequest struct {
	repositories.TimeUtilityFunctionPointFilter
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListTimeUtilityFunctionPoints(c *gin.Context) {
	var req listPointsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	rows, err := h.svc.ListTimeUtilityFunctionPoints(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.TimeUtilityFunctionPointFilter)
	apiutil.List(c, rows, err)
}
