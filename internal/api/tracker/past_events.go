package tracker

import (
	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/tracking"
)

func (h *Handlers) CreatePastEvent(c *gin.Context) {
	create(c, h.svc.CreatePastEvent)
}

type listPastEventsRequest struct {
	repositories.PastEventFilter
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListPastEvents(c *gin.Context) {
	var req listPastEventsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	rows, err := h.svc.ListPastEvents(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.PastEventFilter)
	apiutil.List(c, rows, err)
}

type createPastEventDataRequest struct {
	PastEventID int64  `form:"pastEventId" json:"pastEventId"`
	Name        string `form:"name" json:"name"`
	Description string `form:"description" json:"description"`
	StartTime   int64  `form:"startTime" json:"startTime"`
	Duration    int64  `form:"duration" json:"duration"`
	Active      bool   `form:"active" json:"active"`
	APIKey      string `form:"-" json:"apiKey"`
}

func (h *Handlers) CreatePastEventData(c *gin.Context) {
	var req createPastEventDataRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	row, err := h.svc.CreatePastEventData(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), tracking.PastEventDataInput{
		PastEventID: req.PastEventID,
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		Duration:    req.Duration,
		Active:      req.Active,
	})
	apiutil.Result(c, row, err)
}

type listPastEventDataRequest struct {
	repositories.PastEventDataFilter
	APIKey string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListPastEventData(c *gin.Context) {
	var req listPastEventDataRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	rows, err := h.svc.ListPastEventData(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.PastEventDataFilter)
	apiutil.List(c, rows, err)
}
