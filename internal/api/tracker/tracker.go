// Package tracker implements the HTTP handlers for goals, past events, time
// utility functions and subscriptions. Each entity has a create route and a
// filtered list route; the tracking service owns ownership and existence checks.
package tracker

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/tracking"
)

// TrackingService is implemented by *tracking.Service.
type TrackingService interface {
	CreateGoal(ctx context.Context, rawKey string) (*models.Goal, error)
	ListGoals(ctx context.Context, rawKey string, f repositories.GoalFilter) ([]models.Goal, error)
	CreateGoalData(ctx context.Context, rawKey string, in tracking.GoalDataInput) (*models.GoalData, error)
	ListGoalData(ctx context.Context, rawKey string, f repositories.GoalDataFilter) ([]models.GoalData, error)

	CreatePastEvent(ctx context.Context, rawKey string) (*models.PastEvent, error)
	ListPastEvents(ctx context.Context, rawKey string, f repositories.PastEventFilter) ([]models.PastEvent, error)
	CreatePastEventData(ctx context.Context, rawKey string, in tracking.PastEventDataInput) (*models.PastEventData, error)
	ListPastEventData(ctx context.Context, rawKey string, f repositories.PastEventDataFilter) ([]models.PastEventData, error)

	CreateTimeUtilityFunction(ctx context.Context, rawKey string) (*models.TimeUtilityFunction, error)
	ListTimeUtilityFunctions(ctx context.Context, rawKey string, f repositories.TimeUtilityFunctionFilter) ([]models.TimeUtilityFunction, error)
	CreateTimeUtilityFunctionPoint(ctx context.Context, rawKey string, in tracking.TimeUtilityFunctionPointInput) (*models.TimeUtilityFunctionPoint, error)
	ListTimeUtilityFunctionPoints(ctx context.Context, rawKey string, f repositories.TimeUtilityFunctionPointFilter) ([]models.TimeUtilityFunctionPoint, error)

	CreateSubscription(ctx context.Context, rawKey string, kind models.SubscriptionKind, maxUses int64) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, rawKey string, f repositories.SubscriptionFilter) ([]models.Subscription, error)
	IsSubscriber(ctx context.Context, rawKey string) (bool, error)
}

// Handlers serves the /api tracking routes.
type Handlers struct {
	svc TrackingService
}

func NewHandlers(svc TrackingService) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts every tracking route on g.
func (h *Handlers) Register(g *gin.RouterGroup) {
	g.POST("/goal/new", h.CreateGoal)
	g.GET("/goal/", h.ListGoals)
	g.POST("/goalData/new", h.CreateGoalData)
	g.GET("/goalData/", h.ListGoalData)

	g.POST("/pastEvent/new", h.CreatePastEvent)
	g.GET("/pastEvent/", h.ListPastEvents)
	g.POST("/pastEventData/new", h.CreatePastEventData)
	g.GET("/pastEventData/", h.ListPastEventData)

	g.POST("/timeUtilityFunction/new", h.CreateTimeUtilityFunction)
	g.GET("/timeUtilityFunction/", h.ListTimeUtilityFunctions)
	g.POST("/timeUtilityFunctionPoint/new", h.CreateTimeUtilityFunctionPoint)
	g.GET("/timeUtilityFunctionPoint/", h.ListTimeUtilityFunctionPoints)

	g.POST("/subscription/new", h.CreateSubscription)
	g.GET("/subscription/", h.ListSubscriptions)
	g.GET("/subscription/active", h.IsSubscriber)
}

// keyOnly binds requests that carry nothing but the presenting key.
type keyOnly struct {
	APIKey string `form:"-" json:"apiKey"`
}

// create runs an identity-row constructor that takes only the caller's key.
func create[T any](c *gin.Context, fn func(context.Context, string) (*T, error)) {
	var req keyOnly
	if !apiutil.Bind(c, &req) {
		return
	}
	row, err := fn(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey))
	apiutil.Result(c, row, err)
}
