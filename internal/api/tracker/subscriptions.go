package tracker

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goaltracker/goaltracker/internal/api/apiutil"
	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
)

type createSubscriptionRequest struct {
	// SubscriptionKind defaults to VALID
	SubscriptionKind string `form:"subscriptionKind" json:"subscriptionKind"`
	MaxUses          int64  `form:"maxUses" json:"maxUses"`
	APIKey           string `form:"-" json:"apiKey"`
}

func (h *Handlers) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	kind, ok := apiutil.ParseEnum(c, req.SubscriptionKind, models.ParseSubscriptionKind)
	if !ok {
		return
	}
	k := models.SubscriptionKindValid
	if kind != nil {
		k = *kind
	}
	row, err := h.svc.CreateSubscription(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), k, req.MaxUses)
	apiutil.Result(c, row, err)
}

type listSubscriptionsRequest struct {
	repositories.SubscriptionFilter
	KindName string `form:"subscriptionKind" json:"subscriptionKind"`
	APIKey   string `form:"-" json:"apiKey"`
}

func (h *Handlers) ListSubscriptions(c *gin.Context) {
	var req listSubscriptionsRequest
	if !apiutil.Bind(c, &req) {
		return
	}
	kind, ok := apiutil.ParseEnum(c, req.KindName, models.ParseSubscriptionKind)
	if !ok {
		return
	}
	req.SubscriptionFilter.Kind = kind
	rows, err := h.svc.ListSubscriptions(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey), req.SubscriptionFilter)
	apiutil.List(c, rows, err)
}

// IsSubscriber reports whether the caller's newest subscription is active.
// GET /api/subscription/active
func (h *Handlers) IsSubscriber(c *gin.Context) {
	var req keyOnly
	if !apiutil.Bind(c, &req) {
		return
	}
	active, err := h.svc.IsSubscriber(c.Request.Context(), apiutil.PresentedKey(c, req.APIKey))
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": active})
}
