package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/common"
	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/plans"
	"github.com/msgpilot/backend/internal/service"
	"github.com/msgpilot/backend/pkg/i18n"
)

// BillingHandler serves the dashboard billing endpoints
type BillingHandler struct {
	checkout      *service.CheckoutService
	subscriptions *service.SubscriptionService
	msgs          *i18n.Bundle
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(checkout *service.CheckoutService, subscriptions *service.SubscriptionService, msgs *i18n.Bundle) *BillingHandler {
	return &BillingHandler{checkout: checkout, subscriptions: subscriptions, msgs: msgs}
}

// CatalogResponse lists purchasable plans and message packs
type CatalogResponse struct {
	Plans []plans.Plan `json:"plans"`
	Packs []plans.Pack `json:"packs"`
}

// ActionResponse is returned by cancel, resume and terminate
type ActionResponse struct {
	Message      string                       `json:"message"`
	Subscription *domain.SubscriptionResponse `json:"subscription"`
}

// ListPlans handles GET /plans
// @Summary Plan and message pack catalog
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=CatalogResponse}
// @Router /plans [get]
func (h *BillingHandler) ListPlans(c *gin.Context) {
	common.SuccessResponse(c, CatalogResponse{
		Plans: plans.All(),
		Packs: plans.AllPacks(),
	}, nil)
}

// CreateCheckout handles POST /checkout
// @Summary Build a hosted checkout URL
// @Tags billing
// @Accept json
// @Produce json
// @Param request body domain.CheckoutRequest true "plan or pack"
// @Success 200 {object} common.APIResponse{data=domain.CheckoutResponse}
// @Failure 422 {object} common.APIResponse
// @Security BearerAuth
// @Router /checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.msgs, err)
		return
	}
	if req.Email == "" {
		req.Email = middleware.GetEmail(c)
	}

	url, err := h.checkout.CreateCheckoutURL(middleware.GetUserID(c), string(middleware.GetLocale(c)), req)
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, domain.CheckoutResponse{CheckoutURL: url}, nil)
}

// GetSubscription handles GET /subscription
// @Summary Current plan, quota and feature gates
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=domain.SubscriptionResponse}
// @Failure 404 {object} common.APIResponse
// @Security BearerAuth
// @Router /subscription [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	view, err := h.subscriptions.GetView(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, view, nil)
}

// StartTrial handles POST /subscription/trial
// @Summary Start the signup trial
// @Tags billing
// @Produce json
// @Success 201 {object} common.APIResponse{data=domain.SubscriptionResponse}
// @Success 200 {object} common.APIResponse{data=domain.SubscriptionResponse}
// @Security BearerAuth
// @Router /subscription/trial [post]
func (h *BillingHandler) StartTrial(c *gin.Context) {
	sub, created, err := h.subscriptions.StartTrial(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}

	view := service.BuildView(sub, time.Now().UTC())
	if created {
		common.CreatedResponse(c, view)
		return
	}
	c.JSON(http.StatusOK, common.APIResponse{
		Data: view,
		Error: &common.ErrorInfo{
			Code:    "ALREADY_EXISTS",
			Message: h.msgs.T(middleware.GetLocale(c), "billing.trial_already_started"),
		},
	})
}

// CancelSubscription handles POST /subscription/cancel
// @Summary Cancel at the end of the paid period
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=ActionResponse}
// @Failure 502 {object} common.APIResponse
// @Security BearerAuth
// @Router /subscription/cancel [post]
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	sub, err := h.subscriptions.Cancel(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	locale := middleware.GetLocale(c)
	common.SuccessResponse(c, ActionResponse{
		Message:      h.msgs.T(locale, "billing.cancel_success", sub.ExpiresAt.Format("2006-01-02")),
		Subscription: service.BuildView(sub, time.Now().UTC()),
	}, nil)
}

// ResumeSubscription handles POST /subscription/resume
// @Summary Resume a cancelled subscription
// @Tags billing
// @Produce json
// @Success 200 {object} common.APIResponse{data=ActionResponse}
// @Failure 502 {object} common.APIResponse
// @Security BearerAuth
// @Router /subscription/resume [post]
func (h *BillingHandler) ResumeSubscription(c *gin.Context) {
	sub, err := h.subscriptions.Resume(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, ActionResponse{
		Message:      h.msgs.T(middleware.GetLocale(c), "billing.resume_success"),
		Subscription: service.BuildView(sub, time.Now().UTC()),
	}, nil)
}
