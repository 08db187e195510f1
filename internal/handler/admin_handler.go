package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/common"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/internal/service"
	"github.com/msgpilot/backend/pkg/i18n"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
)

// AdminHandler serves operator review and intervention endpoints
type AdminHandler struct {
	billing       *service.BillingService
	subscriptions *service.SubscriptionService
	audit         *middleware.AuditLogger
	msgs          *i18n.Bundle
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(billing *service.BillingService, subscriptions *service.SubscriptionService, audit *middleware.AuditLogger, msgs *i18n.Bundle) *AdminHandler {
	return &AdminHandler{billing: billing, subscriptions: subscriptions, audit: audit, msgs: msgs}
}

// ListBillingEvents handles GET /admin/billing/events
// @Summary Recorded IPN deliveries for operator review
// @Tags admin
// @Produce json
// @Param flagged query bool false "only flagged events"
// @Param user_id query string false "filter by user"
// @Param order_id query string false "filter by order"
// @Param limit query int false "page size (max 200)"
// @Param offset query int false "offset"
// @Success 200 {object} common.APIResponse{data=[]domain.BillingEvent}
// @Security BearerAuth
// @Router /admin/billing/events [get]
func (h *AdminHandler) ListBillingEvents(c *gin.Context) {
	filter := repository.BillingEventFilter{
		UserID:  c.Query("user_id"),
		OrderID: c.Query("order_id"),
	}
	if raw := c.Query("flagged"); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, h.msgs, err)
			return
		}
		filter.Flagged = &flagged
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit", 50); err != nil || filter.Limit < 1 || filter.Limit > 200 {
		badRequest(c, h.msgs, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil || filter.Offset < 0 {
		badRequest(c, h.msgs, err)
		return
	}

	events, total, err := h.billing.ListEvents(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, events, &common.Meta{
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Total:  total,
	})
}

// TerminateSubscription handles POST /admin/subscriptions/:user_id/terminate
// @Summary Terminate a subscription immediately
// @Tags admin
// @Produce json
// @Param user_id path string true "subscriber"
// @Success 200 {object} common.APIResponse{data=ActionResponse}
// @Failure 502 {object} common.APIResponse
// @Security BearerAuth
// @Router /admin/subscriptions/{user_id}/terminate [post]
func (h *AdminHandler) TerminateSubscription(c *gin.Context) {
	userID := c.Param("user_id")
	sub, err := h.subscriptions.Terminate(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}

	pkglogger.GetLogger().Info().
		Str("user_id", userID).
		Str("operator_id", middleware.GetUserID(c)).
		Msg("subscription terminated by operator")
	common.SuccessResponse(c, ActionResponse{
		Message:      h.msgs.T(middleware.GetLocale(c), "billing.terminate_success"),
		Subscription: service.BuildView(sub, time.Now().UTC()),
	}, nil)
}

// ListAuditLogs handles GET /admin/audit-logs
// @Summary Subscription actions performed by users and operators
// @Tags admin
// @Produce json
// @Param user_id query string false "subscription owner"
// @Param action query string false "cancel, resume, terminate or trial"
// @Success 200 {object} common.APIResponse{data=[]middleware.AuditLog}
// @Security BearerAuth
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil || limit < 1 || limit > 200 {
		badRequest(c, h.msgs, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		badRequest(c, h.msgs, err)
		return
	}

	logs, total, err := h.audit.ListAuditLogs(c.Request.Context(), c.Query("user_id"), c.Query("action"), limit, offset)
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, logs, &common.Meta{Limit: limit, Offset: offset, Total: total})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
