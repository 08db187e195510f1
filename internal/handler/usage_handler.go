package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/common"
	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/service"
	"github.com/msgpilot/backend/pkg/i18n"
)

// UsageHandler records message consumption reported by the messaging workers
type UsageHandler struct {
	subscriptions *service.SubscriptionService
	msgs          *i18n.Bundle
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(subscriptions *service.SubscriptionService, msgs *i18n.Bundle) *UsageHandler {
	return &UsageHandler{subscriptions: subscriptions, msgs: msgs}
}

// ConsumeMessages handles POST /internal/v1/usage/messages
func (h *UsageHandler) ConsumeMessages(c *gin.Context) {
	var req domain.UsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.msgs, err)
		return
	}

	usage, err := h.subscriptions.ConsumeMessages(c.Request.Context(), req.UserID, req.Messages)
	if err != nil {
		writeError(c, h.msgs, err)
		return
	}
	common.SuccessResponse(c, usage, nil)
}
