package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/service"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
)

// maxIPNBody bounds a single IPN form body
const maxIPNBody = 64 << 10

// WebhookHandler receives payment processor notifications
type WebhookHandler struct {
	billing *service.BillingService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(billing *service.BillingService) *WebhookHandler {
	return &WebhookHandler{billing: billing}
}

// PayProIPN handles POST /webhooks/paypro
//
// Every delivery whose form parses is acknowledged with 200, including
// rejected and duplicate ones; the outcome is recorded, not retried. 503
// and 500 ask the processor to retry.
func (h *WebhookHandler) PayProIPN(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIPNBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	result, err := h.billing.HandleIPN(c.Request.Context(), body, c.ClientIP())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, paypro.ErrInvalidPayload):
		c.Status(http.StatusBadRequest)
	case errors.Is(err, service.ErrIPNBusy):
		c.Header("Retry-After", "5")
		c.Status(http.StatusServiceUnavailable)
	default:
		pkglogger.GetLogger().Error().Err(err).Str("remote_ip", c.ClientIP()).Msg("ipn not recorded")
		c.Status(http.StatusInternalServerError)
	}
}
