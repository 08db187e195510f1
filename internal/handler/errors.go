package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/common"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/internal/service"
	"github.com/msgpilot/backend/pkg/i18n"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
)

type errorMapping struct {
	target error
	status int
	key    string
}

var billingErrors = []errorMapping{
	{service.ErrNoSubscription, http.StatusNotFound, "billing.no_subscription"},
	{service.ErrNoExternalSubscription, http.StatusBadRequest, "billing.not_managed"},
	{service.ErrInvalidTransition, http.StatusConflict, "billing.invalid_transition"},
	{repository.ErrVersionConflict, http.StatusConflict, "billing.invalid_transition"},
	{service.ErrProcessorFailure, http.StatusBadGateway, "billing.processor_failed"},
	{service.ErrQuotaExceeded, http.StatusPaymentRequired, "billing.quota_exceeded"},
	{service.ErrUnknownProduct, http.StatusBadRequest, "billing.unknown_plan"},
	{service.ErrInvalidCheckout, http.StatusBadRequest, "error.bad_request"},
	{service.ErrInvalidUsage, http.StatusBadRequest, "error.bad_request"},
	{paypro.ErrUnmappedProduct, http.StatusUnprocessableEntity, "billing.checkout_unavailable"},
}

// writeError maps a service error to a localized error response
func writeError(c *gin.Context, msgs *i18n.Bundle, err error) {
	locale := middleware.GetLocale(c)
	for _, m := range billingErrors {
		if errors.Is(err, m.target) {
			common.ErrorResponse(c, m.status, msgs.T(locale, m.key), err)
			return
		}
	}

	pkglogger.GetLogger().Error().Err(err).
		Str("path", c.FullPath()).
		Str("user_id", middleware.GetUserID(c)).
		Msg("unhandled billing error")
	common.ErrorResponse(c, http.StatusInternalServerError, msgs.T(locale, "error.internal"), err)
}

func badRequest(c *gin.Context, msgs *i18n.Bundle, err error) {
	common.ErrorResponse(c, http.StatusBadRequest, msgs.T(middleware.GetLocale(c), "error.bad_request"), err)
}
