package service

import (
	"fmt"

	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/plans"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
)

// CheckoutURLBuilder builds hosted checkout redirects
type CheckoutURLBuilder interface {
	BuildCheckoutURL(req paypro.CheckoutRequest) string
}

// CheckoutService validates checkout requests and builds processor redirects
type CheckoutService struct {
	builder CheckoutURLBuilder
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(builder CheckoutURLBuilder) *CheckoutService {
	return &CheckoutService{builder: builder}
}

// CreateCheckoutURL returns the redirect for a plan or pack purchase.
// locale is the dashboard language used when the request names none.
// An unmapped product is a configuration error and never yields a URL.
func (s *CheckoutService) CreateCheckoutURL(userID, locale string, req domain.CheckoutRequest) (string, error) {
	if (req.PlanID == "") == (req.PackID == "") {
		return "", ErrInvalidCheckout
	}

	out := paypro.CheckoutRequest{
		UserID:     userID,
		PlanID:     req.PlanID,
		PackID:     req.PackID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		Currency:   req.Currency,
		Language:   req.Language,
		SuccessURL: req.SuccessURL,
	}
	if out.Language == "" {
		out.Language = locale
	}

	if req.PackID != "" {
		if _, ok := plans.GetPack(req.PackID); !ok {
			return "", ErrUnknownProduct
		}
		out.BillingPeriod = paypro.PeriodOneTime
	} else {
		if !plans.IsPurchasable(req.PlanID) {
			return "", ErrUnknownProduct
		}
		switch req.BillingPeriod {
		case "":
			out.BillingPeriod = paypro.PeriodMonthly
		case paypro.PeriodMonthly, paypro.PeriodYearly:
			out.BillingPeriod = req.BillingPeriod
		default:
			return "", ErrUnknownProduct
		}
	}

	checkoutURL := s.builder.BuildCheckoutURL(out)
	if checkoutURL == "" {
		pkglogger.GetLogger().Error().
			Str("plan_id", out.PlanID).
			Str("pack_id", out.PackID).
			Str("billing_period", out.BillingPeriod).
			Msg("checkout product is not configured")
		return "", fmt.Errorf("%w: %s%s/%s", paypro.ErrUnmappedProduct, out.PlanID, out.PackID, out.BillingPeriod)
	}
	return checkoutURL, nil
}
