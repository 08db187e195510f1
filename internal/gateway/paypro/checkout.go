package paypro

import (
	"net/url"
	"strings"
)

// Billing periods
const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
	PeriodOneTime = "one-time"
)

// Processor checkout languages
const (
	LanguageRU = "RU"
	LanguageEN = "EN"
)

// CheckoutRequest describes one hosted-checkout redirect. Exactly one of
// PlanID or PackID is set; packs use PeriodOneTime.
type CheckoutRequest struct {
	UserID        string
	PlanID        string
	PackID        string
	BillingPeriod string

	Email      string
	FirstName  string
	Currency   string
	Language   string
	SuccessURL string
}

// MapLanguage maps a dashboard language to one the checkout supports.
// Russian and Kazakh use the Russian checkout; everything else English.
func MapLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "ru", "kk", "kz":
		return LanguageRU
	default:
		return LanguageEN
	}
}

// ProductID resolves the processor product for a plan/period or a pack.
// It returns "" when nothing is configured.
func (g *Gateway) ProductID(req CheckoutRequest) string {
	if req.PackID != "" {
		return g.cfg.PackProducts[req.PackID]
	}
	return g.cfg.PlanProducts[req.PlanID+"_"+req.BillingPeriod]
}

// ProductMatches reports whether productID is the product configured for
// the plan/period or pack an IPN grants. Unmapped grants never match.
func (g *Gateway) ProductMatches(productID, planID, packID, period string) bool {
	want := g.ProductID(CheckoutRequest{PlanID: planID, PackID: packID, BillingPeriod: period})
	return want != "" && strings.TrimSpace(productID) == want
}

type queryBuilder struct {
	b strings.Builder
}

func (q *queryBuilder) add(key, value string) {
	if value == "" {
		return
	}
	if q.b.Len() > 0 {
		q.b.WriteByte('&')
	}
	q.b.WriteString(key)
	q.b.WriteByte('=')
	q.b.WriteString(url.QueryEscape(value))
}

// BuildCheckoutURL returns the hosted checkout redirect for req. It does
// no I/O. An empty string means the product is not mapped and the
// checkout must not proceed.
func (g *Gateway) BuildCheckoutURL(req CheckoutRequest) string {
	productID := g.ProductID(req)
	if productID == "" {
		return ""
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = strings.TrimRight(g.cfg.AppURL, "/") + "/dashboard/billing?payment=success"
	}

	var q queryBuilder
	q.add("products[1][id]", productID)
	q.add("billing-email", req.Email)
	q.add("billing-first-name", req.FirstName)
	q.add("language", MapLanguage(req.Language))
	q.add("currency", strings.ToUpper(req.Currency))
	q.add("x-userId", req.UserID)
	if req.PackID != "" {
		q.add("x-packId", req.PackID)
	} else {
		q.add("x-planId", req.PlanID)
	}
	q.add("x-billingPeriod", req.BillingPeriod)
	q.add("success-url", successURL)

	if g.cfg.TestMode {
		// sandbox only: the processor needs the secret to sign test IPNs
		q.add("use-test-mode", "true")
		q.add("secret-key", g.cfg.IPNSecretKey)
	}

	return g.cfg.CheckoutBaseURL + "?" + q.b.String()
}
