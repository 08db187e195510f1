package service

import (
	"net/url"
	"testing"

	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutGateway() *paypro.Gateway {
	return paypro.NewGateway(paypro.Config{
		IPNSecretKey: "ipn-secret",
		AppURL:       "https://app.msgpilot.test",
		PlanProducts: map[string]string{
			"pro_monthly": "101",
			"pro_yearly":  "102",
		},
		PackProducts: map[string]string{
			"pack_100": "201",
		},
	})
}

func TestCreateCheckoutURL_Plan(t *testing.T) {
	svc := NewCheckoutService(checkoutGateway())

	raw, err := svc.CreateCheckoutURL("u1", "uz", domain.CheckoutRequest{PlanID: "pro", BillingPeriod: "yearly"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "102", q.Get("products[1][id]"))
	assert.Equal(t, "EN", q.Get("language"))
	assert.Equal(t, "u1", q.Get("x-userId"))
	assert.Equal(t, "pro", q.Get("x-planId"))
	assert.Equal(t, "yearly", q.Get("x-billingPeriod"))
	assert.Empty(t, q.Get("use-test-mode"))
}

func TestCreateCheckoutURL_DefaultsToMonthlyAndExplicitLanguage(t *testing.T) {
	svc := NewCheckoutService(checkoutGateway())

	raw, err := svc.CreateCheckoutURL("u1", "en", domain.CheckoutRequest{PlanID: "pro", Language: "kk"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "101", u.Query().Get("products[1][id]"))
	assert.Equal(t, "RU", u.Query().Get("language"))
}

func TestCreateCheckoutURL_Pack(t *testing.T) {
	svc := NewCheckoutService(checkoutGateway())

	raw, err := svc.CreateCheckoutURL("u1", "ru", domain.CheckoutRequest{PackID: "pack_100"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "201", u.Query().Get("products[1][id]"))
	assert.Equal(t, "pack_100", u.Query().Get("x-packId"))
	assert.Equal(t, "one-time", u.Query().Get("x-billingPeriod"))
}

func TestCreateCheckoutURL_Errors(t *testing.T) {
	svc := NewCheckoutService(checkoutGateway())

	tests := []struct {
		name string
		req  domain.CheckoutRequest
		want error
	}{
		{"neither", domain.CheckoutRequest{}, ErrInvalidCheckout},
		{"both", domain.CheckoutRequest{PlanID: "pro", PackID: "pack_100"}, ErrInvalidCheckout},
		{"trial not purchasable", domain.CheckoutRequest{PlanID: "trial"}, ErrUnknownProduct},
		{"unknown plan", domain.CheckoutRequest{PlanID: "platinum"}, ErrUnknownProduct},
		{"bad period", domain.CheckoutRequest{PlanID: "pro", BillingPeriod: "weekly"}, ErrUnknownProduct},
		{"unknown pack", domain.CheckoutRequest{PackID: "pack_7"}, ErrUnknownProduct},
		{"unmapped plan", domain.CheckoutRequest{PlanID: "business", BillingPeriod: "monthly"}, paypro.ErrUnmappedProduct},
		{"unmapped pack", domain.CheckoutRequest{PackID: "pack_500"}, paypro.ErrUnmappedProduct},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CreateCheckoutURL("u1", "en", tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, got)
		})
	}
}
