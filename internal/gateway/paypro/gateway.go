// Package paypro is the adapter for the PayPro Global payment processor.
// It is the only place that builds checkout redirects, trusts IPN
// callbacks, or talks to the processor's subscription API.
package paypro

import (
	"errors"
	"net/http"
)

// Gateway errors
var (
	ErrUnmappedProduct   = errors.New("no processor product configured")
	ErrHashMismatch      = errors.New("ipn hash mismatch")
	ErrSignatureMismatch = errors.New("ipn signature mismatch")
	ErrIPNotAllowed      = errors.New("ipn source ip not allowed")
	ErrInvalidPayload    = errors.New("invalid ipn payload")
)

// Gateway talks to PayPro Global
type Gateway struct {
	cfg        Config
	httpClient *http.Client
}

// NewGateway creates a gateway from cfg
func NewGateway(cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// TestMode reports whether the gateway runs against the sandbox
func (g *Gateway) TestMode() bool {
	return g.cfg.TestMode
}
