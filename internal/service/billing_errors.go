package service

import "errors"

// Billing errors surfaced to handlers
var (
	ErrNoSubscription         = errors.New("subscription not found")
	ErrNoExternalSubscription = errors.New("subscription is not managed by the payment processor")
	ErrInvalidTransition      = errors.New("action not allowed in the current subscription status")
	ErrProcessorFailure       = errors.New("payment processor did not confirm the action")
	ErrQuotaExceeded          = errors.New("message quota exceeded")
	ErrInvalidUsage           = errors.New("message count must be positive")
	ErrUnknownProduct         = errors.New("unknown plan or pack")
	ErrInvalidCheckout        = errors.New("exactly one of plan or pack is required")
	ErrIPNBusy                = errors.New("another delivery for this subscription is in progress")
)
