package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ipnEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_ipn_events_total",
			Help: "IPN deliveries by event type and reconciliation outcome",
		},
		[]string{"type", "outcome"},
	)

	processorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_processor_calls_total",
			Help: "Subscription management calls to the payment processor",
		},
		[]string{"action", "result"},
	)

	subscriptionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_subscriptions_expired_total",
			Help: "Subscriptions moved to expired by the overdue sweep",
		},
	)
)

func observeProcessorCall(action string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	processorCallsTotal.WithLabelValues(action, result).Inc()
}
