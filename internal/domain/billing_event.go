package domain

import "time"

// Billing event outcomes
const (
	EventApplied           = "applied"            // subscription state changed
	EventIgnored           = "ignored"            // verified, nothing to change
	EventDuplicate         = "duplicate"          // replayed delivery, never stored twice
	EventRejectedAuth      = "rejected_auth"      // hash, signature or ip check failed
	EventRejectedMapping   = "rejected_mapping"   // verified, but planId/packId unknown
	EventUnknownSubscriber = "unknown_subscriber" // verified, no subscription could be correlated
	EventNeedsReview       = "needs_review"       // verified, money moved backwards (refund, chargeback)
)

// BillingEvent records every IPN delivery. DedupeKey is set only for
// verified events and is unique, so a replayed event cannot be applied
// twice. Flagged events are listed for operator review.
type BillingEvent struct {
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`

	DedupeKey      *string `gorm:"column:dedupe_key;size:64;uniqueIndex" json:"-"`
	Provider       string  `gorm:"column:provider;size:20;default:paypro" json:"provider"`
	IPNType        int     `gorm:"column:ipn_type" json:"ipn_type"`
	IPNTypeName    string  `gorm:"column:ipn_type_name;size:64" json:"ipn_type_name"`
	OrderID        string  `gorm:"column:order_id;size:64;index" json:"order_id"`
	SubscriptionID string  `gorm:"column:subscription_id;size:64;index" json:"subscription_id"`
	UserID         string  `gorm:"column:user_id;size:64;index" json:"user_id"`
	PlanID         string  `gorm:"column:plan_id;size:32" json:"plan_id,omitempty"`
	PackID         string  `gorm:"column:pack_id;size:32" json:"pack_id,omitempty"`
	Amount         string  `gorm:"column:amount;size:32" json:"amount"`
	Currency       string  `gorm:"column:currency;size:8" json:"currency"`
	RemoteIP       string  `gorm:"column:remote_ip;size:64" json:"remote_ip"`
	Outcome        string  `gorm:"column:outcome;size:32;index" json:"outcome"`
	Detail         string  `gorm:"column:detail;type:text" json:"detail,omitempty"`
	ArchiveKey     string  `gorm:"column:archive_key;size:255" json:"archive_key,omitempty"`

	ID      int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Flagged bool  `gorm:"column:flagged;default:false;index" json:"flagged"`
}

func (BillingEvent) TableName() string {
	return "billing_events"
}
