package domain

import "time"

// Subscription statuses
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPastDue   = "past_due"
	SubscriptionExpired   = "expired"
)

// Subscription is the per-business entitlement record. It is mutated only
// by verified IPN events and by confirmed cancel/resume/terminate actions.
type Subscription struct {
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at;index" json:"expires_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	UserID        string  `gorm:"column:user_id;size:64;uniqueIndex" json:"user_id"`
	PlanID        string  `gorm:"column:plan_id;size:32;default:trial" json:"plan_id"`
	Status        string  `gorm:"column:status;size:16;default:active;index" json:"status"`
	BillingPeriod string  `gorm:"column:billing_period;size:16" json:"billing_period"` // monthly, yearly, "" for trial
	ExternalSubID *string `gorm:"column:external_sub_id;size:64;uniqueIndex" json:"external_sub_id,omitempty"`

	ID            int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	MessagesUsed  int   `gorm:"column:messages_used;default:0" json:"messages_used"`
	MessagesLimit int   `gorm:"column:messages_limit;default:0" json:"messages_limit"`
	Version       int64 `gorm:"column:version;default:0" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ExternalID returns the processor subscription id or ""
func (s *Subscription) ExternalID() string {
	if s.ExternalSubID == nil {
		return ""
	}
	return *s.ExternalSubID
}

// IsUsable reports whether the subscription still grants access at now.
// Cancelled and past-due subscriptions keep access until expiry.
func (s *Subscription) IsUsable(now time.Time) bool {
	if s.Status == SubscriptionExpired {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// SubscriptionResponse is the dashboard entitlement view
type SubscriptionResponse struct {
	PlanID            string          `json:"plan_id"`
	PlanName          string          `json:"plan_name"`
	Status            string          `json:"status"`
	BillingPeriod     string          `json:"billing_period,omitempty"`
	MessagesUsed      int             `json:"messages_used"`
	MessagesLimit     int             `json:"messages_limit"`
	MessagesRemaining int             `json:"messages_remaining"`
	Unlimited         bool            `json:"unlimited"`
	Usable            bool            `json:"usable"`
	ExpiresAt         string          `json:"expires_at"`
	CancelledAt       string          `json:"cancelled_at,omitempty"`
	Managed           bool            `json:"managed"`
	Features          map[string]bool `json:"features"`
}

// CheckoutRequest is sent by the checkout page
type CheckoutRequest struct {
	PlanID        string `json:"plan_id" binding:"required_without=PackID"`
	PackID        string `json:"pack_id" binding:"required_without=PlanID"`
	BillingPeriod string `json:"billing_period" binding:"omitempty,oneof=monthly yearly one-time"`
	Email         string `json:"email" binding:"omitempty,email"`
	FirstName     string `json:"first_name" binding:"omitempty,max=100"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
	Language      string `json:"language" binding:"omitempty,max=8"`
	SuccessURL    string `json:"success_url" binding:"omitempty,url"`
}

// CheckoutResponse carries the hosted checkout redirect
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// UsageRequest is sent by the messaging workers after generating replies
type UsageRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Messages int    `json:"messages" binding:"required,min=1,max=1000"`
}

// UsageResponse reports the counter after consumption
type UsageResponse struct {
	MessagesUsed      int  `json:"messages_used"`
	MessagesLimit     int  `json:"messages_limit"`
	MessagesRemaining int  `json:"messages_remaining"`
	Unlimited         bool `json:"unlimited"`
}
