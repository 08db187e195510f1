package repository

import (
	"context"

	"github.com/msgpilot/backend/internal/domain"
	"gorm.io/gorm"
)

// BillingStore groups the billing repositories and runs them in one transaction
type BillingStore struct {
	db            *gorm.DB
	Subscriptions *SubscriptionRepository
	Events        *BillingEventRepository
}

// NewBillingStore creates a new BillingStore
func NewBillingStore(db *gorm.DB) *BillingStore {
	return &BillingStore{
		db:            db,
		Subscriptions: NewSubscriptionRepository(db),
		Events:        NewBillingEventRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single DB transaction.
// A returned error rolls everything back.
func (s *BillingStore) Transaction(ctx context.Context, fn func(subs *SubscriptionRepository, events *BillingEventRepository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.Subscriptions.WithTx(tx), s.Events.WithTx(tx))
	})
}

// AutoMigrate creates the billing tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Subscription{}, &domain.BillingEvent{})
}
