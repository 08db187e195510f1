package repository

import (
	"context"
	"errors"
	"time"

	"github.com/msgpilot/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrVersionConflict indicates that a concurrent modification was detected
	ErrVersionConflict = errors.New("subscription was modified concurrently")
	// ErrQuotaExhausted indicates that a usage increment was refused
	ErrQuotaExhausted = errors.New("message quota exhausted or subscription not usable")
)

// SubscriptionRepository handles subscription persistence
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

// FindByUserID retrieves a subscription by tenant user ID
func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// FindByExternalID retrieves a subscription by processor subscription ID
func (r *SubscriptionRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	return r.first(r.db.WithContext(ctx).Where("external_sub_id = ?", externalID))
}

// LockByUserID is FindByUserID with SELECT ... FOR UPDATE. Must run inside a transaction.
func (r *SubscriptionRepository) LockByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID))
}

// LockByExternalID is FindByExternalID with SELECT ... FOR UPDATE. Must run inside a transaction.
func (r *SubscriptionRepository) LockByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_sub_id = ?", externalID))
}

func (r *SubscriptionRepository) first(q *gorm.DB) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := q.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Create creates a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// CreateIfAbsent inserts sub unless the user already has a subscription.
// Returns true when a row was inserted.
func (r *SubscriptionRepository) CreateIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(sub)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateWithVersion writes the mutable columns of sub with optimistic locking.
// On success sub.Version is advanced to the stored value.
func (r *SubscriptionRepository) UpdateWithVersion(ctx context.Context, sub *domain.Subscription) error {
	result := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"plan_id":         sub.PlanID,
			"status":          sub.Status,
			"billing_period":  sub.BillingPeriod,
			"external_sub_id": sub.ExternalSubID,
			"messages_used":   sub.MessagesUsed,
			"messages_limit":  sub.MessagesLimit,
			"expires_at":      sub.ExpiresAt,
			"cancelled_at":    sub.CancelledAt,
			"version":         gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	sub.Version++
	return nil
}

// IncrementUsage atomically adds n to messages_used when the subscription is
// usable at now and the limit allows it. Limits at or above unlimitedAt are
// never exhausted.
func (r *SubscriptionRepository) IncrementUsage(ctx context.Context, userID string, n int, now time.Time, unlimitedAt int) error {
	result := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("user_id = ? AND status <> ? AND expires_at > ?", userID, domain.SubscriptionExpired, now).
		Where("(messages_limit >= ? OR messages_used + ? <= messages_limit)", unlimitedAt, n).
		Updates(map[string]interface{}{
			"messages_used": gorm.Expr("messages_used + ?", n),
			"version":       gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// ListOverdueUserIDs returns user IDs of non-expired subscriptions whose expiry has passed
func (r *SubscriptionRepository) ListOverdueUserIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("status <> ? AND expires_at <= ?", domain.SubscriptionExpired, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ExpireOverdue marks the given users' subscriptions expired if they are still overdue at now
func (r *SubscriptionRepository) ExpireOverdue(ctx context.Context, userIDs []string, now time.Time) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("user_id IN ? AND status <> ? AND expires_at <= ?", userIDs, domain.SubscriptionExpired, now).
		Updates(map[string]interface{}{
			"status":  domain.SubscriptionExpired,
			"version": gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}
