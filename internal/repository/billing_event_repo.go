package repository

import (
	"context"
	"time"

	"github.com/msgpilot/backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BillingEventRepository handles IPN event persistence
type BillingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new BillingEventRepository
func NewBillingEventRepository(db *gorm.DB) *BillingEventRepository {
	return &BillingEventRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *BillingEventRepository) WithTx(tx *gorm.DB) *BillingEventRepository {
	return &BillingEventRepository{db: tx}
}

// InsertIfNew inserts ev unless an event with the same dedupe key exists.
// Returns false for a duplicate delivery.
func (r *BillingEventRepository) InsertIfNew(ctx context.Context, ev *domain.BillingEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(ev)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Create stores an event without dedupe (rejected deliveries)
func (r *BillingEventRepository) Create(ctx context.Context, ev *domain.BillingEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// MarkOutcome records the reconciliation result of an event
func (r *BillingEventRepository) MarkOutcome(ctx context.Context, id int64, outcome, detail string, flagged bool, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.BillingEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"outcome":      outcome,
			"detail":       detail,
			"flagged":      flagged,
			"processed_at": at,
		}).Error
}

// BillingEventFilter narrows ListEvents
type BillingEventFilter struct {
	Flagged *bool
	UserID  string
	OrderID string
	Limit   int
	Offset  int
}

// List retrieves events newest first
func (r *BillingEventRepository) List(ctx context.Context, f BillingEventFilter) ([]domain.BillingEvent, int64, error) {
	var events []domain.BillingEvent
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.BillingEvent{})
	if f.Flagged != nil {
		query = query.Where("flagged = ?", *f.Flagged)
	}
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.OrderID != "" {
		query = query.Where("order_id = ?", f.OrderID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	err := query.Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&events).Error
	return events, total, err
}
