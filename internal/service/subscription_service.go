package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/plans"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/pkg/cache"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
)

// SubscriptionProcessor is the processor's subscription management API
type SubscriptionProcessor interface {
	CancelSubscription(ctx context.Context, subscriptionID string) paypro.ActionResult
	ResumeSubscription(ctx context.Context, subscriptionID string) paypro.ActionResult
	TerminateSubscription(ctx context.Context, subscriptionID string) paypro.ActionResult
}

// expireBatchSize bounds one sweep query
const expireBatchSize = 500

// SubscriptionService handles user and operator initiated subscription actions
type SubscriptionService struct {
	store     *repository.BillingStore
	processor SubscriptionProcessor
	cache     cache.Service
	now       func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(store *repository.BillingStore, processor SubscriptionProcessor, cacheService cache.Service) *SubscriptionService {
	return &SubscriptionService{
		store:     store,
		processor: processor,
		cache:     cacheService,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartTrial creates the signup trial for userID. It is idempotent: an
// existing subscription is returned unchanged with created=false.
func (s *SubscriptionService) StartTrial(ctx context.Context, userID string) (*domain.Subscription, bool, error) {
	now := s.now()
	trial := &domain.Subscription{
		UserID:        userID,
		PlanID:        string(plans.Trial),
		Status:        domain.SubscriptionActive,
		MessagesLimit: plans.MessagesLimit(string(plans.Trial)),
		ExpiresAt:     now.AddDate(0, 0, plans.TrialDays),
	}

	created, err := s.store.Subscriptions.CreateIfAbsent(ctx, trial)
	if err != nil {
		return nil, false, fmt.Errorf("create trial: %w", err)
	}
	if created {
		s.invalidate(ctx, userID)
		pkglogger.GetLogger().Info().Str("user_id", userID).Time("expires_at", trial.ExpiresAt).Msg("trial started")
		return trial, true, nil
	}

	existing, err := s.store.Subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetView returns the entitlement view for userID, cached in Redis
func (s *SubscriptionService) GetView(ctx context.Context, userID string) (*domain.SubscriptionResponse, error) {
	var cached domain.SubscriptionResponse
	if err := s.cache.GetSubscription(ctx, userID, &cached); err == nil {
		return &cached, nil
	}

	sub, err := s.store.Subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}

	view := BuildView(sub, s.now())
	if err := s.cache.SetSubscription(ctx, userID, view); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("subscription cache write failed")
	}
	return view, nil
}

// BuildView converts a subscription row to the dashboard view at now
func BuildView(sub *domain.Subscription, now time.Time) *domain.SubscriptionResponse {
	plan := plans.Get(sub.PlanID)
	unlimited := sub.MessagesLimit >= plans.UnlimitedMessages

	remaining := sub.MessagesLimit - sub.MessagesUsed
	if remaining < 0 {
		remaining = 0
	}

	view := &domain.SubscriptionResponse{
		PlanID:            sub.PlanID,
		PlanName:          plan.Name,
		Status:            sub.Status,
		BillingPeriod:     sub.BillingPeriod,
		MessagesUsed:      sub.MessagesUsed,
		MessagesLimit:     sub.MessagesLimit,
		MessagesRemaining: remaining,
		Unlimited:         unlimited,
		Usable:            sub.IsUsable(now),
		ExpiresAt:         sub.ExpiresAt.Format(time.RFC3339),
		Managed:           sub.ExternalID() != "",
		Features: map[string]bool{
			"analytics":   plans.CanUseAnalytics(sub.PlanID),
			"custom_logo": plans.CanUploadLogo(sub.PlanID),
			"file_upload": plans.CanUploadFiles(sub.PlanID),
			"automations": plans.CanUseAutomations(sub.PlanID),
			"crm":         plans.CanUseCRM(sub.PlanID),
			"broadcasts":  plans.CanUseBroadcasts(sub.PlanID),
		},
	}
	if sub.CancelledAt != nil {
		view.CancelledAt = sub.CancelledAt.Format(time.RFC3339)
	}
	return view
}

// Cancel suspends the processor subscription, then marks it cancelled.
// Access continues until expiry. Local state is written only after the
// processor confirms.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.act(ctx, userID, "cancel",
		func(sub *domain.Subscription) bool {
			return sub.Status == domain.SubscriptionActive || sub.Status == domain.SubscriptionPastDue
		},
		s.processor.CancelSubscription,
		func(sub *domain.Subscription, now time.Time) {
			sub.Status = domain.SubscriptionCancelled
			sub.CancelledAt = &now
		})
}

// Resume reactivates a cancelled subscription. Expiry is unchanged.
func (s *SubscriptionService) Resume(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.act(ctx, userID, "resume",
		func(sub *domain.Subscription) bool {
			return sub.Status == domain.SubscriptionCancelled
		},
		s.processor.ResumeSubscription,
		func(sub *domain.Subscription, _ time.Time) {
			sub.Status = domain.SubscriptionActive
			sub.CancelledAt = nil
		})
}

// Terminate ends the subscription immediately. Subscriptions without a
// processor id (trials) are expired locally.
func (s *SubscriptionService) Terminate(ctx context.Context, userID string) (*domain.Subscription, error) {
	allowed := func(sub *domain.Subscription) bool {
		return sub.Status != domain.SubscriptionExpired
	}
	expire := func(sub *domain.Subscription, _ time.Time) {
		sub.Status = domain.SubscriptionExpired
	}

	sub, err := s.store.Subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.ExternalID() == "" {
		if !allowed(sub) {
			return nil, ErrInvalidTransition
		}
		return s.commit(ctx, userID, allowed, expire)
	}
	return s.act(ctx, userID, "terminate", allowed, s.processor.TerminateSubscription, expire)
}

// act runs the remote-first protocol shared by cancel, resume and terminate
func (s *SubscriptionService) act(
	ctx context.Context,
	userID, action string,
	allowed func(*domain.Subscription) bool,
	remote func(context.Context, string) paypro.ActionResult,
	mutate func(*domain.Subscription, time.Time),
) (*domain.Subscription, error) {
	sub, err := s.store.Subscriptions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	externalID := sub.ExternalID()
	if externalID == "" {
		return nil, ErrNoExternalSubscription
	}
	if !allowed(sub) {
		return nil, ErrInvalidTransition
	}

	log := pkglogger.GetLogger().With().
		Str("user_id", userID).
		Str("subscription_id", externalID).
		Str("action", action).
		Logger()

	result := remote(ctx, externalID)
	observeProcessorCall(action, result.Success)
	if !result.Success {
		log.Warn().Str("error", result.Error).Msg("processor rejected subscription action")
		return nil, fmt.Errorf("%w: %s", ErrProcessorFailure, result.Error)
	}

	updated, err := s.commit(ctx, userID, allowed, mutate)
	if err != nil {
		// The processor already changed state; the next IPN will reconcile.
		log.Error().Err(err).Msg("processor confirmed but local update failed")
		return nil, err
	}
	log.Info().Str("status", updated.Status).Msg("subscription action applied")
	return updated, nil
}

// commit applies mutate under a row lock
func (s *SubscriptionService) commit(ctx context.Context, userID string, allowed func(*domain.Subscription) bool, mutate func(*domain.Subscription, time.Time)) (*domain.Subscription, error) {
	var updated *domain.Subscription
	err := s.store.Transaction(ctx, func(subs *repository.SubscriptionRepository, _ *repository.BillingEventRepository) error {
		sub, err := subs.LockByUserID(ctx, userID)
		if err != nil {
			return err
		}
		if sub == nil {
			return ErrNoSubscription
		}
		if !allowed(sub) {
			// an IPN got there first
			return ErrInvalidTransition
		}
		mutate(sub, s.now())
		if err := subs.UpdateWithVersion(ctx, sub); err != nil {
			return err
		}
		updated = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return updated, nil
}

// ConsumeMessages records n generated messages against the user's quota
func (s *SubscriptionService) ConsumeMessages(ctx context.Context, userID string, n int) (*domain.UsageResponse, error) {
	if n <= 0 {
		return nil, ErrInvalidUsage
	}

	err := s.store.Subscriptions.IncrementUsage(ctx, userID, n, s.now(), plans.UnlimitedMessages)
	if err != nil && !errors.Is(err, repository.ErrQuotaExhausted) {
		return nil, err
	}

	sub, ferr := s.store.Subscriptions.FindByUserID(ctx, userID)
	if ferr != nil {
		return nil, ferr
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, ErrQuotaExceeded
	}

	s.invalidate(ctx, userID)
	view := BuildView(sub, s.now())
	return &domain.UsageResponse{
		MessagesUsed:      view.MessagesUsed,
		MessagesLimit:     view.MessagesLimit,
		MessagesRemaining: view.MessagesRemaining,
		Unlimited:         view.Unlimited,
	}, nil
}

// ExpireOverdue moves every subscription past its expiry to expired and
// returns how many changed.
func (s *SubscriptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	var total int64
	for {
		now := s.now()
		ids, err := s.store.Subscriptions.ListOverdueUserIDs(ctx, now, expireBatchSize)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			break
		}

		n, err := s.store.Subscriptions.ExpireOverdue(ctx, ids, now)
		if err != nil {
			return total, err
		}
		total += n
		for _, id := range ids {
			s.invalidate(ctx, id)
		}
		if n == 0 || len(ids) < expireBatchSize {
			break
		}
	}

	if total > 0 {
		subscriptionsExpiredTotal.Add(float64(total))
		pkglogger.GetLogger().Info().Int64("expired", total).Msg("overdue subscriptions expired")
	}
	return total, nil
}

func (s *SubscriptionService) invalidate(ctx context.Context, userID string) {
	if err := s.cache.InvalidateSubscription(ctx, userID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("subscription cache invalidation failed")
	}
}
