package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
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

// IPNVerifier checks the authenticity of a parsed IPN and that the product
// paid for is the one the custom fields grant
type IPNVerifier interface {
	Verify(ev *paypro.Event, remoteIP string) error
	ProductMatches(productID, planID, packID, period string) bool
}

// PayloadArchiver stores raw IPN bodies for operator review
type PayloadArchiver interface {
	ArchivePayload(ctx context.Context, prefix, name string, payload []byte) (string, error)
}

// IPNResult summarizes how one delivery was handled
type IPNResult struct {
	EventID   int64  `json:"event_id,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	Flagged   bool   `json:"flagged"`
	Duplicate bool   `json:"duplicate"`
}

// BillingService reconciles subscriptions with verified IPN events
type BillingService struct {
	store    *repository.BillingStore
	verifier IPNVerifier
	cache    cache.Service
	archive  PayloadArchiver
	now      func() time.Time
}

// NewBillingService creates a new BillingService. archive may be nil.
func NewBillingService(store *repository.BillingStore, verifier IPNVerifier, cacheService cache.Service, archive PayloadArchiver) *BillingService {
	return &BillingService{
		store:    store,
		verifier: verifier,
		cache:    cacheService,
		archive:  archive,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleIPN parses, verifies and applies one raw IPN body.
//
// Rejected and flagged deliveries return a result and a nil error so the
// caller can still acknowledge them. An error means the delivery was not
// recorded and should be retried by the processor.
func (s *BillingService) HandleIPN(ctx context.Context, body []byte, remoteIP string) (*IPNResult, error) {
	ev, err := paypro.ParseIPN(body)
	if err != nil {
		return nil, err
	}
	if ev.TypeID == 0 && ev.OrderID == "" {
		return nil, paypro.ErrInvalidPayload
	}

	rec := newBillingEvent(ev, remoteIP)
	rec.ArchiveKey = s.archivePayload(ctx, ev, body)

	log := pkglogger.GetLogger().With().
		Str("order_id", ev.OrderID).
		Str("ipn_type", ev.TypeID.String()).
		Str("subscription_id", ev.SubscriptionID).
		Str("remote_ip", remoteIP).
		Logger()

	if verr := s.verifier.Verify(ev, remoteIP); verr != nil {
		rec.Outcome = domain.EventRejectedAuth
		rec.Detail = verr.Error()
		rec.Flagged = true
		now := s.now()
		rec.ProcessedAt = &now
		if err := s.store.Events.Create(ctx, rec); err != nil {
			return nil, fmt.Errorf("record rejected ipn: %w", err)
		}
		ipnEventsTotal.WithLabelValues(ev.TypeID.String(), rec.Outcome).Inc()
		log.Warn().Err(verr).Str("outcome", rec.Outcome).Msg("IPN rejected")
		return &IPNResult{EventID: rec.ID, Outcome: rec.Outcome, Detail: rec.Detail, Flagged: true}, nil
	}

	release, err := s.cache.AcquireLock(ctx, ipnLockName(ev), cache.TTLLock)
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, ErrIPNBusy
		}
		// Redis trouble must not block billing; the row lock still serializes.
		log.Warn().Err(err).Msg("IPN lock unavailable")
		release = func() {}
	}
	defer release()

	key := DedupeKey(ev)
	rec.DedupeKey = &key

	result := &IPNResult{}
	var touchedUser string

	err = s.store.Transaction(ctx, func(subs *repository.SubscriptionRepository, events *repository.BillingEventRepository) error {
		inserted, err := events.InsertIfNew(ctx, rec)
		if err != nil {
			return fmt.Errorf("insert billing event: %w", err)
		}
		if !inserted {
			result.Outcome = domain.EventDuplicate
			result.Duplicate = true
			return nil
		}

		now := s.now()
		res, err := s.apply(ctx, subs, ev, now)
		if err != nil {
			return err
		}
		touchedUser = res.userID

		result.EventID = rec.ID
		result.Outcome = res.outcome
		result.Detail = res.detail
		result.Flagged = res.flagged
		return events.MarkOutcome(ctx, rec.ID, res.outcome, res.detail, res.flagged, now)
	})
	if err != nil {
		log.Error().Err(err).Msg("IPN reconciliation failed")
		return nil, err
	}

	if touchedUser != "" {
		if err := s.cache.InvalidateSubscription(ctx, touchedUser); err != nil {
			log.Warn().Err(err).Str("user_id", touchedUser).Msg("subscription cache invalidation failed")
		}
	}

	ipnEventsTotal.WithLabelValues(ev.TypeID.String(), result.Outcome).Inc()
	entry := log.Info()
	if result.Flagged {
		entry = log.Warn()
	}
	entry.Str("outcome", result.Outcome).Str("detail", result.Detail).Msg("IPN processed")

	return result, nil
}

func (s *BillingService) archivePayload(ctx context.Context, ev *paypro.Event, body []byte) string {
	if s.archive == nil {
		return ""
	}
	key, err := s.archive.ArchivePayload(ctx, "ipn", ev.OrderID+"_"+ev.TypeID.String(), body)
	if err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("order_id", ev.OrderID).Msg("IPN archive failed")
		return ""
	}
	return key
}

func newBillingEvent(ev *paypro.Event, remoteIP string) *domain.BillingEvent {
	return &domain.BillingEvent{
		Provider:       "paypro",
		IPNType:        int(ev.TypeID),
		IPNTypeName:    ev.TypeName,
		OrderID:        ev.OrderID,
		SubscriptionID: ev.SubscriptionID,
		UserID:         ev.Custom.UserID,
		PlanID:         ev.Custom.PlanID,
		PackID:         ev.Custom.PackID,
		Amount:         ev.OrderTotalAmount,
		Currency:       ev.OrderCurrency,
		RemoteIP:       remoteIP,
	}
}

// DedupeKey identifies one logical delivery. Processor retries repeat every
// component; a new recurring charge changes the order id or next charge date.
func DedupeKey(ev *paypro.Event) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s",
		ev.TypeID, ev.OrderID, ev.SubscriptionID, ev.SubscriptionNextChargeDate)))
	return hex.EncodeToString(sum[:])
}

func ipnLockName(ev *paypro.Event) string {
	if ev.SubscriptionID != "" {
		return "ipn:sub:" + ev.SubscriptionID
	}
	if ev.Custom.UserID != "" {
		return "ipn:user:" + ev.Custom.UserID
	}
	return "ipn:order:" + ev.OrderID
}

type applyResult struct {
	outcome string
	detail  string
	flagged bool
	userID  string
}

func ignored(detail string) applyResult {
	return applyResult{outcome: domain.EventIgnored, detail: detail}
}

func flagged(outcome, detail string) applyResult {
	return applyResult{outcome: outcome, detail: detail, flagged: true}
}

// apply runs the subscription state machine for a verified, first-seen event
func (s *BillingService) apply(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event, now time.Time) (applyResult, error) {
	switch ev.TypeID {
	case paypro.IPNOrderCharged, paypro.IPNSubscriptionChargeSucceed, paypro.IPNTrialCharge:
		switch {
		case ev.Custom.PlanID != "":
			return s.activate(ctx, subs, ev, now)
		case ev.Custom.PackID != "":
			return s.addPack(ctx, subs, ev)
		case ev.TypeID == paypro.IPNSubscriptionChargeSucceed:
			return s.renew(ctx, subs, ev, now)
		default:
			return flagged(domain.EventRejectedMapping, "charge without planId or packId"), nil
		}

	case paypro.IPNSubscriptionRenewed:
		return s.renew(ctx, subs, ev, now)

	case paypro.IPNSubscriptionChargeFailed:
		return s.transition(ctx, subs, ev, func(sub *domain.Subscription) bool {
			if sub.Status != domain.SubscriptionActive {
				return false
			}
			sub.Status = domain.SubscriptionPastDue
			return true
		})

	case paypro.IPNSubscriptionSuspended:
		return s.transition(ctx, subs, ev, func(sub *domain.Subscription) bool {
			if sub.Status != domain.SubscriptionActive && sub.Status != domain.SubscriptionPastDue {
				return false
			}
			sub.Status = domain.SubscriptionCancelled
			sub.CancelledAt = &now
			return true
		})

	case paypro.IPNSubscriptionTerminated, paypro.IPNSubscriptionFinished:
		return s.transition(ctx, subs, ev, func(sub *domain.Subscription) bool {
			if sub.Status == domain.SubscriptionExpired {
				return false
			}
			sub.Status = domain.SubscriptionExpired
			return true
		})

	case paypro.IPNOrderRefunded, paypro.IPNOrderPartiallyRefunded, paypro.IPNOrderChargedBack:
		return flagged(domain.EventNeedsReview, ev.TypeID.String()+" requires manual entitlement review"), nil

	default:
		return ignored("no entitlement change for " + ev.TypeID.String()), nil
	}
}

// locate finds the subscription an event refers to: by processor
// subscription id first, then by the correlated user id.
func (s *BillingService) locate(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event) (*domain.Subscription, error) {
	if ev.SubscriptionID != "" {
		sub, err := subs.LockByExternalID(ctx, ev.SubscriptionID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if ev.Custom.UserID != "" {
		return subs.LockByUserID(ctx, ev.Custom.UserID)
	}
	return nil, nil
}

func (s *BillingService) activate(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event, now time.Time) (applyResult, error) {
	planID := ev.Custom.PlanID
	if !plans.IsPurchasable(planID) {
		return flagged(domain.EventRejectedMapping, "unknown planId "+planID), nil
	}

	sub, err := s.locate(ctx, subs, ev)
	if err != nil {
		return applyResult{}, fmt.Errorf("locate subscription: %w", err)
	}

	period := ev.Custom.BillingPeriod
	if period == "" && sub != nil {
		period = sub.BillingPeriod
	}
	if period == "" {
		period = paypro.PeriodMonthly
	}
	if period != paypro.PeriodMonthly && period != paypro.PeriodYearly {
		return flagged(domain.EventRejectedMapping, "unknown billingPeriod "+period), nil
	}
	if !s.verifier.ProductMatches(ev.ProductID, planID, "", period) {
		return flagged(domain.EventRejectedMapping, fmt.Sprintf("product %q is not %s %s", ev.ProductID, planID, period)), nil
	}

	// recurring charges echo the original custom fields
	if ev.TypeID == paypro.IPNSubscriptionChargeSucceed && sub != nil && ev.SubscriptionID != "" &&
		sub.PlanID == planID && sub.BillingPeriod == period && sub.ExternalID() == ev.SubscriptionID {
		return s.extend(ctx, subs, sub, now)
	}

	if sub == nil {
		if ev.Custom.UserID == "" {
			return flagged(domain.EventUnknownSubscriber, "charge without userId"), nil
		}
		sub = &domain.Subscription{UserID: ev.Custom.UserID}
	}

	sub.PlanID = planID
	sub.Status = domain.SubscriptionActive
	sub.BillingPeriod = period
	sub.MessagesLimit = plans.MessagesLimit(planID)
	sub.MessagesUsed = 0
	sub.ExpiresAt = addPeriod(now, period)
	sub.CancelledAt = nil
	if ev.SubscriptionID != "" {
		extID := ev.SubscriptionID
		sub.ExternalSubID = &extID
	}

	if sub.ID == 0 {
		err = subs.Create(ctx, sub)
	} else {
		err = subs.UpdateWithVersion(ctx, sub)
	}
	if err != nil {
		return applyResult{}, fmt.Errorf("activate subscription: %w", err)
	}

	return applyResult{outcome: domain.EventApplied, detail: "activated " + planID + " " + period, userID: sub.UserID}, nil
}

func (s *BillingService) addPack(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event) (applyResult, error) {
	pack, ok := plans.GetPack(ev.Custom.PackID)
	if !ok {
		return flagged(domain.EventRejectedMapping, "unknown packId "+ev.Custom.PackID), nil
	}
	if !s.verifier.ProductMatches(ev.ProductID, "", pack.ID, paypro.PeriodOneTime) {
		return flagged(domain.EventRejectedMapping, fmt.Sprintf("product %q is not %s", ev.ProductID, pack.ID)), nil
	}
	if ev.Custom.UserID == "" {
		return flagged(domain.EventUnknownSubscriber, "pack purchase without userId"), nil
	}

	sub, err := subs.LockByUserID(ctx, ev.Custom.UserID)
	if err != nil {
		return applyResult{}, fmt.Errorf("locate subscription: %w", err)
	}
	if sub == nil {
		return flagged(domain.EventUnknownSubscriber, "no subscription for user "+ev.Custom.UserID), nil
	}

	sub.MessagesLimit += pack.Messages
	if err := subs.UpdateWithVersion(ctx, sub); err != nil {
		return applyResult{}, fmt.Errorf("add pack: %w", err)
	}

	return applyResult{outcome: domain.EventApplied, detail: fmt.Sprintf("added %s (+%d)", pack.ID, pack.Messages), userID: sub.UserID}, nil
}

func (s *BillingService) renew(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event, now time.Time) (applyResult, error) {
	sub, err := s.locate(ctx, subs, ev)
	if err != nil {
		return applyResult{}, fmt.Errorf("locate subscription: %w", err)
	}
	if sub == nil {
		return flagged(domain.EventUnknownSubscriber, "renewal for unknown subscription "+ev.SubscriptionID), nil
	}
	if !plans.IsPurchasable(sub.PlanID) {
		return flagged(domain.EventNeedsReview, "renewal for non-paid plan "+sub.PlanID), nil
	}
	return s.extend(ctx, subs, sub, now)
}

// extend renews a located paid subscription by one period from
// max(expiry, now). The message limit is kept so pack boosts persist.
func (s *BillingService) extend(ctx context.Context, subs *repository.SubscriptionRepository, sub *domain.Subscription, now time.Time) (applyResult, error) {
	period := sub.BillingPeriod
	if period != paypro.PeriodYearly {
		period = paypro.PeriodMonthly
	}
	base := sub.ExpiresAt
	if base.Before(now) {
		base = now
	}

	sub.Status = domain.SubscriptionActive
	sub.MessagesUsed = 0
	sub.ExpiresAt = addPeriod(base, period)
	sub.CancelledAt = nil
	if err := subs.UpdateWithVersion(ctx, sub); err != nil {
		return applyResult{}, fmt.Errorf("renew subscription: %w", err)
	}

	return applyResult{outcome: domain.EventApplied, detail: "renewed until " + sub.ExpiresAt.Format(time.RFC3339), userID: sub.UserID}, nil
}

func (s *BillingService) transition(ctx context.Context, subs *repository.SubscriptionRepository, ev *paypro.Event, mutate func(*domain.Subscription) bool) (applyResult, error) {
	sub, err := s.locate(ctx, subs, ev)
	if err != nil {
		return applyResult{}, fmt.Errorf("locate subscription: %w", err)
	}
	if sub == nil {
		return flagged(domain.EventUnknownSubscriber, ev.TypeID.String()+" for unknown subscription "+ev.SubscriptionID), nil
	}

	from := sub.Status
	if !mutate(sub) {
		return ignored(ev.TypeID.String() + " has no effect on " + from), nil
	}
	if err := subs.UpdateWithVersion(ctx, sub); err != nil {
		return applyResult{}, fmt.Errorf("update subscription: %w", err)
	}

	return applyResult{outcome: domain.EventApplied, detail: from + " -> " + sub.Status, userID: sub.UserID}, nil
}

// ListEvents returns recorded deliveries for operator review
func (s *BillingService) ListEvents(ctx context.Context, f repository.BillingEventFilter) ([]domain.BillingEvent, int64, error) {
	return s.store.Events.List(ctx, f)
}

func addPeriod(t time.Time, period string) time.Time {
	if period == paypro.PeriodYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}
