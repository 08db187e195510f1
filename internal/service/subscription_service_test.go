package service

import (
	"context"
	"testing"
	"time"

	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProcessor is a mock of SubscriptionProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) CancelSubscription(ctx context.Context, id string) paypro.ActionResult {
	return m.Called(ctx, id).Get(0).(paypro.ActionResult)
}

func (m *MockProcessor) ResumeSubscription(ctx context.Context, id string) paypro.ActionResult {
	return m.Called(ctx, id).Get(0).(paypro.ActionResult)
}

func (m *MockProcessor) TerminateSubscription(ctx context.Context, id string) paypro.ActionResult {
	return m.Called(ctx, id).Get(0).(paypro.ActionResult)
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newSubscriptionService(t *testing.T) (*SubscriptionService, *repository.BillingStore, *MockProcessor) {
	t.Helper()
	store := repository.NewBillingStore(openTestDB(t))
	proc := new(MockProcessor)
	svc := NewSubscriptionService(store, proc, cache.NewService(nil))
	svc.now = func() time.Time { return fixedNow }
	return svc, store, proc
}

func seedPaid(t *testing.T, store *repository.BillingStore, userID, externalID, status string) *domain.Subscription {
	t.Helper()
	sub := &domain.Subscription{
		UserID:        userID,
		PlanID:        "pro",
		Status:        status,
		BillingPeriod: "monthly",
		MessagesLimit: 1000,
		ExpiresAt:     fixedNow.AddDate(0, 0, 20),
	}
	if externalID != "" {
		sub.ExternalSubID = &externalID
	}
	require.NoError(t, store.Subscriptions.Create(context.Background(), sub))
	return sub
}

func TestStartTrial_Idempotent(t *testing.T) {
	svc, _, _ := newSubscriptionService(t)
	ctx := context.Background()

	sub, created, err := svc.StartTrial(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "trial", sub.PlanID)
	assert.Equal(t, 50, sub.MessagesLimit)
	assert.True(t, sub.ExpiresAt.Equal(fixedNow.AddDate(0, 0, 14)))

	again, created, err := svc.StartTrial(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)
}

func TestCancel_LocalWriteOnlyAfterSuccess(t *testing.T) {
	svc, store, proc := newSubscriptionService(t)
	ctx := context.Background()
	seedPaid(t, store, "u1", "7001", domain.SubscriptionActive)

	proc.On("CancelSubscription", mock.Anything, "7001").
		Return(paypro.ActionResult{Success: false, Error: "timeout"}).Once()

	_, err := svc.Cancel(ctx, "u1")
	assert.ErrorIs(t, err, ErrProcessorFailure)

	stored, err := store.Subscriptions.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, stored.Status)
	assert.Nil(t, stored.CancelledAt)

	proc.On("CancelSubscription", mock.Anything, "7001").
		Return(paypro.ActionResult{Success: true}).Once()

	updated, err := svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, updated.Status)
	assert.True(t, updated.ExpiresAt.Equal(fixedNow.AddDate(0, 0, 20)))

	stored, err = store.Subscriptions.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, stored.Status)
	assert.NotNil(t, stored.CancelledAt)
	proc.AssertExpectations(t)
}

func TestCancel_Guards(t *testing.T) {
	svc, store, proc := newSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNoSubscription)

	seedPaid(t, store, "manual", "", domain.SubscriptionActive)
	_, err = svc.Cancel(ctx, "manual")
	assert.ErrorIs(t, err, ErrNoExternalSubscription)

	seedPaid(t, store, "gone", "7002", domain.SubscriptionExpired)
	_, err = svc.Cancel(ctx, "gone")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	proc.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
}

func TestResume(t *testing.T) {
	svc, store, proc := newSubscriptionService(t)
	ctx := context.Background()
	seedPaid(t, store, "u1", "7001", domain.SubscriptionCancelled)

	proc.On("ResumeSubscription", mock.Anything, "7001").Return(paypro.ActionResult{Success: true})

	updated, err := svc.Resume(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, updated.Status)
	assert.Nil(t, updated.CancelledAt)

	_, err = svc.Resume(ctx, "u1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	proc.AssertNumberOfCalls(t, "ResumeSubscription", 1)
}

func TestTerminate(t *testing.T) {
	svc, store, proc := newSubscriptionService(t)
	ctx := context.Background()
	seedPaid(t, store, "paid", "7001", domain.SubscriptionActive)
	seedPaid(t, store, "trialist", "", domain.SubscriptionActive)

	proc.On("TerminateSubscription", mock.Anything, "7001").
		Return(paypro.ActionResult{Success: false, Error: "denied"}).Once()
	_, err := svc.Terminate(ctx, "paid")
	assert.ErrorIs(t, err, ErrProcessorFailure)

	proc.On("TerminateSubscription", mock.Anything, "7001").
		Return(paypro.ActionResult{Success: true}).Once()
	updated, err := svc.Terminate(ctx, "paid")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, updated.Status)

	local, err := svc.Terminate(ctx, "trialist")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, local.Status)

	_, err = svc.Terminate(ctx, "trialist")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	proc.AssertExpectations(t)
}

func TestConsumeMessages(t *testing.T) {
	svc, store, _ := newSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.ConsumeMessages(ctx, "u1", 0)
	assert.ErrorIs(t, err, ErrInvalidUsage)

	_, err = svc.ConsumeMessages(ctx, "ghost", 1)
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, _, err = svc.StartTrial(ctx, "u1")
	require.NoError(t, err)

	usage, err := svc.ConsumeMessages(ctx, "u1", 45)
	require.NoError(t, err)
	assert.Equal(t, 45, usage.MessagesUsed)
	assert.Equal(t, 5, usage.MessagesRemaining)

	_, err = svc.ConsumeMessages(ctx, "u1", 6)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	require.NoError(t, store.Subscriptions.Create(ctx, &domain.Subscription{
		UserID:        "big",
		PlanID:        "enterprise",
		Status:        domain.SubscriptionActive,
		MessagesLimit: 999999,
		MessagesUsed:  999999,
		ExpiresAt:     fixedNow.AddDate(0, 1, 0),
	}))
	usage, err = svc.ConsumeMessages(ctx, "big", 10)
	require.NoError(t, err)
	assert.True(t, usage.Unlimited)
}

func TestExpireOverdue(t *testing.T) {
	svc, store, _ := newSubscriptionService(t)
	ctx := context.Background()

	late := seedPaid(t, store, "late", "7001", domain.SubscriptionCancelled)
	late.ExpiresAt = fixedNow.Add(-time.Hour)
	require.NoError(t, store.Subscriptions.UpdateWithVersion(ctx, late))
	seedPaid(t, store, "ok", "7002", domain.SubscriptionActive)

	n, err := svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	view, err := svc.GetView(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, view.Status)
	assert.False(t, view.Usable)

	n, err = svc.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetView(t *testing.T) {
	svc, store, _ := newSubscriptionService(t)
	ctx := context.Background()

	_, err := svc.GetView(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNoSubscription)

	seedPaid(t, store, "u1", "7001", domain.SubscriptionActive)
	view, err := svc.GetView(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Pro", view.PlanName)
	assert.Equal(t, 1000, view.MessagesRemaining)
	assert.True(t, view.Managed)
	assert.True(t, view.Usable)
	assert.Len(t, view.Features, 6)
	for name, enabled := range view.Features {
		assert.True(t, enabled, name)
	}
}
