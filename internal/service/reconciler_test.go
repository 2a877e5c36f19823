package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository/memory"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/prperemyshlev/donation-service/internal/testutil"
	"github.com/prperemyshlev/donation-service/pkg/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reconcileFixture struct {
	reconciler service.Reconciler
	donations  *memory.DonationRepository
	events     *memory.DonationEventRepository
	gateway    *testutil.FakeGateway
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		donations: memory.NewDonationRepository(),
		events:    memory.NewDonationEventRepository(),
		gateway:   testutil.NewFakeGateway(),
	}
	f.reconciler = service.NewReconciler(f.donations, f.events, f.gateway, time.Second, service.NoopMetrics(), zap.NewNop())
	return f
}

func (f *reconcileFixture) seed(t *testing.T, ref string, status domain.DonationStatus) *domain.Donation {
	t.Helper()

	d := &domain.Donation{
		UserID:     "donor-1",
		Amount:     decimal.NewFromInt(50),
		Currency:   domain.CurrencyUSD,
		SessionRef: ref,
		Status:     status,
	}
	require.NoError(t, f.donations.Create(context.Background(), d))
	return d
}

func TestReconciler_SettlesAfterPendingPolls(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	d := f.seed(t, "cs_50_usd", domain.DonationInitiated)
	f.gateway.Script("cs_50_usd",
		domain.GatewayNoStatusYet,
		domain.GatewayNoStatusYet,
		domain.GatewayNoStatusYet,
		domain.GatewayPaid,
	)

	for i := 0; i < 3; i++ {
		res, err := f.reconciler.Reconcile(ctx, "cs_50_usd", domain.SourceVerify)
		require.NoError(t, err)
		assert.Equal(t, domain.DonationPending, res.Status)
		assert.Equal(t, domain.GatewayNoStatusYet, res.GatewayStatus)
	}

	res, err := f.reconciler.Reconcile(ctx, "cs_50_usd", domain.SourceVerify)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationSuccess, res.Status)
	assert.Equal(t, domain.GatewayPaid, res.GatewayStatus)
	assert.Equal(t, d.ID, res.DonationID)
	assert.True(t, decimal.NewFromInt(50).Equal(res.Amount))
	assert.Equal(t, domain.CurrencyUSD, res.Currency)

	// initiated -> pending, pending -> success
	events, err := f.events.ListByDonation(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.DonationInitiated, events[0].PreviousStatus)
	assert.Equal(t, domain.DonationPending, events[0].NewStatus)
	assert.Equal(t, domain.DonationSuccess, events[1].NewStatus)
	assert.Equal(t, domain.GatewayPaid, events[1].GatewayStatus)
}

func TestReconciler_TerminalIsFinal(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	f.seed(t, "cs_done", domain.DonationSuccess)
	f.gateway.Script("cs_done", domain.GatewayPaymentFailed)

	for _, source := range []domain.ReconcileSource{domain.SourceVerify, domain.SourceWebhook, domain.SourceSweep} {
		res, err := f.reconciler.Reconcile(ctx, "cs_done", source)
		require.NoError(t, err)
		assert.Equal(t, domain.DonationSuccess, res.Status)
		assert.Equal(t, domain.GatewayPaid, res.GatewayStatus)
	}

	assert.Zero(t, f.gateway.StatusCalls("cs_done"))
}

func TestReconciler_TerminalOutcomes(t *testing.T) {
	tests := []struct {
		verdict domain.GatewayStatus
		want    domain.DonationStatus
	}{
		{domain.GatewayPaid, domain.DonationSuccess},
		{domain.GatewayPaymentFailed, domain.DonationFailed},
		{domain.GatewaySessionExpired, domain.DonationExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.verdict), func(t *testing.T) {
			f := newReconcileFixture()
			f.seed(t, "cs_x", domain.DonationPending)
			f.gateway.Script("cs_x", tt.verdict)

			res, err := f.reconciler.Reconcile(context.Background(), "cs_x", domain.SourceWebhook)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
		})
	}
}

func TestReconciler_GatewayErrorLeavesPending(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	f.seed(t, "cs_down", domain.DonationInitiated)
	f.gateway.StatusErr = errors.New("connection reset")

	res, err := f.reconciler.Reconcile(ctx, "cs_down", domain.SourceVerify)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationPending, res.Status)
	assert.Equal(t, domain.GatewayUnknown, res.GatewayStatus)

	stored, err := f.donations.GetBySessionRef(ctx, "cs_down")
	require.NoError(t, err)
	assert.Equal(t, domain.DonationPending, stored.Status)
}

func TestReconciler_UnchangedStepMarksChecked(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	d := f.seed(t, "cs_waiting", domain.DonationPending)
	require.Nil(t, d.LastCheckedAt)

	before := time.Now()
	res, err := f.reconciler.Reconcile(ctx, "cs_waiting", domain.SourceSweep)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationPending, res.Status)

	stored, err := f.donations.GetBySessionRef(ctx, "cs_waiting")
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckedAt)
	assert.False(t, stored.LastCheckedAt.Before(before))
	assert.Equal(t, d.UpdatedAt, stored.UpdatedAt)

	events, err := f.events.ListByDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReconciler_UnknownRef(t *testing.T) {
	f := newReconcileFixture()

	_, err := f.reconciler.Reconcile(context.Background(), "cs_missing", domain.SourceWebhook)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestReconciler_ConcurrentStepsAgree(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	d := f.seed(t, "cs_race", domain.DonationPending)
	f.gateway.Script("cs_race", domain.GatewayPaid)

	results := make([]*service.ReconciliationResult, 10)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.reconciler.Reconcile(ctx, "cs_race", domain.SourceWebhook)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, domain.DonationSuccess, res.Status)
	}

	events, err := f.events.ListByDonation(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestWaitForSettlement(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	f.seed(t, "cs_wait", domain.DonationInitiated)
	f.gateway.Script("cs_wait", domain.GatewayNoStatusYet, domain.GatewayNoStatusYet, domain.GatewayPaid)

	res, err := service.WaitForSettlement(ctx, f.reconciler, "cs_wait", domain.SourceCLI,
		retry.Policy{Interval: time.Millisecond, MaxAttempts: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.DonationSuccess, res.Status)
	assert.Equal(t, 3, f.gateway.StatusCalls("cs_wait"))
}

func TestWaitForSettlement_Exhausted(t *testing.T) {
	f := newReconcileFixture()
	f.seed(t, "cs_slow", domain.DonationInitiated)

	res, err := service.WaitForSettlement(context.Background(), f.reconciler, "cs_slow", domain.SourceCLI,
		retry.Policy{Interval: time.Millisecond, MaxAttempts: 3})
	assert.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	require.NotNil(t, res)
	assert.Equal(t, domain.DonationPending, res.Status)
	assert.Equal(t, 3, f.gateway.StatusCalls("cs_slow"))
}
