package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAccountRepository_EmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	require.NoError(t, repo.Create(ctx, &domain.Account{Name: "Donor", Email: "Donor@Example.com", PasswordHash: strPtr("h")}))

	got, err := repo.GetByEmail(ctx, " donor@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, "donor@example.com", got.Email)
	assert.Equal(t, domain.RoleUser, got.Role)

	err = repo.Create(ctx, &domain.Account{Name: "Other", Email: "DONOR@example.com", PasswordHash: strPtr("h")})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestAccountRepository_ConsumeResetOTPOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	now := time.Now()

	account := &domain.Account{Name: "Donor", Email: "donor@example.com", PasswordHash: strPtr("old")}
	require.NoError(t, repo.Create(ctx, account))
	require.NoError(t, repo.SetResetOTP(ctx, account.ID, "123456", now.Add(time.Hour)))

	require.NoError(t, repo.MatchResetOTP(ctx, "donor@example.com", "123456", now))
	assert.ErrorIs(t, repo.MatchResetOTP(ctx, "donor@example.com", "654321", now), repository.ErrNotFound)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.ConsumeResetOTP(ctx, "donor@example.com", "123456", "new", now) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", *got.PasswordHash)
	assert.Nil(t, got.ResetOTP)
	assert.Nil(t, got.ResetOTPExpiresAt)
}

func TestAccountRepository_ExpiredOTPRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	now := time.Now()

	account := &domain.Account{Name: "Donor", Email: "donor@example.com", PasswordHash: strPtr("old")}
	require.NoError(t, repo.Create(ctx, account))
	require.NoError(t, repo.SetResetOTP(ctx, account.ID, "123456", now.Add(time.Hour)))

	err := repo.ConsumeResetOTP(ctx, "donor@example.com", "123456", "new", now.Add(61*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAccountRepository_ResetToken(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	now := time.Now()

	account := &domain.Account{Name: "Donor", Email: "donor@example.com", PasswordHash: strPtr("old")}
	require.NoError(t, repo.Create(ctx, account))
	require.NoError(t, repo.SetResetToken(ctx, account.ID, "hash", now.Add(time.Hour)))

	require.NoError(t, repo.ConsumeResetToken(ctx, "hash", "new", now))
	assert.ErrorIs(t, repo.ConsumeResetToken(ctx, "hash", "newer", now), repository.ErrNotFound)
}

func TestAccountRepository_GoogleIDUnique(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()

	a := &domain.Account{Name: "A", Email: "a@example.com", GoogleID: strPtr("g-1")}
	b := &domain.Account{Name: "B", Email: "b@example.com", PasswordHash: strPtr("h")}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	assert.ErrorIs(t, repo.LinkGoogleID(ctx, b.ID, "g-1"), repository.ErrDuplicateExternalID)

	got, err := repo.GetByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestDonationRepository_TerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	repo := NewDonationRepository()

	d := &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(50), Currency: domain.CurrencyUSD, SessionRef: "cs_1"}
	require.NoError(t, repo.Create(ctx, d))
	assert.Equal(t, domain.DonationInitiated, d.Status)

	updated, err := repo.TransitionStatus(ctx, "cs_1", domain.DonationSuccess)
	require.NoError(t, err)
	assert.Equal(t, domain.DonationSuccess, updated.Status)

	_, err = repo.TransitionStatus(ctx, "cs_1", domain.DonationFailed)
	assert.ErrorIs(t, err, repository.ErrTerminalState)

	_, err = repo.TransitionStatus(ctx, "cs_missing", domain.DonationFailed)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(1), Currency: domain.CurrencyUSD, SessionRef: "cs_1"})
	assert.ErrorIs(t, err, repository.ErrDuplicateSessionRef)
}

func TestDonationRepository_ListStaleAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewDonationRepository()
	old := time.Now().Add(-time.Hour)

	require.NoError(t, repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, SessionRef: "cs_old", CreatedAt: old, UpdatedAt: old}))
	require.NoError(t, repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(20), Currency: domain.CurrencyUSD, SessionRef: "cs_new"}))
	require.NoError(t, repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.RequireFromString("5.50"), Currency: domain.CurrencyEUR, SessionRef: "cs_done", Status: domain.DonationSuccess, CreatedAt: old, UpdatedAt: old}))

	stale, err := repo.ListStale(ctx, time.Now().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "cs_old", stale[0].SessionRef)

	history, err := repo.ListByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "cs_new", history[0].SessionRef)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalDonations)
	assert.True(t, stats.TotalAmount[domain.CurrencyEUR].Equal(decimal.RequireFromString("5.5")))
	_, hasUSD := stats.TotalAmount[domain.CurrencyUSD]
	assert.False(t, hasUSD)
}

func TestDonationRepository_ListStaleOrdersByLastCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewDonationRepository()
	older := time.Now().Add(-2 * time.Hour)
	old := time.Now().Add(-time.Hour)

	require.NoError(t, repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, SessionRef: "cs_a", CreatedAt: older, UpdatedAt: older}))
	require.NoError(t, repo.Create(ctx, &domain.Donation{UserID: "u", Amount: decimal.NewFromInt(10), Currency: domain.CurrencyUSD, SessionRef: "cs_b", CreatedAt: old, UpdatedAt: old}))

	stale, err := repo.ListStale(ctx, time.Now().Add(-time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "cs_a", stale[0].SessionRef)
	assert.Nil(t, stale[0].LastCheckedAt)

	require.NoError(t, repo.MarkChecked(ctx, "cs_a"))

	// a fresh check moves cs_a behind cs_b and out of the stale window
	stale, err = repo.ListStale(ctx, time.Now().Add(-time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "cs_b", stale[0].SessionRef)

	stale, err = repo.ListStale(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "cs_b", stale[0].SessionRef)
	assert.Equal(t, "cs_a", stale[1].SessionRef)
	require.NotNil(t, stale[1].LastCheckedAt)

	assert.ErrorIs(t, repo.MarkChecked(ctx, "cs_missing"), repository.ErrNotFound)
}
