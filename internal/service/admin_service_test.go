package service_test

import (
	"context"
	"testing"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_Dashboard(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	admin := seedAccount(t, f.accounts, "admin@example.com", "Password123", domain.RoleAdmin)
	admins := service.NewAdminService(f.accounts, f.donations)
	viewer := service.Viewer{AccountID: f.donor.ID}

	for _, tc := range []struct {
		amount  int64
		verdict domain.GatewayStatus
	}{
		{50, domain.GatewayPaid},
		{25, domain.GatewayPaid},
		{99, domain.GatewaySessionExpired},
	} {
		res, err := f.svc.InitializeDonation(ctx, f.donor.ID, decimal.NewFromInt(tc.amount), "usd", "https://give.example.org")
		require.NoError(t, err)
		f.gateway.Script(res.SessionRef, tc.verdict)
		_, err = f.svc.Verify(ctx, viewer, res.SessionRef)
		require.NoError(t, err)
	}

	grant, err := f.auth.GrantAdmin(ctx, admin.ID)
	require.NoError(t, err)

	dashboard, err := admins.Dashboard(ctx, grant)
	require.NoError(t, err)
	assert.Equal(t, int64(2), dashboard.TotalUsers)
	assert.Equal(t, int64(3), dashboard.TotalDonations)
	assert.Equal(t, "75.00", dashboard.TotalAmount["usd"].StringFixed(2))
}

func TestAdminService_RequiresGrant(t *testing.T) {
	f := newDonationFixture(t)
	admins := service.NewAdminService(f.accounts, f.donations)

	_, err := admins.Dashboard(context.Background(), service.AdminGrant{})
	assert.Equal(t, service.KindForbidden, service.KindOf(err))
}
