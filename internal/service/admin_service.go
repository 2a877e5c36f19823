package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/shopspring/decimal"
)

// adminService implements AdminService interface
type adminService struct {
	accountRepo  repository.AccountRepository
	donationRepo repository.DonationRepository
}

// NewAdminService creates a new admin service
func NewAdminService(accountRepo repository.AccountRepository, donationRepo repository.DonationRepository) AdminService {
	return &adminService{
		accountRepo:  accountRepo,
		donationRepo: donationRepo,
	}
}

// Dashboard returns platform totals
func (s *adminService) Dashboard(ctx context.Context, grant AdminGrant) (*dto.DashboardResponse, error) {
	if err := grant.require(); err != nil {
		return nil, err
	}

	users, err := s.accountRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats, err := s.donationRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get donation stats: %w", err)
	}

	totals := make(map[string]decimal.Decimal, len(stats.TotalAmount))
	for currency, amount := range stats.TotalAmount {
		totals[string(currency)] = amount
	}

	return &dto.DashboardResponse{
		TotalUsers:     users,
		TotalDonations: stats.TotalDonations,
		TotalAmount:    totals,
	}, nil
}
