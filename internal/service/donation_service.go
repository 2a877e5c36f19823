package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NUMERIC(14,2) upper bound
var maxDonationAmount = decimal.RequireFromString("999999999999.99")

// donationService implements DonationService interface
type donationService struct {
	accountRepo    repository.AccountRepository
	donationRepo   repository.DonationRepository
	gateway        PaymentGateway
	reconciler     Reconciler
	gatewayTimeout time.Duration
	metrics        *Metrics
	logger         *zap.Logger
}

// NewDonationService creates a new donation service
func NewDonationService(
	accountRepo repository.AccountRepository,
	donationRepo repository.DonationRepository,
	gateway PaymentGateway,
	reconciler Reconciler,
	gatewayTimeout time.Duration,
	metrics *Metrics,
	logger *zap.Logger,
) DonationService {
	return &donationService{
		accountRepo:    accountRepo,
		donationRepo:   donationRepo,
		gateway:        gateway,
		reconciler:     reconciler,
		gatewayTimeout: gatewayTimeout,
		metrics:        metrics,
		logger:         logger,
	}
}

// InitializeDonation opens a checkout session and records the donation as initiated
func (s *donationService) InitializeDonation(ctx context.Context, accountID string, amount decimal.Decimal, currency, returnOrigin string) (*InitializeResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero: %w", ErrInvalidAmount)
	}
	if amount.GreaterThan(maxDonationAmount) {
		return nil, fmt.Errorf("amount is too large: %w", ErrInvalidAmount)
	}

	cur, ok := domain.ParseCurrency(currency)
	if !ok {
		return nil, fmt.Errorf("currency %q is not supported: %w", currency, ErrUnsupportedCurrency)
	}
	if !cur.Fits(amount) {
		return nil, fmt.Errorf("amount has more than %d decimal places: %w", cur.MinorUnits(), ErrInvalidAmount)
	}

	origin, err := normalizeOrigin(returnOrigin)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("account not found: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	session, err := s.gateway.CreateSession(gatewayCtx, CheckoutRequest{
		Amount:     amount,
		Currency:   cur,
		SuccessURL: origin + "/donation-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin,
		Metadata: map[string]string{
			"user_id": account.ID,
			"email":   account.Email,
		},
	})
	if err != nil {
		s.logger.Warn("checkout session creation failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	donation := &domain.Donation{
		UserID:     account.ID,
		Amount:     amount,
		Currency:   cur,
		SessionRef: session.SessionRef,
		Status:     domain.DonationInitiated,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		// the gateway session stays open without a record and will expire on its own
		s.logger.Error("failed to record donation for open checkout session",
			zap.String("session_ref", session.SessionRef),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}

	s.metrics.donationInitialized(ctx, string(cur))
	s.logger.Info("donation initiated",
		zap.String("donation_id", donation.ID),
		zap.String("session_ref", donation.SessionRef),
		zap.String("currency", string(cur)),
	)

	return &InitializeResult{
		DonationID:  donation.ID,
		SessionRef:  session.SessionRef,
		CheckoutURL: session.URL,
	}, nil
}

// GetStatus returns the stored record, visible to its owner and to admins
func (s *donationService) GetStatus(ctx context.Context, viewer Viewer, recordID string) (*domain.Donation, error) {
	donation, err := s.donationRepo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("donation not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	if !viewer.canSee(donation) {
		return nil, fmt.Errorf("donation not found: %w", ErrNotFound)
	}

	return donation, nil
}

// Verify runs one reconciliation step for a donation the viewer may see
func (s *donationService) Verify(ctx context.Context, viewer Viewer, sessionRef string) (*ReconciliationResult, error) {
	donation, err := s.donationRepo.GetBySessionRef(ctx, sessionRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("donation not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	if !viewer.canSee(donation) {
		return nil, fmt.Errorf("donation not found: %w", ErrNotFound)
	}

	return s.reconciler.Reconcile(ctx, sessionRef, domain.SourceVerify)
}

// History lists the account's donations and sums the successful ones per currency
func (s *donationService) History(ctx context.Context, accountID string) (*DonationHistory, error) {
	donations, err := s.donationRepo.ListByUser(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}

	history := &DonationHistory{
		Donations:    donations,
		TotalDonated: map[domain.Currency]decimal.Decimal{},
	}
	for _, d := range donations {
		if d.Status == domain.DonationSuccess {
			history.TotalDonated[d.Currency] = history.TotalDonated[d.Currency].Add(d.Amount)
		}
	}

	return history, nil
}

func normalizeOrigin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("origin_url must be an absolute http(s) URL: %w", ErrInvalidInput)
	}

	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/"), nil
}
